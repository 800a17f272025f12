package catalog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gksapp/gks/internal/domain"
	"github.com/gksapp/gks/internal/search"
)

// Service combines the bundled source with the TTL cache.
type Service struct {
	cache  *Cache
	source Source
	logger *slog.Logger
}

// NewService creates a new catalog service.
func NewService(cache *Cache, source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewCache()
	}
	if source == nil {
		source = EmbeddedSource()
	}
	return &Service{cache: cache, source: source, logger: logger}
}

// Load returns the catalog for kind, deriving it from the source on a cache miss.
func (s *Service) Load(kind domain.Kind) ([]domain.CatalogItem, error) {
	if !kind.Valid() {
		err := domain.InvalidInput("load catalog", fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind))
		s.logger.Warn("rejected catalog load", "error", err)
		return nil, err
	}

	if items, ok := s.cache.Get(kind); ok {
		s.logger.Debug("catalog cache hit", "kind", kind, "count", len(items))
		return items, nil
	}

	start := time.Now()
	raw, err := s.source.Raw(kind)
	if err != nil {
		s.logger.Error("failed to load catalog", "error", err, "kind", kind)
		return nil, fmt.Errorf("load %s catalog: %w", kind, err)
	}
	items := s.cache.Set(kind, raw)
	s.logger.Info("loaded catalog", "kind", kind, "count", len(items), "elapsed", time.Since(start))
	return items, nil
}

// Invalidate forces the next Load of kind to re-derive
func (s *Service) Invalidate(kind domain.Kind) {
	s.cache.Invalidate(kind)
}

// Filter keeps items whose number or title contains query, ignoring case.
// A blank query returns items unchanged.
func Filter(items []domain.CatalogItem, query string) []domain.CatalogItem {
	return search.Catalog(items, query)
}
