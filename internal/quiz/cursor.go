package quiz

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/gksapp/gks/internal/domain"
)

const (
	// Collection holds the quiz questions
	Collection = "QuizQA"
	// OrderField orders questions and is the field year filters apply to
	OrderField = "year"
	// DefaultPageSize is the number of questions fetched per page
	DefaultPageSize = 10
)

// ErrPageDiscarded is returned by a fetch whose page was dropped because
// Reset ran while it was in flight. Cursor state reflects the reset only.
var ErrPageDiscarded = errors.New("page discarded by reset")

// PageState is a copy of the cursor's state
type PageState struct {
	Items     []domain.Question
	LastKey   string
	Exhausted bool
	InFlight  bool
	Filter    *domain.FieldFilter
}

// Cursor pages through the quiz collection with start-after keys,
// accumulating results. A page shorter than the page size ends pagination.
type Cursor struct {
	querier  domain.CollectionQuerier
	pageSize int
	logger   *slog.Logger

	mu        sync.Mutex
	filter    *domain.FieldFilter
	items     []domain.Question
	lastKey   string
	exhausted bool
	inFlight  bool
	gen       uint64 // bumped by Reset; results of older fetches are discarded
}

// NewCursor creates a cursor. pageSize <= 0 uses DefaultPageSize.
func NewCursor(querier domain.CollectionQuerier, pageSize int, logger *slog.Logger) *Cursor {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Cursor{querier: querier, pageSize: pageSize, logger: logger}
}

// PageSize returns the configured page size
func (c *Cursor) PageSize() int { return c.pageSize }

// Reset clears accumulated state, installs filter (nil for none) and
// fetches the first page.
func (c *Cursor) Reset(ctx context.Context, filter *domain.FieldFilter) error {
	c.mu.Lock()
	c.gen++
	c.filter = filter
	c.items = nil
	c.lastKey = ""
	c.exhausted = false
	c.inFlight = false
	c.mu.Unlock()

	return c.FetchPage(ctx)
}

// FetchPage loads the next page. It does nothing while a fetch is in
// flight or once the cursor is exhausted. On failure state is unchanged.
// A page overtaken by Reset is dropped and ErrPageDiscarded returned.
func (c *Cursor) FetchPage(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight || c.exhausted {
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	gen := c.gen
	opts := domain.QueryOptions{
		OrderField: OrderField,
		Equal:      c.filter,
		Limit:      c.pageSize,
		StartAfter: c.lastKey,
	}
	c.mu.Unlock()

	page, err := c.querier.Query(ctx, Collection, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("discarding page fetched before reset")
		return ErrPageDiscarded
	}
	c.inFlight = false

	if err != nil {
		c.logger.Error("failed to fetch questions", "error", err, "startAfter", opts.StartAfter)
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.TransientError("fetch questions", err)
		}
		return err
	}

	for _, d := range page.Docs {
		c.items = append(c.items, questionFromDocument(d))
	}
	c.lastKey = page.LastKey
	if c.lastKey == "" && len(page.Docs) > 0 {
		c.lastKey = page.Docs[len(page.Docs)-1].ID
	}
	c.exhausted = len(page.Docs) < c.pageSize

	c.logger.Debug("fetched questions", "count", len(page.Docs), "total", len(c.items), "exhausted", c.exhausted)
	return nil
}

// State returns a copy of the cursor state
func (c *Cursor) State() PageState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PageState{
		Items:     slices.Clone(c.items),
		LastKey:   c.lastKey,
		Exhausted: c.exhausted,
		InFlight:  c.inFlight,
		Filter:    c.filter,
	}
}

func questionFromDocument(d domain.Document) domain.Question {
	year, _ := d.Int("year")
	return domain.Question{
		ID:      d.ID,
		Year:    year,
		Content: d.String("content"),
	}
}
