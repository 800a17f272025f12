package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/gksapp/gks/internal/domain"
)

// AllYears is the picker entry that clears the year filter
const AllYears = "All"

// FetchDistinctValues returns the sorted distinct values of field across
// the whole collection. It does not touch any cursor state.
func FetchDistinctValues(ctx context.Context, querier domain.CollectionQuerier, field string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	page, err := querier.Query(ctx, Collection, domain.QueryOptions{OrderField: field})
	if err != nil {
		logger.Error("failed to fetch distinct values", "error", err, "field", field)
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.TransientError("fetch distinct "+field, err)
		}
		return nil, err
	}

	seen := make(map[string]bool)
	var values []string
	for _, d := range page.Docs {
		v, ok := d.Value(field)
		if !ok || v == nil {
			continue
		}
		s := domain.FormatValue(v)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		values = append(values, s)
	}
	sort.Strings(values)
	return values, nil
}

// FetchDistinctValues is a convenience wrapper over the cursor's querier
func (c *Cursor) FetchDistinctValues(ctx context.Context, field string) ([]string, error) {
	return FetchDistinctValues(ctx, c.querier, field, c.logger)
}

// YearOptions prefixes the "All" entry to a list of years
func YearOptions(years []string) []string {
	return append([]string{AllYears}, years...)
}

// ParseYearFilter maps a picker value to a filter. "" and "All" mean no filter.
func ParseYearFilter(value string) (*domain.FieldFilter, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, AllYears) {
		return nil, nil
	}
	year, err := strconv.Atoi(value)
	if err != nil {
		return nil, domain.InvalidInput("year filter", fmt.Errorf("%w: %q is not a year", domain.ErrInvalidFilter, value))
	}
	return &domain.FieldFilter{Field: OrderField, Value: year}, nil
}
