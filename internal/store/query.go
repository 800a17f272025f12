package store

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/gksapp/gks/internal/domain"
)

// applyQuery orders, filters, positions and limits docs in memory
func applyQuery(docs []domain.Document, cursor *domain.Document, opts domain.QueryOptions) []domain.Document {
	var out []domain.Document
	for _, d := range docs {
		if opts.OrderField != "" {
			if _, ok := d.Value(opts.OrderField); !ok {
				continue
			}
		}
		if opts.Equal != nil {
			v, ok := d.Value(opts.Equal.Field)
			if !ok || compareValues(v, opts.Equal.Value) != 0 {
				continue
			}
		}
		out = append(out, d)
	}

	slices.SortFunc(out, func(a, b domain.Document) int {
		return compareDocs(a, b, opts.OrderField)
	})

	if cursor != nil {
		i, _ := slices.BinarySearchFunc(out, *cursor, func(d, c domain.Document) int {
			return compareDocs(d, c, opts.OrderField)
		})
		// skip the cursor document itself when it is part of the result
		if i < len(out) && out[i].ID == cursor.ID {
			i++
		}
		out = out[i:]
	}

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func compareDocs(a, b domain.Document, orderField string) int {
	if orderField != "" {
		av, _ := a.Value(orderField)
		bv, _ := b.Value(orderField)
		if c := compareValues(av, bv); c != 0 {
			return c
		}
	}
	return strings.Compare(a.ID, b.ID)
}

// typeRank orders values of different types: null, bool, number, string, other
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// normalize maps every numeric type onto float64
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return n.String()
		}
		return f
	default:
		return v
	}
}

func compareValues(a, b any) int {
	a, b = normalize(a), normalize(b)
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch av := a.(type) {
	case nil:
		return 0
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		return cmp.Compare(av, b.(float64))
	case string:
		return strings.Compare(av, b.(string))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}
