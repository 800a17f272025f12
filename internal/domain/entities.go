package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies a bundled catalog dataset
type Kind string

const (
	KindTSP   Kind = "tsp"
	KindPsalm Kind = "psalm"
)

// Kinds returns the bundled datasets in picker order
func Kinds() []Kind {
	return []Kind{KindTSP, KindPsalm}
}

// Valid reports whether k names a bundled dataset
func (k Kind) Valid() bool {
	return k == KindTSP || k == KindPsalm
}

// Label returns the display prefix for items of this kind
func (k Kind) Label() string {
	switch k {
	case KindTSP:
		return "TSP"
	case KindPsalm:
		return "Psalm"
	default:
		return string(k)
	}
}

// ParseKind accepts a kind name in any case
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Stanza is one numbered unit of a catalog item body
type Stanza struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// CatalogItem is one entry of a bundled dataset. Items are never mutated
// after they have been cached.
type CatalogItem struct {
	Kind     Kind
	Number   string // source key (tsp_number / psalm_number)
	Title    string
	Subtitle string
	Meter    string
	Text     string
	Stanzas  []Stanza
	UniqueID string // {kind}_{sourceKey}_{loadOrdinal}
}

// Label returns "TSP 12" style headings
func (c CatalogItem) Label() string {
	return c.Kind.Label() + " " + c.Number
}

// Body joins stanzas (or returns the plain text) for display
func (c CatalogItem) Body() string {
	if len(c.Stanzas) == 0 {
		return c.Text
	}
	parts := make([]string, 0, len(c.Stanzas))
	for _, s := range c.Stanzas {
		if s.Number != "" {
			parts = append(parts, s.Number+". "+s.Text)
		} else {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Track is a remotely hosted audio entry from the songs collection
type Track struct {
	ID       string
	Title    string
	Artist   string
	MediaURL string
}

// DisplayTitle returns the title or a placeholder for untitled tracks
func (t Track) DisplayTitle() string {
	if t.Title == "" {
		return "Untitled"
	}
	return t.Title
}

// Question is one entry of the quiz archive
type Question struct {
	ID      string
	Year    int
	Content string
}

// Document is a record of a remote collection
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Value returns the raw field value
func (d Document) Value(field string) (any, bool) {
	if d.Fields == nil {
		return nil, false
	}
	v, ok := d.Fields[field]
	return v, ok
}

// String returns a string field, or "" when absent or not a string
func (d Document) String(field string) string {
	v, _ := d.Value(field)
	s, _ := v.(string)
	return s
}

// Int returns a numeric field as an int. Numeric strings are accepted.
func (d Document) Int(field string) (int, bool) {
	v, ok := d.Value(field)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

// FormatValue renders a field value the way it is shown in pickers:
// integral numbers without a decimal point, everything else via %v.
func FormatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
