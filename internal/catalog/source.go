package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/gksapp/gks/internal/domain"
)

//go:embed assets/*.json
var bundled embed.FS

// Source yields the raw records of a bundled dataset
type Source interface {
	Raw(kind domain.Kind) ([]RawItem, error)
}

// FSSource reads hymns.json and psalms.json from a filesystem
type FSSource struct {
	fsys fs.FS
}

// NewFSSource reads datasets from fsys, e.g. os.DirFS for an override directory
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// EmbeddedSource reads the datasets compiled into the binary
func EmbeddedSource() *FSSource {
	sub, err := fs.Sub(bundled, "assets")
	if err != nil {
		panic(err)
	}
	return NewFSSource(sub)
}

func fileFor(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindTSP:
		return "hymns.json", nil
	case domain.KindPsalm:
		return "psalms.json", nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
}

func (s *FSSource) Raw(kind domain.Kind) ([]RawItem, error) {
	name, err := fileFor(kind)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	items, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return items, nil
}

// sourceKey accepts numbers and strings; hymn numbers appear as both.
type sourceKey string

func (k *sourceKey) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*k = sourceKey(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("source key must be a string or number, got %s", b)
	}
	*k = sourceKey(n.String())
	return nil
}

type rawStanza struct {
	Number sourceKey `json:"number"`
	Text   string    `json:"text"`
}

type rawRecord struct {
	TSPNumber   sourceKey   `json:"tsp_number"`
	PsalmNumber sourceKey   `json:"psalm_number"`
	Number      sourceKey   `json:"number"`
	ID          sourceKey   `json:"id"`
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle"`
	Meter       string      `json:"meter"`
	Text        string      `json:"text"`
	Stanzas     []rawStanza `json:"stanzas"`
}

func (r rawRecord) key() string {
	for _, k := range []sourceKey{r.TSPNumber, r.PsalmNumber, r.Number, r.ID} {
		if k != "" {
			return string(k)
		}
	}
	return ""
}

// Decode parses a JSON array of catalog records
func Decode(r io.Reader) ([]RawItem, error) {
	var records []rawRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	items := make([]RawItem, 0, len(records))
	for _, rec := range records {
		item := RawItem{
			Number:   rec.key(),
			Title:    rec.Title,
			Subtitle: rec.Subtitle,
			Meter:    rec.Meter,
			Text:     rec.Text,
		}
		for _, s := range rec.Stanzas {
			item.Stanzas = append(item.Stanzas, domain.Stanza{Number: string(s.Number), Text: s.Text})
		}
		items = append(items, item)
	}
	return items, nil
}
