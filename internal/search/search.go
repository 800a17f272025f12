package search

import (
	"strings"

	"github.com/gksapp/gks/internal/domain"
)

// Mode selects how list filters match
type Mode string

const (
	ModeSubstring Mode = "substring"
	ModeFuzzy     Mode = "fuzzy"
)

// ParseMode falls back to substring for unknown values
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeFuzzy {
		return ModeFuzzy
	}
	return ModeSubstring
}

// Tracks keeps tracks whose title contains query, ignoring case.
// Untitled tracks only survive an empty query.
func Tracks(tracks []domain.Track, query string) []domain.Track {
	if query == "" {
		return tracks
	}
	needle := strings.ToLower(query)
	var out []domain.Track
	for _, t := range tracks {
		if t.Title != "" && strings.Contains(strings.ToLower(t.Title), needle) {
			out = append(out, t)
		}
	}
	return out
}

// Catalog keeps items whose number or title contains query, ignoring case.
// A blank query returns items unchanged.
func Catalog(items []domain.CatalogItem, query string) []domain.CatalogItem {
	if strings.TrimSpace(query) == "" {
		return items
	}
	needle := strings.ToLower(query)
	var out []domain.CatalogItem
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Number), needle) ||
			strings.Contains(strings.ToLower(it.Title), needle) {
			out = append(out, it)
		}
	}
	return out
}

// Select returns the items referenced by matches, in match order
func Select[T any](items []T, matches []Match) []T {
	out := make([]T, 0, len(matches))
	for _, m := range matches {
		if m.Index >= 0 && m.Index < len(items) {
			out = append(out, items[m.Index])
		}
	}
	return out
}

// TrackTitles extracts the ranking keys of tracks
func TrackTitles(tracks []domain.Track) []string {
	titles := make([]string, len(tracks))
	for i, t := range tracks {
		titles[i] = t.Title
	}
	return titles
}

// CatalogTitles extracts "number title" ranking keys of catalog items
func CatalogTitles(items []domain.CatalogItem) []string {
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Number + " " + it.Title
	}
	return titles
}
