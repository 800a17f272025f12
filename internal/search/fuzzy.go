package search

import (
	"slices"
	"strings"
	"unicode"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"
)

// Match is one fuzzy hit
type Match struct {
	Index          int   // index in the ranked slice
	Score          int   // higher is better
	MatchedIndexes []int // byte offsets of matched characters, for highlighting
}

// titleIndex implements fuzzy.Source over lowercased titles
type titleIndex []string

func (t titleIndex) String(i int) string { return t[i] }

func (t titleIndex) Len() int { return len(t) }

// Rank matches query against titles.
//
// Subsequence hits come first, ordered by sahilm/fuzzy's score. Titles that
// only match with typos follow: every query word must be within
// allowedTypos edits of a distinct title word.
func Rank(query string, titles []string) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	lower := make(titleIndex, len(titles))
	for i, t := range titles {
		lower[i] = strings.ToLower(t)
	}

	var out []Match
	hit := make(map[int]bool)
	for _, m := range fuzzy.FindFrom(query, lower) {
		out = append(out, Match{Index: m.Index, Score: m.Score, MatchedIndexes: m.MatchedIndexes})
		hit[m.Index] = true
	}

	queryTokens := tokenize(query)
	var typos []Match
	for i, title := range lower {
		if hit[i] {
			continue
		}
		if m, ok := matchTypos(queryTokens, title); ok {
			m.Index = i
			typos = append(typos, m)
		}
	}
	slices.SortStableFunc(typos, func(a, b Match) int { return b.Score - a.Score })

	return append(out, typos...)
}

type token struct {
	text       string
	start, end int // byte offsets
}

func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			tokens = append(tokens, token{text: text[start:i], start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: text[start:], start: start, end: len(text)})
	}
	return tokens
}

func matchTypos(query []token, title string) (Match, bool) {
	if len(query) == 0 {
		return Match{}, false
	}
	titleTokens := tokenize(title)
	used := make([]bool, len(titleTokens))

	var m Match
	for _, q := range query {
		best, bestDist := -1, 0
		for i, tt := range titleTokens {
			if used[i] {
				continue
			}
			d := lfuzzy.LevenshteinDistance(q.text, tt.text)
			if d <= allowedTypos(len([]rune(q.text))) && (best < 0 || d < bestDist) {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			return Match{}, false
		}
		used[best] = true
		m.Score -= bestDist * 20
		for p := titleTokens[best].start; p < titleTokens[best].end; p++ {
			m.MatchedIndexes = append(m.MatchedIndexes, p)
		}
	}
	if extra := len(titleTokens) - len(query); extra > 0 {
		m.Score -= extra * 5
	}
	slices.Sort(m.MatchedIndexes)
	return m, true
}

// allowedTypos scales edit tolerance with word length: 1-3 runes none,
// 4-6 one, longer two.
func allowedTypos(length int) int {
	switch {
	case length <= 3:
		return 0
	case length <= 6:
		return 1
	default:
		return 2
	}
}
