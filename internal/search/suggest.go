package search

import (
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggest offers up to limit titles close to query. It is meant for the
// "did you mean" line shown when a substring filter comes back empty.
func Suggest(query string, titles []string, limit int) []string {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil
	}

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Sort(ranks)

	var out []string
	seen := make(map[string]bool)
	add := func(title string) {
		if title != "" && !seen[title] && len(out) < limit {
			seen[title] = true
			out = append(out, title)
		}
	}
	for _, r := range ranks {
		add(r.Target)
	}
	if len(out) >= limit {
		return out
	}

	type candidate struct {
		title string
		dist  int
	}
	needle := strings.ToLower(query)
	maxDist := allowedTypos(len([]rune(needle)))
	var near []candidate
	for _, title := range titles {
		best := -1
		for _, tok := range tokenize(strings.ToLower(title)) {
			if d := fuzzy.LevenshteinDistance(needle, tok.text); best < 0 || d < best {
				best = d
			}
		}
		if best >= 0 && best <= maxDist {
			near = append(near, candidate{title: title, dist: best})
		}
	}
	slices.SortStableFunc(near, func(a, b candidate) int { return a.dist - b.dist })
	for _, c := range near {
		add(c.title)
	}
	return out
}
