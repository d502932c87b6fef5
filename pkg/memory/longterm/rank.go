package longterm

import (
	"sort"
	"strings"
)

// Keywords splits query on whitespace into lowercase keywords, dropping
// repeats.
func Keywords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Score counts the keywords occurring as substrings of the lowercased content.
func Score(content string, keywords []string) int {
	lower := strings.ToLower(content)
	n := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			n++
		}
	}
	return n
}

// Rank selects up to limit entries for query.
//
// Entries scoring above zero are returned by descending score, ties kept in
// insertion order. When nothing scores (an empty query included) the last
// limit entries are returned oldest first. A limit <= 0 returns nil.
func Rank(entries []Entry, query string, limit int) []Entry {
	if limit <= 0 || len(entries) == 0 {
		return nil
	}

	keywords := Keywords(query)

	type scored struct {
		entry Entry
		score int
	}
	var hits []scored
	for _, e := range entries {
		if s := Score(e.Content, keywords); s > 0 {
			hits = append(hits, scored{entry: e, score: s})
		}
	}

	if len(hits) == 0 {
		start := len(entries) - limit
		if start < 0 {
			start = 0
		}
		return append([]Entry(nil), entries[start:]...)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]Entry, len(hits))
	for i, h := range hits {
		out[i] = h.entry
	}
	return out
}
