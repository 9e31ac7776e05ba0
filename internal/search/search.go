package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/gamecrate/internal/catalog"
)

// Result represents a fuzzy search match.
type Result struct {
	Record         catalog.Record
	MatchedIndexes []int
	Score          int
}

// recordTitles implements fuzzy.Source for a record slice.
type recordTitles []catalog.Record

func (rt recordTitles) String(i int) string {
	return rt[i].Title
}

func (rt recordTitles) Len() int {
	return len(rt)
}

// FuzzySearchRecords searches records by title using fuzzy matching.
// Returns at most limit results (all when limit <= 0), best match first.
func FuzzySearchRecords(records []catalog.Record, query string, limit int) []Result {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, recordTitles(records))
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Record:         records[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}
