package retrieve

import (
	"sort"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// fuseRRF merges any number of ranked lists by Reciprocal Rank Fusion:
// a result at 0-based rank r in a list contributes 1/(k+r+1) to its
// fused score, keyed by segment id. Returns all fused results sorted
// descending by score; callers truncate to the width they need.
func fuseRRF(k int, lists ...[]domain.SearchResult) []domain.SearchResult {
	type accum struct {
		result domain.SearchResult
		score  float64
	}

	merged := make(map[string]*accum)
	for _, list := range lists {
		for rank, r := range list {
			contribution := 1.0 / float64(k+rank+1)
			if existing, ok := merged[r.Segment.ID]; ok {
				existing.score += contribution
			} else {
				merged[r.Segment.ID] = &accum{result: r, score: contribution}
			}
		}
	}

	out := make([]domain.SearchResult, 0, len(merged))
	for _, a := range merged {
		out = append(out, domain.SearchResult{Segment: a.result.Segment, Score: a.score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func truncate(results []domain.SearchResult, n int) []domain.SearchResult {
	if n >= 0 && len(results) > n {
		return results[:n]
	}
	return results
}

// mergeByText unions branches keyed by segment text, keeping the higher
// score on a duplicate (§4.4 step 3).
func mergeByText(branches ...[]domain.SearchResult) []domain.SearchResult {
	best := make(map[string]domain.SearchResult)
	for _, branch := range branches {
		for _, r := range branch {
			if existing, ok := best[r.Segment.Text]; !ok || r.Score > existing.Score {
				best[r.Segment.Text] = r
			}
		}
	}

	out := make([]domain.SearchResult, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	return out
}
