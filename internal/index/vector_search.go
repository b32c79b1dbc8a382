package index

import (
	"sort"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// VectorSearch returns the top-k children by cosine similarity to
// queryVec, descending. Safe for unbounded concurrent callers once the
// Index is initialized (§4.2/§5).
func (idx *Index) VectorSearch(queryVec []float32, k int) []domain.SearchResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]domain.SearchResult, 0, len(idx.children))
	for i, child := range idx.children {
		score := domain.Cosine(queryVec, idx.vectors[i])
		results = append(results, domain.SearchResult{Segment: child, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
