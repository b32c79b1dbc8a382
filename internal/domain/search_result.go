package domain

// SearchResult pairs a segment with a score. The score's domain depends
// on the stage that produced it (raw similarity, RRF, or reranker) and
// is not comparable across stages.
type SearchResult struct {
	Segment Segment
	Score   float64
}
