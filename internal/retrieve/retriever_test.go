package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/expand"
)

type stubIndex struct {
	vectorResults  []domain.SearchResult
	lexicalResults []domain.SearchResult
	parents        map[string]domain.Segment
}

func (s *stubIndex) VectorSearch(_ []float32, k int) []domain.SearchResult {
	return truncate(s.vectorResults, k)
}

func (s *stubIndex) LexicalSearch(_ string, k int) []domain.SearchResult {
	return truncate(s.lexicalResults, k)
}

func (s *stubIndex) ParentOf(child domain.Segment) (domain.Segment, bool) {
	p, ok := s.parents[child.ParentID]
	return p, ok
}

type stubEmbedder struct{ err error }

func (s stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1, 0}}, nil
}

type stubGenerator struct{}

func (stubGenerator) Call(_ context.Context, _ []domain.Message) (string, error) {
	return "stepback question", nil
}
func (stubGenerator) Stream(_ context.Context, _ []domain.Message) (<-chan domain.StreamFragment, error) {
	return nil, errors.New("not implemented")
}

func childSeg(id, parentID, text string, parentIdx int) domain.Segment {
	return domain.Segment{ID: id, ParentID: parentID, Text: text, Kind: domain.KindChild, ParentIndex: parentIdx}
}

func TestRetrieve_EmptyQueryReturnsNilWithoutCalls(t *testing.T) {
	r := New(nil, stubEmbedder{}, expand.New(stubGenerator{}, stubGenerator{}, stubGenerator{}, true, true, nil), DefaultConfig(), nil)

	results, err := r.Retrieve(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results for empty query, got %v", results)
	}
}

func TestRetrieve_PromotesToParentsAndDedupes(t *testing.T) {
	idx := &stubIndex{
		vectorResults: []domain.SearchResult{
			{Segment: childSeg("p0_c0", "p0", "fox jumps over the lazy dog", 0), Score: 0.9},
			{Segment: childSeg("p0_c1", "p0", "jumps over the lazy dog near the river", 0), Score: 0.8},
			{Segment: childSeg("p1_c0", "p1", "photosynthesis converts light energy", 1), Score: 0.5},
		},
		lexicalResults: []domain.SearchResult{
			{Segment: childSeg("p1_c0", "p1", "photosynthesis converts light energy", 1), Score: 0.6},
		},
		parents: map[string]domain.Segment{
			"p0": {ID: "p0", Text: "full parent 0 text", Kind: domain.KindParent, ParentIndex: 0},
			"p1": {ID: "p1", Text: "full parent 1 text", Kind: domain.KindParent, ParentIndex: 1},
		},
	}

	expander := expand.New(stubGenerator{}, stubGenerator{}, stubGenerator{}, false, false, nil)
	r := New(nil, stubEmbedder{}, expander, DefaultConfig(), nil)
	r.idx = idx

	results, err := r.Retrieve(context.Background(), "fox dog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one promoted result")
	}

	seen := make(map[string]bool)
	for _, res := range results {
		if res.Segment.Kind != domain.KindParent {
			t.Fatalf("expected promoted results to be parents, got kind %q", res.Segment.Kind)
		}
		if seen[res.Segment.ID] {
			t.Fatalf("duplicate parent %q in results", res.Segment.ID)
		}
		seen[res.Segment.ID] = true
	}
}

func TestRetrieve_EmptyIndexReturnsEmptyResultsWithoutError(t *testing.T) {
	idx := &stubIndex{}

	expander := expand.New(stubGenerator{}, stubGenerator{}, stubGenerator{}, false, false, nil)
	r := New(nil, stubEmbedder{}, expander, DefaultConfig(), nil)
	r.idx = idx

	results, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results from an empty index, got %v", results)
	}
}

func TestRetrieve_EmbedFailureSurfacesError(t *testing.T) {
	idx := &stubIndex{}
	expander := expand.New(stubGenerator{}, stubGenerator{}, stubGenerator{}, false, false, nil)
	r := New(nil, stubEmbedder{err: errors.New("upstream down")}, expander, DefaultConfig(), nil)
	r.idx = idx

	_, err := r.Retrieve(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error when both hybrid search and fallback embedding fail")
	}
}
