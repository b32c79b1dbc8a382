package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

func sampleSegments() ([]domain.Segment, []domain.Segment, [][]float32) {
	parents := []domain.Segment{
		{
			ID:   "p0",
			Text: "The quick brown fox jumps over the lazy dog near the river.",
			Kind: domain.KindParent,
			Metadata: domain.Metadata{
				ChapterID:    "1",
				ChapterLabel: "Chapter 1",
			},
			ParentIndex: 0,
		},
		{
			ID:          "p1",
			Text:        "Photosynthesis converts light energy into chemical energy in plants.",
			Kind:        domain.KindParent,
			ParentIndex: 1,
		},
	}

	children := []domain.Segment{
		{ID: "p0_c0", Text: "The quick brown fox jumps over the lazy dog", Kind: domain.KindChild, ParentID: "p0", ParentIndex: 0, ChildIndex: 0, Metadata: parents[0].Metadata},
		{ID: "p0_c1", Text: "jumps over the lazy dog near the river.", Kind: domain.KindChild, ParentID: "p0", ParentIndex: 0, ChildIndex: 1, Metadata: parents[0].Metadata},
		{ID: "p1_c0", Text: "Photosynthesis converts light energy into chemical energy", Kind: domain.KindChild, ParentID: "p1", ParentIndex: 1, ChildIndex: 0},
	}

	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}

	return parents, children, vectors
}

func TestIngest_LengthMismatch(t *testing.T) {
	idx := New(nil)
	parents, children, vectors := sampleSegments()

	err := idx.Ingest("doc.pdf", parents, children, vectors[:1])
	if err == nil {
		t.Fatal("expected error for children/embeddings length mismatch")
	}
}

func TestVectorSearch_RanksByCosineSimilarity(t *testing.T) {
	idx := New(nil)
	parents, children, vectors := sampleSegments()
	if err := idx.Ingest("doc.pdf", parents, children, vectors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results := idx.VectorSearch([]float32{1, 0, 0}, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Segment.ID != "p0_c0" {
		t.Fatalf("expected p0_c0 to rank first, got %s", results[0].Segment.ID)
	}
	if results[0].Score < results[1].Score {
		t.Fatal("expected descending score order")
	}
}

func TestLexicalSearch_ScoresMatchingTokensAboveZero(t *testing.T) {
	idx := New(nil)
	parents, children, vectors := sampleSegments()
	if err := idx.Ingest("doc.pdf", parents, children, vectors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results := idx.LexicalSearch("photosynthesis energy", 5)
	if len(results) == 0 {
		t.Fatal("expected at least one lexical match")
	}
	if results[0].Segment.ID != "p1_c0" {
		t.Fatalf("expected p1_c0 to rank first, got %s", results[0].Segment.ID)
	}
	for _, r := range results {
		if r.Score <= 0 || r.Score > 1 {
			t.Fatalf("score out of (0,1] range: %v", r.Score)
		}
	}
}

func TestLexicalSearch_NoTokensReturnsNil(t *testing.T) {
	idx := New(nil)
	parents, children, vectors := sampleSegments()
	if err := idx.Ingest("doc.pdf", parents, children, vectors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results := idx.LexicalSearch("to of a", 5)
	if results != nil {
		t.Fatalf("expected nil for query with only short tokens, got %v", results)
	}
}

func TestParentOf_ResolvesOwningParent(t *testing.T) {
	idx := New(nil)
	parents, children, vectors := sampleSegments()
	if err := idx.Ingest("doc.pdf", parents, children, vectors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parent, ok := idx.ParentOf(children[0])
	if !ok {
		t.Fatal("expected to resolve parent")
	}
	if parent.ID != "p0" {
		t.Fatalf("expected parent p0, got %s", parent.ID)
	}
}

func TestParentOf_UnknownParentReturnsFalse(t *testing.T) {
	idx := New(nil)
	parents, children, vectors := sampleSegments()
	if err := idx.Ingest("doc.pdf", parents, children, vectors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, ok := idx.ParentOf(domain.Segment{ParentID: "missing"})
	if ok {
		t.Fatal("expected false for unresolvable parent")
	}
}

func TestSaveLoad_RoundTripsExtendedSnapshot(t *testing.T) {
	idx := New(nil)
	parents, children, vectors := sampleSegments()
	if err := idx.Ingest("doc.pdf", parents, children, vectors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.json")
	if err := idx.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := New(nil)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	stats := loaded.Stats()
	if stats.Parents != 2 || stats.Children != 3 {
		t.Fatalf("unexpected stats after reload: %+v", stats)
	}

	parent, ok := loaded.ParentOf(domain.Segment{ParentID: "p0"})
	if !ok {
		t.Fatal("expected p0 to resolve after reload")
	}
	if parent.Text != parents[0].Text {
		t.Fatalf("expected exact parent text to survive extended reload, got %q", parent.Text)
	}
	if parent.Metadata.ChapterLabel != "Chapter 1" {
		t.Fatalf("expected chapter metadata to survive reload, got %q", parent.Metadata.ChapterLabel)
	}
}

func TestLoad_LegacySnapshotSynthesizesPlaceholderParents(t *testing.T) {
	legacy := snapshot{
		FileName: "doc.pdf",
		Chunks: []chunkRecord{
			{Text: encodeChunkText("p0", "first chunk text")},
			{Text: encodeChunkText("p0", "second chunk text")},
			{Text: "no prefix at all"},
		},
		Embeddings: [][]float64{{1, 0}, {0, 1}, {1, 1}},
	}

	path := filepath.Join(t.TempDir(), "legacy.json")
	writeLegacySnapshot(t, path, legacy)

	idx := New(nil)
	if err := idx.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	stats := idx.Stats()
	if stats.Parents != 2 {
		t.Fatalf("expected 2 synthesized parents (one per distinct parent id), got %d", stats.Parents)
	}

	parent, ok := idx.ParentOf(domain.Segment{ParentID: "p0"})
	if !ok {
		t.Fatal("expected p0 to resolve")
	}
	if parent.Text != "first chunk text" {
		t.Fatalf("expected placeholder parent text to be first child's text, got %q", parent.Text)
	}
}

func TestLoad_LengthMismatchDeletesCorruptSnapshot(t *testing.T) {
	corrupt := snapshot{
		FileName:   "doc.pdf",
		Chunks:     []chunkRecord{{Text: "a"}, {Text: "b"}},
		Embeddings: [][]float64{{1, 0}},
	}

	path := filepath.Join(t.TempDir(), "corrupt.json")
	writeLegacySnapshot(t, path, corrupt)

	idx := New(nil)
	err := idx.Load(path)
	if err == nil {
		t.Fatal("expected error for length mismatch")
	}

	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("expected corrupt snapshot file to be removed")
	}
}

func writeLegacySnapshot(t *testing.T, path string, snap snapshot) {
	t.Helper()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatalf("marshal test snapshot: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test snapshot: %v", err)
	}
}
