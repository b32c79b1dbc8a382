package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// stubEmbedder returns a deterministic low-dimensional vector derived
// from the text's length and byte sum, good enough to exercise the
// breakpoint walk without a real embedding provider.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	var sum float32
	for _, b := range []byte(text) {
		sum += float32(b)
	}
	return domain.EmbeddingResult{Embedding: []float32{sum, float32(len(text)), 1}}, nil
}

func repeatSentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("This is a reasonably long sentence about singletons and builders. ")
	}
	return b.String()
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New(stubEmbedder{}, DefaultConfig(), nil)

	_, _, err := c.Chunk(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestChunk_FewSentencesFallsBackToNaiveSplit(t *testing.T) {
	c := New(stubEmbedder{}, DefaultConfig(), nil)

	doc := "Short doc. Only two sentences."
	parents, children, err := c.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) == 0 {
		t.Fatal("expected at least one parent")
	}
	if len(children) == 0 {
		t.Fatal("expected at least one child")
	}
}

func TestChunk_ChildrenAreSubstringsOfParent(t *testing.T) {
	c := New(stubEmbedder{}, DefaultConfig(), nil)

	doc := repeatSentences(30)
	parents, children, err := c.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := make(map[string]domain.Segment, len(parents))
	for _, p := range parents {
		byID[p.ID] = p
	}

	for _, child := range children {
		parent, ok := byID[child.ParentID]
		if !ok {
			t.Fatalf("child %s has no resolvable parent", child.ID)
		}
		if !strings.Contains(parent.Text, child.Text) {
			t.Errorf("child text %q is not a substring of its parent", child.Text)
		}
	}
}

func TestChunk_StructuralMetadataInheritedByChildren(t *testing.T) {
	c := New(stubEmbedder{}, DefaultConfig(), nil)

	doc := "Item 3: Singletons. " + repeatSentences(25) + " End of item."
	parents, children, err := c.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var found bool
	for _, p := range parents {
		if p.Metadata.ItemID == "3" {
			found = true
			for _, child := range children {
				if child.ParentID == p.ID && child.Metadata.ItemID != p.Metadata.ItemID {
					t.Errorf("child metadata %+v diverges from parent %+v", child.Metadata, p.Metadata)
				}
			}
		}
	}
	if !found {
		t.Fatal("expected at least one parent to carry item_id=3")
	}
}

func TestSplitSentences_ReconstructsOriginalText(t *testing.T) {
	doc := repeatSentences(5)
	sentences := splitSentences(doc)

	var rebuilt strings.Builder
	for _, s := range sentences {
		rebuilt.WriteString(s)
	}
	if rebuilt.String() != doc {
		t.Errorf("sentence split did not reconstruct original text exactly")
	}
}

func TestContainsCodeSignal(t *testing.T) {
	if !containsCodeSignal("public class Foo { private int x; }") {
		t.Error("expected code signal to be detected")
	}
	if containsCodeSignal("This is a perfectly ordinary sentence about builders.") {
		t.Error("did not expect code signal in plain prose")
	}
}
