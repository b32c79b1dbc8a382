// Package chunk splits a document's full text into a Parent/Child
// segment hierarchy using semantic breakpoints and structural pattern
// detection, adapted from sentence/fixed-size chunkers and
// generalized to the two-level hierarchy this system's retrieval core
// depends on.
package chunk

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// naiveFallbackSentenceThreshold is the sentence count below which the
// semantic-breakpoint walk is skipped in favor of the naive splitter,
// per §4.1's failure clause and §8's boundary case.
const naiveFallbackSentenceThreshold = 10

// Config holds the Chunker's tunables, mirroring config.IndexConfig and
// the breakpoint thresholds of config.RetrievalConfig without importing
// that package directly.
type Config struct {
	ChildChars      int
	ChildStride     int
	BreakpointHigh  float64
	BreakpointLow   float64
	ParentMinChars  int
}

// DefaultConfig returns the mandated defaults.
func DefaultConfig() Config {
	return Config{
		ChildChars:     150,
		ChildStride:    120,
		BreakpointHigh: 0.7,
		BreakpointLow:  0.56,
		ParentMinChars: minParentChars,
	}
}

// Chunker splits a document into parent and child segments.
type Chunker struct {
	embedder sentenceEmbedder
	cfg      Config
	logger   *zap.Logger
}

// New builds a Chunker. embedder is wrapped with a SentenceEmbedCache so
// repeated sentence text within one document is only embedded once.
func New(embedder domain.Embedder, cfg Config, logger *zap.Logger) *Chunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{
		embedder: NewSentenceEmbedCache(embedder, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

// Chunk splits docText into parent segments and, for each parent, its
// child segments. Returns domain.ErrEmptyInput for empty (zero-length)
// input; the chunker never fails silently.
func (c *Chunker) Chunk(ctx context.Context, docText string) ([]domain.Segment, []domain.Segment, error) {
	if len(docText) == 0 {
		return nil, nil, domain.ErrEmptyInput
	}

	parentTexts, err := c.splitIntoParentTexts(ctx, docText)
	if err != nil {
		return nil, nil, fmt.Errorf("split parents: %w", err)
	}
	if len(parentTexts) == 0 {
		return nil, nil, fmt.Errorf("chunking produced no parents: %w", domain.ErrEmptyInput)
	}

	parents := make([]domain.Segment, 0, len(parentTexts))
	var children []domain.Segment

	for idx, text := range parentTexts {
		found := extractStructuralMetadata(text)
		meta := toSegmentMetadata(found)

		parent := domain.Segment{
			ID:          uuid.NewString(),
			Text:        text,
			Kind:        domain.KindParent,
			Metadata:    meta,
			ParentIndex: idx,
		}
		parents = append(parents, parent)

		children = append(children, c.makeChildren(parent)...)
	}

	return parents, children, nil
}

func (c *Chunker) splitIntoParentTexts(ctx context.Context, docText string) ([]string, error) {
	sentences := splitSentences(docText)

	if len(sentences) < naiveFallbackSentenceThreshold {
		c.logger.Warn("sentence splitting yielded too few sentences, using naive fallback splitter",
			zap.Int("sentence_count", len(sentences)))
		return naiveSplit(docText), nil
	}

	vectors, err := embedSentences(ctx, c.embedder, sentences)
	if err != nil {
		return nil, fmt.Errorf("embed sentences: %w", err)
	}

	breakpoints := findBreakpoints(sentences, vectors, c.cfg.BreakpointHigh, c.cfg.BreakpointLow, c.cfg.ParentMinChars)
	return materializeParents(sentences, breakpoints), nil
}

func (c *Chunker) makeChildren(parent domain.Segment) []domain.Segment {
	text := parent.Text
	childChars, stride := c.cfg.ChildChars, c.cfg.ChildStride

	var children []domain.Segment
	childIndex := 0
	for start := 0; start < len(text); start += stride {
		end := start + childChars
		if end > len(text) {
			end = len(text)
		}

		children = append(children, domain.Segment{
			ID:          fmt.Sprintf("%s_c%d", parent.ID, childIndex),
			Text:        text[start:end],
			Kind:        domain.KindChild,
			Metadata:    parent.Metadata,
			ParentID:    parent.ID,
			ParentIndex: parent.ParentIndex,
			ChildIndex:  childIndex,
		})

		childIndex++
		if end == len(text) {
			break
		}
	}

	return children
}

func toSegmentMetadata(found map[string]extractedMetadata) domain.Metadata {
	var meta domain.Metadata
	if m, ok := found["item"]; ok {
		meta.ItemID, meta.ItemLabel = m.id, m.label
	}
	if m, ok := found["chapter"]; ok {
		meta.ChapterID, meta.ChapterLabel = m.id, m.label
	}
	if m, ok := found["section"]; ok {
		meta.SectionID, meta.SectionLabel = m.id, m.label
	}
	return meta
}
