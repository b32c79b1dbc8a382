// Package ingest is the thin boundary between a raw reference document
// and the Chunker/Index. TextExtractor is the seam at which a real PDF parser
// plugs in; Loader owns everything downstream of "plain text in hand":
// chunking, embedding every child, and persisting the Index.
//
// Follows a normaliser pattern (e.g.
// custodia-labs-sercha-cli's internal/normalisers/markdown), which
// isolates format-specific extraction behind a single interface so the
// pipeline after it never branches on source format.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/chunk"
	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/index"
)

// TextExtractor turns a raw document file into plain text. A real PDF
// parser (out of scope here) implements this; PlainTextExtractor
// below is the boundary stub for any document whose text has already
// been extracted upstream.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// PlainTextExtractor reads a file's bytes as UTF-8 text unchanged. It
// is the boundary stand-in for a PDF-to-text parser: ingest's job
// starts the moment a document's text is available, not with decoding
// the source format.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", path, err)
	}
	return string(data), nil
}

// Loader drives one document through extraction, chunking, embedding,
// and index persistence.
type Loader struct {
	extractor TextExtractor
	chunker   *chunk.Chunker
	embedder  domain.Embedder
	idx       *index.Index
	logger    *zap.Logger
}

// New builds a Loader. embedder is used to vectorize every child
// segment after chunking; it is typically the same embedder the
// Chunker's sentence-level breakpoint detection uses (the Chunker wraps
// its copy in a SentenceEmbedCache; this one is used as given).
func New(extractor TextExtractor, chunker *chunk.Chunker, embedder domain.Embedder, idx *index.Index, logger *zap.Logger) *Loader {
	if extractor == nil {
		extractor = PlainTextExtractor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{extractor: extractor, chunker: chunker, embedder: embedder, idx: idx, logger: logger}
}

// LoadFile extracts, chunks, embeds, and ingests path into the Index,
// then persists the result to snapshotPath.
func (l *Loader) LoadFile(ctx context.Context, path, snapshotPath string) error {
	text, err := l.extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if text == "" {
		return fmt.Errorf("ingest %s: %w", path, domain.ErrEmptyInput)
	}

	parents, children, err := l.chunker.Chunk(ctx, text)
	if err != nil {
		return fmt.Errorf("ingest: chunk: %w", err)
	}

	embeddings, err := l.embedChildren(ctx, children)
	if err != nil {
		return fmt.Errorf("ingest: embed children: %w", err)
	}

	if err := l.idx.Ingest(filepath.Base(path), parents, children, embeddings); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	if err := l.idx.Save(snapshotPath); err != nil {
		return fmt.Errorf("ingest: save snapshot: %w", err)
	}

	l.logger.Info("ingestion complete",
		zap.String("file", path),
		zap.Int("parents", len(parents)),
		zap.Int("children", len(children)),
	)
	return nil
}

// embedChildren computes one embedding per child segment, in order.
// Sequential rather than fanned out: the embedder is a rate-limited
// upstream, and ingestion is a one-shot offline operation rather than a
// latency-sensitive path.
func (l *Loader) embedChildren(ctx context.Context, children []domain.Segment) ([][]float32, error) {
	out := make([][]float32, len(children))
	for i, c := range children {
		res, err := l.embedder.Embed(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("embed child %d: %w", i, err)
		}
		out[i] = res.Embedding
	}
	return out, nil
}
