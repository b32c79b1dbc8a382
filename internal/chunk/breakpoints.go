package chunk

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// lowBreakpointGateChars is the accumulated-size gate paired with the low
// similarity threshold in §4.1 step 3. Unlike the similarity thresholds
// themselves, this gate is not exposed as configuration; the gate paired
// with the high threshold is the Chunker's ParentMinChars (400 by
// default), passed to findBreakpoints as highGateChars.
const lowBreakpointGateChars = 200

// sentenceEmbedder is the subset of domain.Embedder the breakpoint walk
// needs; satisfied directly by domain.Embedder or by SentenceEmbedCache.
type sentenceEmbedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// embedSentences embeds every sentence longer than minSentenceChars,
// leaving a nil vector for shorter ones, per §4.1 step 2.
func embedSentences(ctx context.Context, embedder sentenceEmbedder, sentences []string) ([][]float32, error) {
	vectors := make([][]float32, len(sentences))

	for i, s := range sentences {
		if len(s) <= minSentenceChars {
			continue
		}
		result, err := embedder.Embed(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("embed sentence %d: %w", i, err)
		}
		vectors[i] = result.Embedding
	}

	return vectors, nil
}

// findBreakpoints walks adjacent sentence pairs and records a breakpoint
// index (the index of the last sentence in the chunk ending there) per
// §4.1 step 3. The final sentence index is always a terminal breakpoint.
func findBreakpoints(sentences []string, vectors [][]float32, highSim, lowSim float64, highGateChars int) []int {
	if len(sentences) == 0 {
		return nil
	}

	var breakpoints []int
	accumulated := len(sentences[0])

	for i := 0; i < len(sentences)-1; i++ {
		sim := similarity(vectors[i], vectors[i+1])

		breakHere := (sim < highSim && accumulated >= highGateChars) ||
			(sim < lowSim && accumulated >= lowBreakpointGateChars)

		if breakHere {
			breakpoints = append(breakpoints, i)
			accumulated = 0
		}
		accumulated += len(sentences[i+1])
	}

	last := len(sentences) - 1
	if len(breakpoints) == 0 || breakpoints[len(breakpoints)-1] != last {
		breakpoints = append(breakpoints, last)
	}

	return breakpoints
}

// similarity returns the cosine similarity of a and b, or 1.0 (no forced
// break) if either vector is absent — a short sentence's missing
// embedding should not by itself fracture the surrounding chunk.
func similarity(a, b []float32) float64 {
	if a == nil || b == nil {
		return 1.0
	}
	return domain.Cosine(a, b)
}
