package chunk

// naiveChunkSize and naiveChunkOverlap are the fallback splitter's fixed
// parameters per §4.1's failure clause: naive recursive 800/50 splitting,
// used when sentence splitting yields too few sentences to drive the
// semantic-breakpoint walk (see §8's "document of <10 sentences" case).
// Adapted from a fixed-size chunking shape found in other retrieval
// tooling (chunker.Processor).
const (
	naiveChunkSize    = 800
	naiveChunkOverlap = 50
)

func naiveSplit(text string) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + naiveChunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
		start += naiveChunkSize - naiveChunkOverlap
	}
	return chunks
}
