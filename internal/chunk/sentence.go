package chunk

import (
	"regexp"
	"strings"
)

// minSentenceChars is the length below which a split fragment is folded
// into its neighbour instead of standing as its own sentence, per §4.1
// step 1.
const minSentenceChars = 10

var (
	primarySentenceBoundary = regexp.MustCompile(`[.!?](?:\s+[A-Z]|\n+)`)
	relaxedSentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
)

// splitSentences splits text into sentences using the two-pass heuristic
// of §4.1 step 1: prefer boundaries followed by an uppercase letter or a
// newline run; if that yields fewer than minSentenceCount sentences,
// relax to any punctuation-plus-whitespace boundary. Fragments shorter
// than minSentenceChars are folded into the preceding sentence so the
// returned slice still concatenates back to text exactly.
func splitSentences(text string) []string {
	const minSentenceCount = 10

	pieces := splitAtBoundary(text, primarySentenceBoundary)
	if len(pieces) < minSentenceCount {
		pieces = splitAtBoundary(text, relaxedSentenceBoundary)
	}

	return foldShortFragments(pieces)
}

// splitAtBoundary cuts text right after every match of boundary, so the
// concatenation of the returned pieces reconstructs text exactly.
func splitAtBoundary(text string, boundary *regexp.Regexp) []string {
	matches := boundary.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}

	pieces := make([]string, 0, len(matches)+1)
	start := 0
	for _, m := range matches {
		cut := m[0] + 1 // keep the punctuation mark with the preceding piece
		pieces = append(pieces, text[start:cut])
		start = cut
	}
	if start < len(text) {
		pieces = append(pieces, text[start:])
	}
	return pieces
}

// foldShortFragments merges any piece whose trimmed length is below
// minSentenceChars into its predecessor (or successor, if it is first),
// preserving exact contiguity of the original text.
func foldShortFragments(pieces []string) []string {
	if len(pieces) <= 1 {
		return pieces
	}

	folded := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if len(strings.TrimSpace(p)) < minSentenceChars && len(folded) > 0 {
			folded[len(folded)-1] += p
			continue
		}
		folded = append(folded, p)
	}

	if len(folded) > 1 && len(strings.TrimSpace(folded[0])) < minSentenceChars {
		folded[1] = folded[0] + folded[1]
		folded = folded[1:]
	}

	return folded
}
