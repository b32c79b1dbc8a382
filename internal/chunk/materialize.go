package chunk

import (
	"regexp"
	"strings"
)

// maxParentChars and minParentChars are the literal thresholds in §4.1
// step 4; kept separate from config.IndexConfig's ParentMin/MaxChars,
// which bound the overall chunk and are checked as a testable property
// in §8 rather than driving the splitting algorithm itself.
const (
	minParentChars            = 400
	maxParentChars            = 1200
	codeToleranceMultiplier   = 1.5
	mergeForwardSentenceCount = 3
)

var codeSignals = []string{"public class", "private ", "public ", "@Override", "//", "/*"}

var codeBraceRegex = regexp.MustCompile(`\{[^}]*\}`)

// containsCodeSignal reports whether text looks like it contains source
// code, per the signal list in §4.1 step 4.
func containsCodeSignal(text string) bool {
	for _, sig := range codeSignals {
		if strings.Contains(text, sig) {
			return true
		}
	}
	return codeBraceRegex.MatchString(text)
}

// materializeParents turns a sentence list plus its breakpoint indices
// into parent chunk texts, applying the code-block, merge-forward, and
// long-chunk-split refinements of §4.1 step 4 in order, then draining
// any trailing buffer per step 5.
func materializeParents(sentences []string, breakpoints []int) []string {
	var chunks []string
	var pending string
	groupStart := 0

	for _, bp := range breakpoints {
		group := sentences[groupStart : bp+1]
		groupStart = bp + 1

		text := pending + strings.Join(group, "")
		pending = ""

		switch {
		case containsCodeSignal(text) && len(text) < int(float64(maxParentChars)*codeToleranceMultiplier):
			chunks = append(chunks, text)

		case len(text) < minParentChars && len(group) < mergeForwardSentenceCount:
			pending = text

		case len(text) > maxParentChars:
			first, rest := splitLongChunk(text)
			chunks = append(chunks, first)
			pending = rest

		default:
			chunks = append(chunks, text)
		}
	}

	if pending != "" {
		if len(chunks) > 0 && len(chunks[len(chunks)-1])+len(pending) <= maxParentChars {
			chunks[len(chunks)-1] += pending
		} else {
			chunks = append(chunks, pending)
		}
	}

	return chunks
}

var itemHeaderRegex = regexp.MustCompile(`(?i)Item\s+\d+`)

// splitLongChunk finds a split point for an over-long chunk per §4.1
// step 4's scoring rule and returns (firstHalf, remainder).
func splitLongChunk(text string) (string, string) {
	low := max(minParentChars/2+200, len(text)/3)
	high := min(1000, 2*len(text)/3)
	if low >= high {
		low, high = len(text)/2, len(text)/2
	}

	boundaries := sentenceBoundaryPositions(text)
	paragraphBreaks := allIndexes(text, "\n\n")
	itemHeaderEnds := itemHeaderEndPositions(text)

	bestPos := -1
	bestScore := -1.0

	for p := low; p <= high && p < len(text); p++ {
		score := scoreSplitPoint(text, p, paragraphBreaks, itemHeaderEnds)
		if score > bestScore {
			bestScore = score
			bestPos = p
		}
	}

	var splitPos int
	if bestScore > 0.5 {
		splitPos = nearestBoundary(boundaries, bestPos)
	} else {
		mid := (low + high) / 2
		splitPos = nearestBoundary(boundaries, mid)
	}

	if splitPos <= 0 || splitPos >= len(text) {
		splitPos = (low + high) / 2
		if splitPos <= 0 {
			splitPos = len(text) / 2
		}
	}

	return text[:splitPos], text[splitPos:]
}

func scoreSplitPoint(text string, p int, paragraphBreaks, itemHeaderEnds []int) float64 {
	var score float64

	if nearAny(paragraphBreaks, p, 10) {
		score += 0.4
	}

	if p > 0 && p <= len(text) {
		prev := text[p-1]
		if prev == '}' || prev == ';' {
			score += 0.3
		} else if prev == '\n' && (p >= len(text) || text[p] != '{') {
			score += 0.3
		}
	}

	if p > 0 && p <= len(text) && (text[p-1] == '.' || text[p-1] == '!' || text[p-1] == '?') {
		score += 0.2
	}

	for _, end := range itemHeaderEnds {
		if p > end && p-end <= 100 {
			score -= 0.5
			break
		}
	}

	return score
}

func sentenceBoundaryPositions(text string) []int {
	matches := relaxedSentenceBoundary.FindAllStringIndex(text, -1)
	positions := make([]int, 0, len(matches))
	for _, m := range matches {
		positions = append(positions, m[0]+1)
	}
	return positions
}

func itemHeaderEndPositions(text string) []int {
	matches := itemHeaderRegex.FindAllStringIndex(text, -1)
	ends := make([]int, 0, len(matches))
	for _, m := range matches {
		ends = append(ends, m[1])
	}
	return ends
}

func allIndexes(text, substr string) []int {
	var out []int
	start := 0
	for {
		i := strings.Index(text[start:], substr)
		if i < 0 {
			break
		}
		out = append(out, start+i)
		start += i + len(substr)
	}
	return out
}

func nearAny(positions []int, p, window int) bool {
	for _, pos := range positions {
		if abs(pos-p) <= window {
			return true
		}
	}
	return false
}

func nearestBoundary(boundaries []int, target int) int {
	best := -1
	bestDist := -1
	for _, b := range boundaries {
		d := abs(b - target)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = b
		}
	}
	if best == -1 {
		return target
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
