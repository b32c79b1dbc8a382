package evaluate

import "strings"

// AnswerSimilarity blends token-set Jaccard similarity with normalised
// edit distance between the RAG answer and the ground truth (§4.6).
func AnswerSimilarity(answer, groundTruth string) float64 {
	jaccard := jaccardSimilarity(tokenSet(answer), tokenSet(groundTruth))

	answerLC := strings.ToLower(answer)
	gtLC := strings.ToLower(groundTruth)
	maxLen := max(len([]rune(answerLC)), len([]rune(gtLC)))

	editSimilarity := 1.0
	if maxLen > 0 {
		editSimilarity = 1 - float64(levenshtein(answerLC, gtLC))/float64(maxLen)
	}

	return 0.6*jaccard + 0.4*editSimilarity
}

func jaccardSimilarity(a, b map[string]struct{}) float64 {
	union := unionSize(a, b)
	if union == 0 {
		return 0
	}
	return float64(intersectionSize(a, b)) / float64(union)
}

// levenshtein computes the classic single-character edit distance
// between two strings, operating on runes so multi-byte characters
// count as one edit. No pack library provides this; it is a small,
// self-contained algorithm rather than something worth depending on a
// module for.
func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(br)]
}
