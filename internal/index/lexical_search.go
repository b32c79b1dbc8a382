package index

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// minLexicalTokenChars drops short tokens (articles, pronouns) from the
// lexical scorer's query, per §4.2.
const minLexicalTokenChars = 2

var nonAlnumRegex = regexp.MustCompile(`[^a-z0-9]`)

// LexicalSearch scores every child by the position/exact-match-weighted
// term frequency formula of §4.2 and returns the top-k with score > 0,
// descending. Grounded directly on the original document service's
// keywordSearch/calculateKeywordScore.
func (idx *Index) LexicalSearch(queryText string, k int) []domain.SearchResult {
	tokens := tokenizeQuery(queryText)
	if len(tokens) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]domain.SearchResult, 0, len(idx.children))
	for _, child := range idx.children {
		score := scoreLexical(strings.ToLower(child.Text), tokens)
		if score > 0 {
			results = append(results, domain.SearchResult{Segment: child, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

func tokenizeQuery(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		w = nonAlnumRegex.ReplaceAllString(w, "")
		if len(w) > minLexicalTokenChars {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func scoreLexical(lowerText string, tokens []string) float64 {
	if len(lowerText) == 0 {
		return 0
	}

	var total float64
	quarter := len(lowerText) / 4
	half := len(lowerText) / 2

	for _, tok := range tokens {
		occurrences := strings.Count(lowerText, tok)
		if occurrences == 0 {
			continue
		}

		first := strings.Index(lowerText, tok)
		frequency := math.Log(1 + float64(occurrences))

		positionWeight := 1.0
		switch {
		case first < quarter:
			positionWeight = 1.5
		case first < half:
			positionWeight = 1.2
		}

		exactMatch := 1.0
		if isBoundedMatch(lowerText, first, len(tok)) {
			exactMatch = 1.3
		}

		total += frequency * positionWeight * exactMatch
	}

	score := total / (2 * float64(len(tokens)))
	return clamp01(score)
}

func isBoundedMatch(text string, start, length int) bool {
	before := start == 0 || !isAlnumByte(text[start-1])
	end := start + length
	after := end >= len(text) || !isAlnumByte(text[end])
	return before && after
}

func isAlnumByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
