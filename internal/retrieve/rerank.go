package retrieve

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// tokenizeQuery lowercases and splits text into alphanumeric tokens,
// dropping stopwords. Used for the reranker's keyword-overlap (k) and
// density (d) terms (§4.4 step 4).
func tokenizeQuery(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if !isStopword(t) {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// rerankScore computes 0.4v + 0.3k + 0.1l + 0.2d for a candidate's raw
// fused score and text, against the given non-stopword query tokens.
func rerankScore(rawScore float64, text string, queryTokens []string) float64 {
	v := clamp01(rawScore)
	k := keywordOverlap(text, queryTokens)
	l := lengthPreference(len(text))
	d := density(text, queryTokens)

	return 0.4*v + 0.3*k + 0.1*l + 0.2*d
}

func keywordOverlap(text string, queryTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	var hits int
	for _, tok := range queryTokens {
		if strings.Contains(lower, tok) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

func lengthPreference(length int) float64 {
	switch {
	case length < 100:
		return float64(length) / 100 * 0.5
	case length <= 500:
		return 1.0
	default:
		over := float64(length-500) / 500
		if over > 0.5 {
			over = 0.5
		}
		return 1 - over
	}
}

func density(text string, queryTokens []string) float64 {
	if len(queryTokens) == 0 || len(text) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	lengthFactor := float64(len(text)) / 5

	var total float64
	for _, tok := range queryTokens {
		occurrences := strings.Count(lower, tok)
		if occurrences == 0 || lengthFactor == 0 {
			continue
		}
		perToken := float64(occurrences) / lengthFactor / 2
		if perToken > 1 {
			perToken = 1
		}
		total += perToken
	}
	return total
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
