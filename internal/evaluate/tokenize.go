package evaluate

import (
	"regexp"
	"strings"
)

var alphaTokenPattern = regexp.MustCompile(`[a-zA-Z]+`)

// minTokenChars is K(x)'s minimum token length (§4.6).
const minTokenChars = 3

var evalStopwords = buildStopwords([]string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on",
	"at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this",
	"that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than",
	"so", "such", "into", "about", "between", "through", "during", "before", "after", "above",
	"below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "should", "now",
})

func buildStopwords(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// tokenSet computes K(x): the set of alphabetic, >=3-char, non-stopword
// lowercased tokens in x.
func tokenSet(x string) map[string]struct{} {
	raw := alphaTokenPattern.FindAllString(strings.ToLower(x), -1)
	set := make(map[string]struct{}, len(raw))
	for _, tok := range raw {
		if len(tok) < minTokenChars {
			continue
		}
		if _, stop := evalStopwords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

func intersectionSize(a, b map[string]struct{}) int {
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}

func unionSize(a, b map[string]struct{}) int {
	union := make(map[string]struct{}, len(a)+len(b))
	for tok := range a {
		union[tok] = struct{}{}
	}
	for tok := range b {
		union[tok] = struct{}{}
	}
	return len(union)
}
