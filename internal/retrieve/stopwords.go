package retrieve

// stopwords is the 60-word English stoplist used by the reranker's
// keyword-overlap term k (§4.4 step 4), following a frequency-based
// summarizer's stoplist.
var stopwords = buildStopwords([]string{
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

func isStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
