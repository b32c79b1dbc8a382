package chunk

import "regexp"

// structuralPattern pairs an English structural marker with its secondary-
// language equivalent, folded into one case-insensitive alternation per
// §4.1, confirmed against the original document service's extraction
// regexes (which bake the CJK forms into the same pattern).
type structuralPattern struct {
	kind  string
	regex *regexp.Regexp
}

var structuralPatterns = []structuralPattern{
	{kind: "item", regex: regexp.MustCompile(`(?i)(?:Item\s+(\d+)|条目\s*(\d+))`)},
	{kind: "chapter", regex: regexp.MustCompile(`(?i)(?:Chapter\s+(\d+)|第\s*(\d+)\s*[章节])`)},
	{kind: "section", regex: regexp.MustCompile(`(?i)(?:Section\s+(\d+)|节\s*(\d+))`)},
}

// extractedMetadata is the structural metadata a single pattern kind
// contributes: the bare digits and the full matched label text.
type extractedMetadata struct {
	id    string
	label string
}

// extractStructuralMetadata scans text with the three structural patterns
// and records the first match of each kind.
func extractStructuralMetadata(text string) map[string]extractedMetadata {
	found := make(map[string]extractedMetadata, len(structuralPatterns))

	for _, p := range structuralPatterns {
		m := p.regex.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		id := firstNonEmpty(m[1:])
		if id == "" {
			continue
		}
		found[p.kind] = extractedMetadata{id: id, label: m[0]}
	}

	return found
}

func firstNonEmpty(groups []string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return ""
}
