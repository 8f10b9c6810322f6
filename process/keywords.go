package process

import "strings"

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "your": true, "about": true,
	"are": true, "was": true, "were": true, "has": true, "have": true,
	"will": true, "can": true, "should": true, "would": true, "could": true,
	"then": true, "than": true, "its": true, "our": true, "you": true,
}

// keywordSet tokenizes text into a deduplicated, stopword-free keyword
// set: lowercase alphanumeric tokens of length >= 3, the same tokenization rule memory.keywords uses for similarity.
func keywordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, raw := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if len(raw) < 3 || stopwords[raw] {
			continue
		}
		set[raw] = true
	}
	return set
}

func intersectionSize(a, b map[string]bool) int {
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}
