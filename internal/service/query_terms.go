package service

import (
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"in": {}, "on": {}, "at": {}, "from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "us": {}, "them": {}, "they": {}, "their": {}, "do": {},
	"does": {}, "did": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "will": {}, "shall": {},
}

// KeywordQuery strips stopwords from free-form query text, leaving the
// terms the lexical index should match on. An empty result means the
// query has no lexical signal.
func KeywordQuery(query string) string {
	var tokens []string
	for _, token := range strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r)
	}) {
		clean := strings.ToLower(strings.TrimSpace(token))
		if clean == "" {
			continue
		}
		if _, ok := stopwords[clean]; ok {
			continue
		}
		tokens = append(tokens, token)
	}
	return strings.Join(tokens, " ")
}
