package service

import (
	"regexp"
	"sort"
	"strings"
)

// Citation shapes recognized in paragraph text and query text. The
// reporter patterns cover AIR, SCC and SCC OnLine styles; the neutral
// pattern covers INSC-style citations.
var (
	reporterCitationRe = regexp.MustCompile(`(?i)\bAIR\s+\d{4}\s+[A-Z]{2,6}\s+\d+\b|\(\d{4}\)\s+\d+\s+SCC\s+\d+|\b\d{4}\s+SCC\s+OnLine\s+[A-Za-z]+\s+\d+\b`)
	neutralCitationRe  = regexp.MustCompile(`(?i)\b\d{4}\s+INSC\s+\d+\b`)
	partyVersusYearRe  = regexp.MustCompile(`\b[A-Z][\w.&]*(?:\s+[\w.&]+)*\s+[Vv][Ss]?\.?\s+[A-Z][\w.&]*(?:\s+[\w.&]+)*\s*\(\d{4}\)`)
	queryVersusRe      = regexp.MustCompile(`\b[A-Z][\w.&]*(?:\s+[A-Z][\w.&]*)*\s+[Vv][Ss]?\.?\s+[A-Z][\w.&]*`)

	sectionRefRe = regexp.MustCompile(`(?i)\b(?:section|sec\.?)\s*(\d+[A-Z]?)\b`)
	articleRefRe = regexp.MustCompile(`(?i)\barticle\s*(\d+[A-Z]?)\b`)
)

// hasCitation reports whether the paragraph text contains a legal
// citation: a reporter or neutral citation, a section/article reference,
// or an "X v. Y (year)" construction.
func hasCitation(text string) bool {
	if reporterCitationRe.MatchString(text) || neutralCitationRe.MatchString(text) {
		return true
	}
	if sectionRefRe.MatchString(text) || articleRefRe.MatchString(text) {
		return true
	}
	return partyVersusYearRe.MatchString(text)
}

// IsCitationQuery reports whether query text looks like a citation lookup
// rather than a free-text question. Only citation-shaped queries fan out
// to the citation-similarity index.
func IsCitationQuery(query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return false
	}
	if reporterCitationRe.MatchString(q) || neutralCitationRe.MatchString(q) {
		return true
	}
	return queryVersusRe.MatchString(q)
}

// extractStatuteTags scans text for SECTION/ARTICLE references and
// returns normalized SEC-<num>/ART-<num> tags, deduplicated and sorted.
func extractStatuteTags(text string) []string {
	upper := strings.ToUpper(text)
	seen := make(map[string]struct{})
	for _, m := range sectionRefRe.FindAllStringSubmatch(upper, -1) {
		seen["SEC-"+m[1]] = struct{}{}
	}
	for _, m := range articleRefRe.FindAllStringSubmatch(upper, -1) {
		seen["ART-"+m[1]] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// NormalizeStatuteTag canonicalizes a query-side statute tag so it is
// comparable with index-time tags. "section 302" and "SEC-302" normalize
// to the same value; anything else becomes an uppercased named-act tag.
func NormalizeStatuteTag(raw string) string {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return ""
	}
	if m := sectionRefRe.FindStringSubmatch(strings.ToUpper(clean)); m != nil {
		return "SEC-" + m[1]
	}
	if m := articleRefRe.FindStringSubmatch(strings.ToUpper(clean)); m != nil {
		return "ART-" + m[1]
	}
	upper := strings.ToUpper(clean)
	if strings.HasPrefix(upper, "SEC-") || strings.HasPrefix(upper, "ART-") {
		return upper
	}
	return strings.Join(strings.Fields(upper), "-")
}
