package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nyayatech/nyaya/internal/domain"
)

const minFilterYear = 1900

// SearchFilters is the validated, backend-neutral predicate set derived
// from a free-form scoping request. The zero value means unfiltered.
type SearchFilters struct {
	Courts          []string
	YearFrom        int
	YearTo          int
	Judge           string
	StatuteTags     []string
	RequireCitation *bool
	ChunkType       domain.ChunkType
}

// IsZero reports whether no conditions survived validation; an empty
// filter set means search runs unfiltered, not that nothing matches.
func (f SearchFilters) IsZero() bool {
	return len(f.Courts) == 0 && f.YearFrom == 0 && f.YearTo == 0 &&
		f.Judge == "" && len(f.StatuteTags) == 0 && f.RequireCitation == nil && f.ChunkType == ""
}

// FilterOp is a backend-neutral condition operator.
type FilterOp string

const (
	FilterOpIn    FilterOp = "in"
	FilterOpRange FilterOp = "range"
	FilterOpMatch FilterOp = "match"
	FilterOpEq    FilterOp = "eq"
)

// FilterCondition is one conjunct of the backend predicate. Index
// backends translate conditions into their own query syntax.
type FilterCondition struct {
	Field  string
	Op     FilterOp
	Values []string
	From   int
	To     int
}

// Conditions materializes the predicate as a conjunction of per-field
// conditions. Nil means the search is unfiltered.
func (f SearchFilters) Conditions() []FilterCondition {
	if f.IsZero() {
		return nil
	}
	var out []FilterCondition
	if len(f.Courts) > 0 {
		out = append(out, FilterCondition{Field: "court", Op: FilterOpIn, Values: f.Courts})
	}
	if f.YearFrom != 0 || f.YearTo != 0 {
		out = append(out, FilterCondition{Field: "year", Op: FilterOpRange, From: f.YearFrom, To: f.YearTo})
	}
	if f.Judge != "" {
		out = append(out, FilterCondition{Field: "judge", Op: FilterOpMatch, Values: []string{f.Judge}})
	}
	if len(f.StatuteTags) > 0 {
		out = append(out, FilterCondition{Field: "statute_tags", Op: FilterOpIn, Values: f.StatuteTags})
	}
	if f.RequireCitation != nil {
		out = append(out, FilterCondition{Field: "has_citation", Op: FilterOpEq, Values: []string{strconv.FormatBool(*f.RequireCitation)}})
	}
	if f.ChunkType != "" {
		out = append(out, FilterCondition{Field: "chunk_type", Op: FilterOpEq, Values: []string{string(f.ChunkType)}})
	}
	return out
}

// NormalizeFilters validates and canonicalizes a free-form scoping map.
// Unknown keys and invalid values are dropped silently; normalization
// never fails. Statute tags pass through the same normalization the
// segmenter applies at index time so both sides stay comparable.
func NormalizeFilters(raw map[string]any) SearchFilters {
	var f SearchFilters
	if len(raw) == 0 {
		return f
	}

	currentYear := time.Now().UTC().Year()

	for key, value := range raw {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "court", "courts":
			f.Courts = normalizeCodeList(value)
		case "year":
			if year, ok := parseYear(value, currentYear); ok {
				f.YearFrom, f.YearTo = year, year
			}
		case "year_from":
			if year, ok := parseYear(value, currentYear); ok {
				f.YearFrom = year
			}
		case "year_to":
			if year, ok := parseYear(value, currentYear); ok {
				f.YearTo = year
			}
		case "judge":
			if judge := strings.TrimSpace(toString(value)); len(judge) >= 2 {
				f.Judge = judge
			}
		case "statute_tags", "tags":
			f.StatuteTags = normalizeTagList(value)
		case "has_citation", "require_citation":
			if b, ok := parseBool(value); ok {
				flag := b
				f.RequireCitation = &flag
			}
		case "chunk_type":
			ct := domain.ChunkType(strings.ToLower(strings.TrimSpace(toString(value))))
			if ct.IsValid() {
				f.ChunkType = ct
			}
		}
	}

	// An inverted range is treated as invalid, not impossible.
	if f.YearFrom != 0 && f.YearTo != 0 && f.YearFrom > f.YearTo {
		f.YearFrom, f.YearTo = 0, 0
	}
	return f
}

func normalizeCodeList(value any) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range toStringSlice(value) {
		code := strings.ToUpper(strings.TrimSpace(item))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func normalizeTagList(value any) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range toStringSlice(value) {
		tag := NormalizeStatuteTag(item)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func parseYear(value any, currentYear int) (int, bool) {
	var year int
	switch v := value.(type) {
	case int:
		year = v
	case int64:
		year = int(v)
	case float64:
		year = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		year = parsed
	default:
		return 0, false
	}
	if year < minFilterYear || year > currentYear {
		return 0, false
	}
	return year, true
}

func parseBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	return false, false
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

func toStringSlice(value any) []string {
	switch v := value.(type) {
	case string:
		return strings.Split(v, ",")
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
