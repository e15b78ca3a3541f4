package repository

import (
	"fmt"
	"strings"

	"github.com/nyayatech/nyaya/internal/service"
)

// filterScope selects which table alias a condition binds to: authority
// metadata lives on "a", chunk-level fields on "c".
type filterScope int

const (
	scopeAuthority filterScope = iota
	scopeChunk
)

// buildFilterSQL translates the backend-neutral filter predicate into a
// conjunction of SQL clauses. chunkScope controls whether chunk-level
// conditions (tags, citation flag, chunk type) bind to the chunks table
// or are folded onto the authority's aggregated columns.
func buildFilterSQL(filters service.SearchFilters, scope filterScope, args []any) (string, []any) {
	conditions := filters.Conditions()
	if len(conditions) == 0 {
		return "", args
	}

	var clauses []string
	next := func() string { return fmt.Sprintf("$%d", len(args)+1) }

	for _, cond := range conditions {
		switch cond.Field {
		case "court":
			clauses = append(clauses, "a.court = ANY("+next()+")")
			args = append(args, cond.Values)
		case "year":
			from, to := cond.From, cond.To
			if from == 0 {
				from = 1
			}
			if to == 0 {
				to = 9999
			}
			clauses = append(clauses, "EXTRACT(YEAR FROM a.decided_on) BETWEEN "+next())
			args = append(args, from)
			clauses[len(clauses)-1] += " AND " + next()
			args = append(args, to)
		case "judge":
			clauses = append(clauses, "(a.judge ILIKE "+next()+" OR array_to_string(a.bench, ' ') ILIKE "+next()+")")
			pattern := "%" + cond.Values[0] + "%"
			args = append(args, pattern, pattern)
		case "statute_tags":
			if scope == scopeChunk {
				clauses = append(clauses, "c.statute_tags && "+next())
			} else {
				clauses = append(clauses, "a.statute_tags && "+next())
			}
			args = append(args, cond.Values)
		case "has_citation":
			if scope == scopeChunk {
				clauses = append(clauses, "c.has_citation = "+next())
				args = append(args, cond.Values[0] == "true")
			}
		case "chunk_type":
			if scope == scopeChunk {
				clauses = append(clauses, "c.chunk_type = "+next())
				args = append(args, cond.Values[0])
			}
		}
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " AND " + strings.Join(clauses, " AND "), args
}
