package service

import (
	"context"
	"strings"

	"github.com/nyayatech/nyaya/internal/domain"
)

// TermOverlapReranker is the default relevance pass when no model-backed
// reranker is configured. It blends the source score with the fraction of
// query keywords present in the candidate's text, which is cheap and
// fully deterministic.
type TermOverlapReranker struct{}

func (TermOverlapReranker) Rerank(_ context.Context, query string, candidates []domain.RetrievalCandidate) ([]domain.RetrievalCandidate, error) {
	keywords := strings.Fields(strings.ToLower(KeywordQuery(query)))
	if len(keywords) == 0 {
		return candidates, nil
	}

	out := make([]domain.RetrievalCandidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		haystack := strings.ToLower(out[i].Snippet)
		if title, ok := out[i].Payload["title"]; ok {
			haystack += " " + strings.ToLower(title)
		}
		matched := 0
		for _, keyword := range keywords {
			if strings.Contains(haystack, keyword) {
				matched++
			}
		}
		overlap := float64(matched) / float64(len(keywords))
		out[i].NormalizedScore = 0.6*out[i].NormalizedScore + 0.4*overlap
	}
	return out, nil
}
