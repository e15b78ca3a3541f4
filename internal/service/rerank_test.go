package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyayatech/nyaya/internal/domain"
)

func TestKeywordQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			"strips stopwords",
			"what is the limitation period for adverse possession",
			"limitation period adverse possession",
		},
		{"all stopwords", "what is this", ""},
		{"empty", "", ""},
		{"keeps original casing", "Adverse Possession", "Adverse Possession"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KeywordQuery(tt.query))
		})
	}
}

func TestTermOverlapReranker_BlendsOverlap(t *testing.T) {
	reranker := TermOverlapReranker{}

	candidates := []domain.RetrievalCandidate{
		{AuthorityID: "auth-1", NormalizedScore: 0.5, Snippet: "adverse possession was open and hostile"},
		{AuthorityID: "auth-2", NormalizedScore: 0.5, Snippet: "an unrelated service tax dispute"},
	}

	out, err := reranker.Rerank(context.Background(), "adverse possession", candidates)

	require.NoError(t, err)
	require.Len(t, out, 2)
	// Full keyword overlap: 0.6*0.5 + 0.4*1.0.
	assert.InDelta(t, 0.7, out[0].NormalizedScore, 1e-9)
	// No overlap: 0.6*0.5.
	assert.InDelta(t, 0.3, out[1].NormalizedScore, 1e-9)
}

func TestTermOverlapReranker_TitleCounts(t *testing.T) {
	reranker := TermOverlapReranker{}

	candidates := []domain.RetrievalCandidate{
		{
			AuthorityID:     "auth-1",
			NormalizedScore: 0.5,
			Payload:         map[string]string{"title": "Adverse possession of wakf land"},
		},
	}

	out, err := reranker.Rerank(context.Background(), "adverse possession", candidates)

	require.NoError(t, err)
	assert.InDelta(t, 0.7, out[0].NormalizedScore, 1e-9)
}

func TestTermOverlapReranker_StopwordOnlyQueryUnchanged(t *testing.T) {
	reranker := TermOverlapReranker{}

	candidates := []domain.RetrievalCandidate{
		{AuthorityID: "auth-1", NormalizedScore: 0.5, Snippet: "anything"},
	}

	out, err := reranker.Rerank(context.Background(), "what is this", candidates)

	require.NoError(t, err)
	assert.Equal(t, 0.5, out[0].NormalizedScore)
}

func TestTermOverlapReranker_DoesNotMutateInput(t *testing.T) {
	reranker := TermOverlapReranker{}

	candidates := []domain.RetrievalCandidate{
		{AuthorityID: "auth-1", NormalizedScore: 0.5, Snippet: "adverse possession"},
	}

	_, err := reranker.Rerank(context.Background(), "adverse possession", candidates)

	require.NoError(t, err)
	assert.Equal(t, 0.5, candidates[0].NormalizedScore)
}
