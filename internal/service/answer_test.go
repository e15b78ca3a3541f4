package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyayatech/nyaya/internal/domain"
)

type captureSink struct {
	result *AnswerResult
	err    error
}

func (s *captureSink) RecordRun(_ context.Context, result *AnswerResult) error {
	s.result = result
	return s.err
}

func askFixture(sink AuditSink) *AnswerService {
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		{
			AuthorityID: "auth-1",
			ChunkID:     "7",
			RawScore:    0.8,
			Source:      domain.SourceLexical,
			ParaFrom:    3,
			ParaTo:      4,
			Snippet:     "possession was open and hostile for the statutory period",
		},
	}}
	retrieval := NewRetrievalService(nil, []CandidateSource{lexical}, nil, resolverFor("auth-1"))

	runner := NewAgentRunner([]ReasoningAgent{
		&scriptedAgent{name: "issues", vote: domain.AgentVote{Reasoning: "the claim succeeds", Decision: "allowed", Confidence: 0.9}},
		&scriptedAgent{name: "precedent", vote: domain.AgentVote{Reasoning: "precedent supports the claim", Decision: "allowed", Confidence: 0.8}},
		&scriptedAgent{name: "limitations", vote: domain.AgentVote{Reasoning: "the suit is barred", Decision: "dismissed", Confidence: 0.4}},
	}, time.Second)

	aggregator := NewAggregator(threeAgentState())

	return NewAnswerService(retrieval, runner, aggregator, sink)
}

func TestAnswerService_Ask_EmptyQuery(t *testing.T) {
	svc := askFixture(nil)

	_, err := svc.Ask(context.Background(), "", 10, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestAnswerService_Ask_Success(t *testing.T) {
	sink := &captureSink{}
	svc := askFixture(sink)

	result, err := svc.Ask(context.Background(), "can the claimant perfect title", 10, nil)

	require.NoError(t, err)
	assert.NotEmpty(t, result.QueryID)
	assert.Equal(t, "can the claimant perfect title", result.Query)
	assert.Equal(t, "the claim succeeds", result.Answer)
	assert.Equal(t, []string{"issues", "precedent"}, result.Aligned)
	assert.False(t, result.LowConsensus)
	require.Len(t, result.Packs, 1)
	require.Len(t, result.Votes, 3)
	assert.InDelta(t, 1.0, weightSum(result.Weights), 1e-9)
	assert.Len(t, result.CommitmentRoot, 64)
	assert.WithinDuration(t, time.Now().UTC(), result.AnsweredAt, time.Minute)

	// The aligned votes cited nothing, so the commitment covers the
	// evidence the agents saw.
	expected := BuildCommitment([]string{"possession was open and hostile for the statutory period"})
	assert.Equal(t, expected.RootHex(), result.CommitmentRoot)

	require.NotNil(t, sink.result)
	assert.Equal(t, result.QueryID, sink.result.QueryID)
}

func TestAnswerService_Ask_AuditFailureDoesNotFailRequest(t *testing.T) {
	sink := &captureSink{err: errors.New("run log insert failed")}
	svc := askFixture(sink)

	result, err := svc.Ask(context.Background(), "can the claimant perfect title", 10, nil)

	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.NotNil(t, sink.result)
}

func TestAnswerService_Ask_NoAuditSink(t *testing.T) {
	svc := askFixture(nil)

	result, err := svc.Ask(context.Background(), "can the claimant perfect title", 10, nil)

	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestCitedTexts_AlignedCitationsSelected(t *testing.T) {
	packs := []domain.Pack{
		{
			AuthorityID: "auth-1",
			Paragraphs: []domain.PackParagraph{
				{ParaID: 1, Text: "first paragraph"},
				{ParaID: 2, Text: "second paragraph"},
			},
		},
		{
			AuthorityID: "auth-2",
			Paragraphs: []domain.PackParagraph{
				{ParaID: 1, Text: "other authority paragraph"},
			},
		},
	}
	votes := map[string]domain.AgentVote{
		"issues": {
			AgentName: "issues",
			Sources:   []domain.VoteSource{{AuthorityID: "auth-1", ParaIDs: []int{2}}},
		},
		"limitations": {
			AgentName: "limitations",
			Sources:   []domain.VoteSource{{AuthorityID: "auth-2", ParaIDs: []int{1}}},
		},
	}

	texts := citedTexts(packs, votes, []string{"issues"})

	assert.Equal(t, []string{"second paragraph"}, texts)
}

func TestCitedTexts_NoCitationsFallsBackToPackEvidence(t *testing.T) {
	packs := []domain.Pack{
		{
			AuthorityID: "auth-1",
			Paragraphs: []domain.PackParagraph{
				{ParaID: 1, Text: "first paragraph"},
				{ParaID: 2, Text: ""},
				{ParaID: 3, Text: "third paragraph"},
			},
		},
	}
	votes := map[string]domain.AgentVote{
		"issues": {AgentName: "issues"},
	}

	texts := citedTexts(packs, votes, []string{"issues"})

	assert.Equal(t, []string{"first paragraph", "third paragraph"}, texts)
}

func TestCitedTexts_EmptyPacks(t *testing.T) {
	assert.Empty(t, citedTexts(nil, nil, nil))
}
