package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nyayatech/nyaya/internal/domain"
)

// AnswerResult is the complete output of one answered query.
type AnswerResult struct {
	QueryID        string
	Query          string
	Answer         string
	Confidence     float64
	Aligned        []string
	LowConsensus   bool
	Packs          []domain.Pack
	Votes          map[string]domain.AgentVote
	Weights        map[string]float64
	Commitment     domain.Commitment
	CommitmentRoot string
	AnsweredAt     time.Time
}

// AuditSink durably records votes and commitments for a completed run.
// Persistence failures are logged and never fail the request.
type AuditSink interface {
	RecordRun(ctx context.Context, result *AnswerResult) error
}

// AnswerService ties the pipeline together: retrieve, fan out to agents,
// aggregate, and commit the cited evidence.
type AnswerService struct {
	retrieval  *RetrievalService
	runner     *AgentRunner
	aggregator *Aggregator
	audit      AuditSink
}

func NewAnswerService(retrieval *RetrievalService, runner *AgentRunner, aggregator *Aggregator, audit AuditSink) *AnswerService {
	return &AnswerService{
		retrieval:  retrieval,
		runner:     runner,
		aggregator: aggregator,
		audit:      audit,
	}
}

// Ask answers one question against a matter. Only an empty query or a
// failed retrieval round-trip is an error; degraded sources and failed
// agents degrade the answer, never the request.
func (s *AnswerService) Ask(ctx context.Context, query string, limit int, filters map[string]any) (*AnswerResult, error) {
	packs, err := s.retrieval.Retrieve(ctx, query, limit, filters)
	if err != nil {
		return nil, err
	}

	votes := s.runner.RunAll(ctx, query, packs)
	aggregation := s.aggregator.Aggregate(ctx, votes, query)

	commitment := BuildCommitment(citedTexts(packs, votes, aggregation.Aligned))

	result := &AnswerResult{
		QueryID:        uuid.NewString(),
		Query:          query,
		Answer:         aggregation.Answer,
		Confidence:     aggregation.Confidence,
		Aligned:        aggregation.Aligned,
		LowConsensus:   aggregation.LowConsensus,
		Packs:          packs,
		Votes:          votes,
		Weights:        aggregation.WeightsAfter,
		Commitment:     commitment,
		CommitmentRoot: commitment.RootHex(),
		AnsweredAt:     time.Now().UTC(),
	}

	if s.audit != nil {
		if err := s.audit.RecordRun(ctx, result); err != nil {
			log.Printf("answer: audit record failed for query %s: %v", result.QueryID, err)
		}
	}

	return result, nil
}

// citedTexts selects the evidence texts backing the answer: the pack
// paragraphs the aligned agents actually cited, in pack order. When the
// aligned votes cite nothing, the retained packs' own evidence stands in,
// so a run always carries a commitment over what the agents saw.
func citedTexts(packs []domain.Pack, votes map[string]domain.AgentVote, aligned []string) []string {
	cited := make(map[string]map[int]struct{})
	for _, name := range aligned {
		for _, source := range votes[name].Sources {
			if cited[source.AuthorityID] == nil {
				cited[source.AuthorityID] = make(map[int]struct{})
			}
			for _, paraID := range source.ParaIDs {
				cited[source.AuthorityID][paraID] = struct{}{}
			}
		}
	}

	var texts []string
	for _, pack := range packs {
		paraIDs := cited[pack.AuthorityID]
		for _, paragraph := range pack.Paragraphs {
			if paragraph.Text == "" {
				continue
			}
			if len(cited) > 0 {
				if paraIDs == nil {
					continue
				}
				if _, ok := paraIDs[paragraph.ParaID]; !ok {
					continue
				}
			}
			texts = append(texts, paragraph.Text)
		}
	}
	return texts
}
