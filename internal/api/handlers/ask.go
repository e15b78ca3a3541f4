package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nyayatech/nyaya/internal/api"
	"github.com/nyayatech/nyaya/internal/service"
)

type AnswerService interface {
	Ask(ctx context.Context, query string, limit int, filters map[string]any) (*service.AnswerResult, error)
}

type AskHandler struct {
	answers AnswerService
}

func NewAskHandler(answers AnswerService) *AskHandler {
	return &AskHandler{answers: answers}
}

type AskRequest struct {
	Query   string         `json:"query"`
	Limit   int            `json:"limit,omitempty"`
	Filters map[string]any `json:"filters,omitempty"`
}

type VoteSourceResponse struct {
	AuthorityID string `json:"authority_id"`
	ParaIDs     []int  `json:"para_ids,omitempty"`
}

type VoteResponse struct {
	AgentName  string               `json:"agent_name"`
	Reasoning  string               `json:"reasoning,omitempty"`
	Decision   string               `json:"decision,omitempty"`
	Sources    []VoteSourceResponse `json:"sources,omitempty"`
	Confidence float64              `json:"confidence"`
	Error      string               `json:"error,omitempty"`
}

type AskResponse struct {
	QueryID        string             `json:"query_id"`
	Answer         string             `json:"answer"`
	Confidence     float64            `json:"confidence"`
	Aligned        []string           `json:"aligned"`
	LowConsensus   bool               `json:"low_consensus"`
	Packs          []PackResponse     `json:"packs"`
	Votes          []VoteResponse     `json:"votes"`
	Weights        map[string]float64 `json:"weights"`
	CommitmentRoot string             `json:"commitment_root"`
	AnsweredAt     string             `json:"answered_at"`
}

// Ask runs the full pipeline: retrieval, agent fan-out, aggregation and
// evidence commitment.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.answers.Ask(r.Context(), req.Query, req.Limit, req.Filters)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	votes := make([]VoteResponse, 0, len(result.Votes))
	for _, vote := range result.Votes {
		sources := make([]VoteSourceResponse, len(vote.Sources))
		for i, src := range vote.Sources {
			sources[i] = VoteSourceResponse{AuthorityID: src.AuthorityID, ParaIDs: src.ParaIDs}
		}
		votes = append(votes, VoteResponse{
			AgentName:  vote.AgentName,
			Reasoning:  vote.Reasoning,
			Decision:   vote.Decision,
			Sources:    sources,
			Confidence: vote.Confidence,
			Error:      vote.Err,
		})
	}

	api.Success(w, http.StatusOK, AskResponse{
		QueryID:        result.QueryID,
		Answer:         result.Answer,
		Confidence:     result.Confidence,
		Aligned:        result.Aligned,
		LowConsensus:   result.LowConsensus,
		Packs:          packResponses(result.Packs),
		Votes:          votes,
		Weights:        result.Weights,
		CommitmentRoot: result.CommitmentRoot,
		AnsweredAt:     result.AnsweredAt.UTC().Format(time.RFC3339Nano),
	})
}
