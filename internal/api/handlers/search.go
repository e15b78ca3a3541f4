package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nyayatech/nyaya/internal/api"
	"github.com/nyayatech/nyaya/internal/domain"
)

type RetrievalService interface {
	Retrieve(ctx context.Context, queryText string, limit int, filters map[string]any) ([]domain.Pack, error)
}

type SearchHandler struct {
	retrieval RetrievalService
}

func NewSearchHandler(retrieval RetrievalService) *SearchHandler {
	return &SearchHandler{retrieval: retrieval}
}

type SearchRequest struct {
	Query   string         `json:"query"`
	Limit   int            `json:"limit,omitempty"`
	Filters map[string]any `json:"filters,omitempty"`
}

type PackParagraphResponse struct {
	ParaID int     `json:"para_id"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

type PackResponse struct {
	AuthorityID    string                  `json:"authority_id"`
	Title          string                  `json:"title"`
	Court          string                  `json:"court"`
	Citations      []string                `json:"citations,omitempty"`
	Date           string                  `json:"date,omitempty"`
	Bench          []string                `json:"bench,omitempty"`
	URL            string                  `json:"url,omitempty"`
	Paragraphs     []PackParagraphResponse `json:"paragraphs,omitempty"`
	AggregateScore float64                 `json:"aggregate_score"`
	Source         string                  `json:"source"`
}

type SearchResponse struct {
	Packs []PackResponse `json:"packs"`
}

// Search runs the hybrid retrieval pipeline and returns ranked
// authority packs.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	packs, err := h.retrieval.Retrieve(r.Context(), req.Query, req.Limit, req.Filters)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SearchResponse{Packs: packResponses(packs)})
}

func packResponses(packs []domain.Pack) []PackResponse {
	out := make([]PackResponse, len(packs))
	for i, p := range packs {
		date := ""
		if !p.Date.IsZero() {
			date = p.Date.UTC().Format(time.DateOnly)
		}
		paragraphs := make([]PackParagraphResponse, len(p.Paragraphs))
		for j, para := range p.Paragraphs {
			paragraphs[j] = PackParagraphResponse{
				ParaID: para.ParaID,
				Text:   para.Text,
				Score:  para.Score,
			}
		}
		out[i] = PackResponse{
			AuthorityID:    p.AuthorityID,
			Title:          p.Title,
			Court:          p.Court,
			Citations:      p.Citations,
			Date:           date,
			Bench:          p.Bench,
			URL:            p.URL,
			Paragraphs:     paragraphs,
			AggregateScore: p.AggregateScore,
			Source:         string(p.Source),
		}
	}
	return out
}
