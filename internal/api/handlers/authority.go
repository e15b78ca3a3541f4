package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nyayatech/nyaya/internal/api"
	"github.com/nyayatech/nyaya/internal/domain"
	"github.com/nyayatech/nyaya/internal/pagination"
)

type AuthorityStore interface {
	Create(ctx context.Context, a *domain.Authority) error
	GetByID(ctx context.Context, id string) (*domain.Authority, error)
	ListWithCursor(ctx context.Context, matterID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Authority], error)
}

type ParagraphStore interface {
	ReplaceParagraphs(ctx context.Context, authorityID string, paragraphs []domain.Paragraph) error
}

// AuthorityHandler accepts extracted documents for ingestion and serves
// authority metadata. Segmentation and embedding happen asynchronously
// once a document is queued.
type AuthorityHandler struct {
	authorities AuthorityStore
	paragraphs  ParagraphStore
}

func NewAuthorityHandler(authorities AuthorityStore, paragraphs ParagraphStore) *AuthorityHandler {
	return &AuthorityHandler{authorities: authorities, paragraphs: paragraphs}
}

type ParagraphRequest struct {
	Text   string `json:"text"`
	Page   int    `json:"page,omitempty"`
	Number int    `json:"number,omitempty"`
}

type CreateAuthorityRequest struct {
	ID               string             `json:"id,omitempty"`
	MatterID         string             `json:"matter_id,omitempty"`
	Title            string             `json:"title"`
	Court            string             `json:"court"`
	NeutralCitation  string             `json:"neutral_citation,omitempty"`
	ReporterCitation string             `json:"reporter_citation,omitempty"`
	Date             string             `json:"date"`
	Bench            []string           `json:"bench,omitempty"`
	Judge            string             `json:"judge,omitempty"`
	URL              string             `json:"url,omitempty"`
	StatuteTags      []string           `json:"statute_tags,omitempty"`
	Paragraphs       []ParagraphRequest `json:"paragraphs"`
}

type AuthorityResponse struct {
	ID               string   `json:"id"`
	MatterID         string   `json:"matter_id,omitempty"`
	Title            string   `json:"title"`
	Court            string   `json:"court"`
	NeutralCitation  string   `json:"neutral_citation,omitempty"`
	ReporterCitation string   `json:"reporter_citation,omitempty"`
	Date             string   `json:"date"`
	Bench            []string `json:"bench,omitempty"`
	Judge            string   `json:"judge,omitempty"`
	URL              string   `json:"url,omitempty"`
	StatuteTags      []string `json:"statute_tags,omitempty"`
	Status           string   `json:"status"`
	CreatedAt        string   `json:"created_at"`
}

type ListAuthoritiesResponse struct {
	Authorities []AuthorityResponse `json:"authorities"`
	Cursor      string              `json:"cursor,omitempty"`
	HasMore     bool                `json:"has_more"`
}

// Create registers an extracted document and queues it for ingestion.
func (h *AuthorityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAuthorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" || req.Court == "" {
		api.Error(w, http.StatusBadRequest, "title and court are required")
		return
	}
	if len(req.Paragraphs) == 0 {
		api.Error(w, http.StatusBadRequest, "paragraphs are required")
		return
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	authority := &domain.Authority{
		ID:               id,
		MatterID:         req.MatterID,
		Title:            req.Title,
		Court:            req.Court,
		NeutralCitation:  req.NeutralCitation,
		ReporterCitation: req.ReporterCitation,
		Date:             date,
		Bench:            req.Bench,
		Judge:            req.Judge,
		URL:              req.URL,
		StatuteTags:      req.StatuteTags,
		Status:           domain.DocumentStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.authorities.Create(r.Context(), authority); err != nil {
		api.HandleError(w, err)
		return
	}

	paragraphs := make([]domain.Paragraph, len(req.Paragraphs))
	for i, p := range req.Paragraphs {
		paragraphs[i] = domain.Paragraph{
			ID:         i,
			Text:       p.Text,
			Page:       p.Page,
			IsNumbered: p.Number > 0,
			Number:     p.Number,
			WordCount:  len(strings.Fields(p.Text)),
			CharCount:  utf8.RuneCountInString(p.Text),
		}
	}
	if err := h.paragraphs.ReplaceParagraphs(r.Context(), id, paragraphs); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, authorityResponse(authority))
}

// Get returns one authority's metadata and ingestion status.
func (h *AuthorityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	authority, err := h.authorities.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, authorityResponse(authority))
}

// List pages through authorities newest-first, optionally scoped to a
// matter.
func (h *AuthorityHandler) List(w http.ResponseWriter, r *http.Request) {
	matterID := r.URL.Query().Get("matter_id")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	var cursor *pagination.Cursor
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		decoded, err := pagination.DecodeCursor(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = decoded
	}

	page, err := h.authorities.ListWithCursor(r.Context(), matterID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]AuthorityResponse, len(page.Items))
	for i, authority := range page.Items {
		items[i] = authorityResponse(authority)
	}

	api.Success(w, http.StatusOK, ListAuthoritiesResponse{
		Authorities: items,
		Cursor:      page.Cursor,
		HasMore:     page.HasMore,
	})
}

func authorityResponse(a *domain.Authority) AuthorityResponse {
	return AuthorityResponse{
		ID:               a.ID,
		MatterID:         a.MatterID,
		Title:            a.Title,
		Court:            a.Court,
		NeutralCitation:  a.NeutralCitation,
		ReporterCitation: a.ReporterCitation,
		Date:             a.Date.UTC().Format(time.DateOnly),
		Bench:            a.Bench,
		Judge:            a.Judge,
		URL:              a.URL,
		StatuteTags:      a.StatuteTags,
		Status:           string(a.Status),
		CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
