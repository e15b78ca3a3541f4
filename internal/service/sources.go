package service

import (
	"context"

	"github.com/nyayatech/nyaya/internal/domain"
)

// RetrievalQuery carries the query text and, when the orchestrator could
// embed it, the query vector. Sources that do not need the vector ignore it.
type RetrievalQuery struct {
	Text      string
	Embedding []float32
}

// CandidateSource is one ranking signal behind the retrieval
// orchestrator. New signals are added by implementing this interface,
// not by branching inside the orchestrator.
type CandidateSource interface {
	Name() domain.RetrievalSource
	Search(ctx context.Context, query RetrievalQuery, filters SearchFilters, limit int) ([]domain.RetrievalCandidate, error)
}

// Reranker re-scores deduplicated candidates against the query with a
// finer-grained relevance pass and may drop candidates below its floor.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.RetrievalCandidate) ([]domain.RetrievalCandidate, error)
}

// AuthorityResolver resolves authority metadata for packing.
type AuthorityResolver interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Authority, error)
}
