package service

import (
	"context"
	"log"
	"sort"

	"github.com/nyayatech/nyaya/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	// citationMatchScore is assigned to every citation-index match: an
	// explicit citation hit is treated as near-certain relevance and
	// overrides whatever the vector or lexical signal said.
	citationMatchScore = 0.9

	// rerankFloor drops reranked candidates that scored below it.
	rerankFloor = 0.05

	defaultRetrievalLimit = 10
	maxRetrievalLimit     = 50
)

// RetrievalService fans a query out to the configured candidate sources,
// normalizes and deduplicates their scores, reranks, and packs the top
// authorities with their metadata and matched evidence.
type RetrievalService struct {
	embedder    EmbeddingClient
	sources     []CandidateSource
	reranker    Reranker
	authorities AuthorityResolver
}

func NewRetrievalService(embedder EmbeddingClient, sources []CandidateSource, reranker Reranker, authorities AuthorityResolver) *RetrievalService {
	return &RetrievalService{
		embedder:    embedder,
		sources:     sources,
		reranker:    reranker,
		authorities: authorities,
	}
}

// Retrieve runs the full orchestration for one query. Repeated calls with
// identical index contents, filters and query return the same ordered
// authority set. A failing source contributes an empty result set; only
// an empty query is an error.
func (s *RetrievalService) Retrieve(ctx context.Context, queryText string, limit int, rawFilters map[string]any) ([]domain.Pack, error) {
	if queryText == "" {
		return nil, domain.ErrEmptyQuery
	}
	if limit <= 0 {
		limit = defaultRetrievalLimit
	}
	if limit > maxRetrievalLimit {
		limit = maxRetrievalLimit
	}

	filters := NormalizeFilters(rawFilters)
	query := RetrievalQuery{Text: queryText}
	if s.embedder != nil {
		embedding, err := s.embedder.GenerateEmbedding(ctx, queryText)
		if err != nil {
			// Embedding failure degrades the vector source to an empty
			// contribution; the remaining sources still run.
			log.Printf("retrieval: query embedding failed: %v", err)
		} else {
			query.Embedding = embedding
		}
	}

	resultSets := s.fanOut(ctx, query, filters, limit)

	var candidates []domain.RetrievalCandidate
	for _, set := range resultSets {
		candidates = append(candidates, normalizeScores(set)...)
	}

	deduped := dedupeByAuthority(candidates)
	reranked := s.rerank(ctx, queryText, deduped)

	sortCandidates(reranked)
	if len(reranked) > limit {
		reranked = reranked[:limit]
	}

	return s.pack(ctx, reranked)
}

// fanOut queries every source concurrently. Each source is bulkheaded: an
// error is logged and contributes an empty set, never a request failure.
// The returned slice preserves source registration order so downstream
// tie-breaks stay deterministic.
func (s *RetrievalService) fanOut(ctx context.Context, query RetrievalQuery, filters SearchFilters, limit int) [][]domain.RetrievalCandidate {
	resultSets := make([][]domain.RetrievalCandidate, len(s.sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, source := range s.sources {
		g.Go(func() error {
			sourceLimit := 2 * limit
			switch source.Name() {
			case domain.SourceVector:
				if len(query.Embedding) == 0 {
					return nil
				}
			case domain.SourceCitation:
				if !IsCitationQuery(query.Text) {
					return nil
				}
				sourceLimit = limit
			}

			matches, err := source.Search(ctx, query, filters, sourceLimit)
			if err != nil {
				log.Printf("retrieval: %s source failed: %v", source.Name(), err)
				return nil
			}
			resultSets[i] = matches
			return nil
		})
	}
	_ = g.Wait()
	return resultSets
}

// normalizeScores maps raw per-source scores onto [0,1]. Vector scores are
// scaled by the batch maximum, lexical scores are clamped, and citation
// matches are pinned to citationMatchScore.
func normalizeScores(candidates []domain.RetrievalCandidate) []domain.RetrievalCandidate {
	if len(candidates) == 0 {
		return nil
	}
	switch candidates[0].Source {
	case domain.SourceVector:
		maxScore := 0.0
		for _, c := range candidates {
			if c.RawScore > maxScore {
				maxScore = c.RawScore
			}
		}
		for i := range candidates {
			if maxScore > 0 {
				candidates[i].NormalizedScore = candidates[i].RawScore / maxScore
			} else {
				candidates[i].NormalizedScore = 0
			}
		}
	case domain.SourceLexical:
		for i := range candidates {
			score := candidates[i].RawScore
			if score < 0 {
				score = 0
			}
			if score > 1 {
				score = 1
			}
			candidates[i].NormalizedScore = score
		}
	case domain.SourceCitation:
		for i := range candidates {
			candidates[i].NormalizedScore = citationMatchScore
		}
	}
	return candidates
}

// dedupeByAuthority keeps the single best-scored candidate per authority,
// regardless of how many sources matched it. First-seen wins exact ties,
// which is the fan-out registration order.
func dedupeByAuthority(candidates []domain.RetrievalCandidate) []domain.RetrievalCandidate {
	best := make(map[string]domain.RetrievalCandidate, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.AuthorityID == "" {
			continue
		}
		existing, ok := best[c.AuthorityID]
		if !ok {
			order = append(order, c.AuthorityID)
			best[c.AuthorityID] = c
		} else if c.NormalizedScore > existing.NormalizedScore {
			best[c.AuthorityID] = c
		}
	}
	out := make([]domain.RetrievalCandidate, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

func (s *RetrievalService) rerank(ctx context.Context, query string, candidates []domain.RetrievalCandidate) []domain.RetrievalCandidate {
	if s.reranker == nil || len(candidates) == 0 {
		return candidates
	}
	reranked, err := s.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		// Rerank is best-effort; the pre-rerank ordering stands.
		log.Printf("retrieval: rerank failed: %v", err)
		return candidates
	}
	kept := reranked[:0]
	for _, c := range reranked {
		if c.NormalizedScore >= rerankFloor {
			kept = append(kept, c)
		}
	}
	return kept
}

func sortCandidates(candidates []domain.RetrievalCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].NormalizedScore != candidates[j].NormalizedScore {
			return candidates[i].NormalizedScore > candidates[j].NormalizedScore
		}
		return candidates[i].AuthorityID < candidates[j].AuthorityID
	})
}

// pack resolves authority metadata for the retained candidates and
// assembles the Pack records agents consume. Paragraph-level evidence is
// attached only when the candidate carried a chunk span.
func (s *RetrievalService) pack(ctx context.Context, candidates []domain.RetrievalCandidate) ([]domain.Pack, error) {
	if len(candidates) == 0 {
		return []domain.Pack{}, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.AuthorityID
	}
	authorities, err := s.authorities.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	packs := make([]domain.Pack, 0, len(candidates))
	for _, c := range candidates {
		authority, ok := authorities[c.AuthorityID]
		if !ok {
			log.Printf("retrieval: dropping candidate with unresolved authority %s", c.AuthorityID)
			continue
		}
		pack := domain.Pack{
			AuthorityID:    authority.ID,
			Title:          authority.Title,
			Court:          authority.Court,
			Citations:      authority.Citations(),
			Date:           authority.Date,
			Bench:          authority.Bench,
			URL:            authority.URL,
			AggregateScore: c.NormalizedScore,
			Source:         c.Source,
			Metadata:       c.Payload,
		}
		if c.ChunkID != "" {
			for paraID := c.ParaFrom; paraID <= c.ParaTo; paraID++ {
				pack.Paragraphs = append(pack.Paragraphs, domain.PackParagraph{
					ParaID: paraID,
					Score:  c.NormalizedScore,
				})
			}
			if len(pack.Paragraphs) > 0 && c.Snippet != "" {
				pack.Paragraphs[0].Text = c.Snippet
			}
		}
		packs = append(packs, pack)
	}
	return packs, nil
}
