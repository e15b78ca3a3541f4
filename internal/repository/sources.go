package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nyayatech/nyaya/internal/domain"
	"github.com/nyayatech/nyaya/internal/service"
)

// VectorSource ranks chunks by embedding similarity. Chunk-level
// granularity: candidates carry the chunk id and paragraph span.
type VectorSource struct {
	pool *pgxpool.Pool
}

func NewVectorSource(pool *pgxpool.Pool) *VectorSource {
	return &VectorSource{pool: pool}
}

func (s *VectorSource) Name() domain.RetrievalSource { return domain.SourceVector }

func (s *VectorSource) Search(ctx context.Context, query service.RetrievalQuery, filters service.SearchFilters, limit int) ([]domain.RetrievalCandidate, error) {
	args := []any{pgvector.NewVector(query.Embedding)}
	clause, args := buildFilterSQL(filters, scopeChunk, args)
	args = append(args, limit)

	sql := `
		SELECT c.id, c.authority_id, c.para_from, c.para_to,
		       left(c.text, 300) AS snippet, a.title,
		       1.0 / (1.0 + (c.embedding <=> $1)) AS score
		FROM chunks c
		JOIN authorities a ON a.id = c.authority_id
		WHERE c.embedding IS NOT NULL` + clause + `
		ORDER BY c.embedding <=> $1, c.id
		LIMIT $` + itoaArg(len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RetrievalCandidate
	for rows.Next() {
		var c domain.RetrievalCandidate
		var title string
		if err := rows.Scan(&c.ChunkID, &c.AuthorityID, &c.ParaFrom, &c.ParaTo, &c.Snippet, &title, &c.RawScore); err != nil {
			return nil, err
		}
		c.Source = domain.SourceVector
		c.Payload = map[string]string{"title": title}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LexicalSource ranks authorities by full-text relevance over their
// chunk text. Authority-level granularity: no chunk span on candidates.
type LexicalSource struct {
	pool *pgxpool.Pool
}

func NewLexicalSource(pool *pgxpool.Pool) *LexicalSource {
	return &LexicalSource{pool: pool}
}

func (s *LexicalSource) Name() domain.RetrievalSource { return domain.SourceLexical }

func (s *LexicalSource) Search(ctx context.Context, query service.RetrievalQuery, filters service.SearchFilters, limit int) ([]domain.RetrievalCandidate, error) {
	keywords := service.KeywordQuery(query.Text)
	if keywords == "" {
		return nil, nil
	}

	args := []any{keywords}
	clause, args := buildFilterSQL(filters, scopeChunk, args)
	args = append(args, limit)

	sql := `
		SELECT a.id, a.title, max(ts_rank_cd(c.tsv, plainto_tsquery('english', $1))) AS score
		FROM authorities a
		JOIN chunks c ON c.authority_id = a.id
		WHERE c.tsv @@ plainto_tsquery('english', $1)` + clause + `
		GROUP BY a.id, a.title
		ORDER BY score DESC, a.id
		LIMIT $` + itoaArg(len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RetrievalCandidate
	for rows.Next() {
		var c domain.RetrievalCandidate
		var title string
		if err := rows.Scan(&c.AuthorityID, &title, &c.RawScore); err != nil {
			return nil, err
		}
		c.Source = domain.SourceLexical
		c.Payload = map[string]string{"title": title}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CitationSource ranks authorities by trigram similarity of their
// citation fields against a citation-shaped query. The orchestrator only
// invokes it for queries that look like citations.
type CitationSource struct {
	pool *pgxpool.Pool
}

func NewCitationSource(pool *pgxpool.Pool) *CitationSource {
	return &CitationSource{pool: pool}
}

func (s *CitationSource) Name() domain.RetrievalSource { return domain.SourceCitation }

func (s *CitationSource) Search(ctx context.Context, query service.RetrievalQuery, filters service.SearchFilters, limit int) ([]domain.RetrievalCandidate, error) {
	args := []any{query.Text}
	clause, args := buildFilterSQL(filters, scopeAuthority, args)
	args = append(args, limit)

	sql := `
		SELECT a.id, a.title,
		       similarity(concat_ws(' ', a.neutral_citation, a.reporter_citation, a.title), $1) AS score
		FROM authorities a
		WHERE similarity(concat_ws(' ', a.neutral_citation, a.reporter_citation, a.title), $1) > 0.1` + clause + `
		ORDER BY score DESC, a.id
		LIMIT $` + itoaArg(len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RetrievalCandidate
	for rows.Next() {
		var c domain.RetrievalCandidate
		var title string
		if err := rows.Scan(&c.AuthorityID, &title, &c.RawScore); err != nil {
			return nil, err
		}
		c.Source = domain.SourceCitation
		c.Payload = map[string]string{"title": title}
		out = append(out, c)
	}
	return out, rows.Err()
}
