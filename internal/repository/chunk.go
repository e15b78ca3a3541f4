package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nyayatech/nyaya/internal/domain"
)

// ChunkRepository persists the segmenter's output with its embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes an authority's existing chunks and inserts the
// new segmentation.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, authorityID string, chunks []domain.Chunk) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE authority_id = $1`, authorityID); err != nil {
		return err
	}

	for _, c := range chunks {
		tags := c.StatuteTags
		if tags == nil {
			tags = []string{}
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks
				(authority_id, para_from, para_to, text, token_count, statute_tags, has_citation, chunk_type, paragraph_count, embedding)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.AuthorityID, c.ParaFrom, c.ParaTo, c.Text, c.TokenCount,
			tags, c.HasCitation, c.Type, c.ParagraphCount,
			pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// CountByAuthority reports how many chunks an authority currently has
// indexed.
func (r *ChunkRepository) CountByAuthority(ctx context.Context, authorityID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE authority_id = $1`, authorityID).Scan(&count)
	return count, err
}
