package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyayatech/nyaya/internal/domain"
)

// ParagraphRepository reads and writes the extracted paragraph sequence
// for an authority. Extraction itself happens upstream; rows here are
// immutable once written.
type ParagraphRepository struct {
	db dbtx
}

func NewParagraphRepository(pool *pgxpool.Pool) *ParagraphRepository {
	return &ParagraphRepository{db: pool}
}

func NewParagraphRepositoryWithTx(tx pgx.Tx) *ParagraphRepository {
	return &ParagraphRepository{db: tx}
}

// GetParagraphs returns an authority's paragraphs in ordinal order.
func (r *ParagraphRepository) GetParagraphs(ctx context.Context, authorityID string) ([]domain.Paragraph, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ordinal, text, page, is_numbered, number, word_count, char_count
		 FROM paragraphs
		 WHERE authority_id = $1
		 ORDER BY ordinal`,
		authorityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Paragraph
	for rows.Next() {
		var p domain.Paragraph
		if err := rows.Scan(&p.ID, &p.Text, &p.Page, &p.IsNumbered, &p.Number, &p.WordCount, &p.CharCount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceParagraphs rewrites the full paragraph sequence for an
// authority, used when the extraction collaborator re-delivers a document.
func (r *ParagraphRepository) ReplaceParagraphs(ctx context.Context, authorityID string, paragraphs []domain.Paragraph) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM paragraphs WHERE authority_id = $1`, authorityID); err != nil {
		return err
	}
	for _, p := range paragraphs {
		_, err := r.db.Exec(ctx,
			`INSERT INTO paragraphs (authority_id, ordinal, text, page, is_numbered, number, word_count, char_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			authorityID, p.ID, p.Text, p.Page, p.IsNumbered, p.Number, p.WordCount, p.CharCount,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
