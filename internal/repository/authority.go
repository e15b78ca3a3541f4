package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyayatech/nyaya/internal/domain"
	"github.com/nyayatech/nyaya/internal/pagination"
)

// AuthorityRepository persists authority records and their ingestion state.
type AuthorityRepository struct {
	db dbtx
}

func NewAuthorityRepository(pool *pgxpool.Pool) *AuthorityRepository {
	return &AuthorityRepository{db: pool}
}

func NewAuthorityRepositoryWithTx(tx pgx.Tx) *AuthorityRepository {
	return &AuthorityRepository{db: tx}
}

const authorityColumns = `id, matter_id, title, court, neutral_citation, reporter_citation, decided_on, bench, judge, url, statute_tags, status, created_at, updated_at`

func (r *AuthorityRepository) Create(ctx context.Context, a *domain.Authority) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO authorities (`+authorityColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, nullableString(a.MatterID), a.Title, a.Court,
		nullableString(a.NeutralCitation), nullableString(a.ReporterCitation),
		a.Date, a.Bench, nullableString(a.Judge), nullableString(a.URL),
		a.StatuteTags, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *AuthorityRepository) GetByID(ctx context.Context, id string) (*domain.Authority, error) {
	row := r.db.QueryRow(ctx, `SELECT `+authorityColumns+` FROM authorities WHERE id = $1`, id)
	authority, err := scanAuthority(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAuthorityNotFound
	}
	return authority, err
}

// GetByIDs resolves a batch of authority ids to their records. Missing
// ids are simply absent from the returned map.
func (r *AuthorityRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Authority, error) {
	if len(ids) == 0 {
		return map[string]*domain.Authority{}, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+authorityColumns+` FROM authorities WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*domain.Authority, len(ids))
	for rows.Next() {
		authority, err := scanAuthority(rows)
		if err != nil {
			return nil, err
		}
		out[authority.ID] = authority
	}
	return out, rows.Err()
}

// ListWithCursor pages through a matter's authorities newest-first.
func (r *AuthorityRepository) ListWithCursor(ctx context.Context, matterID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Authority], error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + authorityColumns + ` FROM authorities WHERE 1=1`
	args := []any{}
	if matterID != "" {
		args = append(args, matterID)
		query += ` AND matter_id = $1`
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		query += ` AND (created_at, id) < ($` + strconv.Itoa(len(args)-1) + `, $` + strconv.Itoa(len(args)) + `)`
	}
	args = append(args, limit+1)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Authority
	for rows.Next() {
		authority, err := scanAuthority(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, authority)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &pagination.PageResult[*domain.Authority]{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.HasMore = true
		last := result.Items[limit-1]
		result.Cursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}
	return result, nil
}

// MarkStatus transitions a document's ingestion state, recording the
// failure detail when one is given.
func (r *AuthorityRepository) MarkStatus(ctx context.Context, authorityID string, status domain.DocumentStatus, detail string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE authorities SET status = $1, status_detail = $2, updated_at = $3 WHERE id = $4`,
		status, nullableString(detail), time.Now().UTC(), authorityID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuthorityNotFound
	}
	return nil
}

// ClaimPending atomically claims one pending document for ingestion.
// Returns ErrDocumentNotFound when the queue is empty.
func (r *AuthorityRepository) ClaimPending(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`UPDATE authorities SET status = 'indexing', updated_at = now()
		 WHERE id = (
			SELECT id FROM authorities WHERE status = 'pending'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id`,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrDocumentNotFound
	}
	return id, err
}

func scanAuthority(row pgx.Row) (*domain.Authority, error) {
	var a domain.Authority
	var matterID, neutral, reporter, judge, url *string
	err := row.Scan(
		&a.ID, &matterID, &a.Title, &a.Court, &neutral, &reporter,
		&a.Date, &a.Bench, &judge, &url, &a.StatuteTags, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if matterID != nil {
		a.MatterID = *matterID
	}
	if neutral != nil {
		a.NeutralCitation = *neutral
	}
	if reporter != nil {
		a.ReporterCitation = *reporter
	}
	if judge != nil {
		a.Judge = *judge
	}
	if url != nil {
		a.URL = *url
	}
	return &a, nil
}
