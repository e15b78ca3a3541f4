package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyayatech/nyaya/internal/service"
)

// RunLogRepository durably records each answered query: the votes, the
// weight snapshot and the commitment root, for later audit.
type RunLogRepository struct {
	pool *pgxpool.Pool
}

func NewRunLogRepository(pool *pgxpool.Pool) *RunLogRepository {
	return &RunLogRepository{pool: pool}
}

// RecordRun implements service.AuditSink.
func (r *RunLogRepository) RecordRun(ctx context.Context, result *service.AnswerResult) error {
	votesJSON, err := json.Marshal(result.Votes)
	if err != nil {
		return err
	}
	weightsJSON, err := json.Marshal(result.Weights)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO run_logs
			(id, query, answer, confidence, aligned, low_consensus, votes, weights, commitment_root, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.QueryID, result.Query, result.Answer, result.Confidence,
		result.Aligned, result.LowConsensus, votesJSON, weightsJSON,
		result.CommitmentRoot, result.AnsweredAt,
	)
	return err
}
