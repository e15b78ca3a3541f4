package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AgentWeightRepository persists the evolving trust weights so a restart
// keeps what the process learned. The in-memory state remains the source
// of truth during a run; rows here are best-effort snapshots.
type AgentWeightRepository struct {
	pool *pgxpool.Pool
}

func NewAgentWeightRepository(pool *pgxpool.Pool) *AgentWeightRepository {
	return &AgentWeightRepository{pool: pool}
}

// LoadAll returns the last persisted weight per agent.
func (r *AgentWeightRepository) LoadAll(ctx context.Context) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT agent_name, weight FROM agent_weights`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var name string
		var weight float64
		if err := rows.Scan(&name, &weight); err != nil {
			return nil, err
		}
		out[name] = weight
	}
	return out, rows.Err()
}

// Upsert writes one weight snapshot.
func (r *AgentWeightRepository) Upsert(ctx context.Context, weights map[string]float64) error {
	now := time.Now().UTC()
	for name, weight := range weights {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO agent_weights (agent_name, weight, updated_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (agent_name) DO UPDATE SET weight = EXCLUDED.weight, updated_at = EXCLUDED.updated_at`,
			name, weight, now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
