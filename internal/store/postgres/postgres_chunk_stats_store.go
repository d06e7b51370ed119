package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

type PostgresChunkStatsStore struct {
	db *sql.DB
}

func NewPostgresChunkStatsStore(db *sql.DB) *PostgresChunkStatsStore {
	return &PostgresChunkStatsStore{db: db}
}

func (r *PostgresChunkStatsStore) RecordJobRun(ctx context.Context, jobID, chunkID int64, at time.Time) error {
	query := `
		INSERT INTO hypertide_schema.policy_chunk_stats (job_id, chunk_id, num_runs, last_run_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (job_id, chunk_id) DO UPDATE SET
			num_runs = policy_chunk_stats.num_runs + 1,
			last_run_at = EXCLUDED.last_run_at
	`
	_, err := r.db.ExecContext(ctx, query, jobID, chunkID, at)
	return errors.Wrap(err, "record chunk job run")
}

func (r *PostgresChunkStatsStore) DeleteForJob(ctx context.Context, jobID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM hypertide_schema.policy_chunk_stats WHERE job_id = $1`, jobID)
	return errors.Wrap(err, "delete chunk stats for job")
}
