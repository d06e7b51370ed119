package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"hypertide/internal/models"
)

type PostgresJobStatStore struct {
	db *sql.DB
}

func NewPostgresJobStatStore(db *sql.DB) *PostgresJobStatStore {
	return &PostgresJobStatStore{db: db}
}

func (r *PostgresJobStatStore) Find(ctx context.Context, jobID int64) (*models.JobStat, error) {
	query := `
		SELECT job_id, last_start, last_finish, next_start, last_run_success,
		       total_runs, total_failures, consecutive_failures
		FROM hypertide_schema.job_stats
		WHERE job_id = $1
	`

	var stat models.JobStat
	var lastStart, lastFinish, nextStart sql.NullTime
	err := r.db.QueryRowContext(ctx, query, jobID).Scan(
		&stat.JobID, &lastStart, &lastFinish, &nextStart, &stat.LastRunSuccess,
		&stat.TotalRuns, &stat.TotalFailures, &stat.ConsecutiveFailures,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find job stat")
	}

	stat.LastStart = lastStart.Time
	stat.LastFinish = lastFinish.Time
	stat.NextStart = nextStart.Time
	return &stat, nil
}

func (r *PostgresJobStatStore) UpsertNextStart(ctx context.Context, jobID int64, nextStart time.Time) error {
	query := `
		INSERT INTO hypertide_schema.job_stats (job_id, next_start)
		VALUES ($1, $2)
		ON CONFLICT (job_id) DO UPDATE SET next_start = EXCLUDED.next_start
	`
	_, err := r.db.ExecContext(ctx, query, jobID, nullTime(nextStart))
	return errors.Wrap(err, "upsert next start")
}

func (r *PostgresJobStatStore) SetNextStart(ctx context.Context, jobID int64, nextStart time.Time) error {
	query := `UPDATE hypertide_schema.job_stats SET next_start = $2 WHERE job_id = $1`
	_, err := r.db.ExecContext(ctx, query, jobID, nullTime(nextStart))
	return errors.Wrap(err, "set next start")
}

func (r *PostgresJobStatStore) MarkStart(ctx context.Context, jobID int64, at time.Time) error {
	query := `
		INSERT INTO hypertide_schema.job_stats (job_id, last_start, next_start, total_runs)
		VALUES ($1, $2, NULL, 1)
		ON CONFLICT (job_id) DO UPDATE SET
			last_start = EXCLUDED.last_start,
			next_start = NULL,
			total_runs = job_stats.total_runs + 1
	`
	_, err := r.db.ExecContext(ctx, query, jobID, at)
	return errors.Wrap(err, "mark job start")
}

// MarkFinish records the run outcome. A next_start written during the
// run (fast restart or explicit alter) wins over the computed one.
func (r *PostgresJobStatStore) MarkFinish(ctx context.Context, jobID int64, at time.Time, success bool, computedNext time.Time) error {
	query := `
		UPDATE hypertide_schema.job_stats
		SET last_finish = $2,
		    last_run_success = $3,
		    total_failures = total_failures + CASE WHEN $3 THEN 0 ELSE 1 END,
		    consecutive_failures = CASE WHEN $3 THEN 0 ELSE consecutive_failures + 1 END,
		    next_start = COALESCE(next_start, $4)
		WHERE job_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, jobID, at, success, nullTime(computedNext))
	return errors.Wrap(err, "mark job finish")
}

func (r *PostgresJobStatStore) Delete(ctx context.Context, jobID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM hypertide_schema.job_stats WHERE job_id = $1`, jobID)
	return errors.Wrap(err, "delete job stat")
}

func (r *PostgresJobStatStore) Close() error {
	return r.db.Close()
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
