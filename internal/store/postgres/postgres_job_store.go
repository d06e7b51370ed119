// Package postgres implements the stores over PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"hypertide/internal/constants"
	"hypertide/internal/errs"
	"hypertide/internal/models"
)

type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

const jobColumns = `
	id, application, name, schedule_interval, cron_expression,
	max_runtime, max_retries, retry_period, proc_schema, proc_name,
	owner, scheduled, hypertable_id, config, created_at, updated_at`

func (r *PostgresJobStore) Insert(ctx context.Context, job *models.Job) (int64, error) {
	query := `
		INSERT INTO hypertide_schema.jobs (
			application, name, schedule_interval, cron_expression,
			max_runtime, max_retries, retry_period, proc_schema, proc_name,
			owner, scheduled, hypertable_id, config, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING id
	`

	var jobID int64
	err := r.db.QueryRowContext(ctx, query,
		job.Application,
		job.Name,
		job.ScheduleInterval.Microseconds(),
		job.CronExpression,
		job.MaxRuntime.Microseconds(),
		job.MaxRetries,
		job.RetryPeriod.Microseconds(),
		job.ProcSchema,
		job.ProcName,
		job.Owner,
		job.Scheduled,
		job.HypertableID,
		nullBytes(job.Config),
	).Scan(&jobID)
	if err != nil {
		return 0, errors.Wrap(err, "insert job")
	}
	return jobID, nil
}

func (r *PostgresJobStore) FindByID(ctx context.Context, jobID int64) (*models.Job, error) {
	query := `SELECT` + jobColumns + ` FROM hypertide_schema.jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find job")
	}
	return job, nil
}

// UpdateByID overwrites the Alter-modifiable fields under a blocking
// row-exclusive lock, so concurrent alters serialize instead of
// interleaving.
func (r *PostgresJobStore) UpdateByID(ctx context.Context, job *models.Job) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin job update")
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM hypertide_schema.jobs WHERE id = $1 FOR UPDATE`, job.ID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.UndefinedObjectf("job %d not found", job.ID)
	}
	if err != nil {
		return errors.Wrap(err, "lock job row")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE hypertide_schema.jobs
		SET schedule_interval = $2,
		    cron_expression = $3,
		    max_runtime = $4,
		    max_retries = $5,
		    retry_period = $6,
		    scheduled = $7,
		    hypertable_id = $8,
		    config = $9,
		    updated_at = now()
		WHERE id = $1`,
		job.ID,
		job.ScheduleInterval.Microseconds(),
		job.CronExpression,
		job.MaxRuntime.Microseconds(),
		job.MaxRetries,
		job.RetryPeriod.Microseconds(),
		job.Scheduled,
		job.HypertableID,
		nullBytes(job.Config),
	)
	if err != nil {
		return errors.Wrap(err, "update job")
	}

	return errors.Wrap(tx.Commit(), "commit job update")
}

func (r *PostgresJobStore) DeleteByID(ctx context.Context, jobID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM hypertide_schema.jobs WHERE id = $1`, jobID)
	return errors.Wrap(err, "delete job")
}

func (r *PostgresJobStore) DeleteByHypertableID(ctx context.Context, hypertableID int64) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM hypertide_schema.jobs WHERE hypertable_id = $1`, hypertableID)
	if err != nil {
		return 0, errors.Wrap(err, "delete jobs by hypertable")
	}
	affected, err := res.RowsAffected()
	return int(affected), errors.Wrap(err, "delete jobs by hypertable")
}

func (r *PostgresJobStore) FetchDue(ctx context.Context, now time.Time, limit int) ([]models.Job, error) {
	query := `
		SELECT` + jobColumns + `
		FROM hypertide_schema.jobs j
		LEFT JOIN hypertide_schema.job_stats s ON s.job_id = j.id
		WHERE j.scheduled
		  AND (s.next_start IS NULL OR s.next_start <= $1)
		ORDER BY s.next_start ASC NULLS FIRST
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "fetch due jobs")
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan due job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, errors.Wrap(rows.Err(), "fetch due jobs")
}

func (r *PostgresJobStore) CountsByKind(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT CASE WHEN proc_schema = $1 THEN proc_name ELSE 'custom' END AS kind,
		       COUNT(*)
		FROM hypertide_schema.jobs
		GROUP BY 1
	`

	rows, err := r.db.QueryContext(ctx, query, constants.InternalSchema)
	if err != nil {
		return nil, errors.Wrap(err, "count jobs by kind")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, errors.Wrap(err, "scan job count")
		}
		counts[kind] = count
	}
	return counts, errors.Wrap(rows.Err(), "count jobs by kind")
}

func (r *PostgresJobStore) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var scheduleInterval, maxRuntime, retryPeriod int64
	var config []byte

	err := row.Scan(
		&job.ID, &job.Application, &job.Name, &scheduleInterval, &job.CronExpression,
		&maxRuntime, &job.MaxRetries, &retryPeriod, &job.ProcSchema, &job.ProcName,
		&job.Owner, &job.Scheduled, &job.HypertableID, &config, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.ScheduleInterval = time.Duration(scheduleInterval) * time.Microsecond
	job.MaxRuntime = time.Duration(maxRuntime) * time.Microsecond
	job.RetryPeriod = time.Duration(retryPeriod) * time.Microsecond
	job.Config = config
	return &job, nil
}

func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
