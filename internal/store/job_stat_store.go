package store

import (
	"context"
	"time"

	"hypertide/internal/models"
)

// JobStatStore manages per-job execution history rows. Stat rows are
// created lazily: every write that may precede the first run is an
// upsert.
//
// Writes follow a single-writer-per-job discipline: the scheduler worker
// running a job is the only unsolicited writer, and Alter/Run write only
// while holding the job row lock taken by JobStore.UpdateByID or during
// a synchronous run.
type JobStatStore interface {
	// Find returns the stat row or (nil, nil) when none exists yet.
	Find(ctx context.Context, jobID int64) (*models.JobStat, error)

	// UpsertNextStart sets next_start, creating the row if needed.
	UpsertNextStart(ctx context.Context, jobID int64, nextStart time.Time) error

	// SetNextStart sets next_start on an existing row only.
	SetNextStart(ctx context.Context, jobID int64, nextStart time.Time) error

	// MarkStart records the beginning of a run: last_start is set,
	// next_start is cleared (consumed), total_runs is incremented.
	MarkStart(ctx context.Context, jobID int64, at time.Time) error

	// MarkFinish records the end of a run. computedNext only takes
	// effect if next_start is still unset; a next_start written during
	// the run (fast restart, explicit Alter) wins.
	MarkFinish(ctx context.Context, jobID int64, at time.Time, success bool, computedNext time.Time) error

	// Delete removes the stat row, if any.
	Delete(ctx context.Context, jobID int64) error

	Close() error
}
