package store

import (
	"context"
	"time"

	"hypertide/internal/models"
)

// JobStore defines the interface for managing job catalog entries in DB.
type JobStore interface {
	// Insert adds a new job row and returns its assigned id.
	Insert(ctx context.Context, job *models.Job) (int64, error)

	// FindByID returns the job or (nil, nil) when no such row exists.
	FindByID(ctx context.Context, jobID int64) (*models.Job, error)

	// UpdateByID overwrites the Alter-modifiable fields of the job row.
	// The row is locked with a blocking row-exclusive lock before
	// modification; the whole update commits atomically or not at all.
	UpdateByID(ctx context.Context, job *models.Job) error

	// DeleteByID removes the job row.
	DeleteByID(ctx context.Context, jobID int64) error

	// DeleteByHypertableID removes every job bound to the hypertable
	// and returns how many rows went away.
	DeleteByHypertableID(ctx context.Context, hypertableID int64) (int, error)

	// FetchDue returns scheduled jobs whose next_start is unset or has
	// passed, ordered by next_start.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]models.Job, error)

	// CountsByKind counts jobs grouped by built-in policy name; custom
	// jobs are counted under "custom".
	CountsByKind(ctx context.Context) (map[string]int, error)

	Close() error
}
