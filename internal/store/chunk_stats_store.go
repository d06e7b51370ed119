package store

import (
	"context"
	"time"
)

// ChunkStatsStore persists which chunks a policy job has already acted
// on. Reorder eligibility ("never reordered") is answered from this
// table.
type ChunkStatsStore interface {
	// RecordJobRun upserts the (job, chunk) row, bumping the run count
	// and last-run timestamp.
	RecordJobRun(ctx context.Context, jobID, chunkID int64, at time.Time) error

	// DeleteForJob removes all rows recorded by the job.
	DeleteForJob(ctx context.Context, jobID int64) error
}
