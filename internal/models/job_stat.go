package models

import "time"

// JobStat is the per-job execution history. It is created lazily on the
// first scheduling event (or seeded explicitly via initial_start) and is
// the only row execution writes to.
//
// The zero time.Time is the "unset" sentinel throughout: a job that has
// never run has zero LastStart/LastFinish, and a zero NextStart means
// the scheduler falls back to "due now".
type JobStat struct {
	JobID               int64
	LastStart           time.Time
	LastFinish          time.Time
	NextStart           time.Time
	LastRunSuccess      bool
	TotalRuns           int64
	TotalFailures       int64
	ConsecutiveFailures int
}
