package policy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hypertide/internal/store"
)

// Restarter lets a policy signal "reconsider me immediately" instead of
// waiting a full schedule interval. Setting next_start back to the
// run's own last_start makes the scheduler treat the run as not having
// happened for scheduling purposes. Advisory only: the scheduler's
// concurrency limits still apply.
type Restarter struct {
	stats store.JobStatStore
	clock func() time.Time
	log   zerolog.Logger
}

func NewRestarter(stats store.JobStatStore, clock func() time.Time, log zerolog.Logger) *Restarter {
	if clock == nil {
		clock = time.Now
	}
	return &Restarter{stats: stats, clock: clock, log: log}
}

// FastRestart reschedules the job to run again immediately. With no
// prior stat row the job is seeded to run now.
func (r *Restarter) FastRestart(ctx context.Context, jobID int64, jobName string) error {
	stat, err := r.stats.Find(ctx, jobID)
	if err != nil {
		return err
	}

	if stat != nil {
		err = r.stats.SetNextStart(ctx, jobID, stat.LastStart)
	} else {
		err = r.stats.UpsertNextStart(ctx, jobID, r.clock())
	}
	if err != nil {
		return err
	}

	r.log.Debug().Int64("job_id", jobID).Str("job", jobName).
		Msg("job is scheduled to run again immediately")
	return nil
}
