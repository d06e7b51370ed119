package admin

import (
	"context"
	"encoding/json"
	"time"

	"hypertide/internal/errs"
	"hypertide/internal/models"
	"hypertide/internal/policy"
)

// AlterOptions carries the fixed field set Alter may change. Nil fields
// are left unchanged. Config cannot be nulled out through Alter, only
// replaced.
type AlterOptions struct {
	ScheduleInterval *time.Duration
	MaxRuntime       *time.Duration
	MaxRetries       *int
	RetryPeriod      *time.Duration
	Scheduled        *bool
	Config           json.RawMessage
	NextStart        *time.Time
	IfExists         bool
}

// AlterResult is the full updated row. NextStart is the stat row's
// value after the update; zero when unset.
type AlterResult struct {
	Job       models.Job
	NextStart time.Time
}

// Alter updates the modifiable fields of a job. The config, if changed,
// is re-validated before anything is written, so a failure commits no
// partial update. Changing the schedule interval recomputes next_start
// from last_finish + interval unless last_finish is unset; an explicit
// NextStart overrides any recomputation.
func (a *API) Alter(ctx context.Context, caller string, jobID int64, opts AlterOptions) (*AlterResult, error) {
	job, err := a.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		if opts.IfExists {
			a.log.Info().Int64("job_id", jobID).Msg("job not found, skipping")
			return nil, nil
		}
		return nil, errs.UndefinedObjectf("job %d not found", jobID)
	}

	if ok, err := a.auth.HasPrivilegesOfRole(ctx, caller, job.Owner); err != nil {
		return nil, err
	} else if !ok {
		return nil, errs.InsufficientPrivilegef("insufficient permissions to alter job owned by %q", job.Owner)
	}

	updated := *job
	intervalChanged := false
	if opts.ScheduleInterval != nil {
		if *opts.ScheduleInterval <= 0 {
			return nil, errs.InvalidParameterf("schedule interval must be greater than zero")
		}
		intervalChanged = *opts.ScheduleInterval != job.ScheduleInterval
		updated.ScheduleInterval = *opts.ScheduleInterval
	}
	if opts.MaxRuntime != nil {
		updated.MaxRuntime = *opts.MaxRuntime
	}
	if opts.MaxRetries != nil {
		if *opts.MaxRetries < -1 {
			return nil, errs.InvalidParameterf("max retries must be >= -1")
		}
		updated.MaxRetries = *opts.MaxRetries
	}
	if opts.RetryPeriod != nil {
		updated.RetryPeriod = *opts.RetryPeriod
	}
	if opts.Scheduled != nil {
		updated.Scheduled = *opts.Scheduled
	}
	if opts.Config != nil {
		htID, err := policy.Check(ctx, a.validator, job.ProcSchema, job.ProcName, opts.Config)
		if err != nil {
			return nil, err
		}
		updated.Config = opts.Config
		if htID != 0 {
			updated.HypertableID = htID
		}
	}
	updated.UpdatedAt = a.clock()

	if err := a.jobs.UpdateByID(ctx, &updated); err != nil {
		return nil, err
	}

	// Keep the schedule coherent with the new interval: the job should
	// next run one full interval after it last finished. An unset
	// last_finish would yield the unset sentinel, so leave next_start
	// untouched in that case. Stat writes come after the job row update
	// so a failed Alter leaves next_start alone.
	if intervalChanged {
		stat, err := a.stats.Find(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if stat != nil && !stat.LastFinish.IsZero() {
			if err := a.stats.SetNextStart(ctx, jobID, stat.LastFinish.Add(updated.ScheduleInterval)); err != nil {
				return nil, err
			}
		}
	}

	if opts.NextStart != nil {
		if err := a.stats.UpsertNextStart(ctx, jobID, *opts.NextStart); err != nil {
			return nil, err
		}
	}

	result := &AlterResult{Job: updated}
	stat, err := a.stats.Find(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if stat != nil {
		result.NextStart = stat.NextStart
	}

	a.log.Info().Int64("job_id", jobID).Msg("job altered")
	return result, nil
}
