// Package admin is the job administration surface: Add, Alter, Delete
// and Run. It owns all mutations of the job catalog, delegating config
// checking to the policy validators and manual runs to the job runtime
// executor.
package admin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"hypertide/internal/constants"
	"hypertide/internal/errs"
	"hypertide/internal/executor"
	"hypertide/internal/models"
	"hypertide/internal/policy"
	"hypertide/internal/store"
)

// API mutates the job catalog. Every method takes the caller's role
// explicitly; privilege checks happen before any row is touched.
type API struct {
	jobs       store.JobStore
	stats      store.JobStatStore
	chunkStats store.ChunkStatsStore
	validator  *policy.Validator
	exec       *executor.Executor
	registry   *executor.Registry
	auth       Authorizer
	clock      func() time.Time
	log        zerolog.Logger
}

func New(jobs store.JobStore, stats store.JobStatStore, chunkStats store.ChunkStatsStore,
	validator *policy.Validator, exec *executor.Executor, registry *executor.Registry,
	auth Authorizer, clock func() time.Time, log zerolog.Logger) *API {
	if clock == nil {
		clock = time.Now
	}
	return &API{
		jobs:       jobs,
		stats:      stats,
		chunkStats: chunkStats,
		validator:  validator,
		exec:       exec,
		registry:   registry,
		auth:       auth,
		clock:      clock,
		log:        log,
	}
}

// AddOptions are the Add parameters. Proc and ScheduleInterval are
// required; zero-value optionals get the documented defaults.
type AddOptions struct {
	ProcSchema       string
	ProcName         string
	ScheduleInterval time.Duration
	CronExpression   string
	Config           json.RawMessage
	InitialStart     *time.Time
	Scheduled        *bool // default true
	Name             string
}

// Add registers a new job owned by the caller and returns its id. Any
// validation failure aborts before a row is inserted.
func (a *API) Add(ctx context.Context, caller string, opts AddOptions) (int64, error) {
	if opts.ProcSchema == "" || opts.ProcName == "" {
		return 0, errs.InvalidParameterf("function or procedure cannot be NULL")
	}
	if opts.ScheduleInterval <= 0 {
		return 0, errs.InvalidParameterf("schedule interval must be greater than zero")
	}
	if opts.CronExpression != "" {
		if _, err := cron.ParseStandard(opts.CronExpression); err != nil {
			return 0, errs.InvalidParameterf("invalid cron expression %q: %v", opts.CronExpression, err)
		}
	}

	if _, err := a.registry.Lookup(opts.ProcSchema, opts.ProcName); err != nil {
		return 0, err
	}

	if ok, err := a.auth.CanExecute(ctx, caller, opts.ProcSchema, opts.ProcName); err != nil {
		return 0, err
	} else if !ok {
		return 0, errs.InsufficientPrivilegef("permission denied for function %s.%s: job owner must have execute privilege",
			opts.ProcSchema, opts.ProcName)
	}
	if ok, err := a.auth.CanOwnBackgroundWorker(ctx, caller); err != nil {
		return 0, err
	} else if !ok {
		return 0, errs.InsufficientPrivilegef("role %q may not own a background worker", caller)
	}

	var hypertableID int64
	if opts.Config != nil {
		id, err := policy.Check(ctx, a.validator, opts.ProcSchema, opts.ProcName, opts.Config)
		if err != nil {
			return 0, err
		}
		hypertableID = id
	}

	name := opts.Name
	if name == "" {
		name = "custom"
	}
	scheduled := true
	if opts.Scheduled != nil {
		scheduled = *opts.Scheduled
	}

	now := a.clock()
	job := &models.Job{
		Application:      "User-Defined Action",
		Name:             name,
		ScheduleInterval: opts.ScheduleInterval,
		CronExpression:   opts.CronExpression,
		MaxRuntime:       constants.DefaultMaxRuntime,
		MaxRetries:       constants.DefaultMaxRetries,
		RetryPeriod:      constants.DefaultRetryPeriod,
		ProcSchema:       opts.ProcSchema,
		ProcName:         opts.ProcName,
		Owner:            caller,
		Scheduled:        scheduled,
		HypertableID:     hypertableID,
		Config:           opts.Config,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	jobID, err := a.jobs.Insert(ctx, job)
	if err != nil {
		return 0, err
	}

	if opts.InitialStart != nil {
		if err := a.stats.UpsertNextStart(ctx, jobID, *opts.InitialStart); err != nil {
			return 0, err
		}
	}

	a.log.Info().Int64("job_id", jobID).Str("proc", opts.ProcSchema+"."+opts.ProcName).
		Str("owner", caller).Msg("job added")
	return jobID, nil
}

// Delete removes the job and its stat rows. The caller must hold the
// privileges of the job owner.
func (a *API) Delete(ctx context.Context, caller string, jobID int64) error {
	job, err := a.findJob(ctx, jobID)
	if err != nil {
		return err
	}

	if ok, err := a.auth.HasPrivilegesOfRole(ctx, caller, job.Owner); err != nil {
		return err
	} else if !ok {
		return errs.InsufficientPrivilegef("insufficient permissions to delete job owned by %q", job.Owner)
	}

	if err := a.jobs.DeleteByID(ctx, jobID); err != nil {
		return err
	}
	if err := a.stats.Delete(ctx, jobID); err != nil {
		return err
	}
	if err := a.chunkStats.DeleteForJob(ctx, jobID); err != nil {
		return err
	}

	a.log.Info().Int64("job_id", jobID).Msg("job deleted")
	return nil
}

// Run executes the job synchronously through the runtime executor,
// with the same execution contract as periodic dispatch, including
// stat bookkeeping, but no retry.
func (a *API) Run(ctx context.Context, jobID int64) error {
	job, err := a.findJob(ctx, jobID)
	if err != nil {
		return err
	}

	start := a.clock()
	if err := a.stats.MarkStart(ctx, jobID, start); err != nil {
		return err
	}

	runErr := a.exec.Execute(ctx, job)

	finish := a.clock()
	if err := a.stats.MarkFinish(ctx, jobID, finish, runErr == nil, job.NextRun(finish)); err != nil {
		a.log.Error().Err(err).Int64("job_id", jobID).Msg("recording manual run")
	}
	return runErr
}

// DeleteForHypertable removes every job bound to the hypertable. Job
// stats and chunk stats go with the rows via cascade. Used when the
// hypertable itself is dropped, so no per-job ownership check applies;
// the caller must be able to own background workers.
func (a *API) DeleteForHypertable(ctx context.Context, caller string, hypertableID int64) (int, error) {
	if ok, err := a.auth.CanOwnBackgroundWorker(ctx, caller); err != nil {
		return 0, err
	} else if !ok {
		return 0, errs.InsufficientPrivilegef("role %q may not manage background workers", caller)
	}

	deleted, err := a.jobs.DeleteByHypertableID(ctx, hypertableID)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		a.log.Info().Int64("hypertable_id", hypertableID).Int("jobs_deleted", deleted).
			Msg("jobs deleted with hypertable")
	}
	return deleted, nil
}

// Counts reports how many jobs exist per built-in policy, with custom
// jobs grouped under "custom".
func (a *API) Counts(ctx context.Context) (map[string]int, error) {
	return a.jobs.CountsByKind(ctx)
}

func (a *API) findJob(ctx context.Context, jobID int64) (*models.Job, error) {
	job, err := a.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errs.UndefinedObjectf("job %d not found", jobID)
	}
	return job, nil
}
