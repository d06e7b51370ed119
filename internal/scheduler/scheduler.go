// Package scheduler is the runtime that drives periodic job execution:
// due-time polling, one worker per due job, retry/backoff from the
// job's max_retries and retry_period, and max_runtime enforcement. The
// execution contract itself lives in the executor package; this loop
// only decides when to call it.
package scheduler

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"hypertide/internal/broker"
	"hypertide/internal/constants"
	"hypertide/internal/executor"
	"hypertide/internal/lock"
	"hypertide/internal/models"
	"hypertide/internal/store"
)

type Config struct {
	PollInterval time.Duration
	Workers      int64
	BatchSize    int
	// DispatchPerSecond caps how many jobs may be launched per second,
	// keeping a fast-restart storm from monopolizing the database.
	DispatchPerSecond int
	// ResultQueue, when non-empty together with a broker, receives a
	// JobResult document after every run.
	ResultQueue string
}

type Scheduler struct {
	jobs     store.JobStore
	stats    store.JobStatStore
	exec     *executor.Executor
	locks    lock.DistributedLockManager
	mbroker  broker.MessageBroker // may be nil
	cfg      Config
	instance string
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	clock    func() time.Time
	log      zerolog.Logger

	mu       sync.Mutex
	inflight map[int64]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(jobs store.JobStore, stats store.JobStatStore, exec *executor.Executor,
	locks lock.DistributedLockManager, mbroker broker.MessageBroker, cfg Config, log zerolog.Logger) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.DispatchPerSecond <= 0 {
		cfg.DispatchPerSecond = 100
	}
	return &Scheduler{
		jobs:     jobs,
		stats:    stats,
		exec:     exec,
		locks:    locks,
		mbroker:  mbroker,
		cfg:      cfg,
		instance: uuid.NewString(),
		sem:      semaphore.NewWeighted(cfg.Workers),
		limiter:  rate.NewLimiter(rate.Limit(cfg.DispatchPerSecond), cfg.DispatchPerSecond),
		clock:    time.Now,
		inflight: make(map[int64]struct{}),
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Start runs the polling loop until the context is canceled. Only one
// instance per database runs it; the advisory lock arbitrates.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.locks.Acquire(constants.SchedulerLock); err != nil {
		return err
	}
	defer s.locks.Release(constants.SchedulerLock)

	ctx, s.cancel = context.WithCancel(ctx)
	s.log.Info().Str("instance", s.instance).Msg("scheduler started")

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		s.dispatchDue(ctx)

		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// GracefulExit blocks until SIGINT/SIGTERM, then stops dispatching,
// waits for in-flight jobs and closes owned resources.
func (s *Scheduler) GracefulExit() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	s.log.Info().Msg("shutting down")

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if err := s.jobs.Close(); err != nil {
		s.log.Error().Err(err).Msg("closing job store")
	}
	if err := s.stats.Close(); err != nil {
		s.log.Error().Err(err).Msg("closing stat store")
	}
	if s.mbroker != nil {
		if err := s.mbroker.Close(); err != nil {
			s.log.Error().Err(err).Msg("closing broker")
		}
	}
	for _, lockID := range constants.Locks {
		_ = s.locks.Release(lockID)
	}

	s.log.Info().Msg("shutdown complete")
}

func (s *Scheduler) dispatchDue(ctx context.Context) {
	due, err := s.jobs.FetchDue(ctx, s.clock(), s.cfg.BatchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("fetching due jobs")
		return
	}

	for _, job := range due {
		// A job whose run outlives the poll interval still has
		// next_start = NULL and keeps coming back as due; the claim keeps
		// it on a single worker until that run finishes.
		if !s.claim(job.ID) {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			s.release(job.ID)
			return
		}
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.release(job.ID)
			return
		}
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}
}

// claim marks the job as in flight; it returns false when a worker is
// already running the job.
func (s *Scheduler) claim(jobID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.inflight[jobID]; running {
		return false
	}
	s.inflight[jobID] = struct{}{}
	return true
}

func (s *Scheduler) release(jobID int64) {
	s.mu.Lock()
	delete(s.inflight, jobID)
	s.mu.Unlock()
}

func (s *Scheduler) runJob(ctx context.Context, job models.Job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Int64("job_id", job.ID).Interface("panic", r).Msg("panic in job")
		}
		s.release(job.ID)
		s.sem.Release(1)
		s.wg.Done()
	}()

	// Pre-run stat: the failure streak decides retry vs. give-up below.
	stat, err := s.stats.Find(ctx, job.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("job_id", job.ID).Msg("reading job stat")
		return
	}

	start := s.clock()
	if err := s.stats.MarkStart(ctx, job.ID, start); err != nil {
		s.log.Error().Err(err).Int64("job_id", job.ID).Msg("marking job start")
		return
	}

	runCtx := ctx
	if job.MaxRuntime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, job.MaxRuntime)
		defer cancel()
	}

	runErr := s.exec.Execute(runCtx, &job)
	finish := s.clock()

	next := s.nextStart(&job, stat, finish, runErr)
	if err := s.stats.MarkFinish(ctx, job.ID, finish, runErr == nil, next); err != nil {
		s.log.Error().Err(err).Int64("job_id", job.ID).Msg("marking job finish")
	}

	if runErr != nil {
		s.log.Error().Err(runErr).Int64("job_id", job.ID).Str("job", job.Name).Msg("job failed")
	} else {
		s.log.Debug().Int64("job_id", job.ID).Str("job", job.Name).
			Dur("took", finish.Sub(start)).Msg("job completed")
	}

	s.publishResult(job, start, finish, runErr)
}

// nextStart computes the regular next start, or the retry backoff while
// the failure streak is within max_retries (-1 retries forever).
func (s *Scheduler) nextStart(job *models.Job, stat *models.JobStat, finish time.Time, runErr error) time.Time {
	if runErr != nil {
		failures := 0
		if stat != nil {
			failures = stat.ConsecutiveFailures
		}
		if job.MaxRetries < 0 || failures < job.MaxRetries {
			return finish.Add(job.RetryPeriod)
		}
	}
	return job.NextRun(finish)
}

func (s *Scheduler) publishResult(job models.Job, start, finish time.Time, runErr error) {
	if s.mbroker == nil || s.cfg.ResultQueue == "" {
		return
	}

	result := models.JobResult{
		JobID:      job.ID,
		Name:       job.Name,
		Success:    runErr == nil,
		StartedAt:  start,
		FinishedAt: finish,
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.log.Error().Err(err).Int64("job_id", job.ID).Msg("marshaling job result")
		return
	}
	if err := s.mbroker.Publish(s.cfg.ResultQueue, payload); err != nil {
		s.log.Error().Err(err).Int64("job_id", job.ID).Msg("publishing job result")
	}
}
