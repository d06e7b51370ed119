// Package executor runs one job's target callable exactly once with
// correct transaction and snapshot framing, tolerating callables that
// commit their own transaction.
package executor

import (
	"context"

	"github.com/rs/zerolog"

	"hypertide/internal/errs"
	"hypertide/internal/models"
)

// Executor executes a single job. It performs no retry; retry and
// backoff belong to the scheduler.
type Executor struct {
	registry   *Registry
	newSession SessionFactory
	log        zerolog.Logger
}

func New(registry *Registry, newSession SessionFactory, log zerolog.Logger) *Executor {
	return &Executor{registry: registry, newSession: newSession, log: log}
}

// Execute runs the job's callable once. Transaction and snapshot are
// opened only if none is active, and released on exit only if this
// call acquired them and they are still live.
func (e *Executor) Execute(ctx context.Context, job *models.Job) (err error) {
	sess := e.newSession()

	ownsTx := false
	if !sess.InTransaction() {
		if err := sess.Begin(ctx); err != nil {
			return err
		}
		ownsTx = true
	}

	// Function targets need a consistent read view.
	ownsSnapshot := false
	if !sess.SnapshotActive() {
		if perr := sess.PushSnapshot(ctx); perr != nil {
			if ownsTx && sess.InTransaction() {
				_ = sess.Rollback(ctx)
			}
			return perr
		}
		ownsSnapshot = true
	}

	defer func() {
		// The callable may have committed the transaction and started a
		// fresh one with no active snapshot.
		if ownsSnapshot && sess.SnapshotActive() {
			if perr := sess.PopSnapshot(ctx); perr != nil && err == nil {
				err = perr
			}
		}
		if ownsTx && sess.InTransaction() {
			if err != nil {
				if rerr := sess.Rollback(ctx); rerr != nil {
					e.log.Error().Err(rerr).Int64("job_id", job.ID).Msg("rollback after job failure")
				}
			} else {
				err = sess.Commit(ctx)
			}
		}
	}()

	target, err := e.registry.Lookup(job.ProcSchema, job.ProcName)
	if err != nil {
		return err
	}

	switch target.Kind {
	case KindFunction:
		return target.Function(ctx, job.ID, job.Config)
	case KindProcedure:
		return target.Procedure(ctx, sess, job.ID, job.Config)
	default:
		return errs.FeatureNotSupportedf("unsupported callable kind for %s.%s", job.ProcSchema, job.ProcName)
	}
}
