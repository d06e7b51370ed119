package executor

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypertide/internal/errs"
	"hypertide/internal/models"
)

// fakeSession tracks transaction/snapshot state and records every call
// so the framing contract can be asserted precisely.
type fakeSession struct {
	inTx      bool
	snapshots int
	calls     []string
}

func (s *fakeSession) InTransaction() bool { return s.inTx }

func (s *fakeSession) Begin(ctx context.Context) error {
	s.calls = append(s.calls, "begin")
	s.inTx = true
	return nil
}

func (s *fakeSession) Commit(ctx context.Context) error {
	s.calls = append(s.calls, "commit")
	s.inTx = false
	s.snapshots = 0
	return nil
}

func (s *fakeSession) Rollback(ctx context.Context) error {
	s.calls = append(s.calls, "rollback")
	s.inTx = false
	s.snapshots = 0
	return nil
}

func (s *fakeSession) SnapshotActive() bool { return s.snapshots > 0 }

func (s *fakeSession) PushSnapshot(ctx context.Context) error {
	s.calls = append(s.calls, "push")
	s.snapshots++
	return nil
}

func (s *fakeSession) PopSnapshot(ctx context.Context) error {
	s.calls = append(s.calls, "pop")
	s.snapshots--
	return nil
}

func job(schema, name string) *models.Job {
	return &models.Job{ID: 7, ProcSchema: schema, ProcName: name}
}

func newTestExecutor(sess *fakeSession, targets ...Callable) *Executor {
	reg := NewRegistry()
	for _, c := range targets {
		if err := reg.Register(c); err != nil {
			panic(err)
		}
	}
	return New(reg, func() Session { return sess }, zerolog.Nop())
}

func TestExecuteSuccessCommitsOwnedTransaction(t *testing.T) {
	sess := &fakeSession{}
	exec := newTestExecutor(sess, Callable{
		Schema: "public", Name: "ok", Kind: KindFunction,
		Function: func(ctx context.Context, jobID int64, config []byte) error {
			return nil
		},
	})

	require.NoError(t, exec.Execute(context.Background(), job("public", "ok")))
	assert.Equal(t, []string{"begin", "push", "pop", "commit"}, sess.calls)
	assert.False(t, sess.inTx)
}

func TestExecuteFailureRollsBack(t *testing.T) {
	boom := errors.New("boom")
	sess := &fakeSession{}
	exec := newTestExecutor(sess, Callable{
		Schema: "public", Name: "fails", Kind: KindFunction,
		Function: func(ctx context.Context, jobID int64, config []byte) error {
			return boom
		},
	})

	err := exec.Execute(context.Background(), job("public", "fails"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, []string{"begin", "push", "pop", "rollback"}, sess.calls)
}

// A procedure may commit the transaction itself; the executor must not
// commit again or pop a snapshot the commit already invalidated.
func TestExecuteSelfCommittingProcedure(t *testing.T) {
	sess := &fakeSession{}
	exec := newTestExecutor(sess, Callable{
		Schema: "public", Name: "self_commit", Kind: KindProcedure,
		Procedure: func(ctx context.Context, s Session, jobID int64, config []byte) error {
			return s.Commit(ctx)
		},
	})

	require.NoError(t, exec.Execute(context.Background(), job("public", "self_commit")))
	assert.Equal(t, []string{"begin", "push", "commit"}, sess.calls)
}

// A procedure that commits and opens a fresh transaction leaves that
// transaction to the executor, which owns the framing it observed.
func TestExecuteProcedureRestartsTransaction(t *testing.T) {
	sess := &fakeSession{}
	exec := newTestExecutor(sess, Callable{
		Schema: "public", Name: "restart_tx", Kind: KindProcedure,
		Procedure: func(ctx context.Context, s Session, jobID int64, config []byte) error {
			if err := s.Commit(ctx); err != nil {
				return err
			}
			return s.Begin(ctx)
		},
	})

	require.NoError(t, exec.Execute(context.Background(), job("public", "restart_tx")))
	// The snapshot died with the first commit: no pop. The second
	// transaction is committed because this call began the framing.
	assert.Equal(t, []string{"begin", "push", "commit", "begin", "commit"}, sess.calls)
}

// An ambient transaction and snapshot are left exactly as found.
func TestExecuteObservedStateNotReleased(t *testing.T) {
	sess := &fakeSession{inTx: true, snapshots: 1}
	exec := newTestExecutor(sess, Callable{
		Schema: "public", Name: "ok", Kind: KindFunction,
		Function: func(ctx context.Context, jobID int64, config []byte) error {
			return nil
		},
	})

	require.NoError(t, exec.Execute(context.Background(), job("public", "ok")))
	assert.Empty(t, sess.calls)
	assert.True(t, sess.inTx)
	assert.Equal(t, 1, sess.snapshots)
}

func TestExecuteUnknownTarget(t *testing.T) {
	sess := &fakeSession{}
	exec := newTestExecutor(sess)

	err := exec.Execute(context.Background(), job("public", "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUndefinedObject))
	assert.Contains(t, err.Error(), "function or procedure public.nope does not exist")
	// Framing is released even when lookup fails.
	assert.Equal(t, []string{"begin", "push", "pop", "rollback"}, sess.calls)
}

func TestRegistryRejectsIncompleteCallables(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(Callable{Schema: "", Name: "x", Kind: KindFunction})
	assert.True(t, errors.Is(err, errs.ErrInvalidParameter))

	err = reg.Register(Callable{Schema: "public", Name: "x", Kind: KindFunction})
	assert.True(t, errors.Is(err, errs.ErrInvalidParameter))

	err = reg.Register(Callable{Schema: "public", Name: "x", Kind: Kind(99)})
	assert.True(t, errors.Is(err, errs.ErrFeatureNotSupported))
}
