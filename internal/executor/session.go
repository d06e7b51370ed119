package executor

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
)

// Session is the ambient transaction/snapshot state a job runs inside,
// made explicit as a value instead of global process state. The
// executor observes it, acquires what is missing, and releases only
// what it acquired. A callable may commit or restart the session's
// transaction; the executor re-observes state after the call instead of
// assuming ownership survived.
type Session interface {
	InTransaction() bool
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	SnapshotActive() bool
	PushSnapshot(ctx context.Context) error
	PopSnapshot(ctx context.Context) error
}

// SessionFactory produces a fresh session for one job run. Each run
// gets its own ambient state, mirroring one worker per due job.
type SessionFactory func() Session

// DBSession is the live Session over a SQL database. The snapshot is
// established by forcing the transaction to take one; popping is pure
// bookkeeping since the snapshot lives for the transaction.
type DBSession struct {
	db        *sql.DB
	tx        *sql.Tx
	snapshots int
}

func NewDBSession(db *sql.DB) *DBSession {
	return &DBSession{db: db}
}

// Tx exposes the open transaction for procedure callables that manage
// their own transactional work. Nil outside a transaction.
func (s *DBSession) Tx() *sql.Tx { return s.tx }

func (s *DBSession) InTransaction() bool { return s.tx != nil }

func (s *DBSession) Begin(ctx context.Context) error {
	if s.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	s.tx = tx
	return nil
}

func (s *DBSession) Commit(ctx context.Context) error {
	if s.tx == nil {
		return errors.New("no open transaction")
	}
	err := s.tx.Commit()
	s.tx = nil
	s.snapshots = 0
	return errors.Wrap(err, "commit transaction")
}

func (s *DBSession) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return errors.New("no open transaction")
	}
	err := s.tx.Rollback()
	s.tx = nil
	s.snapshots = 0
	return errors.Wrap(err, "rollback transaction")
}

func (s *DBSession) SnapshotActive() bool { return s.snapshots > 0 }

func (s *DBSession) PushSnapshot(ctx context.Context) error {
	if s.tx == nil {
		return errors.New("snapshot requires an open transaction")
	}
	// Forces the transaction to materialize a read snapshot now rather
	// than at its first query.
	if _, err := s.tx.ExecContext(ctx, "SELECT pg_export_snapshot()"); err != nil {
		return errors.Wrap(err, "acquire snapshot")
	}
	s.snapshots++
	return nil
}

func (s *DBSession) PopSnapshot(ctx context.Context) error {
	if s.snapshots == 0 {
		return errors.New("no active snapshot")
	}
	s.snapshots--
	return nil
}
