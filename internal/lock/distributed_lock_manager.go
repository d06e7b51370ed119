package lock

// DistributedLockManager serializes cross-instance work: schema
// migration and the scheduler loop each run on at most one instance per
// database at a time.
type DistributedLockManager interface {
	Acquire(lockID int) error
	Release(lockID int) error
}
