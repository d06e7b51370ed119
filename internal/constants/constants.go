package constants

import "time"

// InternalSchema is the schema built-in policy callables are registered under.
// Config checking on Add/Alter only applies to callables in this schema.
const InternalSchema = "_hypertide_internal"

// Built-in policy callable names.
const (
	PolicyRetention   = "policy_retention"
	PolicyReorder     = "policy_reorder"
	PolicyCompression = "policy_compression"
	PolicyRefreshCagg = "policy_refresh_continuous_aggregate"
)

// ReorderSkipRecentSlices is how many of the newest dimension slices a
// reorder job leaves alone. Slice count is a proxy for chunk count.
const ReorderSkipRecentSlices = 3

// Defaults applied by Add when the caller does not override them.
const (
	DefaultMaxRuntime  = time.Duration(0) // unlimited
	DefaultMaxRetries  = -1               // unlimited
	DefaultRetryPeriod = 5 * time.Minute
)

// Advisory lock ids shared by every instance pointed at the same database.
const (
	MigrationLock = iota + 420100
	SchedulerLock
)

var Locks = []int{
	MigrationLock,
	SchedulerLock,
}
