// Package catalog defines the storage/catalog collaborator surface: the
// lookup and mutation primitives the policy executors call by stable
// signature. The live implementation is in catalog/postgres.
package catalog

import "time"

// DimensionType is the partitioning type of an open dimension.
type DimensionType int

const (
	DimensionTime DimensionType = iota
	DimensionInteger
)

func (t DimensionType) String() string {
	if t == DimensionInteger {
		return "integer"
	}
	return "time"
}

// Dimension is the open (range) dimension a hypertable is partitioned
// along. Values on the dimension use the internal int64 representation:
// microseconds since the Unix epoch for time dimensions, the raw column
// value for integer dimensions.
type Dimension struct {
	ID           int64
	HypertableID int64
	ColumnName   string
	Type         DimensionType
}

// Hypertable is a live handle to a partitioned table. Handles are never
// cached by policies; they are re-resolved on every use because the
// underlying object may change between scheduling and execution.
type Hypertable struct {
	ID            int64
	SchemaName    string
	TableName     string
	OpenDimension Dimension
}

// Chunk is a physical partition covering a bounded range on the open
// dimension.
type Chunk struct {
	ID           int64
	HypertableID int64
	SchemaName   string
	TableName    string
	RangeStart   int64
	RangeEnd     int64
	Compressed   bool
	Dropped      bool
}

// ContinuousAgg describes an incrementally refreshable materialized
// summary: the user-facing view and the hidden materialization
// hypertable backing it.
type ContinuousAgg struct {
	MatHypertableID int64
	RawHypertableID int64
	UserViewSchema  string
	UserViewName    string
}

// Target names the relation a drop acts on: either a hypertable or, for
// materialization hypertables, the continuous aggregate's user view.
type Target struct {
	SchemaName string
	TableName  string
}

// Boundary is a point on an open dimension together with its type, used
// as the exclusive upper bound for retention and compression selection.
type Boundary struct {
	Value int64
	Type  DimensionType
}

// RefreshWindow is the half-open interval [Start, End) a continuous
// aggregate refresh covers.
type RefreshWindow struct {
	Start int64
	End   int64
	Type  DimensionType
}

// TimeToInternal converts a wall-clock time to the internal dimension
// representation.
func TimeToInternal(t time.Time) int64 {
	return t.UnixMicro()
}

// InternalToTime converts an internal time-dimension value back to a
// wall-clock time.
func InternalToTime(v int64) time.Time {
	return time.UnixMicro(v)
}
