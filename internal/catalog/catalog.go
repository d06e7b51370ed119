package catalog

import "context"

// Catalog is the stable signature this module calls the storage layer
// through. Lookup methods return nil (not an error) when the object does
// not exist; the caller decides whether absence is an error.
type Catalog interface {
	// HypertableByID resolves a hypertable id to a live handle.
	HypertableByID(ctx context.Context, id int64) (*Hypertable, error)

	// IndexRelation looks up an index by name in the hypertable's
	// schema and reports the table it is defined on.
	IndexRelation(ctx context.Context, schemaName, indexName string) (tableName string, ok bool, err error)

	// IntegerNow evaluates the dimension's now-resolver. ok is false
	// when the dimension has no resolver configured.
	IntegerNow(ctx context.Context, dim Dimension) (value int64, ok bool, err error)

	// ContinuousAggByMatID reverse-looks-up the continuous aggregate
	// backed by the given materialization hypertable. Nil when the
	// hypertable is not a materialization table.
	ContinuousAggByMatID(ctx context.Context, matHypertableID int64) (*ContinuousAgg, error)

	// IntegerNowDimensionByMatID finds the dimension carrying the
	// now-resolver for a materialization hypertable whose own open
	// dimension is integer-partitioned. Nil when no such dimension.
	IntegerNowDimensionByMatID(ctx context.Context, matHypertableID int64) (*Dimension, error)

	// NthLatestSliceStart returns the range start of the n-th most
	// recent dimension slice. ok is false with fewer than n slices.
	NthLatestSliceStart(ctx context.Context, dimensionID int64, n int) (start int64, ok bool, err error)

	// OldestChunkForReorder returns the oldest chunk on the dimension
	// whose slice starts strictly before beforeStart, that is neither
	// compressed nor dropped and that the given job has never reordered
	// per the chunk-stats table. Nil when no chunk is eligible.
	OldestChunkForReorder(ctx context.Context, jobID, dimensionID, beforeStart int64) (*Chunk, error)

	// ChunkToCompress returns one uncompressed, undropped chunk whose
	// range ends strictly before the boundary. Selection is
	// deterministic for identical catalog state: lowest range start
	// first, chunk id as tie-break. Nil when none qualifies.
	ChunkToCompress(ctx context.Context, dimensionID, before int64) (*Chunk, error)

	// DropChunksBefore drops all data of the target strictly before the
	// boundary and returns the number of chunks removed.
	DropChunksBefore(ctx context.Context, target Target, boundary Boundary) (int, error)

	// CompressChunk compresses one chunk.
	CompressChunk(ctx context.Context, chunk *Chunk) error

	// ReorderChunk rewrites one chunk in the order of the named
	// hypertable index.
	ReorderChunk(ctx context.Context, chunk *Chunk, indexName string) error

	// RefreshContinuousAggregate refreshes the aggregate over the
	// window. The operation is idempotent.
	RefreshContinuousAggregate(ctx context.Context, agg *ContinuousAgg, window RefreshWindow) error
}
