package policy

import (
	"context"
	"time"

	"hypertide/internal/catalog"
	"hypertide/internal/models"
)

// mockCatalog is a mock implementation of catalog.Catalog for testing.
type mockCatalog struct {
	HypertableByIDFunc             func(ctx context.Context, id int64) (*catalog.Hypertable, error)
	IndexRelationFunc              func(ctx context.Context, schemaName, indexName string) (string, bool, error)
	IntegerNowFunc                 func(ctx context.Context, dim catalog.Dimension) (int64, bool, error)
	ContinuousAggByMatIDFunc       func(ctx context.Context, matHypertableID int64) (*catalog.ContinuousAgg, error)
	IntegerNowDimensionByMatIDFunc func(ctx context.Context, matHypertableID int64) (*catalog.Dimension, error)
	NthLatestSliceStartFunc        func(ctx context.Context, dimensionID int64, n int) (int64, bool, error)
	OldestChunkForReorderFunc      func(ctx context.Context, jobID, dimensionID, beforeStart int64) (*catalog.Chunk, error)
	ChunkToCompressFunc            func(ctx context.Context, dimensionID, before int64) (*catalog.Chunk, error)
	DropChunksBeforeFunc           func(ctx context.Context, target catalog.Target, boundary catalog.Boundary) (int, error)
	CompressChunkFunc              func(ctx context.Context, chunk *catalog.Chunk) error
	ReorderChunkFunc               func(ctx context.Context, chunk *catalog.Chunk, indexName string) error
	RefreshContinuousAggregateFunc func(ctx context.Context, agg *catalog.ContinuousAgg, window catalog.RefreshWindow) error
}

func (m *mockCatalog) HypertableByID(ctx context.Context, id int64) (*catalog.Hypertable, error) {
	if m.HypertableByIDFunc != nil {
		return m.HypertableByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockCatalog) IndexRelation(ctx context.Context, schemaName, indexName string) (string, bool, error) {
	if m.IndexRelationFunc != nil {
		return m.IndexRelationFunc(ctx, schemaName, indexName)
	}
	return "", false, nil
}

func (m *mockCatalog) IntegerNow(ctx context.Context, dim catalog.Dimension) (int64, bool, error) {
	if m.IntegerNowFunc != nil {
		return m.IntegerNowFunc(ctx, dim)
	}
	return 0, false, nil
}

func (m *mockCatalog) ContinuousAggByMatID(ctx context.Context, matHypertableID int64) (*catalog.ContinuousAgg, error) {
	if m.ContinuousAggByMatIDFunc != nil {
		return m.ContinuousAggByMatIDFunc(ctx, matHypertableID)
	}
	return nil, nil
}

func (m *mockCatalog) IntegerNowDimensionByMatID(ctx context.Context, matHypertableID int64) (*catalog.Dimension, error) {
	if m.IntegerNowDimensionByMatIDFunc != nil {
		return m.IntegerNowDimensionByMatIDFunc(ctx, matHypertableID)
	}
	return nil, nil
}

func (m *mockCatalog) NthLatestSliceStart(ctx context.Context, dimensionID int64, n int) (int64, bool, error) {
	if m.NthLatestSliceStartFunc != nil {
		return m.NthLatestSliceStartFunc(ctx, dimensionID, n)
	}
	return 0, false, nil
}

func (m *mockCatalog) OldestChunkForReorder(ctx context.Context, jobID, dimensionID, beforeStart int64) (*catalog.Chunk, error) {
	if m.OldestChunkForReorderFunc != nil {
		return m.OldestChunkForReorderFunc(ctx, jobID, dimensionID, beforeStart)
	}
	return nil, nil
}

func (m *mockCatalog) ChunkToCompress(ctx context.Context, dimensionID, before int64) (*catalog.Chunk, error) {
	if m.ChunkToCompressFunc != nil {
		return m.ChunkToCompressFunc(ctx, dimensionID, before)
	}
	return nil, nil
}

func (m *mockCatalog) DropChunksBefore(ctx context.Context, target catalog.Target, boundary catalog.Boundary) (int, error) {
	if m.DropChunksBeforeFunc != nil {
		return m.DropChunksBeforeFunc(ctx, target, boundary)
	}
	return 0, nil
}

func (m *mockCatalog) CompressChunk(ctx context.Context, chunk *catalog.Chunk) error {
	if m.CompressChunkFunc != nil {
		return m.CompressChunkFunc(ctx, chunk)
	}
	return nil
}

func (m *mockCatalog) ReorderChunk(ctx context.Context, chunk *catalog.Chunk, indexName string) error {
	if m.ReorderChunkFunc != nil {
		return m.ReorderChunkFunc(ctx, chunk, indexName)
	}
	return nil
}

func (m *mockCatalog) RefreshContinuousAggregate(ctx context.Context, agg *catalog.ContinuousAgg, window catalog.RefreshWindow) error {
	if m.RefreshContinuousAggregateFunc != nil {
		return m.RefreshContinuousAggregateFunc(ctx, agg, window)
	}
	return nil
}

// mockJobStatStore is a mock implementation of store.JobStatStore.
type mockJobStatStore struct {
	FindFunc            func(ctx context.Context, jobID int64) (*models.JobStat, error)
	UpsertNextStartFunc func(ctx context.Context, jobID int64, nextStart time.Time) error
	SetNextStartFunc    func(ctx context.Context, jobID int64, nextStart time.Time) error
	MarkStartFunc       func(ctx context.Context, jobID int64, at time.Time) error
	MarkFinishFunc      func(ctx context.Context, jobID int64, at time.Time, success bool, computedNext time.Time) error
	DeleteFunc          func(ctx context.Context, jobID int64) error
}

func (m *mockJobStatStore) Find(ctx context.Context, jobID int64) (*models.JobStat, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, jobID)
	}
	return nil, nil
}

func (m *mockJobStatStore) UpsertNextStart(ctx context.Context, jobID int64, nextStart time.Time) error {
	if m.UpsertNextStartFunc != nil {
		return m.UpsertNextStartFunc(ctx, jobID, nextStart)
	}
	return nil
}

func (m *mockJobStatStore) SetNextStart(ctx context.Context, jobID int64, nextStart time.Time) error {
	if m.SetNextStartFunc != nil {
		return m.SetNextStartFunc(ctx, jobID, nextStart)
	}
	return nil
}

func (m *mockJobStatStore) MarkStart(ctx context.Context, jobID int64, at time.Time) error {
	if m.MarkStartFunc != nil {
		return m.MarkStartFunc(ctx, jobID, at)
	}
	return nil
}

func (m *mockJobStatStore) MarkFinish(ctx context.Context, jobID int64, at time.Time, success bool, computedNext time.Time) error {
	if m.MarkFinishFunc != nil {
		return m.MarkFinishFunc(ctx, jobID, at, success, computedNext)
	}
	return nil
}

func (m *mockJobStatStore) Delete(ctx context.Context, jobID int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, jobID)
	}
	return nil
}

func (m *mockJobStatStore) Close() error { return nil }

// mockChunkStatsStore is a mock implementation of store.ChunkStatsStore.
type mockChunkStatsStore struct {
	RecordJobRunFunc func(ctx context.Context, jobID, chunkID int64, at time.Time) error
	DeleteForJobFunc func(ctx context.Context, jobID int64) error
}

func (m *mockChunkStatsStore) RecordJobRun(ctx context.Context, jobID, chunkID int64, at time.Time) error {
	if m.RecordJobRunFunc != nil {
		return m.RecordJobRunFunc(ctx, jobID, chunkID, at)
	}
	return nil
}

func (m *mockChunkStatsStore) DeleteForJob(ctx context.Context, jobID int64) error {
	if m.DeleteForJobFunc != nil {
		return m.DeleteForJobFunc(ctx, jobID)
	}
	return nil
}
