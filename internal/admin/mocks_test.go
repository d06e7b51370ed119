package admin

import (
	"context"
	"time"

	"hypertide/internal/catalog"
	"hypertide/internal/models"
)

// mockJobStore is a mock implementation of store.JobStore for testing.
type mockJobStore struct {
	InsertFunc               func(ctx context.Context, job *models.Job) (int64, error)
	FindByIDFunc             func(ctx context.Context, jobID int64) (*models.Job, error)
	UpdateByIDFunc           func(ctx context.Context, job *models.Job) error
	DeleteByIDFunc           func(ctx context.Context, jobID int64) error
	DeleteByHypertableIDFunc func(ctx context.Context, hypertableID int64) (int, error)
	FetchDueFunc             func(ctx context.Context, now time.Time, limit int) ([]models.Job, error)
	CountsByKindFunc         func(ctx context.Context) (map[string]int, error)
}

func (m *mockJobStore) Insert(ctx context.Context, job *models.Job) (int64, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, job)
	}
	return 1, nil
}

func (m *mockJobStore) FindByID(ctx context.Context, jobID int64) (*models.Job, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, jobID)
	}
	return nil, nil
}

func (m *mockJobStore) UpdateByID(ctx context.Context, job *models.Job) error {
	if m.UpdateByIDFunc != nil {
		return m.UpdateByIDFunc(ctx, job)
	}
	return nil
}

func (m *mockJobStore) DeleteByID(ctx context.Context, jobID int64) error {
	if m.DeleteByIDFunc != nil {
		return m.DeleteByIDFunc(ctx, jobID)
	}
	return nil
}

func (m *mockJobStore) DeleteByHypertableID(ctx context.Context, hypertableID int64) (int, error) {
	if m.DeleteByHypertableIDFunc != nil {
		return m.DeleteByHypertableIDFunc(ctx, hypertableID)
	}
	return 0, nil
}

func (m *mockJobStore) FetchDue(ctx context.Context, now time.Time, limit int) ([]models.Job, error) {
	if m.FetchDueFunc != nil {
		return m.FetchDueFunc(ctx, now, limit)
	}
	return nil, nil
}

func (m *mockJobStore) CountsByKind(ctx context.Context) (map[string]int, error) {
	if m.CountsByKindFunc != nil {
		return m.CountsByKindFunc(ctx)
	}
	return nil, nil
}

func (m *mockJobStore) Close() error { return nil }

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

// mockAuthorizer is a mock implementation of Authorizer.
type mockAuthorizer struct {
	CanExecuteFunc           func(ctx context.Context, role, procSchema, procName string) (bool, error)
	HasPrivilegesOfRoleFunc  func(ctx context.Context, role, ownerRole string) (bool, error)
	CanOwnBackgroundWorkerFn func(ctx context.Context, role string) (bool, error)
}

func (m *mockAuthorizer) CanExecute(ctx context.Context, role, procSchema, procName string) (bool, error) {
	if m.CanExecuteFunc != nil {
		return m.CanExecuteFunc(ctx, role, procSchema, procName)
	}
	return true, nil
}

func (m *mockAuthorizer) HasPrivilegesOfRole(ctx context.Context, role, ownerRole string) (bool, error) {
	if m.HasPrivilegesOfRoleFunc != nil {
		return m.HasPrivilegesOfRoleFunc(ctx, role, ownerRole)
	}
	return true, nil
}

func (m *mockAuthorizer) CanOwnBackgroundWorker(ctx context.Context, role string) (bool, error) {
	if m.CanOwnBackgroundWorkerFn != nil {
		return m.CanOwnBackgroundWorkerFn(ctx, role)
	}
	return true, nil
}

// stubCatalog resolves every hypertable id to a fixed time-partitioned
// hypertable; everything else is absent.
type stubCatalog struct{}

func (stubCatalog) HypertableByID(ctx context.Context, id int64) (*catalog.Hypertable, error) {
	return &catalog.Hypertable{
		ID:         id,
		SchemaName: "public",
		TableName:  "metrics",
		OpenDimension: catalog.Dimension{
			ID:           id * 10,
			HypertableID: id,
			ColumnName:   "time",
			Type:         catalog.DimensionTime,
		},
	}, nil
}

func (stubCatalog) IndexRelation(ctx context.Context, schemaName, indexName string) (string, bool, error) {
	return "metrics", true, nil
}

func (stubCatalog) IntegerNow(ctx context.Context, dim catalog.Dimension) (int64, bool, error) {
	return 0, false, nil
}

func (stubCatalog) ContinuousAggByMatID(ctx context.Context, matHypertableID int64) (*catalog.ContinuousAgg, error) {
	return nil, nil
}

func (stubCatalog) IntegerNowDimensionByMatID(ctx context.Context, matHypertableID int64) (*catalog.Dimension, error) {
	return nil, nil
}

func (stubCatalog) NthLatestSliceStart(ctx context.Context, dimensionID int64, n int) (int64, bool, error) {
	return 0, false, nil
}

func (stubCatalog) OldestChunkForReorder(ctx context.Context, jobID, dimensionID, beforeStart int64) (*catalog.Chunk, error) {
	return nil, nil
}

func (stubCatalog) ChunkToCompress(ctx context.Context, dimensionID, before int64) (*catalog.Chunk, error) {
	return nil, nil
}

func (stubCatalog) DropChunksBefore(ctx context.Context, target catalog.Target, boundary catalog.Boundary) (int, error) {
	return 0, nil
}

func (stubCatalog) CompressChunk(ctx context.Context, chunk *catalog.Chunk) error { return nil }

func (stubCatalog) ReorderChunk(ctx context.Context, chunk *catalog.Chunk, indexName string) error {
	return nil
}

func (stubCatalog) RefreshContinuousAggregate(ctx context.Context, agg *catalog.ContinuousAgg, window catalog.RefreshWindow) error {
	return nil
}
