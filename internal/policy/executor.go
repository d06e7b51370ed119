package policy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hypertide/internal/catalog"
	"hypertide/internal/constants"
	"hypertide/internal/store"
)

// Executors runs the built-in policies. Each execution re-validates its
// config from scratch, acts through the catalog and, for the multi-unit
// policies (reorder, compression), requests a fast restart when more
// eligible work remains. Executors opens no transaction of its own; it
// runs inside the framing established by the job runtime executor.
type Executors struct {
	validator  *Validator
	cat        catalog.Catalog
	chunkStats store.ChunkStatsStore
	restart    *Restarter
	clock      func() time.Time
	log        zerolog.Logger
}

func NewExecutors(cat catalog.Catalog, chunkStats store.ChunkStatsStore, restart *Restarter, clock func() time.Time, log zerolog.Logger) *Executors {
	if clock == nil {
		clock = time.Now
	}
	return &Executors{
		validator:  NewValidator(cat, clock),
		cat:        cat,
		chunkStats: chunkStats,
		restart:    restart,
		clock:      clock,
		log:        log,
	}
}

// Validator exposes the shared Read+Validate step for config checking
// at authoring time.
func (e *Executors) Validator() *Validator { return e.validator }

// Retention drops all data strictly before now − drop_after. A single
// pass is exhaustive, so retention never requests a fast restart.
func (e *Executors) Retention(ctx context.Context, jobID int64, cfg *RetentionConfig) error {
	plan, err := e.validator.Retention(ctx, cfg)
	if err != nil {
		return err
	}

	dropped, err := e.cat.DropChunksBefore(ctx, plan.Target, plan.Boundary)
	if err != nil {
		return err
	}

	e.log.Info().Int64("job_id", jobID).
		Str("target", plan.Target.SchemaName+"."+plan.Target.TableName).
		Int("chunks_dropped", dropped).
		Msg("retention policy completed")
	return nil
}

// Reorder rewrites at most one chunk per run in index order, recording
// the run in the chunk-stats table so the chunk is never picked again.
func (e *Executors) Reorder(ctx context.Context, jobID int64, cfg *ReorderConfig) error {
	plan, err := e.validator.Reorder(ctx, cfg)
	if err != nil {
		return err
	}

	chunk, err := e.chunkToReorder(ctx, jobID, plan.Hypertable)
	if err != nil {
		return err
	}
	if chunk == nil {
		e.log.Info().Int64("job_id", jobID).
			Str("hypertable", plan.Hypertable.SchemaName+"."+plan.Hypertable.TableName).
			Msg("no chunks need reordering")
		return nil
	}

	e.log.Debug().Int64("job_id", jobID).
		Str("chunk", chunk.SchemaName+"."+chunk.TableName).
		Msg("reordering chunk")
	if err := e.cat.ReorderChunk(ctx, chunk, plan.IndexName); err != nil {
		return err
	}
	if err := e.chunkStats.RecordJobRun(ctx, jobID, chunk.ID, e.clock()); err != nil {
		return err
	}

	next, err := e.chunkToReorder(ctx, jobID, plan.Hypertable)
	if err != nil {
		return err
	}
	if next != nil {
		return e.restart.FastRestart(ctx, jobID, "reorder")
	}
	return nil
}

// Compression compresses at most one chunk per run.
func (e *Executors) Compression(ctx context.Context, jobID int64, cfg *CompressionConfig) error {
	plan, err := e.validator.Compression(ctx, cfg)
	if err != nil {
		return err
	}
	dim := plan.Hypertable.OpenDimension

	chunk, err := e.cat.ChunkToCompress(ctx, dim.ID, plan.Boundary.Value)
	if err != nil {
		return err
	}
	if chunk == nil {
		e.log.Info().Int64("job_id", jobID).
			Str("hypertable", plan.Hypertable.SchemaName+"."+plan.Hypertable.TableName).
			Msg("no chunks satisfy the compression policy")
		return nil
	}

	if err := e.cat.CompressChunk(ctx, chunk); err != nil {
		return err
	}
	e.log.Info().Int64("job_id", jobID).
		Str("chunk", chunk.SchemaName+"."+chunk.TableName).
		Msg("completed compressing chunk")

	next, err := e.cat.ChunkToCompress(ctx, dim.ID, plan.Boundary.Value)
	if err != nil {
		return err
	}
	if next != nil {
		return e.restart.FastRestart(ctx, jobID, "compression")
	}
	return nil
}

// RefreshCagg refreshes the continuous aggregate over [start, end).
// Refresh is idempotent, so no fast restart is needed.
func (e *Executors) RefreshCagg(ctx context.Context, jobID int64, cfg *RefreshCaggConfig) error {
	plan, err := e.validator.RefreshCagg(ctx, cfg)
	if err != nil {
		return err
	}

	e.log.Info().Int64("job_id", jobID).
		Str("view", plan.Agg.UserViewSchema+"."+plan.Agg.UserViewName).
		Int64("window_start", plan.Window.Start).
		Int64("window_end", plan.Window.End).
		Msg("refreshing continuous aggregate")
	return e.cat.RefreshContinuousAggregate(ctx, plan.Agg, plan.Window)
}

// chunkToReorder picks the reorder candidate: the oldest chunk that is
// at least the Nth most recent by dimension slice, not compressed, not
// dropped and never reordered by this job. Recency is approximated by
// dimension-slice count.
func (e *Executors) chunkToReorder(ctx context.Context, jobID int64, ht *catalog.Hypertable) (*catalog.Chunk, error) {
	start, ok, err := e.cat.NthLatestSliceStart(ctx, ht.OpenDimension.ID, constants.ReorderSkipRecentSlices)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return e.cat.OldestChunkForReorder(ctx, jobID, ht.OpenDimension.ID, start)
}
