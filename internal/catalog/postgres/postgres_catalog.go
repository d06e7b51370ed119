// Package postgres implements the catalog over the engine's metadata
// tables and maintenance SQL functions.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"hypertide/internal/catalog"
)

type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) HypertableByID(ctx context.Context, id int64) (*catalog.Hypertable, error) {
	query := `
		SELECT h.id, h.schema_name, h.table_name,
		       d.id, d.column_name, d.dimension_type
		FROM _hypertide_catalog.hypertable h
		JOIN _hypertide_catalog.dimension d ON d.hypertable_id = h.id
		WHERE h.id = $1
		ORDER BY d.id
		LIMIT 1
	`

	var ht catalog.Hypertable
	var dimType string
	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&ht.ID, &ht.SchemaName, &ht.TableName,
		&ht.OpenDimension.ID, &ht.OpenDimension.ColumnName, &dimType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup hypertable")
	}

	ht.OpenDimension.HypertableID = ht.ID
	ht.OpenDimension.Type = dimensionType(dimType)
	return &ht, nil
}

func (c *PostgresCatalog) IndexRelation(ctx context.Context, schemaName, indexName string) (string, bool, error) {
	query := `
		SELECT t.relname
		FROM pg_catalog.pg_class i
		JOIN pg_catalog.pg_namespace n ON n.oid = i.relnamespace
		JOIN pg_catalog.pg_index ix ON ix.indexrelid = i.oid
		JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
		WHERE n.nspname = $1 AND i.relname = $2
	`

	var tableName string
	err := c.db.QueryRowContext(ctx, query, schemaName, indexName).Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "lookup index relation")
	}
	return tableName, true, nil
}

func (c *PostgresCatalog) IntegerNow(ctx context.Context, dim catalog.Dimension) (int64, bool, error) {
	var funcSchema, funcName sql.NullString
	err := c.db.QueryRowContext(ctx,
		`SELECT integer_now_func_schema, integer_now_func
		 FROM _hypertide_catalog.dimension WHERE id = $1`, dim.ID).
		Scan(&funcSchema, &funcName)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "lookup integer now function")
	}
	if !funcName.Valid || funcName.String == "" {
		return 0, false, nil
	}

	// The resolver is a user function, so the call is assembled from
	// quoted identifiers rather than placeholders.
	call := fmt.Sprintf("SELECT %s.%s()",
		pq.QuoteIdentifier(funcSchema.String), pq.QuoteIdentifier(funcName.String))

	var now int64
	if err := c.db.QueryRowContext(ctx, call).Scan(&now); err != nil {
		return 0, false, errors.Wrapf(err, "evaluate %s.%s", funcSchema.String, funcName.String)
	}
	return now, true, nil
}

func (c *PostgresCatalog) ContinuousAggByMatID(ctx context.Context, matHypertableID int64) (*catalog.ContinuousAgg, error) {
	query := `
		SELECT mat_hypertable_id, raw_hypertable_id, user_view_schema, user_view_name
		FROM _hypertide_catalog.continuous_agg
		WHERE mat_hypertable_id = $1
	`

	var agg catalog.ContinuousAgg
	err := c.db.QueryRowContext(ctx, query, matHypertableID).Scan(
		&agg.MatHypertableID, &agg.RawHypertableID, &agg.UserViewSchema, &agg.UserViewName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup continuous aggregate")
	}
	return &agg, nil
}

func (c *PostgresCatalog) IntegerNowDimensionByMatID(ctx context.Context, matHypertableID int64) (*catalog.Dimension, error) {
	query := `
		SELECT d.id, d.hypertable_id, d.column_name, d.dimension_type
		FROM _hypertide_catalog.continuous_agg ca
		JOIN _hypertide_catalog.dimension d ON d.hypertable_id = ca.raw_hypertable_id
		WHERE ca.mat_hypertable_id = $1 AND d.integer_now_func IS NOT NULL
		ORDER BY d.id
		LIMIT 1
	`

	var dim catalog.Dimension
	var dimType string
	err := c.db.QueryRowContext(ctx, query, matHypertableID).Scan(
		&dim.ID, &dim.HypertableID, &dim.ColumnName, &dimType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup integer now dimension")
	}

	dim.Type = dimensionType(dimType)
	return &dim, nil
}

func (c *PostgresCatalog) NthLatestSliceStart(ctx context.Context, dimensionID int64, n int) (int64, bool, error) {
	query := `
		SELECT range_start
		FROM _hypertide_catalog.dimension_slice
		WHERE dimension_id = $1
		ORDER BY range_start DESC
		OFFSET $2 LIMIT 1
	`

	var start int64
	err := c.db.QueryRowContext(ctx, query, dimensionID, n-1).Scan(&start)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "lookup nth latest slice")
	}
	return start, true, nil
}

func (c *PostgresCatalog) OldestChunkForReorder(ctx context.Context, jobID, dimensionID, beforeStart int64) (*catalog.Chunk, error) {
	query := `
		SELECT ch.id, ch.hypertable_id, ch.schema_name, ch.table_name,
		       s.range_start, s.range_end, ch.compressed, ch.dropped
		FROM _hypertide_catalog.chunk ch
		JOIN _hypertide_catalog.chunk_constraint cc ON cc.chunk_id = ch.id
		JOIN _hypertide_catalog.dimension_slice s ON s.id = cc.dimension_slice_id
		WHERE s.dimension_id = $2
		  AND s.range_start < $3
		  AND NOT ch.compressed
		  AND NOT ch.dropped
		  AND NOT EXISTS (
			SELECT 1 FROM hypertide_schema.policy_chunk_stats ps
			WHERE ps.job_id = $1 AND ps.chunk_id = ch.id
		  )
		ORDER BY s.range_start ASC, ch.id ASC
		LIMIT 1
	`
	return c.queryChunk(ctx, query, jobID, dimensionID, beforeStart)
}

func (c *PostgresCatalog) ChunkToCompress(ctx context.Context, dimensionID, before int64) (*catalog.Chunk, error) {
	query := `
		SELECT ch.id, ch.hypertable_id, ch.schema_name, ch.table_name,
		       s.range_start, s.range_end, ch.compressed, ch.dropped
		FROM _hypertide_catalog.chunk ch
		JOIN _hypertide_catalog.chunk_constraint cc ON cc.chunk_id = ch.id
		JOIN _hypertide_catalog.dimension_slice s ON s.id = cc.dimension_slice_id
		WHERE s.dimension_id = $1
		  AND s.range_end < $2
		  AND NOT ch.compressed
		  AND NOT ch.dropped
		ORDER BY s.range_start ASC, ch.id ASC
		LIMIT 1
	`
	return c.queryChunk(ctx, query, dimensionID, before)
}

func (c *PostgresCatalog) DropChunksBefore(ctx context.Context, target catalog.Target, boundary catalog.Boundary) (int, error) {
	query := `SELECT count(*) FROM drop_chunks($1::regclass, ` + boundaryCast(2, boundary.Type) + `)`

	var dropped int
	err := c.db.QueryRowContext(ctx, query,
		qualifiedName(target.SchemaName, target.TableName),
		boundaryArg(boundary.Value, boundary.Type),
	).Scan(&dropped)
	if err != nil {
		return 0, errors.Wrapf(err, "drop chunks of %s.%s", target.SchemaName, target.TableName)
	}
	return dropped, nil
}

func (c *PostgresCatalog) CompressChunk(ctx context.Context, chunk *catalog.Chunk) error {
	_, err := c.db.ExecContext(ctx, `SELECT compress_chunk($1::regclass)`,
		qualifiedName(chunk.SchemaName, chunk.TableName))
	return errors.Wrapf(err, "compress chunk %d", chunk.ID)
}

func (c *PostgresCatalog) ReorderChunk(ctx context.Context, chunk *catalog.Chunk, indexName string) error {
	_, err := c.db.ExecContext(ctx, `SELECT reorder_chunk($1::regclass, $2)`,
		qualifiedName(chunk.SchemaName, chunk.TableName), indexName)
	return errors.Wrapf(err, "reorder chunk %d", chunk.ID)
}

func (c *PostgresCatalog) RefreshContinuousAggregate(ctx context.Context, agg *catalog.ContinuousAgg, window catalog.RefreshWindow) error {
	query := `CALL refresh_continuous_aggregate($1::regclass, ` +
		boundaryCast(2, window.Type) + `, ` + boundaryCast(3, window.Type) + `)`

	_, err := c.db.ExecContext(ctx, query,
		qualifiedName(agg.UserViewSchema, agg.UserViewName),
		boundaryArg(window.Start, window.Type),
		boundaryArg(window.End, window.Type),
	)
	return errors.Wrapf(err, "refresh %s.%s", agg.UserViewSchema, agg.UserViewName)
}

func (c *PostgresCatalog) queryChunk(ctx context.Context, query string, args ...interface{}) (*catalog.Chunk, error) {
	var chunk catalog.Chunk
	err := c.db.QueryRowContext(ctx, query, args...).Scan(
		&chunk.ID, &chunk.HypertableID, &chunk.SchemaName, &chunk.TableName,
		&chunk.RangeStart, &chunk.RangeEnd, &chunk.Compressed, &chunk.Dropped,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select chunk")
	}
	return &chunk, nil
}

func dimensionType(s string) catalog.DimensionType {
	if s == "integer" {
		return catalog.DimensionInteger
	}
	return catalog.DimensionTime
}

func qualifiedName(schema, name string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(name)
}

// boundaryCast picks the SQL type the internal int64 value is presented
// as: timestamptz for time dimensions, bigint otherwise.
func boundaryCast(placeholder int, t catalog.DimensionType) string {
	if t == catalog.DimensionTime {
		return fmt.Sprintf("$%d::timestamptz", placeholder)
	}
	return fmt.Sprintf("$%d::bigint", placeholder)
}

func boundaryArg(v int64, t catalog.DimensionType) interface{} {
	if t == catalog.DimensionTime {
		return catalog.InternalToTime(v)
	}
	return v
}
