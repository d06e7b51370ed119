package policy

import (
	"context"
	"time"

	"hypertide/internal/catalog"
	"hypertide/internal/errs"
)

// Validator resolves a parsed policy config to a live plan and runs the
// policy-specific structural checks. Pure read logic, invoked at both
// authoring time (Add/Alter) and every execution; resolved handles are
// never cached across calls.
type Validator struct {
	cat   catalog.Catalog
	clock func() time.Time
}

func NewValidator(cat catalog.Catalog, clock func() time.Time) *Validator {
	if clock == nil {
		clock = time.Now
	}
	return &Validator{cat: cat, clock: clock}
}

// RetentionPlan is the resolved outcome of validating a retention
// config: the relation to drop from and the exclusive boundary.
type RetentionPlan struct {
	Hypertable *catalog.Hypertable
	Target     catalog.Target
	Boundary   catalog.Boundary
}

// ReorderPlan is the resolved outcome of validating a reorder config.
type ReorderPlan struct {
	Hypertable *catalog.Hypertable
	IndexName  string
}

// CompressionPlan is the resolved outcome of validating a compression
// config.
type CompressionPlan struct {
	Hypertable *catalog.Hypertable
	Boundary   catalog.Boundary
}

// RefreshPlan is the resolved outcome of validating a refresh config.
type RefreshPlan struct {
	Agg    *catalog.ContinuousAgg
	Window catalog.RefreshWindow
}

func (v *Validator) Retention(ctx context.Context, cfg *RetentionConfig) (*RetentionPlan, error) {
	ht, err := v.hypertable(ctx, cfg.HypertableID)
	if err != nil {
		return nil, err
	}

	boundary, err := v.windowBoundary(ctx, ht, cfg.DropAfter)
	if err != nil {
		return nil, err
	}

	// The configured hypertable may be a materialization table; drops
	// must then go against the continuous aggregate's user view.
	target := catalog.Target{SchemaName: ht.SchemaName, TableName: ht.TableName}
	agg, err := v.cat.ContinuousAggByMatID(ctx, ht.ID)
	if err != nil {
		return nil, err
	}
	if agg != nil {
		target = catalog.Target{SchemaName: agg.UserViewSchema, TableName: agg.UserViewName}
	}

	return &RetentionPlan{Hypertable: ht, Target: target, Boundary: boundary}, nil
}

func (v *Validator) Reorder(ctx context.Context, cfg *ReorderConfig) (*ReorderPlan, error) {
	ht, err := v.hypertable(ctx, cfg.HypertableID)
	if err != nil {
		return nil, err
	}

	tableName, ok, err := v.cat.IndexRelation(ctx, ht.SchemaName, cfg.IndexName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.InvalidParameterf("reorder index %q not found", cfg.IndexName)
	}
	if tableName != ht.TableName {
		return nil, errs.InvalidParameterf("invalid reorder index: %q is not an index on hypertable %q",
			cfg.IndexName, ht.TableName)
	}

	return &ReorderPlan{Hypertable: ht, IndexName: cfg.IndexName}, nil
}

func (v *Validator) Compression(ctx context.Context, cfg *CompressionConfig) (*CompressionPlan, error) {
	ht, err := v.hypertable(ctx, cfg.HypertableID)
	if err != nil {
		return nil, err
	}

	boundary, err := v.windowBoundary(ctx, ht, cfg.CompressAfter)
	if err != nil {
		return nil, err
	}

	return &CompressionPlan{Hypertable: ht, Boundary: boundary}, nil
}

func (v *Validator) RefreshCagg(ctx context.Context, cfg *RefreshCaggConfig) (*RefreshPlan, error) {
	ht, err := v.hypertable(ctx, cfg.MatHypertableID)
	if err != nil {
		return nil, err
	}

	agg, err := v.cat.ContinuousAggByMatID(ctx, ht.ID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, errs.InvalidParameterf("hypertable %d is not a continuous aggregate materialization table", ht.ID)
	}

	start, err := v.windowBoundary(ctx, ht, cfg.StartOffset)
	if err != nil {
		return nil, err
	}
	end, err := v.windowBoundary(ctx, ht, cfg.EndOffset)
	if err != nil {
		return nil, err
	}
	if start.Value >= end.Value {
		return nil, errs.InvalidParameterf(
			"invalid refresh window: start_offset %s, end_offset %s: the start of the window must be before the end",
			cfg.StartOffset, cfg.EndOffset)
	}

	return &RefreshPlan{
		Agg: agg,
		Window: catalog.RefreshWindow{
			Start: start.Value,
			End:   end.Value,
			Type:  start.Type,
		},
	}, nil
}

func (v *Validator) hypertable(ctx context.Context, id int64) (*catalog.Hypertable, error) {
	ht, err := v.cat.HypertableByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ht == nil {
		return nil, errs.InvalidParameterf("configuration hypertable id %d not found", id)
	}
	return ht, nil
}

// windowBoundary computes now − lag in the dimension's internal
// representation. Time dimensions need a duration lag, integer
// dimensions an integer lag and a usable now-resolver.
func (v *Validator) windowBoundary(ctx context.Context, ht *catalog.Hypertable, lag Offset) (catalog.Boundary, error) {
	dim := ht.OpenDimension

	if dim.Type == catalog.DimensionTime {
		if lag.IsInteger {
			return catalog.Boundary{}, errs.InvalidParameterf(
				"hypertable %d is partitioned by time; the configured lag must be a duration", ht.ID)
		}
		now := v.clock()
		return catalog.Boundary{
			Value: catalog.TimeToInternal(now.Add(-lag.Duration)),
			Type:  catalog.DimensionTime,
		}, nil
	}

	if !lag.IsInteger {
		return catalog.Boundary{}, errs.InvalidParameterf(
			"hypertable %d is partitioned by an integer column; the configured lag must be an integer", ht.ID)
	}

	nowDim, err := v.integerNowDimension(ctx, ht)
	if err != nil {
		return catalog.Boundary{}, err
	}
	nowVal, ok, err := v.cat.IntegerNow(ctx, *nowDim)
	if err != nil {
		return catalog.Boundary{}, err
	}
	if !ok {
		return catalog.Boundary{}, errs.Internalf(
			"missing integer now function for hypertable %q", ht.TableName)
	}
	return catalog.Boundary{Value: nowVal - lag.Integer, Type: catalog.DimensionInteger}, nil
}

// integerNowDimension picks the dimension carrying the now-resolver.
// For materialization hypertables the resolver lives on the raw
// hypertable's dimension, found by reverse lookup.
func (v *Validator) integerNowDimension(ctx context.Context, ht *catalog.Hypertable) (*catalog.Dimension, error) {
	dim, err := v.cat.IntegerNowDimensionByMatID(ctx, ht.ID)
	if err != nil {
		return nil, err
	}
	if dim != nil {
		return dim, nil
	}
	return &ht.OpenDimension, nil
}
