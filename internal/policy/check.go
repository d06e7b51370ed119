package policy

import (
	"context"
	"encoding/json"
)

// Check validates a config document for the given callable at authoring
// time. It dispatches to the matching policy's Read+Validate step and
// returns the hypertable the config binds the job to (0 for custom
// callables, which are not checked).
func Check(ctx context.Context, v *Validator, procSchema, procName string, raw json.RawMessage) (int64, error) {
	kind := KindOf(procSchema, procName)
	if kind == KindCustom {
		return 0, nil
	}

	cfg, err := Parse(kind, raw)
	if err != nil {
		return 0, err
	}

	switch c := cfg.(type) {
	case *RetentionConfig:
		if _, err := v.Retention(ctx, c); err != nil {
			return 0, err
		}
		return c.HypertableID, nil
	case *ReorderConfig:
		if _, err := v.Reorder(ctx, c); err != nil {
			return 0, err
		}
		return c.HypertableID, nil
	case *CompressionConfig:
		if _, err := v.Compression(ctx, c); err != nil {
			return 0, err
		}
		return c.HypertableID, nil
	case *RefreshCaggConfig:
		if _, err := v.RefreshCagg(ctx, c); err != nil {
			return 0, err
		}
		return c.MatHypertableID, nil
	default:
		return 0, nil
	}
}
