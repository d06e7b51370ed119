package policy

import (
	"context"

	"hypertide/internal/constants"
	"hypertide/internal/executor"
)

// RegisterBuiltin wires the four built-in policies into the callable
// registry. Policies register as procedures so they are free to manage
// transactions of their own, as continuous-aggregate refresh does.
func RegisterBuiltin(reg *executor.Registry, execs *Executors) error {
	builtins := []executor.Callable{
		{
			Schema: constants.InternalSchema,
			Name:   constants.PolicyRetention,
			Kind:   executor.KindProcedure,
			Procedure: func(ctx context.Context, _ executor.Session, jobID int64, config []byte) error {
				cfg, err := Parse(KindRetention, config)
				if err != nil {
					return err
				}
				return execs.Retention(ctx, jobID, cfg.(*RetentionConfig))
			},
		},
		{
			Schema: constants.InternalSchema,
			Name:   constants.PolicyReorder,
			Kind:   executor.KindProcedure,
			Procedure: func(ctx context.Context, _ executor.Session, jobID int64, config []byte) error {
				cfg, err := Parse(KindReorder, config)
				if err != nil {
					return err
				}
				return execs.Reorder(ctx, jobID, cfg.(*ReorderConfig))
			},
		},
		{
			Schema: constants.InternalSchema,
			Name:   constants.PolicyCompression,
			Kind:   executor.KindProcedure,
			Procedure: func(ctx context.Context, _ executor.Session, jobID int64, config []byte) error {
				cfg, err := Parse(KindCompression, config)
				if err != nil {
					return err
				}
				return execs.Compression(ctx, jobID, cfg.(*CompressionConfig))
			},
		},
		{
			Schema: constants.InternalSchema,
			Name:   constants.PolicyRefreshCagg,
			Kind:   executor.KindProcedure,
			Procedure: func(ctx context.Context, _ executor.Session, jobID int64, config []byte) error {
				cfg, err := Parse(KindRefreshCagg, config)
				if err != nil {
					return err
				}
				return execs.RefreshCagg(ctx, jobID, cfg.(*RefreshCaggConfig))
			},
		},
	}

	for _, c := range builtins {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
