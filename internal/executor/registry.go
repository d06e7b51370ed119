package executor

import (
	"context"
	"sync"

	"hypertide/internal/errs"
)

// Kind distinguishes how a callable is dispatched.
type Kind int

const (
	// KindFunction targets run inside a throwaway evaluation scope with
	// a consistent read snapshot; any result is discarded and they
	// cannot touch the ambient transaction.
	KindFunction Kind = iota + 1

	// KindProcedure targets receive the session and may commit or
	// restart the ambient transaction.
	KindProcedure
)

// Function is the fixed two-argument signature for function targets:
// the job id and the raw config document (nil for a typed null).
type Function func(ctx context.Context, jobID int64, config []byte) error

// Procedure is the signature for procedure targets.
type Procedure func(ctx context.Context, sess Session, jobID int64, config []byte) error

// Callable is a registered job target, addressed by (schema, name).
type Callable struct {
	Schema    string
	Name      string
	Kind      Kind
	Function  Function
	Procedure Procedure
}

// Registry resolves job targets by qualified name. Lookup happens at
// every execution so a re-registered callable takes effect without
// touching the job rows.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Callable
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Callable)}
}

func key(schema, name string) string { return schema + "." + name }

func (r *Registry) Register(c Callable) error {
	if c.Schema == "" || c.Name == "" {
		return errs.InvalidParameterf("callable schema and name cannot be empty")
	}
	switch c.Kind {
	case KindFunction:
		if c.Function == nil {
			return errs.InvalidParameterf("function callable %s.%s has no function", c.Schema, c.Name)
		}
	case KindProcedure:
		if c.Procedure == nil {
			return errs.InvalidParameterf("procedure callable %s.%s has no procedure", c.Schema, c.Name)
		}
	default:
		return errs.FeatureNotSupportedf("unsupported callable kind %d", c.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[key(c.Schema, c.Name)] = c
	return nil
}

// Lookup resolves a callable or fails UndefinedObject.
func (r *Registry) Lookup(schema, name string) (Callable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[key(schema, name)]
	if !ok {
		return Callable{}, errs.UndefinedObjectf("function or procedure %s.%s does not exist", schema, name)
	}
	return c, nil
}
