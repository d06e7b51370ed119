package admin

import "context"

// Authorizer answers the three privilege questions the administration
// API asks. The live implementation consults the role system of the
// underlying store; tests use a table-driven fake.
type Authorizer interface {
	// CanExecute reports whether the role holds execute privilege on
	// the callable.
	CanExecute(ctx context.Context, role, procSchema, procName string) (bool, error)

	// HasPrivilegesOfRole reports whether role has the privileges of
	// owner (directly or via role membership).
	HasPrivilegesOfRole(ctx context.Context, role, owner string) (bool, error)

	// CanOwnBackgroundWorker reports whether the role may own a
	// background worker.
	CanOwnBackgroundWorker(ctx context.Context, role string) (bool, error)
}

// AllowAll grants everything. Suitable for single-operator deployments
// with no role separation.
type AllowAll struct{}

func (AllowAll) CanExecute(context.Context, string, string, string) (bool, error) {
	return true, nil
}

func (AllowAll) HasPrivilegesOfRole(context.Context, string, string) (bool, error) {
	return true, nil
}

func (AllowAll) CanOwnBackgroundWorker(context.Context, string) (bool, error) {
	return true, nil
}
