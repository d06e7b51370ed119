// Package errs defines the error taxonomy shared by the administration
// API, the policy executors and the job runtime.
//
// Every error produced by this module is marked with exactly one of the
// sentinels below, so callers can classify failures with errors.Is
// without string matching.
package errs

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidParameter marks bad or missing config fields, null
	// required arguments and inverted refresh windows.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUndefinedObject marks lookups of jobs, callables or indexes
	// that do not exist.
	ErrUndefinedObject = errors.New("undefined object")

	// ErrInsufficientPrivilege marks ownership and execute-privilege
	// failures.
	ErrInsufficientPrivilege = errors.New("insufficient privilege")

	// ErrFeatureNotSupported marks unsupported callable kinds.
	ErrFeatureNotSupported = errors.New("feature not supported")

	// ErrInternal marks unrecoverable catalog inconsistencies, such as
	// an integer-partitioned materialization hypertable missing its
	// now-resolver.
	ErrInternal = errors.New("internal error")
)

func InvalidParameterf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidParameter)
}

func UndefinedObjectf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrUndefinedObject)
}

func InsufficientPrivilegef(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInsufficientPrivilege)
}

func FeatureNotSupportedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrFeatureNotSupported)
}

func Internalf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInternal)
}
