package lock

import (
	dberror "github.com/absolve/reddwarf/pkg/error"
)

const component = "LockManager"

// Error codes set in the Code field of the *dberror.DBError values this
// package returns. Callers recover the value with errors.As and read Code.
const (
	codeInvalidArgument = "LOCK_INVALID_ARGUMENT"
	codeInvalidState    = "LOCK_INVALID_STATE"
	codeInvalidConfig   = "LOCK_INVALID_CONFIG"
)

// errInvalidArgument reports API misuse: a locker used across managers, or
// an invalid conflict passed to setWaitingFor.
func errInvalidArgument(operation, detail string) *dberror.DBError {
	e := dberror.New(dberror.ErrCategoryUser, codeInvalidArgument, "invalid argument")
	e.Detail = detail
	e.Operation = operation
	e.Component = component
	return e
}

// errInvalidState reports a locker used out of protocol, e.g. a second
// concurrent LockNoWait while one is already outstanding.
func errInvalidState(operation, detail string) *dberror.DBError {
	e := dberror.New(dberror.ErrCategoryUser, codeInvalidState, "invalid locker state")
	e.Detail = detail
	e.Operation = operation
	e.Component = component
	return e
}

// errInvalidConfig reports a malformed LockManager construction.
func errInvalidConfig(detail string) *dberror.DBError {
	e := dberror.New(dberror.ErrCategorySystem, codeInvalidConfig, "invalid lock manager configuration")
	e.Detail = detail
	e.Operation = "NewLockManager"
	e.Component = component
	return e
}
