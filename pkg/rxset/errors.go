package rxset

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers should compare with errors.Is, never by
// string match: every error returned by this package wraps one of these.
var (
	// ErrReadonlyAccess is returned when a caller mutates a derived
	// (readonly) collection directly.
	ErrReadonlyAccess = errors.New("readonly access")
	// ErrReactivityDisabled is returned when a caller mutates a leaf
	// whose reactivity has been turned off by a derived consumer.
	ErrReactivityDisabled = errors.New("reactivity disabled")
	// ErrDuplicateSource is returned when the same source is registered
	// twice on a variadic combinator.
	ErrDuplicateSource = errors.New("duplicate source")
	// ErrInvalidDependencyKind is returned when a projection engine is
	// wired with a dependency that is neither a cell nor a collection.
	ErrInvalidDependencyKind = errors.New("invalid dependency kind")
	// ErrNoDependencies is returned when a projection engine is
	// constructed with no dependencies at all.
	ErrNoDependencies = errors.New("no dependencies")
	// ErrCommitWithoutPending is the panic value raised when a cell delta
	// buffer is asked to commit with no pending change.
	ErrCommitWithoutPending = errors.New("commit without pending change")
	// ErrBufferDisabled names a read or commit of a delta buffer after its
	// owning engine has disabled it. No code path in this package returns
	// it: a buffer keeps no disabled state, and a detached buffer still
	// answers reads and commits.
	ErrBufferDisabled = errors.New("buffer disabled")
	// ErrResolverFailure is the error a projection engine logs, wrapped in
	// an OpError, when a user-supplied resolver returns an error or panics;
	// the resolver's own error or panic value is logged alongside it.
	ErrResolverFailure = errors.New("resolver failure")
)

// OpError decorates a sentinel error kind with the component, operation and
// label that produced it.
type OpError struct {
	Component string
	Op        string
	Label     string
	Err       error
}

func (e *OpError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%s[%s].%s: %v", e.Component, e.Label, e.Op, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Component, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opErr(component, label, op string, err error) error {
	return &OpError{Component: component, Op: op, Label: label, Err: err}
}
