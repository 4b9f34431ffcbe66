// Package errdefs holds the error kinds shared by the module registry, the
// service tables and the backend binder. Callers match them with errors.Is.
package errdefs

import "errors"

var (
	// ErrConfig reports a conflicting or malformed registration.
	ErrConfig = errors.New("configuration error")
	// ErrCyclicDependency reports a self dependency or a dependency cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")
	// ErrInitFailure reports that a module init function failed.
	ErrInitFailure = errors.New("module init failed")
	// ErrBind reports that a backend could not be bound.
	ErrBind = errors.New("backend bind failed")
	// ErrFatalBind reports an unbind attempted while calls are in flight.
	ErrFatalBind = errors.New("backend unbind while in use")
	// ErrStubInvoked is carried by the error results of default stubs. It
	// means "not supported by the current backend" and is never fatal.
	ErrStubInvoked = errors.New("slot not bound")

	ErrUnknownModule  = errors.New("unknown module")
	ErrUnknownService = errors.New("unknown service")
)
