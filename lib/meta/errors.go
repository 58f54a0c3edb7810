package meta

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Sentinel Errors
// --------------------------------------------------------------------------

// ErrClosed is returned for every operation invoked after Close.
var ErrClosed = errors.New("metadata client is closed")

// --------------------------------------------------------------------------
// Construction Errors
// --------------------------------------------------------------------------

// InvalidAddressError reports an endpoint address that does not decompose
// into a host and a port.
type InvalidAddressError struct {
	Addr string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid metadata service address %q: must be host:port", e.Addr)
}

// --------------------------------------------------------------------------
// Placement Errors (retryable by the HA proxy)
// --------------------------------------------------------------------------

// StandbyError reports that a reachable endpoint explicitly refused an
// operation because it is not the current active instance. It carries
// authoritative information, so failing over immediately is safe.
type StandbyError struct {
	Addr string
}

func (e *StandbyError) Error() string {
	if e.Addr == "" {
		return "metadata service is in standby state"
	}
	return fmt.Sprintf("metadata service %s is in standby state", e.Addr)
}

// FailoverError reports a channel-level failure that suggests the endpoint
// is unreachable or transitioning. It always wraps the underlying cause so
// that, on retry exhaustion, the caller sees the real failure instead of a
// synthetic one.
type FailoverError struct {
	Addr  string
	Cause error
}

func (e *FailoverError) Error() string {
	return fmt.Sprintf("metadata service %s unreachable: %v", e.Addr, e.Cause)
}

func (e *FailoverError) Unwrap() error { return e.Cause }

// --------------------------------------------------------------------------
// Terminal Error
// --------------------------------------------------------------------------

// RPCError is the single terminal error surfaced when the HA retry bound is
// exhausted. It carries the number of attempts made and, where available,
// the unwrapped cause of the last failure.
type RPCError struct {
	Attempts int
	Cause    error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("metadata rpc failed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *RPCError) Unwrap() error { return e.Cause }

// --------------------------------------------------------------------------
// Domain Errors (never retried)
// --------------------------------------------------------------------------

// PathError reports a namespace-level failure for a single path. It is a
// business error unrelated to endpoint placement and is never retried.
type PathError struct {
	Op   string
	Path string
	Msg  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Msg)
}

// NewPathError creates a PathError for the given operation and path.
func NewPathError(op, path, msg string) *PathError {
	return &PathError{Op: op, Path: path, Msg: msg}
}

// LeaseError reports a lease conflict: the operation requires a write lease
// the caller does not hold. Never retried.
type LeaseError struct {
	Path   string
	Holder string
}

func (e *LeaseError) Error() string {
	return fmt.Sprintf("lease on %s is held by %q", e.Path, e.Holder)
}
