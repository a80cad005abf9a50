// Package syncerr defines the structured errors returned by the krbsync
// core.
//
// Every failure surfaced by the queue, filter, dispatch, and Active
// Directory layers is classified into a small set of kinds so that
// callers (the kadmind hook shim and the command-line tools) can decide
// whether a failure should abort the administrative operation, be
// reported as a synchronization failure, or be treated as a
// configuration problem.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind classifies a synchronization failure.
type Kind int

const (
	// KindInternal is an unclassified failure inside the core.
	KindInternal Kind = iota

	// KindConfig means a required configuration setting is absent.
	// Optional subsystems treat this as a reason to no-op; the queue
	// directory itself fails loudly with this kind.
	KindConfig

	// KindSystem is a lock, open, write, or delete failure. It always
	// carries the underlying OS error.
	KindSystem

	// KindRemote wraps a failure reported by the remote sync transport
	// (Kerberos password protocol or LDAP), with the remote detail
	// appended to the message.
	KindRemote

	// KindFilter means the base-instance existence lookup failed for a
	// reason unrelated to "principal not found".
	KindFilter
)

// String returns the kind's name for log and error output.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindSystem:
		return "system"
	case KindRemote:
		return "remote"
	case KindFilter:
		return "filter"
	default:
		return "internal"
	}
}

// Error is a classified synchronization failure. The wrapped cause, if
// any, is reachable through errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config reports a missing or invalid configuration setting.
func Config(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// System reports an OS-level failure, carrying the underlying cause.
func System(err error, format string, args ...any) *Error {
	return &Error{Kind: KindSystem, Message: fmt.Sprintf(format, args...), Err: err}
}

// Remote reports a failure from the remote synchronization transport.
func Remote(err error, format string, args ...any) *Error {
	return &Error{Kind: KindRemote, Message: fmt.Sprintf(format, args...), Err: err}
}

// Filter reports a failed principal-eligibility lookup.
func Filter(err error, format string, args ...any) *Error {
	return &Error{Kind: KindFilter, Message: fmt.Sprintf(format, args...), Err: err}
}

// Internal reports an unclassified core failure.
func Internal(format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or KindInternal when err carries no
// classification.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
