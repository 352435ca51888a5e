// Package apierr defines the error taxonomy described in spec.md §7: every domain
// package returns one of these kinds so the transport layer can map it to the right
// HTTP status without domain packages importing gin.
package apierr

import "fmt"

// Kind classifies an error for transport-layer status mapping.
type Kind string

const (
	// KindNotFound covers an unknown room, round, player, or an absent result/message/indicator.
	KindNotFound Kind = "not_found"
	// KindInvalidState covers an operation forbidden in the current room or round status.
	KindInvalidState Kind = "invalid_state"
	// KindInvalidInput covers a malformed request: bad enum, out-of-range nickname/content length, etc.
	KindInvalidInput Kind = "invalid_input"
	// KindConflict covers a duplicate write that is a genuine conflict rather than a safe retry.
	KindConflict Kind = "conflict"
	// KindTransient covers storage contention that the caller may retry.
	KindTransient Kind = "transient"
)

// Error is the concrete error type returned by domain packages.
type Error struct {
	Kind   Kind
	Code   string // machine-readable, e.g. "invalid_state_transition", "already_sent"
	Detail string // human-readable message, returned verbatim in {"detail": "..."}
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

func new_(kind Kind, code, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail}
}

// NotFound builds a KindNotFound error with code "not_found" unless overridden.
func NotFound(detail string) *Error { return new_(KindNotFound, "not_found", detail) }

// NotFoundCode builds a KindNotFound error with an explicit machine-readable code.
func NotFoundCode(code, detail string) *Error { return new_(KindNotFound, code, detail) }

// InvalidState builds a KindInvalidState error, defaulting its code to
// "invalid_state_transition" per spec.md §4.2, overridable for more specific cases.
func InvalidState(detail string) *Error {
	return new_(KindInvalidState, "invalid_state_transition", detail)
}

// InvalidStateCode builds a KindInvalidState error with an explicit code.
func InvalidStateCode(code, detail string) *Error { return new_(KindInvalidState, code, detail) }

// InvalidInput builds a KindInvalidInput error with an explicit code.
func InvalidInput(code, detail string) *Error { return new_(KindInvalidInput, code, detail) }

// Conflict builds a KindConflict error with an explicit code.
func Conflict(code, detail string) *Error { return new_(KindConflict, code, detail) }

// Transient wraps a storage-layer error that is safe to retry.
func Transient(detail string, cause error) *Error {
	e := new_(KindTransient, "transient", detail)
	e.cause = cause
	return e
}

// Is allows errors.Is(err, apierr.ErrXxx) style sentinel checks against Kind alone,
// by comparing Kind when the target is a bare *Error with no Code set.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Kind == t.Kind && e.Code == t.Code
	}
	return e.Kind == t.Kind
}
