// Package bookerr defines the error taxonomy surfaced at every API boundary
// of the engine: container, metadata, navigation, tokenizer, layout, and
// render. Parsers and readers never panic on malformed input; they return
// one of these kinds wrapped with context via fmt.Errorf("...: %w", err).
package bookerr

import (
	"errors"
	"fmt"
)

// Kind is a stable, comparable error category independent of message text.
type Kind int

const (
	// KindOpenFailed means the container could not be opened or validated.
	KindOpenFailed Kind = iota
	// KindNotFound means a requested resource or chapter is not in the manifest.
	KindNotFound
	// KindMalformed means OPF/XHTML/NCX content was structurally invalid.
	KindMalformed
	// KindNavigation means navigation parsing or a navigation limit failed.
	KindNavigation
	// KindLimitExceeded means a hard cap from limits.MemoryBudget was breached.
	KindLimitExceeded
	// KindLayoutFailed means an internal layout invariant was violated.
	KindLayoutFailed
	// KindCancelled means cooperative cancellation stopped a prepare call.
	KindCancelled
	// KindBackendError wraps an opaque draw-target error.
	KindBackendError
)

func (k Kind) String() string {
	switch k {
	case KindOpenFailed:
		return "open_failed"
	case KindNotFound:
		return "not_found"
	case KindMalformed:
		return "malformed"
	case KindNavigation:
		return "navigation"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindLayoutFailed:
		return "layout_failed"
	case KindCancelled:
		return "cancelled"
	case KindBackendError:
		return "backend_error"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across the engine's API
// boundary. Use errors.Is against the sentinel kind errors below, or
// errors.As to recover the Kind/Limit/Observed fields directly.
type Error struct {
	Kind     Kind
	Message  string
	LimitTag string // populated only for KindLimitExceeded, e.g. "max_pages_in_memory"
	Limit    int64
	Observed int64
	Wrapped  error
}

func (e *Error) Error() string {
	if e.Kind == KindLimitExceeded {
		return fmt.Sprintf("%s: %s exceeded (limit=%d observed=%d)", e.Kind, e.LimitTag, e.Limit, e.Observed)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is allows errors.Is(err, bookerr.Cancelled) etc. by comparing Kind only.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Sentinel values usable with errors.Is(err, bookerr.Cancelled).
var (
	Cancelled   = &Error{Kind: KindCancelled}
	LayoutFail  = &Error{Kind: KindLayoutFailed}
	OpenFailed  = &Error{Kind: KindOpenFailed}
	NotFound    = &Error{Kind: KindNotFound}
	Malformed   = &Error{Kind: KindMalformed}
	Navigation  = &Error{Kind: KindNavigation}
	LimitExceed = &Error{Kind: KindLimitExceeded}
)

// New builds a bare Error of the given kind with a message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: cause}
}

// LimitExceeded builds the structured {kind, limit, observed} limit-breach
// error. LimitTag identifies which of limits.MemoryBudget's fields was
// breached (e.g. "max_entry_bytes").
func LimitExceeded(limitTag string, limit, observed int64) *Error {
	return &Error{Kind: KindLimitExceeded, LimitTag: limitTag, Limit: limit, Observed: observed}
}
