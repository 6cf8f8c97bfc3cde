package domain

import "errors"

// Kind classifies a domain failure so callers can map it to a transport
// outcome without matching on reason strings.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not_found"
	KindInvalid         Kind = "invalid"
	KindInternal        Kind = "internal"
)

// Error pairs a failure kind with a human-readable reason. Reasons are
// surfaced verbatim to callers.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Reason + ": " + e.cause.Error()
	}
	return e.Reason
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Unauthenticated reports a request with no resolvable caller identity.
func Unauthenticated(reason string) error {
	return &Error{Kind: KindUnauthenticated, Reason: reason}
}

// NotFound reports an absent event, membership, or user.
func NotFound(reason string) error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

// Invalid reports a violated precondition or malformed input.
func Invalid(reason string) error {
	return &Error{Kind: KindInvalid, Reason: reason}
}

// Internal wraps an unexpected persistence or lock failure. Callers may
// retry; partial state is never left behind.
func Internal(reason string, cause error) error {
	return &Error{Kind: KindInternal, Reason: reason, cause: cause}
}

// KindOf extracts the failure kind; unclassified errors are internal.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsInvalid reports whether err is a precondition failure.
func IsInvalid(err error) bool { return KindOf(err) == KindInvalid }

// IsUnauthenticated reports whether err is an identity failure.
func IsUnauthenticated(err error) bool { return KindOf(err) == KindUnauthenticated }
