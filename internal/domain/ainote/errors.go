package ainote

import "fmt"

// Kind is the semantic category of a lifecycle error. Handlers map kinds to
// HTTP status codes; services use them to keep failed transitions a modeled
// outcome rather than an exceptional one.
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindTranscriptTooShort Kind = "TRANSCRIPT_TOO_SHORT"
	KindProviderFailure    Kind = "PROVIDER_FAILURE"
)

// Error is a domain error with a semantic kind and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind: two *Errors are equal when their kinds
// match, so sentinel comparisons like errors.Is(err, ErrConflict) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrTranscriptTooShort = &Error{Kind: KindTranscriptTooShort}
	ErrProviderFailure    = &Error{Kind: KindProviderFailure}
)

func unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func notFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func transcriptTooShort(got, min int) *Error {
	return &Error{
		Kind:    KindTranscriptTooShort,
		Message: fmt.Sprintf("transcript is %d characters; at least %d required for reliable generation", got, min),
	}
}

func providerFailure(msg string, err error) *Error {
	return &Error{Kind: KindProviderFailure, Message: msg, Err: err}
}
