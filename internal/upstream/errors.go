package upstream

// ErrorKind classifies a failed upstream model call.
type ErrorKind string

const (
	KindTimeout        ErrorKind = "timeout"
	KindRateLimited    ErrorKind = "rate_limited"
	KindBackendFailure ErrorKind = "backend_failure"
)

// Error is a classified upstream failure.
// Message carries a non-sensitive summary only; the raw upstream payload is
// never retained because it may contain account-identifying detail.
type Error struct {
	Kind    ErrorKind
	Message string
	err     error
}

func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}
