package validate

import "fmt"

// ErrorKind identifies the reason a tool call's input was rejected.
type ErrorKind string

const (
	KindUnknownTool    ErrorKind = "unknown_tool"
	KindMissingField   ErrorKind = "missing_field"
	KindTypeMismatch   ErrorKind = "type_mismatch"
	KindLengthExceeded ErrorKind = "length_exceeded"
	KindOutOfRange     ErrorKind = "out_of_range"
	KindNotAllowed     ErrorKind = "not_allowed"
	KindBadRole        ErrorKind = "bad_role"
)

// Error is an input validation failure. Its message is safe to return to callers.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func newError(kind ErrorKind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
