package auth

import "fmt"

// ErrorKind identifies the reason a credential was rejected.
type ErrorKind string

const (
	KindMalformedCredential ErrorKind = "malformed_credential"
	KindUnknownKey          ErrorKind = "unknown_key"
	KindBadSignature        ErrorKind = "bad_signature"
	KindExpired             ErrorKind = "expired"
	KindAudienceMismatch    ErrorKind = "audience_mismatch"
	KindIssuerMismatch      ErrorKind = "issuer_mismatch"
)

// Error is a credential verification failure.
// The underlying cause is retained for internal logging but is never part of
// the user-facing message.
type Error struct {
	Kind ErrorKind
	err  error
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("credential rejected: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.err
}
