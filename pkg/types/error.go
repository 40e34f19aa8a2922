package types

// ErrorKind is the public classification of a failed tool call.
// The set is closed: every internal failure maps onto exactly one of these.
type ErrorKind string

const (
	ErrorKindUnauthorized        ErrorKind = "unauthorized"
	ErrorKindInvalidInput        ErrorKind = "invalid_input"
	ErrorKindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	ErrorKindRateLimited         ErrorKind = "rate_limited"
	ErrorKindInternal            ErrorKind = "internal_error"
)

// ErrorDescriptor is the user-facing error attached to a failed tool call.
// The message is always safe to show to a caller: it never contains raw
// upstream payloads, credential contents or stack detail.
type ErrorDescriptor struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}
