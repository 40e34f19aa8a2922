package gateway

import (
	"errors"

	"github.com/toolgate/toolgate/internal/auth"
	"github.com/toolgate/toolgate/internal/upstream"
	"github.com/toolgate/toolgate/internal/validate"
	"github.com/toolgate/toolgate/pkg/types"
	"go.uber.org/zap"
)

// authMessages are the fixed user-facing messages for credential failures.
// The credential contents and the verifier's underlying errors never appear here.
var authMessages = map[auth.ErrorKind]string{
	auth.KindMalformedCredential: "credential is missing or malformed",
	auth.KindUnknownKey:          "credential signing key is not recognized",
	auth.KindBadSignature:        "credential signature is invalid",
	auth.KindExpired:             "credential has expired",
	auth.KindAudienceMismatch:    "credential was not issued for this service",
	auth.KindIssuerMismatch:      "credential issuer is not trusted",
}

// sanitize converts any internal failure into a safe, classified error
// descriptor. Only the internal_error catch-all is logged with full detail;
// every other kind is expected and carries its own safe message.
func (s *Service) sanitize(requestID, tool string, err error) *types.ErrorDescriptor {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		message := authMessages[authErr.Kind]
		if message == "" {
			message = "credential rejected"
		}
		return &types.ErrorDescriptor{Kind: types.ErrorKindUnauthorized, Message: message}
	}

	var valErr *validate.Error
	if errors.As(err, &valErr) {
		return &types.ErrorDescriptor{Kind: types.ErrorKindInvalidInput, Message: valErr.Error()}
	}

	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		kind := types.ErrorKindUpstreamUnavailable
		if upErr.Kind == upstream.KindRateLimited {
			kind = types.ErrorKindRateLimited
		}
		return &types.ErrorDescriptor{Kind: kind, Message: upErr.Message}
	}

	s.logger.Error("unexpected failure during tool call",
		zap.String("tool", tool),
		zap.String("request_id", requestID),
		zap.Error(err),
	)
	return &types.ErrorDescriptor{
		Kind:    types.ErrorKindInternal,
		Message: "an internal error occurred while processing the request",
	}
}
