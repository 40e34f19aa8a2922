// Package auth verifies bearer credentials against a remote signing key set.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Claims carries the verified identity facts decoded from a credential.
type Claims struct {
	jwt.RegisteredClaims
	// Scope holds the space-separated OAuth scopes granted to the caller.
	Scope string `json:"scope,omitempty"`
}

// errMissingKeyID is reported when a credential header carries no key id.
var errMissingKeyID = errors.New("credential header has no kid")

// VerifierConfig holds the configuration parameters for initializing a Verifier.
type VerifierConfig struct {
	KeySet *KeySet

	// Audience that verified credentials must be issued for.
	Audience string
	// Issuer that verified credentials must originate from.
	Issuer string
	// Algorithms are the accepted signing algorithms (e.g. RS256).
	Algorithms []string

	Logger *zap.Logger
}

// Verifier validates bearer credentials and extracts their claims.
// It has no side effects beyond populating the signing key set cache.
type Verifier struct {
	keySet   *KeySet
	audience string
	issuer   string
	parser   *jwt.Parser
	logger   *zap.Logger
}

// NewVerifier creates a Verifier.
// It fails closed: an empty audience or issuer is a configuration error, the
// gateway must never run unauthenticated.
func NewVerifier(cfg *VerifierConfig) (*Verifier, error) {
	if cfg.KeySet == nil {
		return nil, errors.New("verifier requires a signing key set")
	}
	if cfg.Audience == "" {
		return nil, errors.New("verifier requires a non-empty audience")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("verifier requires a non-empty issuer")
	}
	algorithms := cfg.Algorithms
	if len(algorithms) == 0 {
		algorithms = []string{"RS256"}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		keySet:   cfg.KeySet,
		audience: cfg.Audience,
		issuer:   cfg.Issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods(algorithms),
			jwt.WithAudience(cfg.Audience),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
		),
		logger: logger,
	}, nil
}

// Verify validates the given bearer credential and returns its claims.
// The credential may carry a "Bearer " prefix, which is stripped.
// Failures are reported as *Error with the appropriate kind.
func (v *Verifier) Verify(ctx context.Context, credential string) (*Claims, error) {
	credential = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	if credential == "" {
		return nil, newError(KindMalformedCredential, errors.New("empty credential"))
	}

	keyfunc := func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errMissingKeyID
		}
		return v.keySet.Resolve(ctx, kid)
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(credential, claims, keyfunc)
	if err != nil {
		return nil, v.classify(err)
	}
	if !token.Valid {
		return nil, newError(KindBadSignature, errors.New("token marked invalid"))
	}

	v.logger.Debug("credential verified", zap.String("subject", claims.Subject))
	return claims, nil
}

// classify maps jwt parse errors onto the verifier's error taxonomy.
func (v *Verifier) classify(err error) *Error {
	switch {
	case errors.Is(err, errMissingKeyID), errors.Is(err, jwt.ErrTokenMalformed):
		return newError(KindMalformedCredential, err)
	case errors.Is(err, errKeyNotFound):
		return newError(KindUnknownKey, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newError(KindExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return newError(KindAudienceMismatch, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return newError(KindIssuerMismatch, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return newError(KindBadSignature, err)
	default:
		// key set fetch failures and anything else unexpected surface as an
		// unresolvable key rather than leaking detail to the caller
		return newError(KindUnknownKey, err)
	}
}
