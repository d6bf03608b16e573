package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Mode represents the authentication strategy to apply for incoming requests.
type Mode string

const (
	// ModeFirebase enables Firebase-issued JWT verification using a JWKS endpoint.
	ModeFirebase Mode = "firebase"
	// ModeNoop disables signature verification and treats the bearer token as the user ID (useful for local development and tests).
	ModeNoop Mode = "noop"
)

// Config captures the inputs required to initialize an authenticator.
type Config struct {
	Mode     Mode
	JWKSURL  string
	Audience string
	Issuer   string
}

// Identity is the authenticated subject the rest of the service partitions data by.
// UserID is a stable opaque identifier; Verified reflects the provider's email-verification flag.
type Identity struct {
	UserID    string
	Verified  bool
	ExpiresAt int64
}

// Verifier verifies a bearer token and returns the associated identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

var (
	errMissingAuthHeader = errors.New("authorization header missing")
	errInvalidAuthHeader = errors.New("authorization header is malformed")
)

type ctxKey string

const identityCtxKey ctxKey = "trykaro:identity"

// Middleware enforces authentication for the wrapped handler using the provided verifier.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, err := tokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityCtxKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingAuthHeader
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errInvalidAuthHeader
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errInvalidAuthHeader
	}

	return token, nil
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	value, ok := ctx.Value(identityCtxKey).(Identity)
	return value, ok
}

// NewVerifier constructs a Verifier matching the supplied configuration.
func NewVerifier(cfg Config) (Verifier, error) {
	switch cfg.Mode {
	case ModeFirebase:
		return newJWKSVerifier(cfg)
	case ModeNoop:
		return noopVerifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}

// noopVerifier treats the bearer token as the user id and marks it verified.
type noopVerifier struct{}

func (noopVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, errors.New("empty token")
	}
	return Identity{UserID: token, Verified: true}, nil
}
