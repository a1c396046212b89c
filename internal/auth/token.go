// Package auth guards the analytics API with a shared bearer token and
// supplies credentials for outbound order source calls.
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/qrdine/qrdine/internal/platform/httpx"
)

// ErrInvalidToken is returned when a presented token does not match the configured hash.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenVerifier checks bearer tokens against a bcrypt hash.
type TokenVerifier struct {
	hash []byte
}

// NewTokenVerifier builds a verifier. An empty hash accepts every request.
func NewTokenVerifier(hash string) *TokenVerifier {
	return &TokenVerifier{hash: []byte(strings.TrimSpace(hash))}
}

// Enabled reports whether a hash is configured.
func (v *TokenVerifier) Enabled() bool {
	return v != nil && len(v.hash) > 0
}

// Verify compares a presented token with the configured hash.
func (v *TokenVerifier) Verify(token string) error {
	if !v.Enabled() {
		return nil
	}
	if token == "" {
		return ErrInvalidToken
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// HashToken produces the bcrypt hash to place in API_TOKEN_HASH.
func HashToken(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", errors.New("auth: token required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// TokenMiddleware rejects requests without a valid bearer token.
func TokenMiddleware(v *TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !v.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := v.Verify(bearerToken(r)); err != nil {
				if logger != nil {
					logger.Warn("rejected api token", slog.String("path", r.URL.Path), slog.String("remote", r.RemoteAddr))
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="qrdine"`)
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
