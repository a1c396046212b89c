package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrdine/qrdine/internal/auth"
	_ "github.com/qrdine/qrdine/testing"
)

func protected(t *testing.T, hash string) http.Handler {
	t.Helper()
	return auth.TokenMiddleware(auth.NewTokenVerifier(hash), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestTokenMiddleware(t *testing.T) {
	hash, err := auth.HashToken("s3cret")
	require.NoError(t, err)
	handler := protected(t, hash)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer s3cret", http.StatusNoContent},
		{"lowercase scheme", "bearer s3cret", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/analytics/dashboard", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)
			if tc.want == http.StatusUnauthorized {
				assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
				assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestTokenMiddlewareDisabledWithoutHash(t *testing.T) {
	rr := httptest.NewRecorder()
	protected(t, "").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHashTokenRequiresValue(t *testing.T) {
	_, err := auth.HashToken("  ")
	require.Error(t, err)
}

func TestStaticTokenHeaders(t *testing.T) {
	h, err := auth.StaticToken("abc").AuthHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", h.Get("Authorization"))

	h, err = auth.StaticToken("").AuthHeaders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h)
}
