package auth

import (
	"context"
	"net/http"
)

// HeaderProvider supplies authentication headers for outbound requests.
type HeaderProvider interface {
	AuthHeaders(ctx context.Context) (http.Header, error)
}

// StaticToken sends a fixed bearer token.
type StaticToken string

// AuthHeaders implements HeaderProvider. An empty token yields no headers.
func (t StaticToken) AuthHeaders(context.Context) (http.Header, error) {
	h := http.Header{}
	if t != "" {
		h.Set("Authorization", "Bearer "+string(t))
	}
	return h, nil
}
