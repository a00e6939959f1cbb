// Package session carries the caller's bearer token through a request
// context. The dashboard never verifies the token; it is forwarded to the
// forecasting backend, which owns authentication.
package session

import (
	"context"
	"strings"
)

type tokenKey struct{}

// WithToken returns a copy of ctx holding token. An empty token leaves ctx unchanged.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// Token returns the bearer token stored in ctx, if any.
func Token(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey{}).(string)
	return t, ok && t != ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
