package storefront

import (
	"context"
	"net/http"
	"strings"
)

type authorizationKey struct{}

// WithAuthorization returns a context carrying the caller's Authorization header
// value for forwarding to the storefront.
func WithAuthorization(ctx context.Context, value string) context.Context {
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, authorizationKey{}, value)
}

// AuthorizationFrom returns the forwarded Authorization value, if any.
func AuthorizationFrom(ctx context.Context) string {
	v, _ := ctx.Value(authorizationKey{}).(string)
	return v
}

// ForwardAuthorization stores the inbound Authorization header on the request
// context so storefront calls made while serving it carry the same credentials.
func ForwardAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			r = r.WithContext(WithAuthorization(r.Context(), auth))
		}
		next.ServeHTTP(w, r)
	})
}
