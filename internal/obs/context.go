package obs

import (
	"context"
	"sync"
	"sync/atomic"
)

type scopeKey struct{}

// requestScope is mutable per-request state. It is shared by pointer so middlewares
// wrapping the router can read what inner handlers recorded.
type requestScope struct {
	mu         sync.RWMutex
	route      string
	storefront atomic.Int64
}

// WithRequestScope attaches an empty scope unless ctx already carries one.
func WithRequestScope(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if scopeFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, &requestScope{})
}

func scopeFrom(ctx context.Context) *requestScope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*requestScope)
	return s
}

// WithRoutePattern records the matched router pattern for the request.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	ctx = WithRequestScope(ctx)
	s := scopeFrom(ctx)
	s.mu.Lock()
	s.route = pattern
	s.mu.Unlock()
	return ctx
}

// RoutePatternFromContext returns the recorded route pattern, if any.
func RoutePatternFromContext(ctx context.Context) string {
	s := scopeFrom(ctx)
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.route
}

// CountStorefrontCall notes one outbound storefront call made on behalf of the request.
func CountStorefrontCall(ctx context.Context) {
	if s := scopeFrom(ctx); s != nil {
		s.storefront.Add(1)
	}
}

// StorefrontCalls reports how many storefront calls the request made so far.
func StorefrontCalls(ctx context.Context) int64 {
	if s := scopeFrom(ctx); s != nil {
		return s.storefront.Load()
	}
	return 0
}
