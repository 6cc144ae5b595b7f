package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrDisabled marks an optional dependency that is not configured. It does not fail readiness.
var ErrDisabled = errors.New("disabled")

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness, e.g. to drain traffic during shutdown.
func SetReady(v bool) { ready.Store(v) }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingStorefront(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker           Checker
	StorefrontTimeout time.Duration
	RedisTimeout      time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	switch {
	case !ready.Load():
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	case h.Checker == nil:
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unconfigured"})
		return
	}
	ctx := r.Context()
	storefront := probe(h.Checker.PingStorefront(ctx, orDefault(h.StorefrontTimeout, time.Second)))
	redis := probe(h.Checker.PingRedis(ctx, orDefault(h.RedisTimeout, 300*time.Millisecond)))
	status := map[string]string{
		"storefront": storefront,
		"redis":      redis,
	}
	code := http.StatusOK
	if !healthy(storefront) || !healthy(redis) {
		code = http.StatusServiceUnavailable
	}
	writeStatus(w, code, status)
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func probe(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDisabled):
		return ErrDisabled.Error()
	default:
		return err.Error()
	}
}

func healthy(status string) bool {
	return status == "ok" || status == ErrDisabled.Error()
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
