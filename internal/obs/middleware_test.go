package obs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("toko_pricing", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/quotes"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/v1/quotes", "201")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPMetricsStorefrontFanout(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("toko_pricing", nil, registry)

	r := chi.NewRouter()
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Post("/api/v1/quotes/batch", func(w http.ResponseWriter, r *http.Request) {
		obs.CountStorefrontCall(r.Context())
		obs.CountStorefrontCall(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/quotes/batch", nil))

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/v1/quotes/batch", "200")))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.Fanout))
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("toko_pricing", nil, registry)
	second := obs.NewHTTPMetrics("toko_pricing", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestRequestScope(t *testing.T) {
	ctx := context.Background()
	obs.CountStorefrontCall(ctx)
	require.Zero(t, obs.StorefrontCalls(ctx))
	require.Empty(t, obs.RoutePatternFromContext(ctx))

	ctx = obs.WithRequestScope(ctx)
	require.Equal(t, ctx, obs.WithRequestScope(ctx))
	obs.CountStorefrontCall(ctx)
	obs.WithRoutePattern(ctx, "/api/v1/cart")
	require.Equal(t, int64(1), obs.StorefrontCalls(ctx))
	require.Equal(t, "/api/v1/cart", obs.RoutePatternFromContext(ctx))
}

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	rec := obs.NewStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusTeapot)
	rec.WriteHeader(http.StatusOK)
	_, _ = rec.Write([]byte("ok"))
	require.Equal(t, http.StatusTeapot, rec.Status())
	require.Equal(t, int64(2), rec.BytesWritten())
	require.Same(t, rec, obs.NewStatusRecorder(rec))
}

func TestRequestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.With(obs.RoutePatternMiddleware).Get("/api/v1/products/{id}/quote", func(w http.ResponseWriter, r *http.Request) {
		obs.CountStorefrontCall(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/p1/quote", nil)
	req.Header.Set("Authorization", "Bearer abc")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "/api/v1/products/p1/quote", entry["path"])
	require.Equal(t, float64(http.StatusOK), entry["status"])
	require.Equal(t, "/api/v1/products/{id}/quote", entry["route"])
	require.Equal(t, float64(1), entry["storefront_calls"])
	require.Equal(t, true, entry["forwarded_auth"])
	require.NotEmpty(t, entry["request_id"])
	require.NotContains(t, buf.String(), "Bearer abc")
}

func TestParseBucketsCSV(t *testing.T) {
	require.Equal(t, []float64{5, 20}, obs.ParseBucketsCSV("5, x, -1, 20,"))
	require.Nil(t, obs.ParseBucketsCSV("  "))
}

func TestRequestLoggerLevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	handler := obs.RequestLogger{Logger: zerolog.New(&buf)}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "/api/v1/quotes", entry["route"])
	require.NotContains(t, entry, "storefront_calls")
}
