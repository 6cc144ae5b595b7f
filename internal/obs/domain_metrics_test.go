package obs_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/obs"
)

func TestDomainMetricsObserve(t *testing.T) {
	obs.MustRegisterDomainMetrics("toko_pricing_test", prometheus.NewRegistry())

	obs.ObserveQuote("flat", nil)
	obs.ObserveQuote("flat", errors.New("boom"))
	obs.ObserveCartMutation("replace_dimensions", errors.New("partial"))
	obs.ObservePartialReplace()
	obs.ObserveSnapshotCache("product", true)
	obs.ObserveSnapshotCache("product", false)
	obs.ObserveSnapshotCache("product", false)

	require.Equal(t, 1.0, testutil.ToFloat64(obs.QuotesTotal.WithLabelValues("flat", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.QuotesTotal.WithLabelValues("flat", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.CartMutationsTotal.WithLabelValues("replace_dimensions", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.CartPartialReplaceTotal))
	require.Equal(t, 2.0, testutil.ToFloat64(obs.SnapshotCacheTotal.WithLabelValues("product", "miss")))
}
