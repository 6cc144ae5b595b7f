package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesTotal counts computed quotes by pricing mode and outcome.
	QuotesTotal *prometheus.CounterVec
	// QuoteBatchSize records the number of items per batch quote request.
	QuoteBatchSize prometheus.Histogram
	// CartMutationsTotal counts cart reconciliation outcomes by operation.
	CartMutationsTotal *prometheus.CounterVec
	// CartPartialReplaceTotal counts dimension replaces that deleted the old line but failed to create the new one.
	CartPartialReplaceTotal prometheus.Counter
	// SnapshotCacheTotal counts snapshot cache lookups by kind and outcome.
	SnapshotCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Count of quote computations by pricing mode and outcome.",
		}, []string{"mode", "result"})
		QuoteBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_batch_size",
			Help:      "Number of items per batch quote request.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		})
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart reconciliation outcomes by operation.",
		}, []string{"op", "result"})
		CartPartialReplaceTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_partial_replace_total",
			Help:      "Number of dimension replaces left half applied.",
		})
		SnapshotCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_total",
			Help:      "Count of snapshot cache lookups by kind and outcome.",
		}, []string{"kind", "result"})

		mustRegisterCollector(reg, QuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotesTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteBatchSize, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuoteBatchSize = v
			}
		})
		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, CartPartialReplaceTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartPartialReplaceTotal = v
			}
		})
		mustRegisterCollector(reg, SnapshotCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SnapshotCacheTotal = v
			}
		})
	})
}

// ObserveQuote records a quote outcome. It is a no-op before registration.
func ObserveQuote(mode string, err error) {
	if QuotesTotal == nil {
		return
	}
	QuotesTotal.WithLabelValues(mode, resultLabel(err)).Inc()
}

// ObserveCartMutation records a cart operation outcome. It is a no-op before registration.
func ObserveCartMutation(op string, err error) {
	if CartMutationsTotal == nil {
		return
	}
	CartMutationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObservePartialReplace counts a half applied dimension replace.
func ObservePartialReplace() {
	if CartPartialReplaceTotal == nil {
		return
	}
	CartPartialReplaceTotal.Inc()
}

// ObserveSnapshotCache records a cache hit or miss for a snapshot kind.
func ObserveSnapshotCache(kind string, hit bool) {
	if SnapshotCacheTotal == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	SnapshotCacheTotal.WithLabelValues(kind, result).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
