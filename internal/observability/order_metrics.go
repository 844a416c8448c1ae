package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Cache type labels for hit/miss counters.
const (
	CacheTypeIdempotency = "idempotency"
	CacheTypeOrderLookup = "order_lookup"
)

// OrderMetrics collects order-workflow metrics. It is injected into the
// services that use it and scoped to the registerer it was built with, so
// tests can register against their own registry.
type OrderMetrics struct {
	ordersCreated *prometheus.CounterVec
	orderAmount   prometheus.Histogram
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	factory := promauto.With(reg)
	return &OrderMetrics{
		ordersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pigbank_orders",
				Name:      "orders_created_total",
				Help:      "Total number of orders created",
			},
			[]string{"status"},
		),
		orderAmount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pigbank_orders",
				Name:      "order_amount",
				Help:      "Order amount distribution",
				Buckets:   prometheus.ExponentialBuckets(0.01, 10, 8),
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pigbank_orders",
				Name:      "cache_hits_total",
				Help:      "Total cache hits",
			},
			[]string{"cache_type"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pigbank_orders",
				Name:      "cache_misses_total",
				Help:      "Total cache misses",
			},
			[]string{"cache_type"},
		),
	}
}

func (m *OrderMetrics) OrderCreated(status string) {
	m.ordersCreated.WithLabelValues(status).Inc()
}

func (m *OrderMetrics) ObserveAmount(amount decimal.Decimal) {
	m.orderAmount.Observe(amount.InexactFloat64())
}

func (m *OrderMetrics) CacheHit(cacheType string) {
	m.cacheHits.WithLabelValues(cacheType).Inc()
}

func (m *OrderMetrics) CacheMiss(cacheType string) {
	m.cacheMisses.WithLabelValues(cacheType).Inc()
}
