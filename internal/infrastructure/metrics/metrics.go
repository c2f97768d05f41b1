package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Collector records ledger and HTTP metrics
type Collector interface {
	RecordOperationDuration(operation string, d time.Duration)
	RecordOperationResult(operation, result string)
	RecordVolume(operation, currency string, amount decimal.Decimal)
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
	RecordPendingExpired(n int)
	RecordHTTPRequest(method, route string, status int, d time.Duration)
}

// NoopCollector discards everything
type NoopCollector struct{}

func (NoopCollector) RecordOperationDuration(string, time.Duration)        {}
func (NoopCollector) RecordOperationResult(string, string)                 {}
func (NoopCollector) RecordVolume(string, string, decimal.Decimal)         {}
func (NoopCollector) RecordCacheHit(string)                                {}
func (NoopCollector) RecordCacheMiss(string)                               {}
func (NoopCollector) RecordPendingExpired(int)                             {}
func (NoopCollector) RecordHTTPRequest(string, string, int, time.Duration) {}

// PrometheusCollector exports metrics through a prometheus registerer
type PrometheusCollector struct {
	operationDuration *prometheus.HistogramVec
	operationResults  *prometheus.CounterVec
	volume            *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	pendingExpired    prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewPrometheusCollector creates the collector and registers it on reg
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spark",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operationResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spark",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by result.",
		}, []string{"operation", "result"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spark",
			Subsystem: "ledger",
			Name:      "volume_total",
			Help:      "Absolute amount moved by successful ledger operations.",
		}, []string{"operation", "currency"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spark",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by outcome.",
		}, []string{"cache", "outcome"}),
		pendingExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spark",
			Subsystem: "ledger",
			Name:      "pending_expired_total",
			Help:      "Pending transactions failed by the expiry job.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spark",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spark",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, col := range []prometheus.Collector{
		c.operationDuration, c.operationResults, c.volume, c.cacheLookups,
		c.pendingExpired, c.httpRequests, c.httpDuration,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *PrometheusCollector) RecordOperationDuration(operation string, d time.Duration) {
	c.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordOperationResult(operation, result string) {
	c.operationResults.WithLabelValues(operation, result).Inc()
}

func (c *PrometheusCollector) RecordVolume(operation, currency string, amount decimal.Decimal) {
	f, _ := amount.Abs().Float64()
	c.volume.WithLabelValues(operation, currency).Add(f)
}

func (c *PrometheusCollector) RecordCacheHit(cache string) {
	c.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

func (c *PrometheusCollector) RecordCacheMiss(cache string) {
	c.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

func (c *PrometheusCollector) RecordPendingExpired(n int) {
	if n > 0 {
		c.pendingExpired.Add(float64(n))
	}
}

func (c *PrometheusCollector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
