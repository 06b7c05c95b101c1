package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/careplane/careplane/pkg/constants"
)

// Metrics manages the Prometheus metrics for the trust boundary.
type Metrics struct {
	IsolationDecisions *prometheus.CounterVec
	ThreatDetections   *prometheus.CounterVec
	TenantCacheEvents  *prometheus.CounterVec
	AggregationLatency *prometheus.HistogramVec
	AggregationResults *prometheus.CounterVec
	RateLimitHits      *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics on the given registerer. Pass
// a fresh registry in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := func(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(opts, labels)
		reg.MustRegister(c)
		return c
	}

	aggregationLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careplane_aggregation_latency_seconds",
			Help:    "Latency of multi-jurisdiction compliance aggregation runs.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
	reg.MustRegister(aggregationLatency)

	return &Metrics{
		IsolationDecisions: factory(prometheus.CounterOpts{
			Name: "careplane_isolation_decisions_total",
			Help: "Total isolation decisions by outcome.",
		}, []string{"tenant_id", "outcome"}),
		ThreatDetections: factory(prometheus.CounterOpts{
			Name: "careplane_threat_detections_total",
			Help: "Total threat pattern detections by type and severity.",
		}, []string{"violation_type", "severity", "blocked"}),
		TenantCacheEvents: factory(prometheus.CounterOpts{
			Name: "careplane_tenant_cache_events_total",
			Help: "Tenant context cache hits and misses.",
		}, []string{"result"}),
		AggregationLatency: aggregationLatency,
		AggregationResults: factory(prometheus.CounterOpts{
			Name: "careplane_aggregation_results_total",
			Help: "Compliance aggregation outcomes.",
		}, []string{"result"}),
		RateLimitHits: factory(prometheus.CounterOpts{
			Name: "careplane_rate_limit_hits_total",
			Help: "Total assistant rate limit rejections.",
		}, []string{"tenant_id"}),
	}
}

// RecordIsolationDecision records one isolation decision.
func (m *Metrics) RecordIsolationDecision(tenantID string, valid bool) {
	outcome := "allowed"
	if !valid {
		outcome = "denied"
	}
	m.IsolationDecisions.WithLabelValues(tenantID, outcome).Inc()
}

// RecordThreatDetection records one threat finding.
func (m *Metrics) RecordThreatDetection(vType constants.ViolationType, severity constants.Severity, blocked bool) {
	blockedLabel := "false"
	if blocked {
		blockedLabel = "true"
	}
	m.ThreatDetections.WithLabelValues(string(vType), string(severity), blockedLabel).Inc()
}

// RecordCacheEvent records a tenant cache hit or miss.
func (m *Metrics) RecordCacheEvent(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.TenantCacheEvents.WithLabelValues(result).Inc()
}

// RecordAggregation records one aggregation run.
func (m *Metrics) RecordAggregation(result string, duration time.Duration) {
	m.AggregationResults.WithLabelValues(result).Inc()
	m.AggregationLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordRateLimitHit records one rejected assistant request.
func (m *Metrics) RecordRateLimitHit(tenantID string) {
	m.RateLimitHits.WithLabelValues(tenantID).Inc()
}
