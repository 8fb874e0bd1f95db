package observability

import (
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	upstreamErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	transfers       *prometheus.CounterVec
	invites         *prometheus.CounterVec
	matrixSaves     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_upstream_errors_total",
				Help: "Total failed calls to the society backend.",
			},
			[]string{"operation"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		transfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_bill_transfers_total",
				Help: "Bill transfers by outcome.",
			},
			[]string{"outcome"},
		),
		invites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_invitations_total",
				Help: "Invitation items by outcome.",
			},
			[]string{"outcome"},
		),
		matrixSaves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_matrix_saves_total",
				Help: "Service charge matrix saves by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeSent     = "sent"
	OutcomeFailed   = "failed"
)

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrUpstreamError increments the upstream error counter.
func (m *Metrics) IncrUpstreamError(operation string) {
	m.upstreamErrors.WithLabelValues(operation).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrTransfer counts a bill transfer attempt.
func (m *Metrics) IncrTransfer(outcome string) {
	m.transfers.WithLabelValues(outcome).Inc()
}

// AddInvites counts invitation items.
func (m *Metrics) AddInvites(sent, failed int) {
	m.invites.WithLabelValues(OutcomeSent).Add(float64(sent))
	m.invites.WithLabelValues(OutcomeFailed).Add(float64(failed))
}

// IncrMatrixSave counts a matrix save attempt.
func (m *Metrics) IncrMatrixSave(outcome string) {
	m.matrixSaves.WithLabelValues(outcome).Inc()
}

// Snapshot returns the counters for GET /v1/metrics/bfa.
func (m *Metrics) Snapshot() *domain.BFAMetrics {
	hits := sumCounter(m.cacheHits)
	misses := sumCounter(m.cacheMisses)
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.BFAMetrics{
		UpstreamErrors:     sumCounter(m.upstreamErrors),
		CacheHitRate:       hitRate,
		TransfersSucceeded: getCounterValue(m.transfers, OutcomeOK),
		TransfersRejected:  getCounterValue(m.transfers, OutcomeRejected),
		TransfersFailed:    getCounterValue(m.transfers, OutcomeFailed),
		InvitesSent:        getCounterValue(m.invites, OutcomeSent),
		InvitesFailed:      getCounterValue(m.invites, OutcomeFailed),
		MatrixSaves:        getCounterValue(m.matrixSaves, OutcomeOK),
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds up every label combination of a CounterVec.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil {
			total += m.Counter.GetValue()
		}
	}
	return total
}
