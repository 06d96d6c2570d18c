package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the client core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	gatewayErrors     *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	refreshes         *prometheus.CounterVec
	donations         prometheus.Counter
	donatedAmount     prometheus.Counter
	staleDiscards     prometheus.Counter
}

// LedgerSnapshot summarizes ledger activity for the local metrics
// endpoint, derived from the Prometheus counters.
type LedgerSnapshot struct {
	Refreshes       int64   `json:"refreshes"`
	RefreshFailures int64   `json:"refreshFailures"`
	StaleDiscards   int64   `json:"staleDiscards"`
	Donations       int64   `json:"donations"`
	DonatedAmount   float64 `json:"donatedAmount"`
	CacheHitRate    float64 `json:"cacheHitRate"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundconnect_operation_duration_seconds",
				Help:    "Duration of ledger operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		gatewayErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundconnect_gateway_errors_total",
				Help: "Total errors from the remote campaign service.",
			},
			[]string{"endpoint"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundconnect_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundconnect_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundconnect_refreshes_total",
				Help: "Total full campaign refreshes by outcome.",
			},
			[]string{"outcome"},
		),
		donations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fundconnect_donations_total",
				Help: "Total donations accepted by the ledger.",
			},
		),
		donatedAmount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fundconnect_donated_amount_total",
				Help: "Cumulative donated amount accepted by the ledger.",
			},
		),
		staleDiscards: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fundconnect_stale_refreshes_discarded_total",
				Help: "In-flight refresh results discarded because a newer refresh superseded them.",
			},
		),
	}
}

// RecordOperationDuration records the duration of a ledger operation.
func (m *Metrics) RecordOperationDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrGatewayError increments the remote error counter for an endpoint.
func (m *Metrics) IncrGatewayError(endpoint string) {
	m.gatewayErrors.WithLabelValues(endpoint).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrRefresh increments the refresh counter with an outcome label
// ("success", "error" or "stale").
func (m *Metrics) IncrRefresh(outcome string) {
	m.refreshes.WithLabelValues(outcome).Inc()
}

// IncrStaleDiscard counts a superseded in-flight refresh.
func (m *Metrics) IncrStaleDiscard() {
	m.staleDiscards.Inc()
}

// RecordDonation counts an accepted donation and its amount.
func (m *Metrics) RecordDonation(amount float64) {
	m.donations.Inc()
	m.donatedAmount.Add(amount)
}

// GetLedgerSnapshot returns current counter values for the
// GET /v1/metrics/ledger endpoint.
func (m *Metrics) GetLedgerSnapshot() *LedgerSnapshot {
	hits := getCounterValue(m.cacheHits, "detail")
	misses := getCounterValue(m.cacheMisses, "detail")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &LedgerSnapshot{
		Refreshes:       int64(getCounterValue(m.refreshes, "success")),
		RefreshFailures: int64(getCounterValue(m.refreshes, "error")),
		StaleDiscards:   int64(readCounter(m.staleDiscards)),
		Donations:       int64(readCounter(m.donations)),
		DonatedAmount:   readCounter(m.donatedAmount),
		CacheHitRate:    hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return readCounter(cv.WithLabelValues(label))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
