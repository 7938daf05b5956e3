package memoize

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup outcomes recorded by Metrics.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupBypass  = "bypass"
	LookupRefresh = "refresh"
)

// Metrics records memoized call activity. A nil *Metrics records nothing.
type Metrics struct {
	lookups  *prometheus.CounterVec
	writes   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg under the
// memoize_ prefix.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lookups_total",
			Help: "Memoized calls by storage lookup outcome.",
		}, []string{"function", "result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "writes_total",
			Help: "Storage writes issued by memoized calls.",
		}, []string{"function", "op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Memoized call failures by stage.",
		}, []string{"function", "stage"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "call_duration_seconds",
			Help:    "Duration of memoized calls, storage included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"function"}),
	}

	reg = prometheus.WrapRegistererWithPrefix("memoize_", reg)
	for _, c := range []prometheus.Collector{m.lookups, m.writes, m.errors, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) lookup(fn, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(fn, result).Inc()
}

func (m *Metrics) write(fn, op string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(fn, op).Inc()
}

func (m *Metrics) fail(fn, stage string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(fn, stage).Inc()
}

func (m *Metrics) observe(fn string, start time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(fn).Observe(time.Since(start).Seconds())
}
