// Package telemetry exposes collageview metrics through prometheus.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/stockcharts/collageview/internal/boundaries/out"
	"github.com/stockcharts/collageview/internal/domain"
)

const namespace = "collageview"

// Metrics holds the viewer instruments and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	ViewerMounts   prometheus.Counter
	ViewerSettles  *prometheus.CounterVec
	ViewerDiscards prometheus.Counter
	FetchDuration  *prometheus.HistogramVec
	LiveSessions   prometheus.GaugeFunc
}

// NewMetrics creates and registers all instruments on a private registry.
// sessions may be nil; it reports the live session count when set.
func NewMetrics(sessions func() int) (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ViewerMounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "viewer_mounts_total",
			Help:      "Total number of mounted viewers",
		}),
		ViewerSettles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "viewer_settles_total",
			Help:      "Total number of settled viewer fetches by outcome",
		}, []string{"phase"}),
		ViewerDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "viewer_discarded_results_total",
			Help:      "Fetch results dropped because the viewer was unmounted first",
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "viewer_fetch_duration_seconds",
			Help:      "Time from mount to settle",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"phase"}),
	}

	toRegister := []prometheus.Collector{
		m.ViewerMounts,
		m.ViewerSettles,
		m.ViewerDiscards,
		m.FetchDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}

	if sessions != nil {
		m.LiveSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_sessions",
			Help:      "Mounted viewers waiting for their fragment request",
		}, func() float64 { return float64(sessions()) })
		toRegister = append(toRegister, m.LiveSessions)
	}

	for _, c := range toRegister {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveMount counts a mounted viewer.
func (m *Metrics) ObserveMount() {
	m.ViewerMounts.Inc()
}

// ObserveSettle records the outcome and duration of a settled fetch.
func (m *Metrics) ObserveSettle(phase domain.Phase, elapsed time.Duration) {
	m.ViewerSettles.WithLabelValues(string(phase)).Inc()
	m.FetchDuration.WithLabelValues(string(phase)).Observe(elapsed.Seconds())
}

// ObserveDiscard counts a result dropped after unmount.
func (m *Metrics) ObserveDiscard() {
	m.ViewerDiscards.Inc()
}

var _ out.ViewerObserver = (*Metrics)(nil)
