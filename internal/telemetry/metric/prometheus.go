package metric

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tunnelmgr"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration prometheus.Histogram
	RegistryTunnels prometheus.Gauge
	RegistrySaves   *prometheus.CounterVec
}

// NewRegistry creates a registry with every tunnelmgr metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Connection attempts by terminal outcome.",
		}, []string{"outcome"}),
		AttemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Wall time from dial to terminal state, including credential prompts.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		RegistryTunnels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_tunnels",
			Help:      "Number of tunnel definitions in the registry.",
		}),
		RegistrySaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_saves_total",
			Help:      "Registry persist operations by result.",
		}, []string{"result"}),
	}

	r.registry.MustRegister(
		r.AttemptsTotal,
		r.AttemptDuration,
		r.RegistryTunnels,
		r.RegistrySaves,
	)
	return r
}

// ObserveAttempt records one terminal connection attempt.
func (r *Registry) ObserveAttempt(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.AttemptsTotal.WithLabelValues(outcome).Inc()
	r.AttemptDuration.Observe(d.Seconds())
}

// SetTunnels sets the registry size gauge.
func (r *Registry) SetTunnels(n int) {
	if r == nil {
		return
	}
	r.RegistryTunnels.Set(float64(n))
}

// ObserveSave records a registry persist. err == nil counts as "ok".
func (r *Registry) ObserveSave(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.RegistrySaves.WithLabelValues(result).Inc()
}

// Gatherer exposes the underlying registry, mostly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes every metric to path in text exposition format.
// The write goes through a temporary file so the collector never sees a
// partial file.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metric: create dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metric: write textfile: %w", err)
	}
	return nil
}
