package metrics

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	spawnTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "easyd",
			Name:      "spawn_total",
			Help:      "Number of spawn attempts by result (ok or error).",
		}, []string{"result"},
	)
	terminateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "easyd",
			Name:      "terminate_total",
			Help:      "Number of terminate calls by outcome.",
		}, []string{"outcome"},
	)
	terminateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "easyd",
			Name:      "terminate_duration_seconds",
			Help:      "Wall time of terminate calls, grace period included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 2.5, 5, 10},
		},
	)
	daemonUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "easyd",
			Subsystem: "daemon",
			Name:      "up",
			Help:      "1 when the registered daemon's pid is alive and matches its program.",
		}, []string{"name"},
	)
	daemonRSS = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "easyd",
			Subsystem: "daemon",
			Name:      "resident_memory_bytes",
			Help:      "Resident set size of the running daemon.",
		}, []string{"name"},
	)
)

// Register registers all metrics with the provided registerer.
// Registering twice with the same registerer is not an error.
func Register(r prometheus.Registerer) error {
	cs := []prometheus.Collector{spawnTotal, terminateTotal, terminateDuration, daemonUp, daemonRSS}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// NewRegistry returns a private registry with the easyd collectors on it.
// The CLI is short-lived, so it does not use the global default registry.
func NewRegistry() (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// WriteTextfile dumps g in the node-exporter textfile collector format.
// The file is written to a temp name and renamed into place.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

// Below are lightweight helpers used by the CLI to record metrics.
// They no-op if Register hasn't been called.

func IncSpawn(err error) {
	if !regOK.Load() {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	spawnTotal.WithLabelValues(result).Inc()
}

// ObserveTerminate records one terminate call. outcome is a short label such
// as stopped, killed, not_found, mismatch or error.
func ObserveTerminate(outcome string, d time.Duration) {
	if !regOK.Load() {
		return
	}
	terminateTotal.WithLabelValues(outcome).Inc()
	terminateDuration.Observe(d.Seconds())
}

func SetDaemonUp(name string, up bool) {
	if !regOK.Load() {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	daemonUp.WithLabelValues(name).Set(v)
}

func SetDaemonRSS(name string, rss uint64) {
	if regOK.Load() {
		daemonRSS.WithLabelValues(name).Set(float64(rss))
	}
}
