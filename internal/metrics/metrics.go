// Package metrics tracks fleet size and worker launch outcomes.
//
// Gauges and counters are exported through prometheus. Launch durations are
// additionally kept in HDR histograms so the CLI can print exact percentiles
// after a scale operation without a prometheus server.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	prefix = "simfleet_"

	typeLabel   = "type"
	resultLabel = "result"

	resultSuccess = "success"
	resultFailure = "failure"
)

// Histogram range: 1 microsecond to 1 hour, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// FleetMetrics is safe for concurrent use. It implements prometheus.Collector.
type FleetMetrics struct {
	agents   prometheus.Gauge
	workers  *prometheus.GaugeVec
	launches *prometheus.CounterVec

	allMetrics []prometheus.Collector

	mu        sync.Mutex
	latency   *hdrhistogram.Histogram
	latencyBy map[string]*hdrhistogram.Histogram
}

// New creates an empty set of fleet metrics.
func New() *FleetMetrics {
	agents := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "agents",
			Help: "Number of registered agents",
		},
	)
	workers := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "workers",
			Help: "Number of registered workers by worker type",
		},
		[]string{typeLabel},
	)
	launches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "worker_launches_total",
			Help: "Worker launch attempts by worker type and result",
		},
		[]string{typeLabel, resultLabel},
	)
	return &FleetMetrics{
		agents:     agents,
		workers:    workers,
		launches:   launches,
		allMetrics: []prometheus.Collector{agents, workers, launches},
		latency:    hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		latencyBy:  make(map[string]*hdrhistogram.Histogram),
	}
}

func (m *FleetMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range m.allMetrics {
		metric.Describe(ch)
	}
}

func (m *FleetMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, metric := range m.allMetrics {
		metric.Collect(ch)
	}
}

// ObserveFleet sets the fleet size gauges. Worker types missing from
// typeCounts are reset, so removed workers do not linger in the output.
func (m *FleetMetrics) ObserveFleet(agentCount int, typeCounts map[string]int) {
	m.agents.Set(float64(agentCount))
	m.workers.Reset()
	for workerType, count := range typeCounts {
		m.workers.WithLabelValues(workerType).Set(float64(count))
	}
}

// RecordLaunch records one launch attempt. Only successful launches feed the
// latency histograms.
func (m *FleetMetrics) RecordLaunch(workerType string, duration time.Duration, err error) {
	if err != nil {
		m.launches.WithLabelValues(workerType, resultFailure).Inc()
		return
	}
	m.launches.WithLabelValues(workerType, resultSuccess).Inc()

	micros := duration.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}

	// RecordValue is not thread-safe.
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.latency.RecordValue(micros)
	hist, ok := m.latencyBy[workerType]
	if !ok {
		hist = hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
		m.latencyBy[workerType] = hist
	}
	_ = hist.RecordValue(micros)
}

// LatencyStats summarizes launch durations.
type LatencyStats struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

func statsOf(hist *hdrhistogram.Histogram) LatencyStats {
	return LatencyStats{
		Count: hist.TotalCount(),
		Min:   time.Duration(hist.Min()) * time.Microsecond,
		Max:   time.Duration(hist.Max()) * time.Microsecond,
		Mean:  time.Duration(hist.Mean()) * time.Microsecond,
		P50:   time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
		P95:   time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:   time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
	}
}

// LaunchLatency returns the latency summary over all successful launches.
func (m *FleetMetrics) LaunchLatency() LatencyStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return statsOf(m.latency)
}

// LaunchLatencyByType returns a latency summary per worker type.
func (m *FleetMetrics) LaunchLatencyByType() map[string]LatencyStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]LatencyStats, len(m.latencyBy))
	for workerType, hist := range m.latencyBy {
		result[workerType] = statsOf(hist)
	}
	return result
}

// WriteTextfile writes the prometheus metrics to path in the text exposition
// format, for pickup by a node exporter textfile collector.
func (m *FleetMetrics) WriteTextfile(path string) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(m); err != nil {
		return errors.WithStack(err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.Wrapf(err, "writing metrics to %s", path)
	}
	return nil
}
