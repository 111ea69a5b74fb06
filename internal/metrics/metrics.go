// Package metrics is the side-channel sink for counters, gauges and
// timings. Recorders never influence control flow.
package metrics

import (
	"log/slog"
	"sync"
	"time"
)

// Recorder receives operational measurements.
type Recorder interface {
	IncCounter(name string)
	SetGauge(name string, value float64)
	ObserveDuration(name string, d time.Duration)
}

// LogRecorder emits measurements as structured log lines.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder builds a recorder over the structured logger.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) IncCounter(name string) {
	r.logger.Debug("metric", "type", "counter", "name", name)
}

func (r *LogRecorder) SetGauge(name string, value float64) {
	r.logger.Debug("metric", "type", "gauge", "name", name, "value", value)
}

func (r *LogRecorder) ObserveDuration(name string, d time.Duration) {
	r.logger.Debug("metric", "type", "timing", "name", name, "ms", d.Milliseconds())
}

// MemoryRecorder collects measurements for assertions in tests.
type MemoryRecorder struct {
	mu       sync.Mutex
	Counters map[string]int
	Gauges   map[string]float64
}

// NewMemoryRecorder builds an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{Counters: make(map[string]int), Gauges: make(map[string]float64)}
}

func (r *MemoryRecorder) IncCounter(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Counters[name]++
}

func (r *MemoryRecorder) SetGauge(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Gauges[name] = value
}

func (r *MemoryRecorder) ObserveDuration(string, time.Duration) {}

// Gauge returns the last value set for name.
func (r *MemoryRecorder) Gauge(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Gauges[name]
}

// Counter returns the current count for name.
func (r *MemoryRecorder) Counter(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Counters[name]
}
