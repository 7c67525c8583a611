// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics of event bases: gauges overwritten on every publish and
// monotonically growing counters. Safe for use from any goroutine.

package control

import "sync"

// MetricsRegistry keeps gauges and counters under one lock.
type MetricsRegistry struct {
	mu       sync.Mutex
	gauges   map[string]any
	counters map[string]int64
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		gauges:   make(map[string]any),
		counters: make(map[string]int64),
	}
}

// Set stores the current value of a gauge.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.gauges[key] = value
	mr.mu.Unlock()
}

// Add grows a counter by delta, creating it at zero.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.mu.Lock()
	mr.counters[key] += delta
	mr.mu.Unlock()
}

// Snapshot copies gauges and counters into one map. Counters are int64.
func (mr *MetricsRegistry) Snapshot() map[string]any {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	out := make(map[string]any, len(mr.gauges)+len(mr.counters))
	for k, v := range mr.gauges {
		out[k] = v
	}
	for k, n := range mr.counters {
		out[k] = n
	}
	return out
}
