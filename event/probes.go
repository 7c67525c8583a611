// File: event/probes.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Metrics publication and debug probes.

package event

import "github.com/momentics/hioload-ev/control"

// publish copies the loop gauges into the metrics registry, if any.
func (b *Base) publish() {
	if b.metrics == nil {
		return
	}
	b.metrics.Set("event.registered", b.registered)
	b.metrics.Set("event.active", b.ActiveCount())
	b.metrics.Set("event.timers", b.timers.Len())
	b.metrics.Set("event.backend", b.desc.Name)
}

// count grows the iteration and callback counters.
func (b *Base) count(iterations, callbacks uint64) {
	if b.metrics == nil {
		return
	}
	b.metrics.Add("event.iterations", int64(iterations))
	b.metrics.Add("event.callbacks", int64(callbacks))
}

// RegisterProbes exposes the base's state through dp until Close. The
// probes read loop state without synchronization and belong on the loop
// goroutine.
func (b *Base) RegisterProbes(dp *control.DebugProbes) {
	probes := map[string]func() any{
		"event.id":         func() any { return b.id.String() },
		"event.backend":    func() any { return b.desc.Name },
		"event.priorities": func() any { return b.Priorities() },
		"event.registered": func() any { return b.registered },
		"event.active":     func() any { return b.ActiveCount() },
		"event.timers":     func() any { return b.timers.Len() },
		"event.signals": func() any {
			out := make([]int, 0, len(b.sigEvents))
			for sig := range b.sigEvents {
				out = append(out, int(sig))
			}
			return out
		},
	}
	b.unregisterProbes()
	for name, fn := range probes {
		dp.RegisterProbe(name, fn)
		b.probeNames = append(b.probeNames, name)
	}
	b.probes = dp
}

func (b *Base) unregisterProbes() {
	if b.probes == nil {
		return
	}
	for _, name := range b.probeNames {
		b.probes.UnregisterProbe(name)
	}
	b.probes, b.probeNames = nil, nil
}
