// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named probes reporting the state of event bases on demand.

package control

import "sync"

// DebugProbes maps probe names to the functions producing their values.
type DebugProbes struct {
	mu     sync.Mutex
	probes map[string]func() any
}

// NewDebugProbes creates an empty probe set.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: make(map[string]func() any)}
}

// RegisterProbe installs fn under name, replacing an earlier probe. A nil
// fn removes the name.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	if fn == nil {
		dp.UnregisterProbe(name)
		return
	}
	dp.mu.Lock()
	dp.probes[name] = fn
	dp.mu.Unlock()
}

// UnregisterProbe drops name; unknown names are ignored.
func (dp *DebugProbes) UnregisterProbe(name string) {
	dp.mu.Lock()
	delete(dp.probes, name)
	dp.mu.Unlock()
}

// DumpState evaluates every probe. The probes run outside the lock, so a
// probe may itself register or drop probes.
//
// Probes of an event base read loop state without locking; call DumpState
// from the loop goroutine (for example from a timer callback).
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.Lock()
	fns := make(map[string]func() any, len(dp.probes))
	for name, fn := range dp.probes {
		fns[name] = fn
	}
	dp.mu.Unlock()

	out := make(map[string]any, len(fns))
	for name, fn := range fns {
		out[name] = fn()
	}
	return out
}
