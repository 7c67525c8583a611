// File: event/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event registration: add, delete, manual activation and priorities.

package event

import (
	"time"

	"github.com/momentics/hioload-ev/api"
	"github.com/momentics/hioload-ev/control"
	"github.com/momentics/hioload-ev/internal/minheap"
)

// bind attaches ev to b on first use.
func (b *Base) bind(ev *Event) error {
	if ev == nil {
		return api.ConfigError("nil event", api.ErrInvalidArgument)
	}
	if ev.base == nil {
		ev.base = b
		return nil
	}
	if ev.base != b {
		return api.ConfigError("bind event", api.ErrForeignEvent)
	}
	return nil
}

func (b *Base) checkPriority(p int) error {
	if p < 0 || p >= b.Priorities() {
		return api.ConfigError("priority", api.ErrInvalidPriority).
			WithContext("priority", p).
			WithContext("queues", b.Priorities())
	}
	return nil
}

// Add registers ev. A timeout >= 0 arms (or re-arms) its deadline at
// now+timeout; NoTimeout leaves any existing deadline alone. Re-adding a
// registered event only refreshes the timeout.
func (b *Base) Add(ev *Event, timeout time.Duration) error {
	if b.closed {
		return api.ErrBaseClosed
	}
	if err := b.bind(ev); err != nil {
		return err
	}
	if ev.isSignal() && ev.isIO() {
		return api.ConfigError("signal event with read/write", api.ErrInvalidArgument)
	}
	if !ev.isSignal() && !ev.isIO() && timeout < 0 {
		return api.ConfigError("timer without timeout", api.ErrInvalidArgument)
	}
	if err := b.checkPriority(ev.Priority()); err != nil {
		return err
	}

	if !ev.inserted {
		switch {
		case ev.isSignal():
			if err := b.addSignal(ev); err != nil {
				return err
			}
		case ev.isIO():
			if ev.fd < 0 {
				return api.ConfigError("descriptor", api.ErrInvalidArgument).WithContext("fd", ev.fd)
			}
			if b.backend == nil {
				return api.BackendError(b.desc.Name, "add", api.ErrNoBackend)
			}
			if err := b.backend.Add(ev); err != nil {
				b.log.Printf("add fd=%d: %v", ev.fd, err)
				return api.BackendError(b.desc.Name, "add", err).WithContext("fd", ev.fd)
			}
		}
		ev.inserted = true
		b.events[ev] = struct{}{}
		if !ev.internal {
			b.registered++
		}
	}

	if timeout >= 0 {
		// an activation caused by the previous deadline is void now
		if ev.res&api.Timeout != 0 && b.isActive(ev) {
			ev.res &^= api.Timeout
			if ev.res == 0 {
				b.active.Remove(ev)
				b.unpark(ev)
			}
		}
		b.schedule(ev, timeout)
	}
	return nil
}

// schedule replaces ev's heap entry with one due at now+timeout.
func (b *Base) schedule(ev *Event, timeout time.Duration) {
	if ev.timer.Valid() {
		b.timers.Remove(ev.timer)
	}
	ev.interval = timeout
	ev.timer = b.timers.Push(b.Now().Add(timeout), ev)
}

// Del removes ev from every structure holding it. Deleting an unknown,
// foreign or already deleted event is a no-op. A backend failure is
// reported, but the event is gone from the base either way.
func (b *Base) Del(ev *Event) error {
	if ev == nil || ev.base != b {
		return nil
	}
	if ev.timer.Valid() {
		b.timers.Remove(ev.timer)
		ev.timer = minheap.Handle{}
	}
	ev.interval = NoTimeout
	removed := b.active.Remove(ev)
	if b.unpark(ev) || removed {
		ev.res = 0
	}
	if !ev.inserted {
		return nil
	}
	ev.inserted = false
	delete(b.events, ev)
	if !ev.internal {
		b.registered--
	}

	switch {
	case ev.isSignal():
		b.delSignal(ev)
	case ev.isIO() && b.backend != nil:
		if err := b.backend.Del(ev); err != nil {
			b.log.Printf("del fd=%d: %v", ev.fd, err)
			return api.BackendError(b.desc.Name, "del", err).WithContext("fd", ev.fd)
		}
	}
	return nil
}

// Activate queues ev as if res had happened. An event that is already
// active only accumulates res.
func (b *Base) Activate(ev *Event, res api.Flags) error {
	if err := b.bind(ev); err != nil {
		return err
	}
	if err := b.checkPriority(ev.Priority()); err != nil {
		return err
	}
	b.activate(ev, res)
	return nil
}

func (b *Base) activate(ev *Event, res api.Flags) {
	if b.isActive(ev) {
		ev.res |= res
		return
	}
	ev.res = res
	b.active.Push(ev, ev.Priority())
}

// isActive reports whether ev waits for its callback, queued or parked for
// the next iteration.
func (b *Base) isActive(ev *Event) bool {
	return ev.deferred || b.active.Contains(ev)
}

// park holds ev, which already ran in this iteration, until the drain ends.
func (b *Base) park(ev *Event) {
	ev.deferred = true
	b.parked = append(b.parked, ev)
	b.nparked++
}

func (b *Base) unpark(ev *Event) bool {
	if !ev.deferred {
		return false
	}
	ev.deferred = false
	b.nparked--
	return true
}

// activator is the mark-active hook handed to the backend.
type activator Base

func (a *activator) Activate(w api.Watch, res api.Flags) {
	b := (*Base)(a)
	ev, ok := w.(*Event)
	if !ok || ev.base != b || !ev.inserted {
		return
	}
	b.activate(ev, res)
}

// SetPriority assigns ev's priority. It fails while ev is active.
func (b *Base) SetPriority(ev *Event, p int) error {
	if err := b.bind(ev); err != nil {
		return err
	}
	if b.isActive(ev) {
		return api.ConfigError("set priority", api.ErrEventActive)
	}
	if err := b.checkPriority(p); err != nil {
		return err
	}
	ev.priority, ev.prioritySet = p, true
	return nil
}

// PriorityInit changes the number of priority queues. It fails while any
// event is active or when a registered event's priority would fall out of
// range.
func (b *Base) PriorityInit(n int) error {
	if n < 1 || n > control.MaxPriorities {
		return api.ConfigError("priority queues", api.ErrInvalidPriority).WithContext("queues", n)
	}
	if b.ActiveCount() > 0 {
		return api.ConfigError("priority queues", api.ErrEventActive)
	}
	for ev := range b.events {
		if ev.prioritySet && ev.priority >= n {
			return api.ConfigError("priority queues", api.ErrInvalidPriority).
				WithContext("fd", ev.fd).
				WithContext("priority", ev.priority)
		}
	}
	if !b.active.Resize(n) {
		return api.ConfigError("priority queues", api.ErrEventActive)
	}
	return nil
}

// Pending reports which of the conditions in what ev is waiting on or has
// already been activated for. The deadline is set when Timeout is asked
// for and armed.
func (b *Base) Pending(ev *Event, what api.Flags) (api.Flags, time.Time) {
	if ev == nil || ev.base != b {
		return 0, time.Time{}
	}
	var flags api.Flags
	if ev.inserted {
		flags |= ev.flags & (api.IO | api.Signal)
	}
	if b.isActive(ev) {
		flags |= ev.res
	}
	var deadline time.Time
	if d, ok := b.timers.Deadline(ev.timer); ok {
		flags |= api.Timeout
		if what&api.Timeout != 0 {
			deadline = d
		}
	}
	return flags & what, deadline
}

// Once schedules a one-shot callback on fd readiness or after timeout,
// whichever comes first. fd < 0 with no flags makes a plain timer.
func (b *Base) Once(fd int, flags api.Flags, timeout time.Duration, cb Callback, arg any) error {
	if flags&(api.Signal|api.Persist) != 0 {
		return api.ConfigError("once", api.ErrInvalidArgument).WithContext("flags", flags.String())
	}
	if flags&api.IO == 0 && timeout < 0 {
		timeout = 0
	}
	ev := New(fd, flags&api.IO, cb, arg)
	return b.Add(ev, timeout)
}
