// File: event/loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The dispatch loop: timeout selection, backend wait, timer expiry and the
// priority-ordered drain.

package event

import (
	"errors"
	"time"

	"github.com/momentics/hioload-ev/api"
	"github.com/momentics/hioload-ev/internal/minheap"
)

// Result is how a loop call ended without error.
type Result int

const (
	// Completed: the iteration ran, or termination was requested.
	Completed Result = iota
	// NoEvents: nothing registered and nothing active.
	NoEvents
)

func (r Result) String() string {
	if r == NoEvents {
		return "no-events"
	}
	return "completed"
}

// LoopFlags modify Loop.
type LoopFlags int

const (
	// LoopOnce runs a single, possibly blocking, iteration.
	LoopOnce LoopFlags = 1 << iota
	// LoopNonBlock runs a single iteration that never waits.
	LoopNonBlock
)

type iterState int

const (
	stRan iterState = iota
	stTerminated
	stNoEvents
)

// DispatchOnce runs one iteration.
func (b *Base) DispatchOnce() (Result, error) { return b.Loop(LoopOnce) }

// Run iterates until termination is requested, nothing is left to wait
// for, or the backend fails.
func (b *Base) Run() (Result, error) { return b.Loop(0) }

// Loop iterates according to flags.
func (b *Base) Loop(flags LoopFlags) (Result, error) {
	if b.closed {
		return Completed, api.ErrBaseClosed
	}
	for {
		st, err := b.iterate(flags&LoopNonBlock != 0)
		if err != nil {
			return Completed, err
		}
		switch {
		case st == stNoEvents:
			return NoEvents, nil
		case st == stTerminated:
			return Completed, nil
		case flags&(LoopOnce|LoopNonBlock) != 0:
			return Completed, nil
		}
	}
}

// Terminate asks the loop to stop. A graceful request lets the current
// drain finish and is observed at the top of the next iteration; an
// immediate one stops after the running callback returns.
func (b *Base) Terminate(immediate bool) {
	if immediate {
		b.gotBreak = true
		return
	}
	b.gotTerm = true
}

// LoopExit requests graceful termination once after has elapsed.
func (b *Base) LoopExit(after time.Duration) error {
	if after < 0 {
		b.Terminate(false)
		return nil
	}
	ev := NewTimer(func(*Event, api.Flags) { b.gotTerm = true }, nil)
	ev.internal = true
	ev.priority, ev.prioritySet = 0, true
	return b.Add(ev, after)
}

func (b *Base) iterate(nonblock bool) (iterState, error) {
	b.refreshNow()
	b.inLoop = true
	defer func() { b.inLoop = false }()

	if b.closed {
		return stRan, api.ErrBaseClosed
	}
	if b.gotBreak {
		b.gotBreak = false
		return stTerminated, nil
	}
	if b.gotTerm {
		b.gotTerm = false
		return stTerminated, nil
	}
	if b.registered == 0 && b.ActiveCount() == 0 {
		return stNoEvents, nil
	}
	if b.backend == nil {
		return stRan, api.BackendError(b.desc.Name, "dispatch", api.ErrNoBackend)
	}

	b.iter++
	timeout := b.pollTimeout(nonblock)
	if err := b.backend.Dispatch((*activator)(b), timeout); err != nil {
		if !errors.Is(err, api.ErrBackendCorrupt) {
			b.log.Printf("dispatch: %v", err)
			return stRan, api.BackendError(b.desc.Name, "dispatch", err)
		}
		if ferr := b.fallback(err); ferr != nil {
			return stRan, ferr
		}
	}
	if b.gotBreak {
		b.gotBreak = false
		return stTerminated, nil
	}

	ran := b.callbacks
	b.expireTimers()
	b.processActive()
	b.count(1, b.callbacks-ran)
	b.publish()

	if b.gotBreak {
		b.gotBreak = false
		return stTerminated, nil
	}
	return stRan, nil
}

// pollTimeout never blocks while work is queued.
func (b *Base) pollTimeout(nonblock bool) time.Duration {
	if nonblock || b.ActiveCount() > 0 {
		return 0
	}
	_, deadline, ok := b.timers.Peek()
	if !ok {
		return NoTimeout
	}
	if wait := deadline.Sub(b.now); wait > 0 {
		return wait
	}
	return 0
}

// expireTimers moves every entry due at the cached now into the queues.
func (b *Base) expireTimers() {
	for {
		_, deadline, ok := b.timers.Peek()
		if !ok || deadline.After(b.now) {
			return
		}
		ev, _, _ := b.timers.Pop()
		ev.timer = minheap.Handle{}
		b.activate(ev, api.Timeout)
	}
}

// processActive drains the queues from priority 0 upward. After each
// level it starts again from the top, so work activated by a callback at a
// higher priority runs before lower levels. An event runs at most once per
// iteration; a repeat activation waits for the next one.
func (b *Base) processActive() {
	for !b.gotBreak {
		p := b.active.Highest()
		if p < 0 {
			break
		}
		b.active.Drain(p, func(ev *Event) bool {
			if ev.ranIter == b.iter {
				b.park(ev)
				return true
			}
			b.invoke(ev)
			return !b.gotBreak
		})
	}
	parked := b.parked
	b.parked = nil
	for _, ev := range parked {
		if b.unpark(ev) {
			b.active.Push(ev, ev.Priority())
		}
	}
}

// invoke consumes ev's activation and runs its callback. One-shot events
// are deleted first so the callback may re-add them; persistent events
// with a timeout are re-armed.
func (b *Base) invoke(ev *Event) {
	res := ev.res
	ev.res = 0
	ev.ranIter = b.iter
	if !ev.persistent() {
		if err := b.Del(ev); err != nil {
			b.log.Printf("del before callback: %v", err)
		}
	} else if ev.inserted && ev.interval >= 0 {
		b.schedule(ev, ev.interval)
	}
	b.callbacks++
	if ev.cb != nil {
		ev.cb(ev, res)
	}
}
