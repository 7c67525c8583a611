// File: event/event.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event: one wait condition (descriptor readiness, timer or signal) with its
// callback and priority.

package event

import (
	"syscall"
	"time"

	"github.com/momentics/hioload-ev/api"
	"github.com/momentics/hioload-ev/internal/minheap"
)

// NoTimeout passed to Add registers an event without a deadline.
const NoTimeout time.Duration = -1

// Callback runs on the loop goroutine when the event fires. res tells what
// happened: Read, Write, Timeout or Signal.
type Callback func(ev *Event, res api.Flags)

// Event is a registered wait condition. Its fields belong to the base it is
// added to; an event must not be shared between bases.
type Event struct {
	fd          int
	flags       api.Flags
	cb          Callback
	arg         any
	priority    int
	prioritySet bool

	base     *Base
	internal bool
	inserted bool
	deferred bool
	timer    minheap.Handle
	interval time.Duration
	res      api.Flags
	ranIter  uint64
	ncalls   uint32
}

// New creates an event on fd. flags select Read and/or Write, optionally
// with Persist; a Signal event carries the signal number in fd.
func New(fd int, flags api.Flags, cb Callback, arg any) *Event {
	return &Event{
		fd:       fd,
		flags:    flags &^ api.Timeout,
		cb:       cb,
		arg:      arg,
		interval: NoTimeout,
	}
}

// NewTimer creates a pure timer event.
func NewTimer(cb Callback, arg any) *Event {
	return New(-1, 0, cb, arg)
}

// NewSignal creates a persistent event for an OS signal.
func NewSignal(sig syscall.Signal, cb Callback, arg any) *Event {
	return New(int(sig), api.Signal|api.Persist, cb, arg)
}

// Fd returns the descriptor, the signal number, or -1 for timers.
func (ev *Event) Fd() int { return ev.fd }

// Flags returns the conditions the event waits for.
func (ev *Event) Flags() api.Flags { return ev.flags }

// Priority returns the queue the event is activated into. Until set
// explicitly it is the middle queue of its base.
func (ev *Event) Priority() int {
	if ev.prioritySet || ev.base == nil {
		return ev.priority
	}
	return ev.base.Priorities() / 2
}

// Arg returns the opaque argument given at creation.
func (ev *Event) Arg() any { return ev.arg }

// Base returns the base the event is bound to, if any.
func (ev *Event) Base() *Base { return ev.base }

// SignalCount is the number of deliveries coalesced into the current
// signal callback.
func (ev *Event) SignalCount() uint32 { return ev.ncalls }

// Initialized reports whether the event has been added or activated.
func (ev *Event) Initialized() bool { return ev.base != nil }

func (ev *Event) isSignal() bool { return ev.flags&api.Signal != 0 }

func (ev *Event) isIO() bool { return ev.flags&api.IO != 0 }

func (ev *Event) persistent() bool { return ev.flags&api.Persist != 0 }
