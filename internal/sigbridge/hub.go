// File: internal/sigbridge/hub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process-wide signal hub. Exactly one os/signal subscription exists per
// distinct signal number no matter how many bridges watch it. Every signal
// number owns its channel and forwarding goroutine, which plays the part of
// the native handler: for each delivery it only bumps a pending counter and
// writes one marker byte per subscriber.
//
// Lifecycle: a signal is installed when its first watcher arrives and
// withdrawn when the last one leaves. Withdrawing one signal never touches
// the subscription of another.

package sigbridge

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// MaxSignal bounds the signal numbers a bridge accepts.
const MaxSignal = 65

// Delivery reports how many times sig arrived since the previous drain.
type Delivery struct {
	Signal syscall.Signal
	Count  uint32
}

// marker is what the hub needs from a subscriber.
type marker interface {
	mark(sig syscall.Signal)
}

// slot is the subscription of one signal number.
type slot struct {
	ch   chan os.Signal
	done chan struct{}
	subs map[marker]struct{}
}

type hub struct {
	mu    sync.Mutex
	slots map[syscall.Signal]*slot
}

var process = &hub{slots: make(map[syscall.Signal]*slot)}

func (h *hub) subscribe(sig syscall.Signal, m marker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sl, ok := h.slots[sig]
	if !ok {
		sl = &slot{
			ch:   make(chan os.Signal, 8),
			done: make(chan struct{}),
			subs: make(map[marker]struct{}),
		}
		h.slots[sig] = sl
		signal.Notify(sl.ch, sig)
		go h.forward(sig, sl)
	}
	sl.subs[m] = struct{}{}
}

func (h *hub) unsubscribe(sig syscall.Signal, m marker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sl, ok := h.slots[sig]
	if !ok {
		return
	}
	delete(sl.subs, m)
	if len(sl.subs) > 0 {
		return
	}
	delete(h.slots, sig)
	signal.Stop(sl.ch)
	close(sl.done)
}

// installed reports whether sig currently has a process-wide subscription.
func (h *hub) installed(sig syscall.Signal) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.slots[sig]
	return ok
}

func (h *hub) forward(sig syscall.Signal, sl *slot) {
	for {
		select {
		case <-sl.ch:
			h.mu.Lock()
			for m := range sl.subs {
				m.mark(sig)
			}
			h.mu.Unlock()
		case <-sl.done:
			return
		}
	}
}
