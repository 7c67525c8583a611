// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides scriptable test doubles for the event base: an
// in-memory backend and a manual clock.
package fake

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-ev/api"
)

// Backend is an in-memory api.Backend. Tests queue readiness with Ready and
// inspect the timeouts the base asked to wait for.
type Backend struct {
	Name string

	// Timeouts records the timeout argument of every Dispatch call.
	Timeouts []time.Duration

	// Injected failures; a non-nil value is returned once and cleared.
	AddErr      error
	DelErr      error
	DispatchErr error

	// OnDispatch runs inside Dispatch before readiness is reported, standing
	// in for the time spent blocked in the kernel.
	OnDispatch func(timeout time.Duration)

	watches []api.Watch
	ready   []readiness
	closed  bool
	adds    int
	dels    int
}

type readiness struct {
	fd  int
	res api.Flags
}

// NewBackend returns an empty fake backend.
func NewBackend(name string) *Backend {
	return &Backend{Name: name}
}

// Descriptor wraps b in a descriptor whose New hands out b itself.
func (b *Backend) Descriptor(needReinit bool) api.Descriptor {
	return api.Descriptor{
		Name:       b.Name,
		NeedReinit: needReinit,
		New: func() (api.Backend, error) {
			b.closed = false
			return b, nil
		},
	}
}

// FailingDescriptor always fails to initialize.
func FailingDescriptor(name string) api.Descriptor {
	return api.Descriptor{
		Name: name,
		New: func() (api.Backend, error) {
			return nil, fmt.Errorf("fake %s: init refused", name)
		},
	}
}

// Ready queues readiness for fd, reported at the next Dispatch.
func (b *Backend) Ready(fd int, res api.Flags) {
	b.ready = append(b.ready, readiness{fd: fd, res: res})
}

// Watching reports whether w is registered.
func (b *Backend) Watching(w api.Watch) bool { return b.find(w) >= 0 }

func (b *Backend) find(w api.Watch) int {
	for i, x := range b.watches {
		if x == w {
			return i
		}
	}
	return -1
}

// Len is the number of registered watches.
func (b *Backend) Len() int { return len(b.watches) }

// Closed reports whether Close was called since the last init.
func (b *Backend) Closed() bool { return b.closed }

// Calls returns how many Add and Del calls reached the backend.
func (b *Backend) Calls() (adds, dels int) { return b.adds, b.dels }

// LastTimeout is the most recent Dispatch timeout.
func (b *Backend) LastTimeout() time.Duration {
	if len(b.Timeouts) == 0 {
		return 0
	}
	return b.Timeouts[len(b.Timeouts)-1]
}

func (b *Backend) Add(w api.Watch) error {
	b.adds++
	if err := b.AddErr; err != nil {
		b.AddErr = nil
		return err
	}
	if b.find(w) >= 0 {
		return nil
	}
	for _, x := range b.watches {
		if x.Fd() == w.Fd() && x.Flags()&w.Flags()&api.IO != 0 {
			return fmt.Errorf("fake add: %w: fd=%d taken", api.ErrInvalidArgument, w.Fd())
		}
	}
	b.watches = append(b.watches, w)
	return nil
}

func (b *Backend) Del(w api.Watch) error {
	b.dels++
	if err := b.DelErr; err != nil {
		b.DelErr = nil
		return err
	}
	if i := b.find(w); i >= 0 {
		b.watches = append(b.watches[:i], b.watches[i+1:]...)
	}
	return nil
}

func (b *Backend) Dispatch(act api.Activator, timeout time.Duration) error {
	b.Timeouts = append(b.Timeouts, timeout)
	if err := b.DispatchErr; err != nil {
		b.DispatchErr = nil
		return err
	}
	if b.OnDispatch != nil {
		b.OnDispatch(timeout)
	}
	ready := b.ready
	b.ready = nil
	for _, r := range ready {
		for _, w := range b.watches {
			if w.Fd() != r.fd {
				continue
			}
			if res := w.Flags() & r.res & api.IO; res != 0 {
				act.Activate(w, res)
			}
		}
	}
	return nil
}

func (b *Backend) Close() error {
	b.closed = true
	b.watches = nil
	return nil
}
