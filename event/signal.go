// File: event/signal.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Signal events ride on the signal bridge: the bridge pipe is an internal
// read event, and draining it activates the registered signal events.

package event

import (
	"syscall"

	"github.com/momentics/hioload-ev/api"
	"github.com/momentics/hioload-ev/internal/sigbridge"
)

func (b *Base) addSignal(ev *Event) error {
	sig := syscall.Signal(ev.fd)
	if ev.fd <= 0 || ev.fd >= sigbridge.MaxSignal {
		return api.ConfigError("signal number", api.ErrInvalidArgument).WithContext("signal", ev.fd)
	}
	if b.sig == nil {
		if err := b.openBridge(); err != nil {
			return err
		}
	}
	if err := b.sig.Watch(sig); err != nil {
		return api.BackendError("sigbridge", "watch", err).WithContext("signal", ev.fd)
	}
	b.sigEvents[sig] = append(b.sigEvents[sig], ev)
	return nil
}

func (b *Base) openBridge() error {
	br, err := sigbridge.New()
	if err != nil {
		return api.BackendError("sigbridge", "open", err)
	}
	sigEv := New(br.Fd(), api.Read|api.Persist, b.handleSignals, nil)
	sigEv.internal = true
	sigEv.priority, sigEv.prioritySet = 0, true
	b.sig, b.sigEv = br, sigEv
	if err := b.Add(sigEv, NoTimeout); err != nil {
		br.Close()
		b.sig, b.sigEv = nil, nil
		return err
	}
	return nil
}

func (b *Base) delSignal(ev *Event) {
	sig := syscall.Signal(ev.fd)
	list := b.sigEvents[sig]
	for i, x := range list {
		if x == ev {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) > 0 {
		b.sigEvents[sig] = list
		return
	}
	delete(b.sigEvents, sig)
	if b.sig != nil {
		b.sig.Unwatch(sig)
	}
}

// handleSignals is the callback of the bridge's read event.
func (b *Base) handleSignals(*Event, api.Flags) {
	if b.sig == nil {
		return
	}
	for _, d := range b.sig.Drain() {
		for _, ev := range b.sigEvents[d.Signal] {
			if b.isActive(ev) {
				ev.ncalls += d.Count
			} else {
				ev.ncalls = d.Count
			}
			b.activate(ev, api.Signal)
		}
	}
}
