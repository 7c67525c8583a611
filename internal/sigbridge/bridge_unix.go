//go:build unix

// File: internal/sigbridge/bridge_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Self-pipe signal bridge: turns signal delivery into readiness on a pipe.

package sigbridge

import (
	"errors"
	"fmt"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// Bridge owns one pipe. The write end is only touched by the hub; the read
// end belongs to the event base that registered it.
type Bridge struct {
	r, w    int
	pending [MaxSignal]atomic.Uint32
	watched [MaxSignal]bool
	buf     [128]byte
	closed  bool
}

// New opens the bridge pipe in non-blocking close-on-exec mode.
func New() (*Bridge, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("sigbridge pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("sigbridge nonblock: %w", err)
		}
	}
	return &Bridge{r: p[0], w: p[1]}, nil
}

// Fd is the readable end to register with a backend.
func (b *Bridge) Fd() int { return b.r }

// Watch starts routing sig into this bridge. Watching twice is harmless.
func (b *Bridge) Watch(sig syscall.Signal) error {
	if sig <= 0 || int(sig) >= MaxSignal {
		return fmt.Errorf("sigbridge: signal %d out of range", int(sig))
	}
	if b.closed {
		return errors.New("sigbridge: closed")
	}
	if b.watched[sig] {
		return nil
	}
	b.watched[sig] = true
	process.subscribe(sig, b)
	return nil
}

// Unwatch stops routing sig. Unknown signals are ignored.
func (b *Bridge) Unwatch(sig syscall.Signal) {
	if sig <= 0 || int(sig) >= MaxSignal || !b.watched[sig] {
		return
	}
	b.watched[sig] = false
	process.unsubscribe(sig, b)
	b.pending[sig].Store(0)
}

// Watching reports whether sig is routed into this bridge.
func (b *Bridge) Watching(sig syscall.Signal) bool {
	return sig > 0 && int(sig) < MaxSignal && b.watched[sig]
}

// mark runs on the hub goroutine: one counter bump and one write.
// A full pipe already guarantees a wakeup, so EAGAIN is dropped.
func (b *Bridge) mark(sig syscall.Signal) {
	b.pending[sig].Add(1)
	_, _ = unix.Write(b.w, []byte{byte(sig)})
}

// Drain empties the pipe and collects every signal with a pending marker.
func (b *Bridge) Drain() []Delivery {
	for {
		n, err := unix.Read(b.r, b.buf[:])
		if n <= 0 || err != nil {
			break
		}
	}
	var out []Delivery
	for sig := 1; sig < MaxSignal; sig++ {
		if c := b.pending[sig].Swap(0); c > 0 && b.watched[sig] {
			out = append(out, Delivery{Signal: syscall.Signal(sig), Count: c})
		}
	}
	return out
}

// Close withdraws every watched signal and closes the pipe.
func (b *Bridge) Close() error {
	if b.closed {
		return nil
	}
	for sig := 1; sig < MaxSignal; sig++ {
		b.Unwatch(syscall.Signal(sig))
	}
	b.closed = true
	return errors.Join(unix.Close(b.r), unix.Close(b.w))
}
