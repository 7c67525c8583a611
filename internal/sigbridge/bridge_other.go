//go:build !unix

// File: internal/sigbridge/bridge_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub bridge for platforms without a self-pipe primitive.

package sigbridge

import (
	"syscall"

	"github.com/momentics/hioload-ev/api"
)

// Bridge is unavailable on this platform.
type Bridge struct{}

// New always fails on this platform.
func New() (*Bridge, error) { return nil, api.ErrNotSupported }

func (b *Bridge) Fd() int { return -1 }

func (b *Bridge) Watch(sig syscall.Signal) error { return api.ErrNotSupported }

func (b *Bridge) Unwatch(sig syscall.Signal) {}

func (b *Bridge) Watching(sig syscall.Signal) bool { return false }

func (b *Bridge) Drain() []Delivery { return nil }

func (b *Bridge) Close() error { return nil }

func (b *Bridge) mark(sig syscall.Signal) {}
