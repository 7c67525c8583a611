//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll backend.

package reactor

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hioload-ev/api"
	"golang.org/x/sys/unix"
)

const (
	epollInitialEvents = 32
	epollMaxEvents     = 4096
)

// EpollDescriptor describes the epoll backend. An epoll instance is not
// usable across fork, hence NeedReinit.
var EpollDescriptor = api.Descriptor{
	Name:       "epoll",
	NeedReinit: true,
	New:        newEpollBackend,
}

// epollFd keeps the read and write watches sharing one interest entry.
type epollFd struct {
	read  api.Watch
	write api.Watch
	mask  uint32
}

func (e *epollFd) wanted() uint32 {
	var m uint32
	if e.read != nil {
		m |= unix.EPOLLIN
	}
	if e.write != nil {
		m |= unix.EPOLLOUT
	}
	return m
}

// epollBackend implements api.Backend using Linux epoll.
type epollBackend struct {
	epfd   int
	fds    map[int]*epollFd
	events []unix.EpollEvent
}

func newEpollBackend() (api.Backend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollBackend{
		epfd:   epfd,
		fds:    make(map[int]*epollFd),
		events: make([]unix.EpollEvent, epollInitialEvents),
	}, nil
}

// Add adds or widens the interest entry for w's descriptor.
func (b *epollBackend) Add(w api.Watch) error {
	what := w.Flags() & api.IO
	if what == 0 {
		return nil
	}
	fd := w.Fd()
	e, known := b.fds[fd]
	if !known {
		e = &epollFd{}
	}
	if err := checkOwners(e.read, e.write, w); err != nil {
		return err
	}
	prev := *e
	if what&api.Read != 0 {
		e.read = w
	}
	if what&api.Write != 0 {
		e.write = w
	}
	mask := e.wanted()
	if known && mask == e.mask {
		return nil
	}

	op := unix.EPOLL_CTL_ADD
	if known {
		op = unix.EPOLL_CTL_MOD
	}
	if err := b.ctl(op, fd, mask); err != nil {
		*e = prev
		return err
	}
	e.mask = mask
	b.fds[fd] = e
	return nil
}

// Del drops w from its descriptor entry, removing the entry once empty.
func (b *epollBackend) Del(w api.Watch) error {
	fd := w.Fd()
	e, ok := b.fds[fd]
	if !ok {
		return nil
	}
	if e.read == w {
		e.read = nil
	}
	if e.write == w {
		e.write = nil
	}
	mask := e.wanted()
	if mask == e.mask {
		return nil
	}
	if mask == 0 {
		delete(b.fds, fd)
		err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		// the descriptor may already be closed, which drops it from epoll
		if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
			return fmt.Errorf("epoll ctl del: %w", err)
		}
		return nil
	}
	if err := b.ctl(unix.EPOLL_CTL_MOD, fd, mask); err != nil {
		return err
	}
	e.mask = mask
	return nil
}

// ctl issues one epoll_ctl, retrying across ADD/MOD when the kernel view
// disagrees with ours.
func (b *epollBackend) ctl(op, fd int, mask uint32) error {
	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
	err := unix.EpollCtl(b.epfd, op, fd, &ev)
	switch {
	case err == nil:
		return nil
	case op == unix.EPOLL_CTL_ADD && errors.Is(err, unix.EEXIST):
		err = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	case op == unix.EPOLL_CTL_MOD && errors.Is(err, unix.ENOENT):
		err = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	}
	if err != nil {
		return fmt.Errorf("epoll ctl fd=%d: %w", fd, err)
	}
	return nil
}

// Dispatch waits for readiness and reports every ready watch.
func (b *epollBackend) Dispatch(act api.Activator, timeout time.Duration) error {
	n, err := unix.EpollWait(b.epfd, b.events, timeoutMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		if errors.Is(err, unix.EBADF) || errors.Is(err, unix.EINVAL) {
			return fmt.Errorf("epoll wait: %w: %w", api.ErrBackendCorrupt, err)
		}
		return fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		ev := b.events[i]
		e, ok := b.fds[int(ev.Fd)]
		if !ok {
			continue
		}
		// error and hangup wake both directions so the owner sees the failure
		// on its next read or write
		const both = unix.EPOLLERR | unix.EPOLLHUP
		if e.read != nil && ev.Events&(unix.EPOLLIN|both) != 0 {
			act.Activate(e.read, api.Read)
		}
		if e.write != nil && ev.Events&(unix.EPOLLOUT|both) != 0 {
			act.Activate(e.write, api.Write)
		}
	}

	if n == len(b.events) && len(b.events) < epollMaxEvents {
		b.events = make([]unix.EpollEvent, 2*len(b.events))
	}
	return nil
}

// Close releases the epoll file descriptor.
func (b *epollBackend) Close() error {
	b.fds = nil
	return unix.Close(b.epfd)
}
