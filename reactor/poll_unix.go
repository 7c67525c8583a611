//go:build unix

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - portable poll(2) backend.

package reactor

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hioload-ev/api"
	"golang.org/x/sys/unix"
)

// PollDescriptor describes the poll backend. It keeps no kernel state, so
// switching away from it needs no reinitialization.
var PollDescriptor = api.Descriptor{
	Name:       "poll",
	NeedReinit: false,
	New:        newPollBackend,
}

type pollSlot struct {
	read  api.Watch
	write api.Watch
}

// pollBackend keeps pollfds densely packed; index maps fd to its slot.
type pollBackend struct {
	fds   []unix.PollFd
	slots []pollSlot
	index map[int]int
}

func newPollBackend() (api.Backend, error) {
	return &pollBackend{index: make(map[int]int)}, nil
}

func (s *pollSlot) events() int16 {
	var ev int16
	if s.read != nil {
		ev |= unix.POLLIN
	}
	if s.write != nil {
		ev |= unix.POLLOUT
	}
	return ev
}

// Add registers w, reusing the slot of its descriptor when present.
func (b *pollBackend) Add(w api.Watch) error {
	what := w.Flags() & api.IO
	if what == 0 {
		return nil
	}
	fd := w.Fd()
	if fd < 0 {
		return fmt.Errorf("poll add: %w: fd=%d", api.ErrInvalidArgument, fd)
	}
	i, ok := b.index[fd]
	if ok {
		if err := checkOwners(b.slots[i].read, b.slots[i].write, w); err != nil {
			return err
		}
	} else {
		i = len(b.fds)
		b.fds = append(b.fds, unix.PollFd{Fd: int32(fd)})
		b.slots = append(b.slots, pollSlot{})
		b.index[fd] = i
	}
	if what&api.Read != 0 {
		b.slots[i].read = w
	}
	if what&api.Write != 0 {
		b.slots[i].write = w
	}
	b.fds[i].Events = b.slots[i].events()
	return nil
}

// Del removes w; an emptied slot is filled with the last one.
func (b *pollBackend) Del(w api.Watch) error {
	fd := w.Fd()
	i, ok := b.index[fd]
	if !ok {
		return nil
	}
	s := &b.slots[i]
	if s.read == w {
		s.read = nil
	}
	if s.write == w {
		s.write = nil
	}
	if ev := s.events(); ev != 0 {
		b.fds[i].Events = ev
		return nil
	}

	last := len(b.fds) - 1
	if i != last {
		b.fds[i] = b.fds[last]
		b.slots[i] = b.slots[last]
		b.index[int(b.fds[i].Fd)] = i
	}
	b.fds = b.fds[:last]
	b.slots[last] = pollSlot{}
	b.slots = b.slots[:last]
	delete(b.index, fd)
	return nil
}

// Dispatch polls every registered descriptor once.
func (b *pollBackend) Dispatch(act api.Activator, timeout time.Duration) error {
	n, err := unix.Poll(b.fds, timeoutMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return nil
	}

	// activation never touches the backend, so the arrays are stable here
	for i := range b.fds {
		re := b.fds[i].Revents
		if re == 0 {
			continue
		}
		b.fds[i].Revents = 0
		if re&(unix.POLLHUP|unix.POLLERR) != 0 {
			re |= unix.POLLIN | unix.POLLOUT
		}
		s := b.slots[i]
		if s.read != nil && re&unix.POLLIN != 0 {
			act.Activate(s.read, api.Read)
		}
		if s.write != nil && re&unix.POLLOUT != 0 {
			act.Activate(s.write, api.Write)
		}
	}
	return nil
}

// Close forgets every registration; poll holds no kernel resources.
func (b *pollBackend) Close() error {
	b.fds, b.slots, b.index = nil, nil, nil
	return nil
}
