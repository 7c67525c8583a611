// File: internal/activeq/activeq.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-priority FIFO lists of ready items. Level 0 is the highest priority.
// Membership is tracked outside the queues; removal is lazy and stale queue
// entries are skipped on pop by comparing insertion tokens.

package activeq

import (
	"github.com/eapache/queue"
)

type entry[T comparable] struct {
	item  T
	token uint64
}

type member struct {
	token uint64
	level int
}

// Set holds the active items of one event base. Not safe for concurrent use.
type Set[T comparable] struct {
	levels  []*queue.Queue
	live    []int
	members map[T]member
	token   uint64
}

// New creates a set with n priority levels (n >= 1).
func New[T comparable](n int) *Set[T] {
	if n < 1 {
		n = 1
	}
	s := &Set[T]{members: make(map[T]member)}
	s.alloc(n)
	return s
}

func (s *Set[T]) alloc(n int) {
	s.levels = make([]*queue.Queue, n)
	s.live = make([]int, n)
	for i := range s.levels {
		s.levels[i] = queue.New()
	}
}

// Levels returns the number of priority levels.
func (s *Set[T]) Levels() int { return len(s.levels) }

// Resize changes the number of levels. It refuses while items are active.
func (s *Set[T]) Resize(n int) bool {
	if len(s.members) > 0 || n < 1 {
		return false
	}
	s.alloc(n)
	return true
}

// Len is the total number of active items.
func (s *Set[T]) Len() int { return len(s.members) }

// Contains reports whether item is currently active.
func (s *Set[T]) Contains(item T) bool {
	_, ok := s.members[item]
	return ok
}

// Push appends item to level unless it is already active anywhere.
func (s *Set[T]) Push(item T, level int) bool {
	if _, ok := s.members[item]; ok {
		return false
	}
	s.token++
	s.members[item] = member{token: s.token, level: level}
	s.live[level]++
	s.levels[level].Add(entry[T]{item: item, token: s.token})
	return true
}

// Remove deactivates item. Unknown items return false.
func (s *Set[T]) Remove(item T) bool {
	m, ok := s.members[item]
	if !ok {
		return false
	}
	delete(s.members, item)
	s.live[m.level]--
	if s.live[m.level] == 0 {
		// every queued entry at this level is stale now
		s.levels[m.level] = queue.New()
	}
	return true
}

// Pop removes the oldest active item at level.
func (s *Set[T]) Pop(level int) (item T, ok bool) {
	q := s.levels[level]
	for q.Length() > 0 {
		e := q.Remove().(entry[T])
		if s.take(e) {
			return e.item, true
		}
	}
	return item, false
}

// Drain pops the entries queued at level when it is called, in FIFO
// order, and hands every still-active one to fn until fn returns false.
// Items pushed to the same level while draining wait for the next call.
func (s *Set[T]) Drain(level int, fn func(T) bool) int {
	q := s.levels[level]
	n := q.Length()
	ran := 0
	for i := 0; i < n; i++ {
		if s.levels[level] != q || q.Length() == 0 {
			// the level was reset by Remove; nothing older is left
			break
		}
		e := q.Remove().(entry[T])
		if !s.take(e) {
			continue
		}
		ran++
		if !fn(e.item) {
			break
		}
	}
	return ran
}

// Highest returns the lowest-index level holding active items, or -1.
func (s *Set[T]) Highest() int {
	for i, n := range s.live {
		if n > 0 {
			return i
		}
	}
	return -1
}

func (s *Set[T]) take(e entry[T]) bool {
	m, ok := s.members[e.item]
	if !ok || m.token != e.token {
		return false
	}
	delete(s.members, e.item)
	s.live[m.level]--
	return true
}
