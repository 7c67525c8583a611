// File: internal/minheap/minheap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Deadline-ordered binary min-heap with stable handles.
// Nodes live in an arena; callers keep a Handle (slot + generation) and the
// heap rewrites each node's position on every swap, so cancellation of an
// arbitrary entry is O(log n) without any pointer back into the heap array.

package minheap

import (
	"container/heap"
	"time"
)

// Handle identifies an entry. The zero Handle is never valid.
type Handle struct {
	slot int32
	gen  uint32
}

// Valid reports whether h was ever issued by a heap.
func (h Handle) Valid() bool { return h.gen != 0 }

type node[T any] struct {
	deadline time.Time
	seq      uint64
	pos      int // index in order, -1 when free
	gen      uint32
	value    T
}

// Heap orders values by absolute deadline, FIFO among equal deadlines.
// Not safe for concurrent use.
type Heap[T any] struct {
	nodes []node[T]
	free  []int32
	order order[T]
	seq   uint64
}

// New returns an empty heap.
func New[T any]() *Heap[T] {
	h := &Heap[T]{}
	h.order.h = h
	return h
}

// Len returns the number of live entries.
func (h *Heap[T]) Len() int { return len(h.order.slots) }

// Push inserts value with the given deadline.
func (h *Heap[T]) Push(deadline time.Time, value T) Handle {
	var slot int32
	if n := len(h.free); n > 0 {
		slot = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		h.nodes = append(h.nodes, node[T]{})
		slot = int32(len(h.nodes) - 1)
	}
	h.seq++
	nd := &h.nodes[slot]
	nd.gen++
	if nd.gen == 0 {
		nd.gen = 1
	}
	nd.deadline = deadline
	nd.seq = h.seq
	nd.value = value
	heap.Push(&h.order, slot)
	return Handle{slot: slot, gen: nd.gen}
}

// Peek returns the earliest entry without removing it.
func (h *Heap[T]) Peek() (value T, deadline time.Time, ok bool) {
	if len(h.order.slots) == 0 {
		return value, deadline, false
	}
	nd := &h.nodes[h.order.slots[0]]
	return nd.value, nd.deadline, true
}

// Pop removes and returns the earliest entry.
func (h *Heap[T]) Pop() (value T, deadline time.Time, ok bool) {
	if len(h.order.slots) == 0 {
		return value, deadline, false
	}
	slot := heap.Pop(&h.order).(int32)
	return h.release(slot)
}

// Remove cancels the entry behind hd. Stale or foreign handles return false.
func (h *Heap[T]) Remove(hd Handle) bool {
	nd := h.lookup(hd)
	if nd == nil {
		return false
	}
	slot := heap.Remove(&h.order, nd.pos).(int32)
	h.release(slot)
	return true
}

// Deadline returns the deadline stored behind hd.
func (h *Heap[T]) Deadline(hd Handle) (time.Time, bool) {
	nd := h.lookup(hd)
	if nd == nil {
		return time.Time{}, false
	}
	return nd.deadline, true
}

// Contains reports whether hd still refers to a live entry.
func (h *Heap[T]) Contains(hd Handle) bool { return h.lookup(hd) != nil }

func (h *Heap[T]) lookup(hd Handle) *node[T] {
	if !hd.Valid() || int(hd.slot) >= len(h.nodes) {
		return nil
	}
	nd := &h.nodes[hd.slot]
	if nd.gen != hd.gen || nd.pos < 0 {
		return nil
	}
	return nd
}

func (h *Heap[T]) release(slot int32) (T, time.Time, bool) {
	nd := &h.nodes[slot]
	value, deadline := nd.value, nd.deadline
	var zero T
	nd.value = zero
	nd.pos = -1
	h.free = append(h.free, slot)
	return value, deadline, true
}

// order implements heap.Interface over arena slots.
type order[T any] struct {
	h     *Heap[T]
	slots []int32
}

func (o *order[T]) Len() int { return len(o.slots) }

func (o *order[T]) Less(i, j int) bool {
	a, b := &o.h.nodes[o.slots[i]], &o.h.nodes[o.slots[j]]
	if a.deadline.Equal(b.deadline) {
		return a.seq < b.seq
	}
	return a.deadline.Before(b.deadline)
}

func (o *order[T]) Swap(i, j int) {
	o.slots[i], o.slots[j] = o.slots[j], o.slots[i]
	o.h.nodes[o.slots[i]].pos = i
	o.h.nodes[o.slots[j]].pos = j
}

func (o *order[T]) Push(x any) {
	slot := x.(int32)
	o.h.nodes[slot].pos = len(o.slots)
	o.slots = append(o.slots, slot)
}

func (o *order[T]) Pop() any {
	n := len(o.slots)
	slot := o.slots[n-1]
	o.slots = o.slots[:n-1]
	return slot
}
