package minheap

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

func TestHeap_PopOrderWithCancellations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	h := New[int]()
	var handles []Handle
	for i := 0; i < 500; i++ {
		d := epoch.Add(time.Duration(rng.Intn(1000)) * time.Millisecond)
		handles = append(handles, h.Push(d, i))
	}
	removed := 0
	for i, hd := range handles {
		if i%3 == 0 {
			require.True(t, h.Remove(hd))
			removed++
		}
	}
	require.Equal(t, 500-removed, h.Len())

	var last time.Time
	n := 0
	for {
		_, d, ok := h.Pop()
		if !ok {
			break
		}
		assert.False(t, d.Before(last), "deadline went backwards at %d", n)
		last = d
		n++
	}
	assert.Equal(t, 500-removed, n)
}

func TestHeap_EqualDeadlinesAreFIFO(t *testing.T) {
	h := New[string]()
	for _, v := range []string{"a", "b", "c", "d"} {
		h.Push(epoch, v)
	}
	h.Push(epoch.Add(-time.Second), "first")

	var got []string
	for h.Len() > 0 {
		v, _, _ := h.Pop()
		got = append(got, v)
	}
	assert.Equal(t, []string{"first", "a", "b", "c", "d"}, got)
}

func TestHeap_PeekDoesNotRemove(t *testing.T) {
	h := New[int]()
	_, _, ok := h.Peek()
	require.False(t, ok)

	h.Push(epoch.Add(2*time.Second), 2)
	h.Push(epoch.Add(time.Second), 1)
	v, d, ok := h.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, d.Equal(epoch.Add(time.Second)))
	assert.Equal(t, 2, h.Len())
}

func TestHeap_StaleHandles(t *testing.T) {
	h := New[int]()
	hd := h.Push(epoch, 1)
	require.True(t, h.Contains(hd))
	require.True(t, h.Remove(hd))
	assert.False(t, h.Remove(hd), "second remove must be a no-op")

	// the slot is recycled; the old handle must not reach the new entry
	hd2 := h.Push(epoch, 2)
	assert.False(t, h.Contains(hd))
	assert.True(t, h.Contains(hd2))
	assert.False(t, h.Remove(Handle{}))

	_, ok := h.Deadline(hd)
	assert.False(t, ok)
	d, ok := h.Deadline(hd2)
	assert.True(t, ok)
	assert.True(t, d.Equal(epoch))
}

func TestHeap_RemoveKeepsPositionsConsistent(t *testing.T) {
	h := New[int]()
	hs := make([]Handle, 64)
	for i := range hs {
		hs[i] = h.Push(epoch.Add(time.Duration(64-i)*time.Millisecond), i)
	}
	// remove from the middle repeatedly, then every remaining handle must
	// still be removable through its own position
	for i := 10; i < 40; i += 2 {
		require.True(t, h.Remove(hs[i]))
	}
	for i := 0; i < len(hs); i++ {
		if i >= 10 && i < 40 && i%2 == 0 {
			continue
		}
		require.True(t, h.Remove(hs[i]), "handle %d", i)
	}
	assert.Equal(t, 0, h.Len())
}
