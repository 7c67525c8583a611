//go:build unix

package reactor

import (
	"testing"
	"time"

	"github.com/momentics/hioload-ev/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type watch struct {
	fd    int
	flags api.Flags
}

func (w *watch) Fd() int          { return w.fd }
func (w *watch) Flags() api.Flags { return w.flags }
func (w *watch) Priority() int    { return 0 }

type activation struct {
	w   api.Watch
	res api.Flags
}

type recorder struct{ got []activation }

func (r *recorder) Activate(w api.Watch, res api.Flags) {
	r.got = append(r.got, activation{w, res})
}

func pipe(t *testing.T) (int, int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	require.NoError(t, unix.SetNonblock(p[0], true))
	require.NoError(t, unix.SetNonblock(p[1], true))
	t.Cleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0], p[1]
}

func eachBackend(t *testing.T, fn func(t *testing.T, b api.Backend)) {
	for _, d := range Descriptors() {
		d := d
		t.Run(d.Name, func(t *testing.T) {
			b, err := d.New()
			require.NoError(t, err)
			defer b.Close()
			fn(t, b)
		})
	}
}

func TestBackend_ReadReadiness(t *testing.T) {
	eachBackend(t, func(t *testing.T, b api.Backend) {
		r, w := pipe(t)
		rw := &watch{fd: r, flags: api.Read | api.Persist}
		require.NoError(t, b.Add(rw))
		require.NoError(t, b.Add(rw), "re-add must be idempotent")

		rec := &recorder{}
		require.NoError(t, b.Dispatch(rec, 0))
		assert.Empty(t, rec.got, "nothing written yet")

		_, err := unix.Write(w, []byte("x"))
		require.NoError(t, err)
		require.NoError(t, b.Dispatch(rec, time.Second))
		require.Len(t, rec.got, 1)
		assert.Same(t, rw, rec.got[0].w)
		assert.Equal(t, api.Read, rec.got[0].res)
	})
}

func TestBackend_ReadAndWriteShareDescriptor(t *testing.T) {
	eachBackend(t, func(t *testing.T, b api.Backend) {
		sp, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		require.NoError(t, err)
		defer unix.Close(sp[0])
		defer unix.Close(sp[1])

		rd := &watch{fd: sp[0], flags: api.Read}
		wr := &watch{fd: sp[0], flags: api.Write}
		require.NoError(t, b.Add(rd))
		require.NoError(t, b.Add(wr))

		rec := &recorder{}
		require.NoError(t, b.Dispatch(rec, time.Second))
		require.Len(t, rec.got, 1, "socket is writable, not readable")
		assert.Same(t, wr, rec.got[0].w)

		require.NoError(t, b.Del(wr))
		_, err = unix.Write(sp[1], []byte("ping"))
		require.NoError(t, err)
		rec.got = nil
		require.NoError(t, b.Dispatch(rec, time.Second))
		require.Len(t, rec.got, 1)
		assert.Same(t, rd, rec.got[0].w)
	})
}

func TestBackend_DelIsTolerant(t *testing.T) {
	eachBackend(t, func(t *testing.T, b api.Backend) {
		r, _ := pipe(t)
		unknown := &watch{fd: r, flags: api.Read}
		assert.NoError(t, b.Del(unknown))

		require.NoError(t, b.Add(unknown))
		assert.NoError(t, b.Del(unknown))
		assert.NoError(t, b.Del(unknown))
	})
}

func TestBackend_TimeoutExpiry(t *testing.T) {
	eachBackend(t, func(t *testing.T, b api.Backend) {
		r, _ := pipe(t)
		require.NoError(t, b.Add(&watch{fd: r, flags: api.Read}))
		rec := &recorder{}
		start := time.Now()
		require.NoError(t, b.Dispatch(rec, 30*time.Millisecond))
		assert.Empty(t, rec.got)
		assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	})
}

func TestTimeoutMillis(t *testing.T) {
	assert.Equal(t, -1, timeoutMillis(-1))
	assert.Equal(t, 0, timeoutMillis(0))
	assert.Equal(t, 1, timeoutMillis(time.Microsecond))
	assert.Equal(t, 100, timeoutMillis(100*time.Millisecond))
	assert.Equal(t, 101, timeoutMillis(100*time.Millisecond+1))
}

func TestLookup(t *testing.T) {
	_, ok := Lookup("POLL")
	assert.True(t, ok)
	_, ok = Lookup("kqueue-nope")
	assert.False(t, ok)
	assert.Contains(t, Names(), "poll")
}

func TestBackend_OneWatchPerDirection(t *testing.T) {
	eachBackend(t, func(t *testing.T, b api.Backend) {
		r, w := pipe(t)
		first := &watch{fd: r, flags: api.Read | api.Persist}
		second := &watch{fd: r, flags: api.Read}
		require.NoError(t, b.Add(first))

		err := b.Add(second)
		require.Error(t, err)
		assert.ErrorIs(t, err, api.ErrInvalidArgument)

		_, err = unix.Write(w, []byte("x"))
		require.NoError(t, err)
		rec := &recorder{}
		require.NoError(t, b.Dispatch(rec, time.Second))
		require.Len(t, rec.got, 1)
		assert.Same(t, first, rec.got[0].w)

		require.NoError(t, b.Del(first))
		require.NoError(t, b.Add(second), "the direction is free again")
	})
}
