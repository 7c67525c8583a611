// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract contract for readiness backends
// used to multiplex descriptors across OS mechanisms (epoll, poll, ...).

package api

import "time"

// Watch is the backend's view of a registered descriptor event.
type Watch interface {
	Fd() int
	Flags() Flags
	Priority() int
}

// Activator is the mark-active hook a backend calls for every ready watch.
type Activator interface {
	Activate(w Watch, res Flags)
}

// Backend is the private state of one OS notification mechanism, owned by
// exactly one event base and only touched through these methods.
type Backend interface {
	// Add must start watching w. Re-adding a watched w is not an error.
	// A descriptor has at most one watch per direction; a second watch
	// asking for a direction already owned fails with ErrInvalidArgument.
	Add(w Watch) error

	// Del must stop watching w. Unknown watches are ignored.
	Del(w Watch) error

	// Dispatch must block up to timeout (negative: forever) and report each
	// ready watch through act. Expiry and EINTR are not errors.
	Dispatch(act Activator, timeout time.Duration) error

	// Close must release every kernel resource the backend holds.
	Close() error
}

// Descriptor is the immutable entry describing one backend implementation.
type Descriptor struct {
	Name string
	// NeedReinit is set for mechanisms whose kernel state does not survive
	// fork, so moving away from them rebuilds the whole base.
	NeedReinit bool
	New        func() (Backend, error)
}
