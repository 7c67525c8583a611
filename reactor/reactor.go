// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral backend enumeration and shared helpers.

package reactor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/momentics/hioload-ev/api"
)

// Descriptors returns the backends available on this platform, most
// preferred first.
func Descriptors() []api.Descriptor {
	out := make([]api.Descriptor, len(platformDescriptors))
	copy(out, platformDescriptors)
	return out
}

// Lookup finds a descriptor by name, case-insensitively.
func Lookup(name string) (api.Descriptor, bool) {
	for _, d := range platformDescriptors {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return api.Descriptor{}, false
}

// Names lists the available backend names in preference order.
func Names() []string {
	names := make([]string, 0, len(platformDescriptors))
	for _, d := range platformDescriptors {
		names = append(names, d.Name)
	}
	return names
}

// timeoutMillis converts a wait duration into the millisecond argument of
// epoll_wait/poll. Partial milliseconds round up so a timer is never woken
// early; negative means block forever.
func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

// checkOwners refuses w when another watch already owns one of the
// directions it asks for on the same descriptor.
func checkOwners(read, write, w api.Watch) error {
	what := w.Flags() & api.IO
	if what&api.Read != 0 && read != nil && read != w {
		return fmt.Errorf("%w: fd=%d already watched for read", api.ErrInvalidArgument, w.Fd())
	}
	if what&api.Write != 0 && write != nil && write != w {
		return fmt.Errorf("%w: fd=%d already watched for write", api.ErrInvalidArgument, w.Fd())
	}
	return nil
}
