// File: api/events.go
// Package api defines core event condition flags for hioload-ev.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "strings"

// Flags describe what an event waits for and, in results, what happened.
type Flags uint16

const (
	// Timeout is only ever reported; waiting on a timeout is requested by
	// passing a duration to Add.
	Timeout Flags = 1 << iota
	Read
	Write
	Signal
	// Persist keeps the event registered after its callback runs.
	Persist
)

// IO is the readiness subset a backend deals with.
const IO = Read | Write

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, n := range []struct {
		bit  Flags
		name string
	}{
		{Timeout, "timeout"},
		{Read, "read"},
		{Write, "write"},
		{Signal, "signal"},
		{Persist, "persist"},
	} {
		if f&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
