// File: event/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package event implements the event base: a single-goroutine dispatch loop
// that waits for descriptor readiness through a pluggable backend, fires
// timers from a deadline heap and turns OS signals into ordinary readiness,
// then runs callbacks in priority order.
//
// One iteration:
//
//	refresh cached now -> termination checks -> compute wait timeout
//	  -> block in backend -> fold expired timers into priority queues
//	  -> drain queues from priority 0 upward
//
// The wait timeout is zero whenever work is already queued, the time to the
// earliest deadline otherwise, and unbounded when there are no timers.
// Within one iteration callbacks run strictly by priority, FIFO inside a
// priority; no fairness is provided across iterations.
//
// A Base is not safe for concurrent use. Separate bases may run on separate
// goroutines as long as they share no Event.
package event
