// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness backends an event base can run on:
// epoll (Linux) and poll (Unix), plus the per-platform enumeration of the
// descriptors to try, in preference order.
package reactor
