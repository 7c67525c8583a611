//go:build linux

// File: reactor/descriptors_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux backend preference: epoll first, poll as fallback.

package reactor

import "github.com/momentics/hioload-ev/api"

var platformDescriptors = []api.Descriptor{EpollDescriptor, PollDescriptor}
