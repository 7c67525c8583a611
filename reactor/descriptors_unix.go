//go:build unix && !linux

// File: reactor/descriptors_unix.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux Unix backend preference.

package reactor

import "github.com/momentics/hioload-ev/api"

var platformDescriptors = []api.Descriptor{PollDescriptor}
