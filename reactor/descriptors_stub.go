//go:build !unix

// File: reactor/descriptors_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub enumeration for unsupported platforms. IOCP reports completions,
// not readiness, so it cannot stand behind the readiness contract.

package reactor

import "github.com/momentics/hioload-ev/api"

var platformDescriptors []api.Descriptor
