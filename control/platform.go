// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Platform probes: what this build can run on.

package control

import (
	"runtime"

	"github.com/momentics/hioload-ev/reactor"
)

func knownBackends() []string { return reactor.Names() }

// RegisterPlatformProbes publishes the platform and its backends.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.os", func() any {
		return runtime.GOOS
	})
	dp.RegisterProbe("platform.backends", func() any {
		return reactor.Names()
	})
}
