// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for hioload-ev.
//
// Provides:
//   - Config: event base settings loaded from YAML and the environment
//   - MetricsRegistry: counters published by a running base
//   - DebugProbes: named state probes for diagnostics
//
// Config is read once at base creation. The registries are the only
// structures meant to be read from goroutines other than the loop's.
package control
