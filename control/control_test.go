package control

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/momentics/hioload-ev/api"
	"github.com/momentics/hioload-ev/reactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1, cfg.Priorities)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_LoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
priorities: 4
backend: poll
avoid: [select]
show_method: true
ignore_env: true
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Priorities)
	assert.Equal(t, "poll", cfg.Backend)
	assert.Equal(t, []string{"select"}, cfg.Avoid)
	assert.True(t, cfg.ShowMethod)
}

func TestConfig_LoadErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, api.IsCode(err, api.ErrCodeConfiguration))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("priorities: [oops"), 0o600))
	_, err = LoadConfig(path)
	assert.True(t, api.IsCode(err, api.ErrCodeConfiguration))

	require.NoError(t, os.WriteFile(path, []byte("priorities: 0\nignore_env: true\n"), 0o600))
	_, err = LoadConfig(path)
	assert.True(t, errors.Is(err, api.ErrInvalidPriority))
}

func TestConfig_ApplyEnv(t *testing.T) {
	names := reactor.Names()
	if len(names) == 0 {
		t.Skip("no backends on this platform")
	}
	cfg := DefaultConfig()
	vars := map[string]string{"EVENT_SHOW_METHOD": ""}
	vars["EVENT_NO"+strings.ToUpper(names[0])] = "1"
	cfg.ApplyEnv(env(vars))
	assert.True(t, cfg.Avoids(names[0]))
	assert.True(t, cfg.ShowMethod)

	ignored := Config{Priorities: 1, IgnoreEnv: true}
	ignored.ApplyEnv(env(map[string]string{"EVENT_SHOW_METHOD": "1"}))
	assert.False(t, ignored.ShowMethod)
}

func TestConfig_PreferredAndAvoided(t *testing.T) {
	cfg := Config{Priorities: 2, Backend: "poll", Avoid: []string{"POLL"}}
	assert.True(t, api.IsCode(cfg.Validate(), api.ErrCodeConfiguration))
}

func TestMetricsRegistry(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Add("event.callbacks", 2)
	mr.Add("event.callbacks", 3)
	mr.Set("event.backend", "epoll")

	snap := mr.Snapshot()
	assert.Equal(t, int64(5), snap["event.callbacks"])
	assert.Equal(t, "epoll", snap["event.backend"])

	mr.Set("event.backend", "poll")
	mr.Add("event.callbacks", 1)
	assert.Equal(t, "epoll", snap["event.backend"], "snapshots are copies")
	snap = mr.Snapshot()
	assert.Equal(t, "poll", snap["event.backend"])
	assert.Equal(t, int64(6), snap["event.callbacks"])
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterProbe("x", func() any { return 1 })
	dp.RegisterProbe("self", func() any {
		dp.UnregisterProbe("self")
		return "gone"
	})
	state := dp.DumpState()
	assert.Len(t, state, 4)
	assert.Equal(t, 1, state["x"])
	assert.Equal(t, "gone", state["self"])

	dp.UnregisterProbe("x")
	dp.RegisterProbe("platform.os", nil)
	state = dp.DumpState()
	assert.NotContains(t, state, "x")
	assert.NotContains(t, state, "self")
	assert.NotContains(t, state, "platform.os")
	assert.Equal(t, reactor.Names(), state["platform.backends"])
}
