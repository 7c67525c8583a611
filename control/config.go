// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Event base configuration: defaults, YAML loading and environment overrides.

package control

import (
	"fmt"
	"os"
	"strings"

	"github.com/momentics/hioload-ev/api"
	"gopkg.in/yaml.v3"
)

// MaxPriorities bounds the number of priority queues per base.
const MaxPriorities = 256

// Config holds the creation-time settings of an event base.
type Config struct {
	// Priorities is the number of active queues; 0 is the highest priority.
	Priorities int `yaml:"priorities"`
	// Backend is tried first when set; the platform order follows.
	Backend string `yaml:"backend"`
	// Avoid lists backend names never to use.
	Avoid []string `yaml:"avoid"`
	// ShowMethod logs the backend chosen at creation.
	ShowMethod bool `yaml:"show_method"`
	// IgnoreEnv disables the EVENT_* environment overrides.
	IgnoreEnv bool `yaml:"ignore_env"`
}

// DefaultConfig returns a single-priority configuration.
func DefaultConfig() Config {
	return Config{Priorities: 1}
}

// LoadConfig reads a YAML file on top of DefaultConfig and applies the
// environment unless the file sets ignore_env.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, api.ConfigError("read config", err).WithContext("path", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, api.ConfigError("parse config", err).WithContext("path", path)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv honours EVENT_NO<NAME> (for example EVENT_NOEPOLL) and
// EVENT_SHOW_METHOD. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if c.IgnoreEnv {
		return
	}
	if _, ok := lookup("EVENT_SHOW_METHOD"); ok {
		c.ShowMethod = true
	}
	for _, name := range knownBackends() {
		if _, ok := lookup("EVENT_NO" + strings.ToUpper(name)); ok && !c.Avoids(name) {
			c.Avoid = append(c.Avoid, name)
		}
	}
}

// Avoids reports whether the named backend is excluded.
func (c *Config) Avoids(name string) bool {
	for _, a := range c.Avoid {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// Validate checks ranges.
func (c *Config) Validate() error {
	if c.Priorities < 1 || c.Priorities > MaxPriorities {
		return api.ConfigError("priorities", api.ErrInvalidPriority).
			WithContext("priorities", c.Priorities)
	}
	if c.Backend != "" && c.Avoids(c.Backend) {
		return api.ConfigError(fmt.Sprintf("backend %q is both preferred and avoided", c.Backend), api.ErrInvalidArgument)
	}
	return nil
}
