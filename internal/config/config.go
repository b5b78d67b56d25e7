// Package config reads optional tuning knobs from GLOMERS_* environment
// variables. Every key has a default, so a node started by the harness with
// a bare environment behaves exactly like one with no configuration at all.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	TopologyHarness = "harness"
	TopologyRing    = "ring"
)

type Config struct {
	LogLevel    string
	Gossip      bool
	Topology    string
	Fanout      int
	Tick        time.Duration
	RetryBase   time.Duration
	RetryMax    time.Duration
	MetricsFile string
}

func defaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("gossip", "true")
	v.SetDefault("topology", TopologyHarness)
	v.SetDefault("fanout", "2")
	v.SetDefault("tick", "50ms")
	v.SetDefault("retry_base", "200ms")
	v.SetDefault("retry_max", "3s")
	v.SetDefault("metrics_file", "")
}

// Load reads the process environment.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GLOMERS")
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an existing viper instance, filling in
// defaults for unset keys.
func FromViper(v *viper.Viper) (Config, error) {
	defaults(v)

	cfg := Config{
		LogLevel:    strings.ToLower(v.GetString("log_level")),
		Topology:    strings.ToLower(v.GetString("topology")),
		MetricsFile: v.GetString("metrics_file"),
	}

	var err error
	if cfg.Gossip, err = strconv.ParseBool(v.GetString("gossip")); err != nil {
		return Config{}, fmt.Errorf("gossip: %w", err)
	}
	if cfg.Fanout, err = strconv.Atoi(v.GetString("fanout")); err != nil {
		return Config{}, fmt.Errorf("fanout: %w", err)
	}
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"tick", &cfg.Tick},
		{"retry_base", &cfg.RetryBase},
		{"retry_max", &cfg.RetryMax},
	} {
		if *d.dst, err = time.ParseDuration(v.GetString(d.key)); err != nil {
			return Config{}, fmt.Errorf("%s: %w", d.key, err)
		}
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Topology {
	case TopologyHarness, TopologyRing:
	default:
		return fmt.Errorf("topology: unknown mode %q", c.Topology)
	}
	if c.Fanout < 1 {
		return fmt.Errorf("fanout: must be at least 1, got %d", c.Fanout)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick: must be positive, got %s", c.Tick)
	}
	if c.RetryBase <= 0 || c.RetryMax < c.RetryBase {
		return fmt.Errorf("retry: need 0 < retry_base <= retry_max, got %s and %s", c.RetryBase, c.RetryMax)
	}
	return nil
}
