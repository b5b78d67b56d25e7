package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	want := Config{
		LogLevel:  "info",
		Gossip:    true,
		Topology:  TopologyHarness,
		Fanout:    2,
		Tick:      50 * time.Millisecond,
		RetryBase: 200 * time.Millisecond,
		RetryMax:  3 * time.Second,
	}
	if cfg != want {
		t.Fatalf("defaults = %+v, want %+v", cfg, want)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GLOMERS_LOG_LEVEL", "DEBUG")
	t.Setenv("GLOMERS_GOSSIP", "false")
	t.Setenv("GLOMERS_TOPOLOGY", "ring")
	t.Setenv("GLOMERS_FANOUT", "3")
	t.Setenv("GLOMERS_RETRY_BASE", "1s")
	t.Setenv("GLOMERS_RETRY_MAX", "10s")
	t.Setenv("GLOMERS_METRICS_FILE", "/tmp/n1.prom")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Gossip || cfg.Topology != TopologyRing || cfg.Fanout != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RetryBase != time.Second || cfg.RetryMax != 10*time.Second {
		t.Fatalf("retry = %s/%s", cfg.RetryBase, cfg.RetryMax)
	}
	if cfg.MetricsFile != "/tmp/n1.prom" {
		t.Fatalf("metrics file = %q", cfg.MetricsFile)
	}
}

func TestInvalid(t *testing.T) {
	rows := []struct {
		key, val string
	}{
		{"gossip", "maybe"},
		{"fanout", "two"},
		{"fanout", "0"},
		{"tick", "soon"},
		{"tick", "0s"},
		{"topology", "mesh"},
		{"retry_base", "5s"}, // above the default retry_max
	}
	for _, r := range rows {
		v := viper.New()
		v.Set(r.key, r.val)
		if _, err := FromViper(v); err == nil {
			t.Fatalf("%s=%q accepted, want error", r.key, r.val)
		}
	}
}
