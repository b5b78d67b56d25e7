package main

import (
	"testing"
	"time"

	"github.com/ryandielhenn/glomers/internal/config"
	"github.com/ryandielhenn/glomers/pkg/broadcast"
)

func TestOptions(t *testing.T) {
	cfg := config.Config{
		Gossip:    true,
		Topology:  config.TopologyRing,
		Fanout:    3,
		RetryBase: 10 * time.Millisecond,
		RetryMax:  time.Second,
	}
	o := options(cfg, nil)
	if !o.Gossip || o.Overlay != broadcast.OverlayRing || o.Fanout != 3 {
		t.Fatalf("options = %+v", o)
	}
	if o.Retry.Base != cfg.RetryBase || o.Retry.Max != cfg.RetryMax {
		t.Fatalf("retry = %+v", o.Retry)
	}

	cfg.Topology = config.TopologyHarness
	if o := options(cfg, nil); o.Overlay != broadcast.OverlayHarness {
		t.Fatalf("overlay = %v, want harness", o.Overlay)
	}
}
