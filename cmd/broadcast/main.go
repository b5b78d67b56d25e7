package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/app"
	"github.com/ryandielhenn/glomers/internal/config"
	"github.com/ryandielhenn/glomers/pkg/broadcast"
	"github.com/ryandielhenn/glomers/pkg/gossip"
	"github.com/ryandielhenn/glomers/pkg/node"
)

func main() {
	os.Exit(app.Main("broadcast", func(cfg config.Config, log *zap.Logger) (node.Role, error) {
		return broadcast.New(options(cfg, log)), nil
	}))
}

// options maps the environment configuration onto the role.
func options(cfg config.Config, log *zap.Logger) broadcast.Options {
	overlay := broadcast.OverlayHarness
	if cfg.Topology == config.TopologyRing {
		overlay = broadcast.OverlayRing
	}
	return broadcast.Options{
		Gossip:  cfg.Gossip,
		Overlay: overlay,
		Fanout:  cfg.Fanout,
		Retry:   gossip.Config{Base: cfg.RetryBase, Max: cfg.RetryMax},
		Logger:  log,
	}
}
