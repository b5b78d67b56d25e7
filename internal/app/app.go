// Package app holds the startup sequence shared by every node binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/config"
	"github.com/ryandielhenn/glomers/internal/logging"
	"github.com/ryandielhenn/glomers/internal/telemetry"
	"github.com/ryandielhenn/glomers/pkg/node"
)

// Version is stamped at link time with -ldflags "-X ...app.Version=...".
var Version = "dev"

// BuildFunc constructs the role a binary serves.
type BuildFunc func(cfg config.Config, log *zap.Logger) (node.Role, error)

// Main runs one node on stdin/stdout and returns the process exit code.
func Main(name string, build BuildFunc) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, name, build, os.Stdin, os.Stdout, os.Stderr)
}

// Run is Main with explicit streams. Diagnostics that happen before a logger
// exists go to errOut.
func Run(ctx context.Context, name string, build BuildFunc, in io.Reader, out, errOut io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(errOut, "%s: config: %v\n", name, err)
		return 2
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", name, err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	telemetry.SetBuildInfo(name, Version)

	role, err := build(cfg, log)
	if err != nil {
		log.Error("building role", zap.Error(err))
		return 2
	}

	n := node.New(role, out, node.Options{Logger: log, Tick: cfg.Tick})
	log.Info("node starting", zap.String("role", name), zap.String("version", Version),
		zap.Bool("gossip", cfg.Gossip), zap.String("topology", cfg.Topology))

	runErr := n.Run(ctx, in)

	if cfg.MetricsFile != "" {
		if err := telemetry.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("writing metrics", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}

	switch {
	case runErr == nil:
		log.Info("input closed, exiting")
		return 0
	case errors.Is(runErr, context.Canceled):
		log.Info("interrupted, exiting")
		return 0
	case errors.Is(runErr, node.ErrProtocolViolation):
		log.Error("protocol violation", zap.Error(runErr))
	case errors.Is(runErr, node.ErrOutput):
		log.Error("cannot write output", zap.Error(runErr))
	default:
		log.Error("node failed", zap.Error(runErr))
	}
	return 1
}
