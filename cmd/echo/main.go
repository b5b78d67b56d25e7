package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/app"
	"github.com/ryandielhenn/glomers/internal/config"
	"github.com/ryandielhenn/glomers/pkg/echo"
	"github.com/ryandielhenn/glomers/pkg/node"
)

func main() {
	os.Exit(app.Main("echo", func(config.Config, *zap.Logger) (node.Role, error) {
		return echo.New(), nil
	}))
}
