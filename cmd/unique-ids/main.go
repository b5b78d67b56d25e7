package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/app"
	"github.com/ryandielhenn/glomers/internal/config"
	"github.com/ryandielhenn/glomers/pkg/node"
	"github.com/ryandielhenn/glomers/pkg/uniqueid"
)

func main() {
	os.Exit(app.Main("unique-ids", func(config.Config, *zap.Logger) (node.Role, error) {
		return uniqueid.New(), nil
	}))
}
