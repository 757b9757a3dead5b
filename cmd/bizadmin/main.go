package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/clock"
	"github.com/smallbiznis/bizadmin/internal/config"
	"github.com/smallbiznis/bizadmin/internal/migration"
	"github.com/smallbiznis/bizadmin/internal/observability"
	"github.com/smallbiznis/bizadmin/internal/server"
	"github.com/smallbiznis/bizadmin/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP API with every domain module
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
