package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/openhaul/tripbook/internal/clock"
	"github.com/openhaul/tripbook/internal/config"
	"github.com/openhaul/tripbook/internal/logger"
	"github.com/openhaul/tripbook/internal/migration"
	"github.com/openhaul/tripbook/internal/server"
	"github.com/openhaul/tripbook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
