package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/internal/clock"
	"github.com/smallbiznis/regalia/internal/migration"
	"github.com/smallbiznis/regalia/internal/observability"
	"github.com/smallbiznis/regalia/internal/server"
	"github.com/smallbiznis/regalia/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
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
