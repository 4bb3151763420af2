package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/comiso/internal/audit"
	"github.com/smallbiznis/comiso/internal/clock"
	"github.com/smallbiznis/comiso/internal/config"
	"github.com/smallbiznis/comiso/internal/events"
	"github.com/smallbiznis/comiso/internal/logger"
	"github.com/smallbiznis/comiso/internal/migration"
	"github.com/smallbiznis/comiso/internal/policy"
	"github.com/smallbiznis/comiso/internal/resolution"
	"github.com/smallbiznis/comiso/internal/server"
	"github.com/smallbiznis/comiso/internal/transaction"
	"github.com/smallbiznis/comiso/pkg/db"
	"github.com/smallbiznis/comiso/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		events.Module,
		audit.Module,
		policy.Module,
		resolution.Module,
		transaction.Module,

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
