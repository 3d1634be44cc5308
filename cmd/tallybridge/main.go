package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tallybridge/internal/auth"
	"github.com/smallbiznis/tallybridge/internal/authorization"
	"github.com/smallbiznis/tallybridge/internal/clock"
	"github.com/smallbiznis/tallybridge/internal/config"
	"github.com/smallbiznis/tallybridge/internal/dashboard"
	"github.com/smallbiznis/tallybridge/internal/invoice"
	"github.com/smallbiznis/tallybridge/internal/ledger"
	"github.com/smallbiznis/tallybridge/internal/migration"
	"github.com/smallbiznis/tallybridge/internal/observability"
	"github.com/smallbiznis/tallybridge/internal/scheduler"
	"github.com/smallbiznis/tallybridge/internal/server"
	"github.com/smallbiznis/tallybridge/internal/synclog"
	"github.com/smallbiznis/tallybridge/internal/tally"
	"github.com/smallbiznis/tallybridge/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Tally gateway and sync domains
		tally.Module,
		synclog.Module,
		ledger.Module,
		invoice.Module,
		dashboard.Module,
		scheduler.Module,

		// HTTP surface
		auth.Module,
		authorization.Module,
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
