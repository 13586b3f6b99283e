package main

import (
	"github.com/smallbiznis/motorbook/internal/clock"
	"github.com/smallbiznis/motorbook/internal/config"
	"github.com/smallbiznis/motorbook/internal/idgen"
	"github.com/smallbiznis/motorbook/internal/migration"
	"github.com/smallbiznis/motorbook/internal/observability"
	"github.com/smallbiznis/motorbook/internal/server"
	"github.com/smallbiznis/motorbook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		idgen.Module,
		db.Module,
		clock.Module,
		server.Module,
		migration.Module,
	)
	app.Run()
}
