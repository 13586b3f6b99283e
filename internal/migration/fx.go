package migration

import (
	"context"

	"github.com/smallbiznis/motorbook/internal/clock"
	"github.com/smallbiznis/motorbook/internal/config"
	"github.com/smallbiznis/motorbook/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Provide(seed.New),
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, c clock.Clock, seeder *seed.Seeder) error {
		if err := Migrate(conn); err != nil {
			return err
		}

		if !cfg.SeedOnStart {
			return nil
		}
		return seeder.EnsureSequences(context.Background(), clock.YearIn(c, cfg.Location()))
	}),
)
