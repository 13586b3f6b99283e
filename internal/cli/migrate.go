package cli

import (
	"context"
	"fmt"

	"github.com/smallbiznis/motorbook/internal/migration"
)

type MigrateCommand struct {
	*Command
}

func (c *MigrateCommand) Synopsis() string {
	return "Apply database migrations"
}

func (c *MigrateCommand) Help() string {
	return `Usage: motorbookctl migrate

  Applies the embedded SQL migrations on postgres, or AutoMigrate on sqlite and mysql.`
}

func (c *MigrateCommand) Run(args []string) int {
	if len(args) > 0 {
		c.UI.Error("migrate takes no arguments")
		return 1
	}

	return c.run(func(ctx context.Context, rt Runtime) error {
		if err := migration.Migrate(rt.DB); err != nil {
			return err
		}
		if rt.DB.Dialector.Name() != "postgres" {
			c.UI.Info("Schema migrated")
			return nil
		}

		sqlDB, err := rt.DB.DB()
		if err != nil {
			return err
		}
		version, dirty, err := migration.Version(sqlDB)
		if err != nil {
			return err
		}
		c.UI.Info(fmt.Sprintf("Schema at version %d (dirty=%t)", version, dirty))
		return nil
	})
}
