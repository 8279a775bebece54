package cmd

import (
	"fmt"

	"github.com/frahmantamala/expense-tracker/db"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded db migrations for the configured driver",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}

	gdb, err := openDatabase(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer closeDatabase(gdb, lg)

	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}

	if migrateRollback {
		if err := db.Rollback(ctx, sqlDB, cfg.Database.Driver); err != nil {
			return err
		}
	} else if err := db.Migrate(ctx, sqlDB, cfg.Database.Driver); err != nil {
		return err
	}

	version, err := db.Version(ctx, sqlDB, cfg.Database.Driver)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	lg.Info("migrations applied", "driver", cfg.Database.Driver, "rollback", migrateRollback, "version", version)
	return nil
}
