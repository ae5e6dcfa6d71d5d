package cmd

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/donation-checkout/pkg/logger"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "apply the donation receipt migrations under db/migrations",
	}
	migrateRollback bool
	migrateStatus   bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "roll back the latest migration")
	migrateCmd.Flags().BoolVarP(&migrateStatus, "status", "s", false, "print the applied migrations and exit")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.L()

	if cfg.Database.Driver == "sqlite" {
		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		gormDB, err := openGorm(cfg.Database, db)
		if err != nil {
			return err
		}
		lg.Info("sqlite database, creating schema from the receipt model")
		return ensureLocalSchema(cfg.Database, gormDB)
	}

	db, err := goose.OpenDBWithDriver(sqlDriver(cfg.Database), cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer db.Close()
	goose.SetTableName("schema_migrations")

	command := "up"
	switch {
	case migrateStatus:
		command = "status"
	case migrateRollback:
		command = "down"
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := goose.RunContext(ctx, command, db, migrateDir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}

	lg.Info("migration finished", "command", command, "dir", migrateDir)
	return nil
}
