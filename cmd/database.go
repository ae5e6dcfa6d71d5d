package cmd

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/history"
)

// sqlDriver maps the configured database to its database/sql driver name.
func sqlDriver(cfg internal.DatabaseConfig) string {
	if cfg.Driver == "sqlite" {
		return "sqlite3"
	}
	return "pgx"
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	driver := sqlDriver(cfg)

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// openGorm shares the sqlx pool with gorm so both see the same connections.
func openGorm(cfg internal.DatabaseConfig, db *sqlx.DB) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.Driver == "sqlite" {
		dialector = sqlite.New(sqlite.Config{Conn: db.DB})
	} else {
		dialector = postgres.New(postgres.Config{Conn: db.DB})
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gormDB, nil
}

// ensureLocalSchema creates the receipts table on sqlite. db/migrations
// targets postgres and is applied with the migrate command instead.
func ensureLocalSchema(cfg internal.DatabaseConfig, gormDB *gorm.DB) error {
	if cfg.Driver != "sqlite" {
		return nil
	}
	if err := gormDB.AutoMigrate(&history.Entry{}); err != nil {
		return fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return nil
}
