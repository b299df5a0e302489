// Package citizens reads game characters from the externally owned game
// database and attaches them, as citizens, to the records kept in the primary
// store.
//
// The game database is read-only from here. Citizens are addressed by the
// numeric ID derived from their opaque identifier (see package identity);
// nothing maps the two persistently.
package citizens

import (
	"fmt"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// OpenGameStore connects to the game database. driver is one of mysql
// (mariadb), postgres or sqlite.
func OpenGameStore(driver, dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("citizens: empty game store DSN")
	}
	var dial gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "mariadb":
		dial = mysql.Open(dsn)
	case "postgres", "postgresql":
		dial = postgres.Open(dsn)
	case "sqlite":
		dial = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("citizens: unsupported game store driver %q", driver)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("citizens: open game store: %w", err)
	}
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("citizens: tracing plugin: %w", err)
	}

	// The game server owns this database; keep our footprint small.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(5)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxIdleTime(2 * time.Minute)
		sqlDB.SetConnMaxLifetime(15 * time.Minute)
	}
	return db, nil
}
