// Package database opens the MySQL pool that backs seat inventory.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/event-ticketing/internal/config"
)

// Open connects to MySQL using the configured credentials and verifies
// the connection before returning.  parseTime=true maps DATETIME columns
// to time.Time and loc=UTC keeps hold expiry comparisons in one zone;
// the repositories depend on both.
func Open(cfg config.Config) (*sql.DB, error) {
	auth := cfg.DBUser
	if cfg.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", cfg.DBUser, cfg.DBPass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Hold and confirm paths run serializable transactions that retry on
	// conflict, so keep enough connections that retries do not queue
	// behind the read traffic they lost to.
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
