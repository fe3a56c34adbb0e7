package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"kestrel-qhse/config"
	"kestrel-qhse/core/utils"
)

var ErrConflict = errors.New("conflict")

// NewDB opens the configured database. sqlite is the default and needs no
// external service; postgres is selected with db_driver: postgres and a DSN
// in db_url.
func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*sql.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	var db *sql.DB
	var err error
	switch driver {
	case "", "sqlite", "sqlite3":
		path := strings.TrimSpace(cfg.DBURL)
		if path == "" {
			path = "data/kestrel.db"
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, mkErr
			}
		}
		dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
		db, err = sql.Open("sqlite", dsn)
		if err == nil {
			// Single writer keeps sqlite away from SQLITE_BUSY under
			// concurrent transitions; reads still multiplex fine.
			db.SetMaxOpenConns(1)
		}
	case "postgres", "pgx":
		db, err = sql.Open("pgx", cfg.DBURL)
		if err == nil {
			db.SetMaxOpenConns(10)
			db.SetConnMaxIdleTime(5 * time.Minute)
		}
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if logger != nil {
		logger.Infof("database ready (driver=%s)", driverName(driver))
	}
	return db, nil
}

func driverName(driver string) string {
	if driver == "" || driver == "sqlite3" {
		return "sqlite"
	}
	if driver == "pgx" {
		return "postgres"
	}
	return driver
}
