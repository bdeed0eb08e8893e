package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"twitter_api/internal/config"
)

const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite3"
)

// DSN builds the data source name for the configured driver.
func DSN(DBCfg *config.DBConfig) (string, error) {
	switch DBCfg.Driver {
	case DriverPgx:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", DBCfg.Host, DBCfg.Port, DBCfg.User, DBCfg.Password, DBCfg.Name, DBCfg.SSLMode), nil
	case DriverSQLite:
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", DBCfg.Path), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", DBCfg.Driver)
	}
}

// Init opens and pings the database, retrying with a linear backoff.
func Init(DBCfg *config.DBConfig) (*sql.DB, error) {
	dsn, err := DSN(DBCfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB

	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open(DBCfg.Driver, dsn)
		if err != nil {
			logrus.WithError(err).Warnf("Failed to open database connection (attempt %d/%d)", i+1, maxRetries)
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		if err = db.Ping(); err != nil {
			logrus.WithError(err).Warnf("Failed to ping database (attempt %d/%d)", i+1, maxRetries)
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database connection")
			}
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		// Connection successful
		break
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	if DBCfg.Driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	logrus.WithField("driver", DBCfg.Driver).Info("Database connection established successfully")
	return db, nil
}

// EnsureSchema runs idempotent CREATE TABLE statements.
func EnsureSchema(ctx context.Context, db *sql.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
