package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/samber/oops"
	"github.com/wemprss/article-exporter/internal/shared/config"
	"github.com/wemprss/article-exporter/internal/shared/errors"
	_ "modernc.org/sqlite"
)

// DB couples a connection pool with the placeholder dialect of its driver.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the configured store and pings it.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var sqlDriver string
	switch driver {
	case config.DriverSQLite:
		sqlDriver = "sqlite"
	case config.DriverPostgres:
		sqlDriver = "postgres"
	default:
		return nil, oops.With("driver", driver).Wrap(errors.ErrUnsupportedDriver)
	}

	conn, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, oops.With("driver", driver, "context", "failed to open database").Wrap(err)
	}

	if driver == config.DriverSQLite {
		// in-memory databases are per connection
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, oops.With("driver", driver, "context", "failed to ping database").Wrap(err)
	}

	if driver == config.DriverSQLite {
		if _, err := conn.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
			_ = conn.Close()
			return nil, oops.With("driver", driver, "context", "failed to set busy timeout").Wrap(err)
		}
	}

	return &DB{DB: conn, driver: driver}, nil
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.driver
}

// Rebind rewrites '?' placeholders to the driver's native form.
func (db *DB) Rebind(query string) string {
	if db.driver != config.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Placeholders returns "?, ?, ..." with n markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// EnsureSchema creates the tables read by the exporter when they are missing.
// The production schema is owned by the main application; this exists for
// local sqlite stores and tests.
func (db *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS feeds (
			id VARCHAR(255) PRIMARY KEY,
			mp_name VARCHAR(255) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id VARCHAR(255) PRIMARY KEY,
			mp_id VARCHAR(255) NOT NULL,
			title VARCHAR(1000) NOT NULL DEFAULT '',
			url VARCHAR(2000) NOT NULL DEFAULT '',
			publish_time BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			mps_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_publish_time ON articles(publish_time)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_mp_id ON articles(mp_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return oops.With("driver", db.driver, "context", "failed to create schema").Wrap(err)
		}
	}
	return nil
}
