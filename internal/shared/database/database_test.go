package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wemprss/article-exporter/internal/shared/config"
	"github.com/wemprss/article-exporter/internal/shared/errors"
)

func TestOpen_SQLiteMemory(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.EnsureSchema(ctx))
	// idempotent
	require.NoError(t, db.EnsureSchema(ctx))

	_, err = db.ExecContext(ctx, `INSERT INTO feeds (id, mp_name) VALUES (?, ?)`, "mp-1", "Feed One")
	require.NoError(t, err)

	var name string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT mp_name FROM feeds WHERE id = ?`, "mp-1").Scan(&name))
	assert.Equal(t, "Feed One", name)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "whatever")
	assert.ErrorIs(t, err, errors.ErrUnsupportedDriver)
}

func TestRebind(t *testing.T) {
	query := `SELECT id FROM articles WHERE mp_id IN (?, ?) AND publish_time >= ?`

	sqlite := &DB{driver: config.DriverSQLite}
	assert.Equal(t, query, sqlite.Rebind(query))

	pg := &DB{driver: config.DriverPostgres}
	assert.Equal(t, `SELECT id FROM articles WHERE mp_id IN ($1, $2) AND publish_time >= $3`, pg.Rebind(query))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))
}
