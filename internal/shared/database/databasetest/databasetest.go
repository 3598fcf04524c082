// Package databasetest provides an in-memory store seeded with fixtures.
package databasetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wemprss/article-exporter/internal/shared/config"
	"github.com/wemprss/article-exporter/internal/shared/database"
)

type Feed struct {
	ID     string
	MPName string
}

type Article struct {
	ID          string
	MPID        string
	Title       string
	URL         string
	PublishTime int64
}

type Tag struct {
	ID    string
	Name  string
	MPsID string
}

// Open returns an empty in-memory sqlite store with the exporter schema.
func Open(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func InsertFeeds(t *testing.T, db *database.DB, feeds ...Feed) {
	t.Helper()
	for _, f := range feeds {
		_, err := db.Exec(`INSERT INTO feeds (id, mp_name) VALUES (?, ?)`, f.ID, f.MPName)
		require.NoError(t, err)
	}
}

func InsertArticles(t *testing.T, db *database.DB, articles ...Article) {
	t.Helper()
	for _, a := range articles {
		_, err := db.Exec(`INSERT INTO articles (id, mp_id, title, url, publish_time) VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.MPID, a.Title, a.URL, a.PublishTime)
		require.NoError(t, err)
	}
}

func InsertTags(t *testing.T, db *database.DB, tags ...Tag) {
	t.Helper()
	for _, tag := range tags {
		_, err := db.Exec(`INSERT INTO tags (id, name, mps_id) VALUES (?, ?, ?)`, tag.ID, tag.Name, tag.MPsID)
		require.NoError(t, err)
	}
}
