package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/samber/oops"
	"github.com/wemprss/article-exporter/internal/modules/feed/domain"
	"github.com/wemprss/article-exporter/internal/shared/database"
	"github.com/wemprss/article-exporter/internal/shared/errors"
)

// SQLStorage implements Repository on top of the shared database
type SQLStorage struct {
	db *database.DB
}

// NewSQLStorage creates a new SQL-backed feed repository
func NewSQLStorage(db *database.DB) Repository {
	return &SQLStorage{db: db}
}

func (s *SQLStorage) GetFeed(ctx context.Context, feedID string) (*domain.Feed, error) {
	var (
		feed   domain.Feed
		mpName sql.NullString
	)
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT id, mp_name FROM feeds WHERE id = ?`), feedID)
	if err := row.Scan(&feed.ID, &mpName); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrFeedNotFound
		}
		return nil, oops.With("feed_id", feedID, "context", "failed to read feed").Wrap(err)
	}
	feed.MPName = mpName.String
	return &feed, nil
}
