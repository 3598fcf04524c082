package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/wemprss/article-exporter/internal/modules/article/domain"
	feedDomain "github.com/wemprss/article-exporter/internal/modules/feed/domain"
	"github.com/wemprss/article-exporter/internal/shared/database"
)

// SQLStorage implements Repository on top of the shared database
type SQLStorage struct {
	db *database.DB
}

// NewSQLStorage creates a new SQL-backed article repository
func NewSQLStorage(db *database.DB) Repository {
	return &SQLStorage{db: db}
}

func (s *SQLStorage) ListEntries(ctx context.Context, query domain.Query) ([]*domain.Entry, error) {
	if query.FeedIDs != nil && len(query.FeedIDs) == 0 {
		return []*domain.Entry{}, nil
	}

	var (
		where []string
		args  []any
	)

	switch {
	case query.FeedIDs == nil:
	case len(query.FeedIDs) == 1:
		where = append(where, "a.mp_id = ?")
		args = append(args, query.FeedIDs[0])
	default:
		where = append(where, "a.mp_id IN ("+database.Placeholders(len(query.FeedIDs))+")")
		args = append(args, lo.ToAnySlice(query.FeedIDs)...)
	}

	where = append(where, "a.publish_time >= ?", "a.publish_time <= ?")
	args = append(args, query.Start, query.End)

	stmt := `SELECT a.id, a.mp_id, a.title, a.url, a.publish_time, f.id, f.mp_name
		FROM articles a
		JOIN feeds f ON a.mp_id = f.id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY a.publish_time ASC`

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(stmt), args...)
	if err != nil {
		return nil, oops.With("start", query.Start, "end", query.End, "feed_ids", query.FeedIDs, "context", "failed to query articles").Wrap(err)
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var (
			article    domain.Article
			feed       feedDomain.Feed
			title, url sql.NullString
			mpName     sql.NullString
		)
		if err := rows.Scan(&article.ID, &article.MPID, &title, &url, &article.PublishTime, &feed.ID, &mpName); err != nil {
			return nil, oops.With("context", "failed to scan article").Wrap(err)
		}
		article.Title = title.String
		article.URL = url.String
		feed.MPName = mpName.String
		out = append(out, &domain.Entry{Article: &article, Feed: &feed})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("context", "failed to read articles").Wrap(err)
	}

	return out, nil
}
