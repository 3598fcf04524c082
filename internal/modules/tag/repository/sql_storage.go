package repository

import (
	"context"
	"database/sql"

	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/wemprss/article-exporter/internal/modules/tag/domain"
	"github.com/wemprss/article-exporter/internal/shared/database"
)

// SQLStorage implements Repository on top of the shared database
type SQLStorage struct {
	db *database.DB
}

// NewSQLStorage creates a new SQL-backed tag repository
func NewSQLStorage(db *database.DB) Repository {
	return &SQLStorage{db: db}
}

func (s *SQLStorage) GetTags(ctx context.Context, tagIDs []string) ([]*domain.Tag, error) {
	tagIDs = lo.Uniq(tagIDs)
	if len(tagIDs) == 0 {
		return []*domain.Tag{}, nil
	}

	query := s.db.Rebind(`SELECT id, name, mps_id FROM tags WHERE id IN (` + database.Placeholders(len(tagIDs)) + `)`)
	rows, err := s.db.QueryContext(ctx, query, lo.ToAnySlice(tagIDs)...)
	if err != nil {
		return nil, oops.With("tag_ids", tagIDs, "context", "failed to query tags").Wrap(err)
	}
	defer rows.Close()

	found := make(map[string]*domain.Tag, len(tagIDs))
	for rows.Next() {
		var (
			tag   domain.Tag
			name  sql.NullString
			mpsID sql.NullString
		)
		if err := rows.Scan(&tag.ID, &name, &mpsID); err != nil {
			return nil, oops.With("tag_ids", tagIDs, "context", "failed to scan tag").Wrap(err)
		}
		tag.Name = name.String
		tag.MPsID = mpsID.String
		found[tag.ID] = &tag
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("tag_ids", tagIDs, "context", "failed to read tags").Wrap(err)
	}

	return lo.FilterMap(tagIDs, func(id string, _ int) (*domain.Tag, bool) {
		tag, ok := found[id]
		return tag, ok
	}), nil
}
