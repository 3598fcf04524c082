package repository

import (
	"context"

	"github.com/wemprss/article-exporter/internal/modules/feed/domain"
)

// Repository defines read access to feeds
type Repository interface {
	GetFeed(ctx context.Context, feedID string) (*domain.Feed, error)
}
