package repository

import (
	"context"

	"github.com/wemprss/article-exporter/internal/modules/article/domain"
)

// Repository defines read access to articles joined with their feeds
type Repository interface {
	// ListEntries returns the matching articles ordered by publish time ascending.
	ListEntries(ctx context.Context, query domain.Query) ([]*domain.Entry, error)
}
