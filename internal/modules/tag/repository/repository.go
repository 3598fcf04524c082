package repository

import (
	"context"

	"github.com/wemprss/article-exporter/internal/modules/tag/domain"
)

// Repository defines read access to tags
type Repository interface {
	// GetTags returns the tags that exist among tagIDs, in the order requested.
	GetTags(ctx context.Context, tagIDs []string) ([]*domain.Tag, error)
}
