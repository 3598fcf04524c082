package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/wemprss/article-exporter/internal/modules/export/domain"
	feedRepo "github.com/wemprss/article-exporter/internal/modules/feed/repository"
	tagDomain "github.com/wemprss/article-exporter/internal/modules/tag/domain"
	tagRepo "github.com/wemprss/article-exporter/internal/modules/tag/repository"
	"github.com/wemprss/article-exporter/internal/shared/errors"
)

const (
	// AllLabel is the display label of an unrestricted export.
	AllLabel = "全部公众号"
	// TagLabelSeparator joins tag names into one display label.
	TagLabelSeparator = "、"
)

// Resolver turns a selector into a feed filter and display label
type Resolver struct {
	feedRepo feedRepo.Repository
	tagRepo  tagRepo.Repository
	logger   *slog.Logger
}

// NewResolver creates a new filter resolver
func NewResolver(feedRepo feedRepo.Repository, tagRepo tagRepo.Repository) *Resolver {
	return &Resolver{
		feedRepo: feedRepo,
		tagRepo:  tagRepo,
		logger:   slog.Default(),
	}
}

// SetLogger sets the logger
func (r *Resolver) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// Resolve expects a normalized, validated selector.
func (r *Resolver) Resolve(ctx context.Context, selector domain.Selector) (*domain.Resolution, error) {
	switch {
	case selector.IsAll():
		return &domain.Resolution{FeedIDs: nil, Label: AllLabel}, nil
	case selector.FeedID != "":
		return r.resolveFeed(ctx, selector.FeedID)
	default:
		return r.resolveTags(ctx, selector.TagIDs)
	}
}

func (r *Resolver) resolveFeed(ctx context.Context, feedID string) (*domain.Resolution, error) {
	feed, err := r.feedRepo.GetFeed(ctx, feedID)
	if err != nil {
		if stderrors.Is(err, errors.ErrFeedNotFound) {
			return nil, oops.In("resolver").
				Code(errors.CodeFeedNotFound).
				Public("公众号不存在").
				With("feed_id", feedID).
				Errorf("feed %s not found", feedID)
		}
		return nil, oops.In("resolver").With("feed_id", feedID).Wrap(err)
	}

	label := feed.MPName
	if strings.TrimSpace(label) == "" {
		label = feed.ID
	}
	return &domain.Resolution{FeedIDs: []string{feed.ID}, Label: label}, nil
}

func (r *Resolver) resolveTags(ctx context.Context, tagIDs []string) (*domain.Resolution, error) {
	tagIDs = lo.Uniq(tagIDs)

	tags, err := r.tagRepo.GetTags(ctx, tagIDs)
	if err != nil {
		return nil, oops.In("resolver").With("tag_ids", tagIDs).Wrap(err)
	}

	found := lo.Map(tags, func(tag *tagDomain.Tag, _ int) string { return tag.ID })
	if missing := lo.Without(tagIDs, found...); len(missing) > 0 {
		return nil, oops.In("resolver").
			Code(errors.CodeTagNotFound).
			Public("标签不存在").
			With("tag_ids", missing).
			Errorf("tags %v not found", missing)
	}

	var feedIDs []string
	for _, tag := range tags {
		ids, ok := tag.FeedIDs()
		if !ok {
			r.logger.Warn("Ignoring malformed tag feed list", "tag_id", tag.ID, "tag_name", tag.Name)
		}
		feedIDs = append(feedIDs, ids...)
	}
	feedIDs = lo.Uniq(feedIDs)

	if len(feedIDs) == 0 {
		return nil, oops.In("resolver").
			Code(errors.CodeTagsWithoutFeed).
			Public("所选标签未关联任何公众号").
			With("tag_ids", tagIDs).
			Errorf("tags %v resolve to no feeds", tagIDs)
	}

	names := lo.Map(tags, func(tag *tagDomain.Tag, _ int) string { return tag.Name })
	return &domain.Resolution{
		FeedIDs: feedIDs,
		Label:   strings.Join(names, TagLabelSeparator),
	}, nil
}
