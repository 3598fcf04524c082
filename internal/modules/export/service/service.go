package service

import (
	"bytes"
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/oops"
	articleDomain "github.com/wemprss/article-exporter/internal/modules/article/domain"
	articleRepo "github.com/wemprss/article-exporter/internal/modules/article/repository"
	"github.com/wemprss/article-exporter/internal/modules/export/document"
	"github.com/wemprss/article-exporter/internal/modules/export/domain"
	feedRepo "github.com/wemprss/article-exporter/internal/modules/feed/repository"
	tagRepo "github.com/wemprss/article-exporter/internal/modules/tag/repository"
	"github.com/wemprss/article-exporter/internal/shared/errors"
)

// Service runs article exports
type Service struct {
	resolver    *Resolver
	articleRepo articleRepo.Repository
	renderer    *document.Renderer
	logger      *slog.Logger
}

// New creates a new export service
func New(feedRepo feedRepo.Repository, tagRepo tagRepo.Repository, articleRepo articleRepo.Repository) *Service {
	return &Service{
		resolver:    NewResolver(feedRepo, tagRepo),
		articleRepo: articleRepo,
		renderer:    document.NewRenderer(),
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
	s.resolver.SetLogger(logger)
}

// SetRenderer replaces the document renderer
func (s *Service) SetRenderer(renderer *document.Renderer) {
	s.renderer = renderer
}

// Collect validates req, resolves its selector and loads the matching
// entries ordered by publish time. An empty selection is a not-found error.
func (s *Service) Collect(ctx context.Context, req domain.Request) (*domain.Resolution, []*articleDomain.Entry, error) {
	rng, err := req.ParseRange()
	if err != nil {
		return nil, nil, err
	}

	selector := req.Selector.Normalize()
	if err := selector.Validate(); err != nil {
		return nil, nil, err
	}

	resolution, err := s.resolver.Resolve(ctx, selector)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.articleRepo.ListEntries(ctx, articleDomain.Query{
		Start:   rng.Start,
		End:     rng.End,
		FeedIDs: resolution.FeedIDs,
	})
	if err != nil {
		return nil, nil, oops.In("export").With("start", rng.Start, "end", rng.End, "label", resolution.Label).Wrap(err)
	}
	if len(entries) == 0 {
		return nil, nil, oops.In("export").
			Code(errors.CodeNoArticles).
			Public("在指定时间范围内未找到任何文章").
			With("label", resolution.Label).
			Errorf("no articles between %d and %d", rng.Start, rng.End)
	}

	slices.SortStableFunc(entries, func(a, b *articleDomain.Entry) int {
		return cmp.Compare(a.Article.PublishTime, b.Article.PublishTime)
	})

	s.logger.Info("Export selection resolved",
		"label", resolution.Label,
		"feed_ids", len(resolution.FeedIDs),
		"start", rng.Start,
		"end", rng.End,
		"articles", len(entries),
	)
	return resolution, entries, nil
}

// Export renders the selection of req into a downloadable document.
func (s *Service) Export(ctx context.Context, req domain.Request) (*domain.Result, error) {
	resolution, entries, err := s.Collect(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, entries); err != nil {
		return nil, oops.In("export").With("label", resolution.Label, "articles", len(entries)).Wrap(err)
	}

	body, err := document.StripThumbnail(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, oops.In("export").With("label", resolution.Label).Wrap(err)
	}

	first := time.Unix(entries[0].Article.PublishTime, 0)
	last := time.Unix(entries[len(entries)-1].Article.PublishTime, 0)

	return &domain.Result{
		Filename: BuildFilename(resolution.Label, first, last),
		Label:    resolution.Label,
		Body:     body,
		Entries:  entries,
	}, nil
}
