package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/feeds"
	articleDomain "github.com/wemprss/article-exporter/internal/modules/article/domain"
	"github.com/wemprss/article-exporter/internal/modules/export/document"
	"github.com/wemprss/article-exporter/internal/modules/export/domain"
)

// Preview builds an RSS feed of the same selection an export would contain.
func (s *Service) Preview(ctx context.Context, req domain.Request, link string) (*feeds.Feed, error) {
	resolution, entries, err := s.Collect(ctx, req)
	if err != nil {
		return nil, err
	}

	first := time.Unix(entries[0].Article.PublishTime, 0)
	last := time.Unix(entries[len(entries)-1].Article.PublishTime, 0)

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - %s", document.TitleLabel, resolution.Label),
		Link:        &feeds.Link{Href: link},
		Description: fmt.Sprintf("%s ~ %s", document.FormatPublishTime(first.Unix()), document.FormatPublishTime(last.Unix())),
		Author:      &feeds.Author{Name: document.ProductName},
		Created:     first,
		Updated:     last,
	}

	for _, e := range entries {
		feed.Items = append(feed.Items, entryToItem(e))
	}
	return feed, nil
}

func entryToItem(e *articleDomain.Entry) *feeds.Item {
	return &feeds.Item{
		Title:       fmt.Sprintf("%s (%s)", e.Article.Title, e.Feed.MPName),
		Link:        &feeds.Link{Href: e.Article.URL},
		Description: document.FormatPublishTime(e.Article.PublishTime),
		Author:      &feeds.Author{Name: e.Feed.MPName},
		Created:     time.Unix(e.Article.PublishTime, 0),
		Id:          e.Article.ID,
	}
}
