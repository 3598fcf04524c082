package service

import (
	"context"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wemprss/article-exporter/internal/modules/export/domain"
	"github.com/wemprss/article-exporter/internal/shared/errors"
)

func TestPreview_RSS(t *testing.T) {
	svc := newService(seed(t))

	feed, err := svc.Preview(context.Background(), january(domain.Selector{TagIDs: []string{"1"}}), "http://localhost/rss")
	require.NoError(t, err)

	rss, err := feed.ToRss()
	require.NoError(t, err)

	parsed, err := gofeed.NewParser().ParseString(rss)
	require.NoError(t, err)

	assert.Equal(t, "星火选题库 - 科技", parsed.Title)
	require.Len(t, parsed.Items, 2)
	assert.Equal(t, "Alpha (Feed A)", parsed.Items[0].Title)
	assert.Equal(t, "https://example.com/1", parsed.Items[0].Link)
	assert.Equal(t, "Beta (Feed B)", parsed.Items[1].Title)
	require.NotNil(t, parsed.Items[0].PublishedParsed)
	assert.Equal(t, janStart, parsed.Items[0].PublishedParsed.Unix())
}

func TestPreview_PropagatesNotFound(t *testing.T) {
	svc := newService(seed(t))

	_, err := svc.Preview(context.Background(), january(domain.Selector{FeedID: "ghost"}), "http://localhost/rss")
	requireCode(t, err, errors.KindNotFound, errors.CodeFeedNotFound)
}
