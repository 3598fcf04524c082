package domain

import (
	feedDomain "github.com/wemprss/article-exporter/internal/modules/feed/domain"
)

// Article is a published item owned by a feed. PublishTime is epoch seconds (UTC).
type Article struct {
	ID          string `json:"id"`
	MPID        string `json:"mp_id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishTime int64  `json:"publish_time"`
}

// Entry pairs an article with its owning feed.
type Entry struct {
	Article *Article
	Feed    *feedDomain.Feed
}

// Query selects articles published within [Start, End] (inclusive).
// A nil FeedIDs means no feed restriction; otherwise only the listed feeds match.
type Query struct {
	Start   int64
	End     int64
	FeedIDs []string
}
