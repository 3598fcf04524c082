package domain

import (
	"bytes"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/samber/oops"
	articleDomain "github.com/wemprss/article-exporter/internal/modules/article/domain"
	"github.com/wemprss/article-exporter/internal/shared/errors"
)

// AllFeeds is the feed selector that lifts the feed restriction.
const AllFeeds = "all"

// DateLayout is the wall-clock layout accepted for start and end dates.
const DateLayout = "2006-01-02 15:04:05"

// DisplayZone is the fixed UTC+8 zone dates are entered and displayed in.
var DisplayZone = time.FixedZone("Asia/Shanghai", 8*60*60)

// Selector chooses which feeds an export covers. Exactly one of FeedID or
// TagIDs must be set.
type Selector struct {
	FeedID string
	TagIDs []string
}

// Normalize trims the selector and drops empty tag ids.
func (s Selector) Normalize() Selector {
	tagIDs := lo.Compact(lo.Map(s.TagIDs, func(id string, _ int) string {
		return strings.TrimSpace(id)
	}))
	return Selector{FeedID: strings.TrimSpace(s.FeedID), TagIDs: tagIDs}
}

// Validate checks that exactly one selector variant is present.
func (s Selector) Validate() error {
	hasFeed := s.FeedID != ""
	hasTags := len(s.TagIDs) > 0

	errorBuilder := oops.In("export").Code(errors.CodeInvalidSelector)
	switch {
	case hasFeed && hasTags:
		return errorBuilder.Public("feed_id 和 tag_id 不能同时提供").New("both feed_id and tag_id given")
	case !hasFeed && !hasTags:
		return errorBuilder.Public("必须提供 feed_id 或 tag_id 其中之一").New("neither feed_id nor tag_id given")
	}
	return nil
}

// IsAll reports whether the selector lifts the feed restriction.
func (s Selector) IsAll() bool {
	return strings.EqualFold(s.FeedID, AllFeeds)
}

// Request is one export: raw date texts plus a selector.
type Request struct {
	StartDate string
	EndDate   string
	Selector  Selector
}

// Range is an inclusive window of epoch seconds.
type Range struct {
	Start int64
	End   int64
}

// ParseRange parses both dates as DisplayZone wall-clock time.
func (r Request) ParseRange() (Range, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return Range{}, err
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start.Unix(), End: end.Unix()}, nil
}

// ParseDate parses text in DateLayout as DisplayZone wall-clock time.
func ParseDate(text string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(text), DisplayZone)
	if err != nil {
		return time.Time{}, oops.In("export").
			Code(errors.CodeInvalidDate).
			Public("日期格式错误，应为 'YYYY-MM-DD HH:MM:SS'").
			With("date", text).
			Wrap(err)
	}
	return t, nil
}

// Resolution is a selector turned into a concrete feed filter.
// FeedIDs is nil when no feed restriction applies.
type Resolution struct {
	FeedIDs []string
	Label   string
}

// Result is a rendered export ready to be sent. Body is positioned at the start.
type Result struct {
	Filename string
	Label    string
	Body     *bytes.Reader
	Entries  []*articleDomain.Entry
}
