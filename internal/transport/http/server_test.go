package http

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	articleRepo "github.com/wemprss/article-exporter/internal/modules/article/repository"
	"github.com/wemprss/article-exporter/internal/modules/export/document"
	exportService "github.com/wemprss/article-exporter/internal/modules/export/service"
	feedRepo "github.com/wemprss/article-exporter/internal/modules/feed/repository"
	tagRepo "github.com/wemprss/article-exporter/internal/modules/tag/repository"
	"github.com/wemprss/article-exporter/internal/shared/config"
	"github.com/wemprss/article-exporter/internal/shared/database"
	"github.com/wemprss/article-exporter/internal/shared/database/databasetest"
)

// 2024-01-01 00:00:00 in UTC+8
const janStart int64 = 1704038400

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, db *database.DB) http.Handler {
	t.Helper()
	svc := exportService.New(feedRepo.NewSQLStorage(db), tagRepo.NewSQLStorage(db), articleRepo.NewSQLStorage(db))
	return New(&config.Config{HTTPPort: "0"}, svc, db).Handler()
}

func seed(t *testing.T) *database.DB {
	t.Helper()
	db := databasetest.Open(t)
	databasetest.InsertFeeds(t, db,
		databasetest.Feed{ID: "A", MPName: "Feed A"},
		databasetest.Feed{ID: "B", MPName: "Feed B"},
	)
	databasetest.InsertArticles(t, db,
		databasetest.Article{ID: "1", MPID: "A", Title: "One", URL: "https://example.com/1", PublishTime: janStart + 60},
		databasetest.Article{ID: "2", MPID: "B", Title: "Two", URL: "https://example.com/2", PublishTime: janStart + 86400*10},
		databasetest.Article{ID: "3", MPID: "A", Title: "Three", URL: "https://example.com/3", PublishTime: janStart + 86400*30},
	)
	databasetest.InsertTags(t, db, databasetest.Tag{ID: "1", Name: "科技", MPsID: `[{"id": "A"}]`})
	return db
}

func get(t *testing.T, h http.Handler, path string, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path+"?"+params.Encode(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func january(extra url.Values) url.Values {
	params := url.Values{
		"start_date": {"2024-01-01 00:00:00"},
		"end_date":   {"2024-01-31 23:59:59"},
	}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

type detail struct {
	Detail struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	} `json:"detail"`
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) detail {
	t.Helper()
	var d detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	return d
}

func TestDocx_AllFeeds(t *testing.T) {
	h := newTestServer(t, seed(t))

	rec := get(t, h, docxPath, january(url.Values{"feed_id": {"all"}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, document.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"attachment; filename*=UTF-8''"+url.PathEscape("星火选题库_全部公众号")+"%2801.01_01.31%29.docx",
		rec.Header().Get("Content-Disposition"))

	body := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	var doc string
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		doc = string(b)
	}
	assert.Equal(t, 3, strings.Count(doc, "<w:hyperlink "))
	assert.Less(t, strings.Index(doc, "One (Feed A)"), strings.Index(doc, "Two (Feed B)"))
	assert.Less(t, strings.Index(doc, "Two (Feed B)"), strings.Index(doc, "Three (Feed A)"))
}

func TestDocx_RepeatedTagParameter(t *testing.T) {
	h := newTestServer(t, seed(t))

	rec := get(t, h, docxPath, january(url.Values{"tag_id": {"1", "2"}}))
	require.Equal(t, http.StatusNotFound, rec.Code)

	d := decodeDetail(t, rec)
	assert.Equal(t, 40403, d.Detail.Code)
	assert.Equal(t, []any{"2"}, d.Detail.Data["tag_ids"])
}

func TestDocx_Errors(t *testing.T) {
	h := newTestServer(t, seed(t))

	tests := []struct {
		name   string
		params url.Values
		status int
		code   int
	}{
		{
			name:   "unknown feed",
			params: january(url.Values{"feed_id": {"unknown-id"}}),
			status: http.StatusNotFound,
			code:   40402,
		},
		{
			name: "no articles in range",
			params: url.Values{
				"start_date": {"2023-01-01 00:00:00"},
				"end_date":   {"2023-01-31 23:59:59"},
				"feed_id":    {"all"},
			},
			status: http.StatusNotFound,
			code:   40401,
		},
		{
			name:   "malformed date",
			params: url.Values{"start_date": {"yesterday"}, "end_date": {"2024-01-31 23:59:59"}, "feed_id": {"all"}},
			status: http.StatusBadRequest,
			code:   40001,
		},
		{
			name:   "missing dates",
			params: url.Values{"feed_id": {"all"}},
			status: http.StatusBadRequest,
			code:   40001,
		},
		{
			name:   "both selectors",
			params: january(url.Values{"feed_id": {"A"}, "tag_id": {"1"}}),
			status: http.StatusBadRequest,
			code:   40002,
		},
		{
			name:   "no selector",
			params: january(nil),
			status: http.StatusBadRequest,
			code:   40002,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, docxPath, tt.params)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeDetail(t, rec).Detail.Code)
		})
	}
}

func TestDocx_UnknownFeedCarriesID(t *testing.T) {
	h := newTestServer(t, seed(t))

	rec := get(t, h, docxPath, january(url.Values{"feed_id": {"unknown-id"}}))
	d := decodeDetail(t, rec)
	assert.Equal(t, map[string]any{"feed_id": "unknown-id"}, d.Detail.Data)
	assert.Equal(t, "公众号不存在", d.Detail.Message)
}

func TestDocx_ErrorDataOmitsInternalContext(t *testing.T) {
	h := newTestServer(t, seed(t))

	rec := get(t, h, docxPath, url.Values{"start_date": {"yesterday"}, "end_date": {"2024-01-31 23:59:59"}, "feed_id": {"all"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	d := decodeDetail(t, rec)
	assert.Nil(t, d.Detail.Data)
	assert.Contains(t, d.Detail.Message, "YYYY-MM-DD HH:MM:SS")
	assert.NotContains(t, rec.Body.String(), "yesterday")
}

func TestDocx_InternalError(t *testing.T) {
	db := seed(t)
	h := newTestServer(t, db)
	require.NoError(t, db.Close())

	rec := get(t, h, docxPath, january(url.Values{"feed_id": {"all"}}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, codeInternal, decodeDetail(t, rec).Detail.Code)
}

func TestRSS_Preview(t *testing.T) {
	h := newTestServer(t, seed(t))

	rec := get(t, h, rssPath, january(url.Values{"feed_id": {"A"}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")

	parsed, err := gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(t, err)
	require.Len(t, parsed.Items, 2)
	assert.Equal(t, "One (Feed A)", parsed.Items[0].Title)
	assert.Equal(t, "Three (Feed A)", parsed.Items[1].Title)
}

func TestHealth(t *testing.T) {
	svc := exportService.New(nil, nil, nil)

	ok := New(&config.Config{}, svc, pingFunc(func(context.Context) error { return nil })).Handler()
	rec := get(t, ok, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	down := New(&config.Config{}, svc, pingFunc(func(context.Context) error { return stderrors.New("down") })).Handler()
	rec = get(t, down, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, "attachment; filename*=UTF-8''a%20b%28c%29.docx", ContentDisposition("a b(c).docx"))
	assert.Equal(t, "attachment; filename*=UTF-8''%E6%98%9F.docx", ContentDisposition("星.docx"))
}

func TestServer_ShutdownStopsStart(t *testing.T) {
	s := New(&config.Config{HTTPPort: "0"}, nil, pingFunc(func(context.Context) error { return nil }))

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.server != nil
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	s := New(&config.Config{HTTPPort: "0"}, nil, nil)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.ErrorIs(t, s.Start(), http.ErrServerClosed)
}
