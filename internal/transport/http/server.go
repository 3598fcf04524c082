package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	sloghttp "github.com/samber/slog-http"
	"github.com/wemprss/article-exporter/internal/modules/export/document"
	"github.com/wemprss/article-exporter/internal/modules/export/domain"
	exportService "github.com/wemprss/article-exporter/internal/modules/export/service"
	"github.com/wemprss/article-exporter/internal/shared/config"
	"github.com/wemprss/article-exporter/internal/shared/errors"
)

const (
	docxPath = "/api/v1/wx/exporter/docx"
	rssPath  = "/api/v1/wx/exporter/rss"

	codeInternal = 50001
)

// Pinger reports store availability for health checks
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server handles HTTP export requests
type Server struct {
	cfg           *config.Config
	exportService *exportService.Service
	db            Pinger
	logger        *slog.Logger

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// New creates a new HTTP server
func New(cfg *config.Config, exportService *exportService.Service, db Pinger) *Server {
	return &Server{
		cfg:           cfg,
		exportService: exportService,
		db:            db,
		logger:        slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler returns the routed handler wrapped with logging and recovery
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+docxPath, s.handleDocx)
	mux.HandleFunc("GET "+rssPath, s.handleRSS)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := sloghttp.Recovery(mux)
	return sloghttp.New(s.logger)(handler)
}

// Start starts the HTTP server and blocks until it stops. After Shutdown
// it returns http.ErrServerClosed.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	server := s.server
	s.mu.Unlock()

	s.logger.Info("Export server starting", "addr", addr)
	return server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight exports
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	s.logger.Info("Export server stopping")
	return server.Shutdown(ctx)
}

func exportRequest(r *http.Request) domain.Request {
	q := r.URL.Query()
	return domain.Request{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Selector: domain.Selector{
			FeedID: q.Get("feed_id"),
			TagIDs: q["tag_id"],
		},
	}
}

func (s *Server) handleDocx(w http.ResponseWriter, r *http.Request) {
	result, err := s.exportService.Export(r.Context(), exportRequest(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sloghttp.AddCustomAttributes(r, slog.Int("articles", len(result.Entries)))
	sloghttp.AddCustomAttributes(r, slog.String("filename", result.Filename))

	w.Header().Set("Content-Disposition", ContentDisposition(result.Filename))
	w.Header().Set("Content-Type", document.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(result.Body.Size(), 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, result.Body); err != nil {
		s.logger.Error("Error writing document", "filename", result.Filename, "error", err)
	}
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	link := fmt.Sprintf("%s://%s%s", getScheme(r), r.Host, r.URL.RequestURI())

	feed, err := s.exportService.Preview(r.Context(), exportRequest(r), link)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorDetail struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if oe, kind, ok := errors.Classified(err); ok {
		status := http.StatusBadRequest
		if kind == errors.KindNotFound {
			status = http.StatusNotFound
		}
		code, _ := oe.Code().(int)
		s.logger.Info("Export rejected", "path", r.URL.Path, "code", code, "error", err)
		writeJSON(w, status, map[string]errorDetail{
			"detail": {Code: code, Message: oe.Public(), Data: errors.Data(oe)},
		})
		return
	}

	s.logger.Error("Export failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]errorDetail{
		"detail": {Code: codeInternal, Message: "导出失败，请稍后重试"},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ContentDisposition builds an attachment header carrying a UTF-8 filename.
func ContentDisposition(filename string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(filename), "+", "%20")
	return "attachment; filename*=UTF-8''" + encoded
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
