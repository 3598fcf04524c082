package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"
	"github.com/urfave/cli/v2"
	"github.com/wemprss/article-exporter/internal/di"
	"github.com/wemprss/article-exporter/internal/modules/export/domain"
	exportService "github.com/wemprss/article-exporter/internal/modules/export/service"
	"github.com/wemprss/article-exporter/internal/shared/config"
	"github.com/wemprss/article-exporter/internal/shared/errors"
	httpServer "github.com/wemprss/article-exporter/internal/transport/http"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
)

// shutdownTimeout bounds how long in-flight exports may finish on SIGTERM.
const shutdownTimeout = 15 * time.Second

var level = new(slog.LevelVar)

func main() {
	// Text to stdout, errors also as JSON to stderr
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})
	logger := slog.New(slogmulti.Fanout(textHandler, jsonHandler))
	slog.SetDefault(logger)

	app := &cli.App{
		Name:  "exporter",
		Usage: "Export WeChat articles to Word documents",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP export API and the optional Telegram bot",
				Action: serve,
			},
			{
				Name:  "export",
				Usage: "Write one export document to disk",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "start",
						Aliases:  []string{"s"},
						Usage:    "Range start, 'YYYY-MM-DD HH:MM:SS'",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "end",
						Aliases:  []string{"e"},
						Usage:    "Range end, 'YYYY-MM-DD HH:MM:SS'",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "feed-id",
						Aliases: []string{"f"},
						Usage:   "Feed id, or 'all' for every feed",
					},
					&cli.StringSliceFlag{
						Name:    "tag-id",
						Aliases: []string{"t"},
						Usage:   "Tag id (repeatable)",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Value:   ".",
						Usage:   "Output directory",
					},
				},
				Action: exportDocument,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}
}

func setup(ctx context.Context) (do.Injector, *config.Config, error) {
	injector, err := di.Setup(ctx, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return nil, nil, err
	}
	if cfg.IsDevelopment() {
		level.Set(slog.LevelDebug)
	}
	return injector, cfg, nil
}

func shutdown(injector do.Injector) {
	if err := di.Shutdown(injector); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}

func serve(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	injector, cfg, err := setup(ctx)
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		return cli.Exit(err.Error(), ExitGeneralError)
	}
	defer shutdown(injector)

	server, err := do.Invoke[*httpServer.Server](injector)
	if err != nil {
		slog.Error("Failed to initialize HTTP server", "error", err)
		return cli.Exit(err.Error(), ExitDataError)
	}

	if cfg.TelegramBotToken != "" {
		b, err := do.Invoke[*bot.Bot](injector)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
			return cli.Exit(err.Error(), ExitGeneralError)
		}
		go b.Start(ctx)
		slog.Info("Telegram bot started", "allowed_users", len(cfg.AllowedUsers))
	} else {
		slog.Info("Telegram bot disabled", "reason", errors.ErrBotTokenNotDefined)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	slog.Info("Application started", "port", cfg.HTTPPort, "driver", cfg.DBDriver)

	select {
	case <-ctx.Done():
		slog.Info("Shutting down...")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown failed", "error", err)
			return cli.Exit(err.Error(), ExitGeneralError)
		}
		return nil
	case err := <-errCh:
		slog.Error("HTTP server stopped", "error", err)
		return cli.Exit(err.Error(), ExitGeneralError)
	}
}

func exportDocument(c *cli.Context) error {
	injector, _, err := setup(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), ExitGeneralError)
	}
	defer shutdown(injector)

	svc, err := do.Invoke[*exportService.Service](injector)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	result, err := svc.Export(c.Context, domain.Request{
		StartDate: c.String("start"),
		EndDate:   c.String("end"),
		Selector: domain.Selector{
			FeedID: c.String("feed-id"),
			TagIDs: c.StringSlice("tag-id"),
		},
	})
	if err != nil {
		if oe, _, ok := errors.Classified(err); ok {
			return cli.Exit(fmt.Sprintf("%v: %s", oe.Code(), oe.Public()), ExitUsageError)
		}
		return cli.Exit(fmt.Sprintf("Export failed: %v", err), ExitDataError)
	}

	dir := c.String("out")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to create output directory: %v", err), ExitDataError)
	}

	path := filepath.Join(dir, result.Filename)
	f, err := os.Create(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to create file: %v", err), ExitDataError)
	}
	defer f.Close()

	if _, err := result.Body.WriteTo(f); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to write file: %v", err), ExitDataError)
	}

	slog.Info("Export written", "path", path, "label", result.Label, "articles", len(result.Entries))
	fmt.Fprintln(c.App.Writer, path)
	return nil
}
