package di

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	articleRepo "github.com/wemprss/article-exporter/internal/modules/article/repository"
	exportService "github.com/wemprss/article-exporter/internal/modules/export/service"
	feedRepo "github.com/wemprss/article-exporter/internal/modules/feed/repository"
	tagRepo "github.com/wemprss/article-exporter/internal/modules/tag/repository"
	"github.com/wemprss/article-exporter/internal/shared/config"
	"github.com/wemprss/article-exporter/internal/shared/database"
	"github.com/wemprss/article-exporter/internal/shared/errors"
	httpServer "github.com/wemprss/article-exporter/internal/transport/http"
	telegramHandler "github.com/wemprss/article-exporter/internal/transport/telegram"
)

// Setup initializes the dependency injection container
func Setup(ctx context.Context, logger *slog.Logger) (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Database
	do.Provide(injector, func(i do.Injector) (*database.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, oops.With("driver", cfg.DBDriver, "context", "failed to open database").Wrap(err)
		}
		if cfg.BootstrapSchema {
			if err := db.EnsureSchema(ctx); err != nil {
				db.Close()
				return nil, oops.With("driver", cfg.DBDriver, "context", "failed to bootstrap schema").Wrap(err)
			}
		}
		return db, nil
	})

	// Register Repositories
	do.Provide(injector, func(i do.Injector) (feedRepo.Repository, error) {
		return feedRepo.NewSQLStorage(do.MustInvoke[*database.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (tagRepo.Repository, error) {
		return tagRepo.NewSQLStorage(do.MustInvoke[*database.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (articleRepo.Repository, error) {
		return articleRepo.NewSQLStorage(do.MustInvoke[*database.DB](i)), nil
	})

	// Register Export Service
	do.Provide(injector, func(i do.Injector) (*exportService.Service, error) {
		svc := exportService.New(
			do.MustInvoke[feedRepo.Repository](i),
			do.MustInvoke[tagRepo.Repository](i),
			do.MustInvoke[articleRepo.Repository](i),
		)
		svc.SetLogger(logger)
		return svc, nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		svc := do.MustInvoke[*exportService.Service](i)
		db := do.MustInvoke[*database.DB](i)
		server := httpServer.New(cfg, svc, db)
		server.SetLogger(logger)
		return server, nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		svc := do.MustInvoke[*exportService.Service](i)
		handler := telegramHandler.New(cfg, svc)
		handler.SetLogger(logger)
		return handler, nil
	})

	// Register Bot (only resolvable when a token is configured)
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.TelegramBotToken == "" {
			return nil, errors.ErrBotTokenNotDefined
		}
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		b, err := bot.New(cfg.TelegramBotToken, bot.WithDefaultHandler(handler.HandleUpdate))
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}
		handler.RegisterCommands(b)
		return b, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	cfg, err := do.Invoke[*config.Config](injector)
	if err == nil && cfg.TelegramBotToken != "" {
		if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
			b.Close(ctx)
		}
	}

	if db, err := do.Invoke[*database.DB](injector); err == nil && db != nil {
		if err := db.Close(); err != nil {
			return oops.With("context", "failed to close database").Wrap(err)
		}
	}

	return nil
}
