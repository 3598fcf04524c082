package telegram

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"
	"github.com/wemprss/article-exporter/internal/modules/export/domain"
	exportService "github.com/wemprss/article-exporter/internal/modules/export/service"
	"github.com/wemprss/article-exporter/internal/shared/config"
	"github.com/wemprss/article-exporter/internal/shared/errors"
)

const usage = `Usage: /export <start date> <start time> <end date> <end time> <selector>
Selector: all | feed=<feed_id> | tags=<tag_id>[,<tag_id>...]
Example: /export 2024-01-01 00:00:00 2024-01-31 23:59:59 all`

const exportCommand = "/export"

var errUsage = stderrors.New("invalid export command")

// Handler handles Telegram bot interactions
type Handler struct {
	cfg           *config.Config
	exportService *exportService.Service
	logger        *slog.Logger
}

// New creates a new Telegram handler
func New(cfg *config.Config, exportService *exportService.Service) *Handler {
	return &Handler{
		cfg:           cfg,
		exportService: exportService,
		logger:        slog.Default(),
	}
}

// SetLogger sets the logger
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logger
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandlerMatchFunc(IsExportCommand, h.handleExport)
}

// IsExportCommand matches "/export" as a whole command word, optionally
// addressed as "/export@botname".
func IsExportCommand(update *models.Update) bool {
	if update.Message == nil {
		return false
	}
	fields := strings.Fields(update.Message.Text)
	if len(fields) == 0 {
		return false
	}
	command, _, _ := strings.Cut(fields[0], "@")
	return command == exportCommand
}

// HandleUpdate ignores everything that is not a registered command
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message != nil {
		h.logger.Debug("Ignoring update", "chat_id", update.Message.Chat.ID)
	}
}

// IsAuthorized reports whether userID may request exports. An empty
// allow-list admits everyone.
func (h *Handler) IsAuthorized(userID int64) bool {
	if len(h.cfg.AllowedUsers) == 0 {
		return true
	}
	return lo.Contains(h.cfg.AllowedUsers, userID)
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.reply(ctx, b, update.Message.Chat.ID, usage)
}

func (h *Handler) handleExport(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if !h.IsAuthorized(msg.From.ID) {
		h.logger.Warn("Unauthorized export request", "user_id", msg.From.ID, "error", errors.ErrUnauthorized)
		h.reply(ctx, b, chatID, "❌ Unauthorized")
		return
	}

	req, err := ParseExportCommand(msg.Text)
	if err != nil {
		h.reply(ctx, b, chatID, usage)
		return
	}

	result, err := h.exportService.Export(ctx, req)
	if err != nil {
		h.reply(ctx, b, chatID, ErrorText(err))
		if _, _, ok := errors.Classified(err); !ok {
			h.logger.Error("Export failed", "user_id", msg.From.ID, "error", err)
		}
		return
	}

	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: result.Filename,
			Data:     result.Body,
		},
		Caption: fmt.Sprintf("%s · %d", result.Label, len(result.Entries)),
	})
	if err != nil {
		h.logger.Error("Failed to send document", "chat_id", chatID, "filename", result.Filename, "error", err)
		return
	}

	h.logger.Info("Export delivered", "user_id", msg.From.ID, "filename", result.Filename, "articles", len(result.Entries))
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

// ParseExportCommand turns "/export <date> <time> <date> <time> <selector>"
// into an export request.
func ParseExportCommand(text string) (domain.Request, error) {
	parts := strings.Fields(text)
	if len(parts) != 6 {
		return domain.Request{}, errUsage
	}

	req := domain.Request{
		StartDate: parts[1] + " " + parts[2],
		EndDate:   parts[3] + " " + parts[4],
	}

	selector := parts[5]
	switch {
	case strings.EqualFold(selector, domain.AllFeeds):
		req.Selector.FeedID = domain.AllFeeds
	case strings.HasPrefix(selector, "feed="):
		req.Selector.FeedID = strings.TrimPrefix(selector, "feed=")
	case strings.HasPrefix(selector, "tags="):
		req.Selector.TagIDs = strings.Split(strings.TrimPrefix(selector, "tags="), ",")
	default:
		return domain.Request{}, errUsage
	}
	return req, nil
}

// ErrorText renders an export error for a chat reply.
func ErrorText(err error) string {
	oe, _, ok := errors.Classified(err)
	if !ok {
		return "❌ Export failed, please try again later"
	}
	data := errors.Data(oe)
	switch {
	case data["feed_id"] != nil:
		return fmt.Sprintf("❌ %s: %v", oe.Public(), data["feed_id"])
	case data["tag_ids"] != nil:
		ids, _ := data["tag_ids"].([]string)
		return fmt.Sprintf("❌ %s: %s", oe.Public(), strings.Join(ids, ", "))
	default:
		return "❌ " + oe.Public()
	}
}
