package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/kidprogress/internal/progress"
	"github.com/example/kidprogress/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const callbackProgress = "progress:"

// DashboardSource builds dashboard snapshots
type DashboardSource interface {
	Dashboard(ctx context.Context, studentID string) *progress.DashboardSnapshot
}

// sender is the part of tgbotapi.BotAPI the bot uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// MenuButton represents a button in an inline keyboard
type MenuButton struct {
	Text         string
	CallbackData string
}

func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Bot posts progress notifications to a Telegram chat and answers commands
type Bot struct {
	api        *tgbotapi.BotAPI
	send       sender
	chatID     int64
	dashboards DashboardSource
	opts       Options
	logger     *zap.Logger
}

// New authorizes against the Telegram API
func New(token string, chatID int64, dashboards DashboardSource, logger *zap.Logger, opts Options) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	b := newBot(api, chatID, dashboards, logger, opts)
	b.api = api
	b.logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(s sender, chatID int64, dashboards DashboardSource, logger *zap.Logger, opts Options) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.UpdateTimeout <= 0 {
		opts.UpdateTimeout = def.UpdateTimeout
	}
	if opts.RecentShown <= 0 {
		opts.RecentShown = def.RecentShown
	}
	return &Bot{
		send:       s,
		chatID:     chatID,
		dashboards: dashboards,
		opts:       opts,
		logger:     logger.Named("bot"),
	}
}

// Run handles incoming updates until ctx is done
func (b *Bot) Run(ctx context.Context) {
	if b.api == nil {
		return
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.opts.UpdateTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// BadgeAwarded posts an award announcement to the configured chat
func (b *Bot) BadgeAwarded(_ context.Context, award models.StudentBadge) error {
	msg := tgbotapi.NewMessage(b.chatID, formatAward(award))
	msg.ReplyMarkup = progressKeyboard(award.StudentID)
	return b.sendMessage(msg)
}

// StreakAtRisk reminds the chat that a streak ends unless the student plays today
func (b *Bot) StreakAtRisk(_ context.Context, rec models.Streak) error {
	return b.sendMessage(tgbotapi.NewMessage(b.chatID, formatStreakAtRisk(rec)))
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.handleCommand(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		b.logger.Warn("failed to handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message.Chat == nil {
		return fmt.Errorf("invalid message: chat is missing")
	}
	chatID := message.Chat.ID

	switch message.Command() {
	case "progress":
		studentID := strings.TrimSpace(message.CommandArguments())
		if studentID == "" {
			return b.sendMessage(tgbotapi.NewMessage(chatID, "Usage: /progress <student_id>"))
		}
		return b.sendDashboard(ctx, chatID, studentID)
	case "help", "start":
		return b.sendMessage(tgbotapi.NewMessage(chatID, helpText))
	default:
		return b.sendMessage(tgbotapi.NewMessage(chatID, "Unknown command. Use /help to see what I can do."))
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil || callback.Message.Chat == nil {
		return nil
	}
	studentID, ok := strings.CutPrefix(callback.Data, callbackProgress)
	if !ok || studentID == "" {
		return nil
	}
	return b.sendDashboard(ctx, callback.Message.Chat.ID, studentID)
}

func (b *Bot) sendDashboard(ctx context.Context, chatID int64, studentID string) error {
	snap := b.dashboards.Dashboard(ctx, studentID)
	msg := tgbotapi.NewMessage(chatID, formatDashboard(snap, b.opts.RecentShown))
	msg.ReplyMarkup = progressKeyboard(studentID)
	return b.sendMessage(msg)
}

func progressKeyboard(studentID string) tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{
		{{Text: "🔄 Progress", CallbackData: callbackProgress + studentID}},
	})
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	if _, err := b.send.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
