// Package bot exposes the assistant over Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/models"
	"github.com/xaenox/nutrobo/internal/service"
)

var barcodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)

// DefaultTurnTimeout bounds a turn when no timeout is configured.
const DefaultTurnTimeout = 30 * time.Second

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api     *tgbotapi.BotAPI
	sender  sender
	threads service.ThreadService
	users   service.UserService
	logger  *zap.Logger

	turnTimeout time.Duration
}

// New connects to Telegram. Every update is handled under turnTimeout.
func New(token string, services *service.Services, turnTimeout time.Duration, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := newBot(api, services.Threads(), services.Users(), turnTimeout, logger)
	b.api = api
	return b, nil
}

func newBot(s sender, threads service.ThreadService, users service.UserService, turnTimeout time.Duration, logger *zap.Logger) *Bot {
	if turnTimeout <= 0 {
		turnTimeout = DefaultTurnTimeout
	}
	return &Bot{
		sender:      s,
		threads:     threads,
		users:       users,
		logger:      logger,
		turnTimeout: turnTimeout,
	}
}

// Start consumes updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func userID(message *tgbotapi.Message) string {
	return fmt.Sprintf("tg:%d", message.From.ID)
}

// handleMessage runs one turn. The deadline keeps a stuck run from holding
// the thread lock past its TTL.
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, b.turnTimeout)
	defer cancel()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := strings.TrimSpace(message.Text)
	if message.Caption != "" {
		content = strings.TrimSpace(message.Caption)
	}
	if content == "" {
		b.sendMessage(message.Chat.ID, "Please send text, a barcode number or /label with the nutrition facts.")
		return
	}

	uid := userID(message)
	threadID, err := b.currentThread(ctx, uid)
	if err != nil {
		b.replyError(message.Chat.ID, uid, err)
		return
	}

	var thread *models.Thread
	if barcodePattern.MatchString(content) {
		thread, err = b.threads.SendBarcode(ctx, uid, threadID, content, nil)
	} else {
		thread, err = b.threads.SendMessage(ctx, uid, threadID, content, nil)
	}
	if err != nil {
		b.replyError(message.Chat.ID, uid, err)
		return
	}
	b.replyWithAssistant(message.Chat.ID, thread)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "help":
		b.handleHelp(message)
	case "label":
		b.handleLabel(ctx, message)
	case "ratio":
		b.handleRatio(ctx, message)
	case "profile":
		b.handleProfile(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

// handleStart always opens a fresh thread.
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	uid := userID(message)
	thread, err := b.threads.CreateThread(ctx, uid)
	if err != nil {
		b.replyError(message.Chat.ID, uid, err)
		return
	}
	b.replyWithAssistant(message.Chat.ID, thread)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start a new conversation
/label <text> - Send the nutrition facts printed on a label
/ratio <insulin:carbs> - Set your insulin to carb ratio, e.g. /ratio 1:10
/profile - Show your profile
/help - Show this help message

Send a barcode number to look a product up, or just ask a question.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleLabel(ctx context.Context, message *tgbotapi.Message) {
	uid := userID(message)
	threadID, err := b.currentThread(ctx, uid)
	if err != nil {
		b.replyError(message.Chat.ID, uid, err)
		return
	}
	thread, err := b.threads.SendNutritionInfo(ctx, uid, threadID, message.CommandArguments(), nil)
	if err != nil {
		b.replyError(message.Chat.ID, uid, err)
		return
	}
	b.replyWithAssistant(message.Chat.ID, thread)
}

func (b *Bot) handleRatio(ctx context.Context, message *tgbotapi.Message) {
	uid := userID(message)
	ratio := strings.TrimSpace(message.CommandArguments())
	if ratio == "" {
		b.sendMessage(message.Chat.ID, "Usage: /ratio 1:10")
		return
	}
	user, err := b.users.UpdateProfile(ctx, uid, service.ProfileUpdate{ICRatio: ratio})
	if err != nil {
		b.replyError(message.Chat.ID, uid, err)
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Insulin to carb ratio set to %s.", user.Profile.ICRatio))
}

func (b *Bot) handleProfile(ctx context.Context, message *tgbotapi.Message) {
	uid := userID(message)
	user, err := b.users.GetProfile(ctx, uid)
	if err != nil {
		b.replyError(message.Chat.ID, uid, err)
		return
	}

	ratio := user.Profile.ICRatio
	if ratio == "" {
		ratio = "not set"
	}
	response := "*Your profile:*\n"
	response += escapeMarkdown(fmt.Sprintf("Insulin to carb ratio: %s", ratio)) + "\n"
	response += escapeMarkdown(fmt.Sprintf("Conversations: %d", len(user.Threads)))

	msg := tgbotapi.NewMessage(message.Chat.ID, response)
	msg.ParseMode = "MarkdownV2"
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send profile",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

// currentThread returns the user's newest thread, opening one if needed.
func (b *Bot) currentThread(ctx context.Context, uid string) (string, error) {
	user, err := b.users.GetProfile(ctx, uid)
	if err != nil {
		return "", err
	}
	if len(user.Threads) > 0 {
		return user.Threads[0], nil
	}
	thread, err := b.threads.CreateThread(ctx, uid)
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (b *Bot) replyWithAssistant(chatID int64, thread *models.Thread) {
	reply, ok := thread.LastAssistantMessage()
	if !ok || reply.Content == "" {
		b.sendMessage(chatID, "The assistant did not answer. Please try again.")
		return
	}
	b.sendMessage(chatID, reply.Content)
}

func (b *Bot) replyError(chatID int64, uid string, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		b.logger.Info("Request rejected",
			zap.Error(err),
			zap.String("user_id", uid))
		b.sendErrorMessage(chatID, svcErr.Message)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		b.logger.Warn("Turn timed out",
			zap.Error(err),
			zap.String("user_id", uid))
		b.sendErrorMessage(chatID, "The assistant took too long to answer. Please try again.")
		return
	}
	b.logger.Error("Failed to handle message",
		zap.Error(err),
		zap.String("user_id", uid))
	b.sendErrorMessage(chatID, "Sorry, something went wrong. Please try again.")
}

// escapeMarkdown escapes MarkdownV2 special characters.
func escapeMarkdown(text string) string {
	specialChars := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
