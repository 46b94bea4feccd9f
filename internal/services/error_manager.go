package services

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Sender is the part of the bot API used to deliver messages.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

const adminMessageLimit = 4000

type ErrorManager struct {
	bot     Sender
	adminID int64
	logger  *zap.Logger
}

func NewErrorManager(b Sender, adminID int64, logger *zap.Logger) *ErrorManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorManager{
		bot:     b,
		adminID: adminID,
		logger:  logger.Named("errors"),
	}
}

// NotifyAdmin reports a recovered handler panic to the admin chat.
func (e *ErrorManager) NotifyAdmin(ctx context.Context, panicValue interface{}, update *models.Update) {
	userInfo := describeSender(update)
	stack := string(debug.Stack())

	e.logger.Error("handler panic", zap.Any("panic", panicValue), zap.String("user", userInfo), zap.String("stack", stack))

	e.send(ctx, fmt.Sprintf("🚨 Panic in handler\nUser: %s\nError: %v\n\nStack trace:\n%s", userInfo, panicValue, stack))
}

// NotifySaveFailure reports a save that failed for a reason other than
// user input.
func (e *ErrorManager) NotifySaveFailure(ctx context.Context, userID int64, where string, err error) {
	e.logger.Warn("save failed", zap.Int64("user_id", userID), zap.String("step", where), zap.Error(err))
	e.send(ctx, fmt.Sprintf("⚠️ Save failed\nUser: [%d]\nStep: %s\nError: %v", userID, where, err))
}

func (e *ErrorManager) NotifyAdminWithCurl(ctx context.Context, chatID int64, request interface{}, err error) {
	e.logger.Error("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	e.send(ctx, fmt.Sprintf("❌ Failed to send message\nUser: [%d]\nError: %v\n\nCurl:\n%s",
		chatID, err, e.buildCurlCommand(request)))
}

func (e *ErrorManager) send(ctx context.Context, msg string) {
	if len(msg) > adminMessageLimit {
		msg = msg[:adminMessageLimit] + "\n... (truncated)"
	}
	if _, err := e.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: e.adminID, Text: msg}); err != nil {
		e.logger.Warn("admin notification failed", zap.Error(err))
	}
}

func (e *ErrorManager) buildCurlCommand(request interface{}) string {
	jsonData, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return fmt.Sprintf("# Failed to serialize request: %v", err)
	}

	return fmt.Sprintf("curl -X POST 'https://api.telegram.org/bot[BOT_TOKEN]/sendMessage' \\\n  -H 'Content-Type: application/json' \\\n  -d '%s'",
		string(jsonData))
}

func describeSender(update *models.Update) string {
	if update == nil {
		return "unknown"
	}
	var from *models.User
	switch {
	case update.Message != nil && update.Message.From != nil:
		from = update.Message.From
	case update.CallbackQuery != nil:
		from = &update.CallbackQuery.From
	}
	if from == nil || from.ID == 0 {
		return "unknown"
	}
	info := fmt.Sprintf("[%d]", from.ID)
	if from.FirstName != "" {
		info = from.FirstName + " " + info
	}
	if from.Username != "" {
		info += " @" + from.Username
	}
	return info
}
