package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

var ErrSendFailed = errors.New("failed to send message after retry")

type MessageManager struct {
	bot      Sender
	errMgr   *ErrorManager
	maxRetry int
}

func NewMessageManager(b Sender, errMgr *ErrorManager) *MessageManager {
	return &MessageManager{
		bot:      b,
		errMgr:   errMgr,
		maxRetry: 2,
	}
}

func (m *MessageManager) SendWithRetry(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	var lastErr error
	for attempt := 0; attempt < m.maxRetry; attempt++ {
		msg, err := m.bot.SendMessage(ctx, params)
		if err == nil {
			return msg, nil
		}
		lastErr = err
	}
	chatID, _ := params.ChatID.(int64)
	m.errMgr.NotifyAdminWithCurl(ctx, chatID, params, lastErr)
	return nil, errors.Join(ErrSendFailed, lastErr)
}

// SendText sends an HTML formatted message.
func (m *MessageManager) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := m.SendWithRetry(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	return err
}

// ShowScreen edits the screen message in place when messageID is set and
// falls back to sending a new message. It returns the id of the message that
// now shows the screen.
func (m *MessageManager) ShowScreen(ctx context.Context, chatID int64, messageID int, s Screen) (int, error) {
	if messageID != 0 {
		params := &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      s.Text,
			ParseMode: tgmodels.ParseModeHTML,
		}
		if s.Keyboard != nil {
			params.ReplyMarkup = s.Keyboard
		}
		_, err := m.bot.EditMessageText(ctx, params)
		if err == nil || isNotModifiedError(err) {
			return messageID, nil
		}
		if !isMessageNotFoundError(err) {
			return 0, err
		}
	}

	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      s.Text,
		ParseMode: tgmodels.ParseModeHTML,
	}
	if s.Keyboard != nil {
		params.ReplyMarkup = s.Keyboard
	}
	msg, err := m.SendWithRetry(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (m *MessageManager) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := m.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	return err
}

func isNotModifiedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

func isMessageNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "message to edit not found") ||
		strings.Contains(errStr, "message can't be edited") ||
		strings.Contains(errStr, "MESSAGE_ID_INVALID")
}
