package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ad/go-scholar-wizard/internal/db"
	"github.com/ad/go-scholar-wizard/internal/fsm"
	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/services"
	tgmodels "github.com/go-telegram/bot/models"
)

const (
	callbackAdminMenu     = "admin:menu"
	callbackAdminSettings = "admin:settings"
	callbackEditSetting   = "admin:edit_setting:"
	callbackMaintenance   = "admin:maintenance"
	callbackStats         = "admin:stats"
)

var settingLabels = []struct {
	key   string
	label string
}{
	{db.SettingWelcome, "👋 Welcome"},
	{db.SettingLoginRequired, "🔑 Login required"},
	{db.SettingSaved, "💾 Saved"},
	{db.SettingSubmitted, "📨 Submitted"},
	{db.SettingHelp, "❓ Help"},
	{db.SettingMaintenance, "🛠 Maintenance"},
}

type AdminHandler struct {
	bot           Bot
	adminID       int64
	msgManager    *services.MessageManager
	settingsRepo  *db.SettingsRepository
	chatStateRepo *db.ChatStateRepository
	auditRepo     *db.AuditRepository
	stateManager  *services.BotStateManager
	statsService  *services.StatisticsService
	now           func() time.Time
}

func NewAdminHandler(
	b Bot,
	adminID int64,
	msgManager *services.MessageManager,
	settingsRepo *db.SettingsRepository,
	chatStateRepo *db.ChatStateRepository,
	auditRepo *db.AuditRepository,
	stateManager *services.BotStateManager,
	statsService *services.StatisticsService,
) *AdminHandler {
	return &AdminHandler{
		bot:           b,
		adminID:       adminID,
		msgManager:    msgManager,
		settingsRepo:  settingsRepo,
		chatStateRepo: chatStateRepo,
		auditRepo:     auditRepo,
		stateManager:  stateManager,
		statsService:  statsService,
		now:           time.Now,
	}
}

// HandleCommand reports whether the message was an admin action.
func (h *AdminHandler) HandleCommand(ctx context.Context, msg *tgmodels.Message) bool {
	if msg.From == nil || msg.From.ID != h.adminID {
		return false
	}

	cmd, args := splitCommand(msg.Text)
	switch cmd {
	case "/admin":
		h.showAdminMenu(ctx, msg.Chat.ID, 0)
		return true
	case "/audit":
		h.showAudit(ctx, msg.Chat.ID, args)
		return true
	case "/stats":
		h.showStats(ctx, msg.Chat.ID, 0)
		return true
	}

	state, err := h.chatStateRepo.Get(h.adminID)
	if err != nil || state == nil || state.CurrentState != fsm.StateAdminEditSettingValue {
		return false
	}
	if cmd == "/cancel" {
		_ = h.chatStateRepo.Clear(h.adminID)
		h.send(ctx, msg.Chat.ID, "❌ Cancelled")
		return true
	}
	return h.handleEditSettingValue(ctx, msg, state)
}

func (h *AdminHandler) HandleCallback(ctx context.Context, callback *tgmodels.CallbackQuery) bool {
	if callback.From.ID != h.adminID || !strings.HasPrefix(callback.Data, "admin:") {
		return false
	}
	msg := callback.Message.Message
	if msg == nil {
		return false
	}

	chatID, messageID := msg.Chat.ID, msg.ID
	switch data := callback.Data; {
	case data == callbackAdminMenu:
		h.showAdminMenu(ctx, chatID, messageID)
	case data == callbackAdminSettings:
		h.showSettingsMenu(ctx, chatID, messageID)
	case data == callbackStats:
		h.showStats(ctx, chatID, messageID)
	case data == callbackMaintenance:
		if _, err := h.stateManager.Toggle(); err != nil {
			h.send(ctx, chatID, "⚠️ Could not change the bot state")
		}
		h.showAdminMenu(ctx, chatID, messageID)
	case strings.HasPrefix(data, callbackEditSetting):
		h.startEditSetting(ctx, chatID, messageID, strings.TrimPrefix(data, callbackEditSetting))
	default:
		return false
	}
	return true
}

func (h *AdminHandler) show(ctx context.Context, chatID int64, messageID int, text string, keyboard *tgmodels.InlineKeyboardMarkup) {
	_, _ = h.msgManager.ShowScreen(ctx, chatID, messageID, services.Screen{Text: text, Keyboard: keyboard})
}

func (h *AdminHandler) send(ctx context.Context, chatID int64, text string) {
	_ = h.msgManager.SendText(ctx, chatID, text)
}

func (h *AdminHandler) showAdminMenu(ctx context.Context, chatID int64, messageID int) {
	_ = h.chatStateRepo.Clear(h.adminID)

	state := h.stateManager.CurrentState()
	toggle := "🛠 Start maintenance"
	if state == services.BotStateMaintenance {
		toggle = "▶️ Reopen the bot"
	}
	keyboard := &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{{Text: "📊 Statistics", CallbackData: callbackStats}},
			{{Text: "⚙️ Bot texts", CallbackData: callbackAdminSettings}},
			{{Text: toggle, CallbackData: callbackMaintenance}},
		},
	}
	text := fmt.Sprintf("🔧 Admin panel\n\nState: %s\n/audit &lt;user id&gt; shows a user's recent saves.", services.FormatBold(string(state)))
	h.show(ctx, chatID, messageID, text, keyboard)
}

func (h *AdminHandler) showSettingsMenu(ctx context.Context, chatID int64, messageID int) {
	var sb strings.Builder
	sb.WriteString("⚙️ Bot texts\n")
	buttons := make([][]tgmodels.InlineKeyboardButton, 0, len(settingLabels)+1)
	for _, s := range settingLabels {
		value, err := h.settingsRepo.Get(s.key)
		if err != nil {
			value = "(unset)"
		}
		fmt.Fprintf(&sb, "\n%s: %s\n", s.label, truncateText(value, 50))
		buttons = append(buttons, []tgmodels.InlineKeyboardButton{{Text: s.label, CallbackData: callbackEditSetting + s.key}})
	}
	buttons = append(buttons, []tgmodels.InlineKeyboardButton{{Text: "« Back", CallbackData: callbackAdminMenu}})

	h.show(ctx, chatID, messageID, sb.String(), &tgmodels.InlineKeyboardMarkup{InlineKeyboard: buttons})
}

func settingLabel(key string) (string, bool) {
	for _, s := range settingLabels {
		if s.key == key {
			return s.label, true
		}
	}
	return "", false
}

func (h *AdminHandler) startEditSetting(ctx context.Context, chatID int64, messageID int, key string) {
	label, ok := settingLabel(key)
	if !ok {
		h.show(ctx, chatID, messageID, "⚠️ Unknown setting", nil)
		return
	}
	_ = h.chatStateRepo.Save(&models.ChatState{
		UserID:       h.adminID,
		CurrentState: fsm.StateAdminEditSettingValue,
		Data:         map[string]string{"setting": key},
	})

	current, _ := h.settingsRepo.Get(key)
	h.show(ctx, chatID, messageID, fmt.Sprintf("📝 Send the new %s text.\n\nCurrent:\n%s\n\n/cancel to keep it", label, current), nil)
}

func (h *AdminHandler) handleEditSettingValue(ctx context.Context, msg *tgmodels.Message, state *models.ChatState) bool {
	if msg.Text == "" {
		return false
	}
	if err := h.settingsRepo.Set(state.Value("setting"), msg.Text); err != nil {
		h.send(ctx, msg.Chat.ID, "⚠️ Could not save the setting")
		return true
	}
	_ = h.chatStateRepo.Clear(h.adminID)

	h.send(ctx, msg.Chat.ID, "✅ Saved")
	h.showSettingsMenu(ctx, msg.Chat.ID, 0)
	return true
}

func (h *AdminHandler) showStats(ctx context.Context, chatID int64, messageID int) {
	stats, err := h.statsService.CalculateStats()
	if err != nil {
		h.show(ctx, chatID, messageID, "⚠️ Could not load statistics", nil)
		return
	}
	back := &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
		{{Text: "« Back", CallbackData: callbackAdminMenu}},
	}}
	h.show(ctx, chatID, messageID, services.FormatStats(stats), back)
}

func (h *AdminHandler) showAudit(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.send(ctx, chatID, "Usage: /audit &lt;user id&gt;")
		return
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.send(ctx, chatID, "⚠️ Not a user id")
		return
	}
	outcomes, err := h.auditRepo.Recent(userID, 20)
	if err != nil {
		h.send(ctx, chatID, services.DescribeError(err))
		return
	}
	failures, err := h.auditRepo.CountFailures(userID)
	if err != nil {
		h.send(ctx, chatID, services.DescribeError(err))
		return
	}
	h.send(ctx, chatID, fmt.Sprintf("👤 %d, failed saves: %d\n\n%s", userID, failures, services.RenderAudit(outcomes, h.now())))
}

func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
