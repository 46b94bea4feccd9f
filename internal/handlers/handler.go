package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/ad/go-scholar-wizard/internal/db"
	"github.com/ad/go-scholar-wizard/internal/fsm"
	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/services"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Bot is the part of the Telegram API the handlers use.
type Bot interface {
	services.Sender
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

type BotHandler struct {
	bot           Bot
	adminID       int64
	logger        *zap.Logger
	api           *apiclient.Client
	errorManager  *services.ErrorManager
	msgManager    *services.MessageManager
	store         *services.AppStateStore
	wizards       *services.WizardManager
	settingsRepo  *db.SettingsRepository
	chatStateRepo *db.ChatStateRepository
	auditRepo     *db.AuditRepository
	adminHandler  *AdminHandler
	stateMW       *services.BotStateMiddleware
	now           func() time.Time
}

func NewBotHandler(
	b Bot,
	adminID int64,
	logger *zap.Logger,
	api *apiclient.Client,
	errorManager *services.ErrorManager,
	msgManager *services.MessageManager,
	store *services.AppStateStore,
	wizards *services.WizardManager,
	settingsRepo *db.SettingsRepository,
	chatStateRepo *db.ChatStateRepository,
	auditRepo *db.AuditRepository,
	stateManager *services.BotStateManager,
	statsService *services.StatisticsService,
) *BotHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	adminHandler := NewAdminHandler(b, adminID, msgManager, settingsRepo, chatStateRepo, auditRepo, stateManager, statsService)

	return &BotHandler{
		bot:           b,
		adminID:       adminID,
		logger:        logger.Named("handler"),
		api:           api,
		errorManager:  errorManager,
		msgManager:    msgManager,
		store:         store,
		wizards:       wizards,
		settingsRepo:  settingsRepo,
		chatStateRepo: chatStateRepo,
		auditRepo:     auditRepo,
		adminHandler:  adminHandler,
		stateMW:       services.NewBotStateMiddleware(stateManager, adminID),
		now:           time.Now,
	}
}

func (h *BotHandler) HandleUpdate(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	defer h.recoverPanic(ctx, update)

	if update.Message != nil {
		if update.Message.From == nil || !h.allowed(ctx, update.Message.From.ID, update.Message.Chat.ID) {
			return
		}
		h.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		if !h.allowed(ctx, update.CallbackQuery.From.ID, update.CallbackQuery.From.ID) {
			_, _ = h.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
			return
		}
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

// allowed tells regular users about maintenance instead of handling their
// updates.
func (h *BotHandler) allowed(ctx context.Context, userID, chatID int64) bool {
	ok, notice := h.stateMW.ShouldProcessMessage(userID)
	if !ok && notice != "" {
		h.sendText(ctx, chatID, notice)
	}
	return ok
}

func (h *BotHandler) recoverPanic(ctx context.Context, update *tgmodels.Update) {
	if r := recover(); r != nil {
		h.errorManager.NotifyAdmin(ctx, r, update)
	}
}

func (h *BotHandler) handleMessage(ctx context.Context, msg *tgmodels.Message) {
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	if userID == h.adminID && h.adminHandler.HandleCommand(ctx, msg) {
		return
	}

	if strings.HasPrefix(text, "/") {
		h.handleCommand(ctx, msg, text)
		return
	}

	state, err := h.chatStateRepo.Get(userID)
	if err != nil {
		h.logger.Warn("load chat state", zap.Int64("user_id", userID), zap.Error(err))
	}
	if state != nil && state.CurrentState != fsm.StateIdle {
		h.handleStateInput(ctx, msg, state)
		return
	}

	switch {
	case msg.Document != nil:
		h.handleFile(ctx, msg, msg.Caption, msg.Document.FileName, msg.Document.FileID)
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		h.handleFile(ctx, msg, msg.Caption, "photo.jpg", photo.FileID)
	case text != "":
		h.handleFieldEdits(ctx, msg, text)
	}
}

func (h *BotHandler) handleCommand(ctx context.Context, msg *tgmodels.Message, text string) {
	cmd, args := splitCommand(text)
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch cmd {
	case "/start":
		h.handleStart(ctx, chatID)
	case "/help":
		h.sendText(ctx, chatID, h.texts().Help+"\n\n"+commandHelp)
	case "/signup":
		h.handleSignup(ctx, chatID, userID, args)
	case "/login":
		h.handleLogin(ctx, chatID, userID, args)
	case "/resend":
		h.handleResend(ctx, chatID, userID)
	case "/forgot":
		h.handleForgot(ctx, chatID, userID, args)
	case "/logout":
		h.handleLogout(ctx, chatID, userID)
	case "/profile":
		h.handleProfile(ctx, chatID, userID, "", args)
	case "/scholar":
		h.handleProfile(ctx, chatID, userID, models.RoleScholar, args)
	case "/sponsor":
		h.handleProfile(ctx, chatID, userID, models.RoleSponsor, args)
	case "/scholarship":
		h.handleScholarship(ctx, chatID, userID, args)
	case "/scholarships":
		h.handleScholarships(ctx, chatID, userID, args)
	case "/applications":
		h.handleApplications(ctx, chatID, userID, args)
	case "/transactions":
		h.handleTransactions(ctx, chatID, userID, args)
	case "/fund":
		h.handleFund(ctx, chatID, userID)
	case "/verify":
		h.handleVerify(ctx, chatID, userID, args)
	case "/retry":
		h.handleRetry(ctx, chatID, userID)
	case "/history":
		h.handleHistory(ctx, chatID, userID)
	case "/cancel":
		h.handleCancel(ctx, chatID, userID)
	default:
		h.sendText(ctx, chatID, "Unknown command. Send /help for the list.")
	}
}

const commandHelp = `/signup &lt;email&gt; &lt;password&gt; &lt;name&gt; - create an account
/login &lt;email&gt; &lt;password&gt; - sign in
/forgot &lt;email&gt; - reset your password
/profile [step] - fill in your profile
/scholarship new|&lt;id&gt; - create or edit a scholarship (sponsors)
/scholarships [page] - your scholarships
/applications [page] - applications
/transactions [page] - payments (sponsors)
/fund - pay for the open scholarship
/verify &lt;reference&gt; - confirm a payment
/history - recent saves
/cancel - close the open wizard`

func (h *BotHandler) texts() *models.BotTexts {
	texts, err := h.settingsRepo.GetAll()
	if err != nil {
		h.logger.Warn("load bot texts", zap.Error(err))
		return &models.BotTexts{}
	}
	return texts
}

func (h *BotHandler) handleStart(ctx context.Context, chatID int64) {
	_, _ = h.msgManager.SendWithRetry(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        h.texts().Welcome,
		ReplyMarkup: services.RoleKeyboard(),
	})
}

// session returns the user's session, telling the user to sign in when there
// is none.
func (h *BotHandler) session(ctx context.Context, chatID, userID int64) (models.Session, bool) {
	sess, err := h.store.Snapshot(userID)
	if err != nil {
		h.sendError(ctx, chatID, err)
		return sess, false
	}
	if !sess.LoggedIn() {
		h.sendText(ctx, chatID, h.texts().LoginRequired)
		return sess, false
	}
	return sess, true
}

// --- Auth ---

func (h *BotHandler) chosenRole(ctx context.Context, chatID, userID int64) (models.Role, bool) {
	sess, err := h.store.Snapshot(userID)
	if err != nil {
		h.sendError(ctx, chatID, err)
		return "", false
	}
	if sess.Role == "" {
		_, _ = h.msgManager.SendWithRetry(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        "Pick a role first.",
			ReplyMarkup: services.RoleKeyboard(),
		})
		return "", false
	}
	return sess.Role, true
}

func (h *BotHandler) handleSignup(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 3 {
		h.sendText(ctx, chatID, "Usage: /signup &lt;email&gt; &lt;password&gt; &lt;name&gt;")
		return
	}
	role, ok := h.chosenRole(ctx, chatID, userID)
	if !ok {
		return
	}
	email := args[0]
	_, err := h.api.Signup(ctx, role, apiclient.SignupRequest{Email: email, Password: args[1], Name: strings.Join(args[2:], " ")})
	if err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.setChatState(userID, fsm.StateAwaitingVerification, map[string]string{"email": email, "role": string(role)})
	h.sendText(ctx, chatID, "📧 We sent a code to "+services.FormatCode(email)+". Reply with it here, or /resend.")
}

func (h *BotHandler) handleLogin(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) != 2 {
		h.sendText(ctx, chatID, "Usage: /login &lt;email&gt; &lt;password&gt;")
		return
	}
	role, ok := h.chosenRole(ctx, chatID, userID)
	if !ok {
		return
	}
	auth, err := h.api.Login(ctx, role, apiclient.Credentials{Email: args[0], Password: args[1]})
	if err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.completeLogin(ctx, chatID, userID, role, auth)
}

func (h *BotHandler) completeLogin(ctx context.Context, chatID, userID int64, role models.Role, auth *apiclient.AuthResponse) {
	sess, err := h.store.Dispatch(userID, services.LoggedIn{
		Role:        role,
		Email:       auth.User.Email,
		Token:       auth.Token,
		DisplayName: auth.User.Name,
		AvatarURL:   auth.User.AvatarURL,
	})
	if err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	_ = h.wizards.Unmount(userID)
	h.logger.Info("user logged in", zap.Int64("user_id", userID), zap.String("role", string(role)))

	next := "/profile to fill in your profile."
	if role == models.RoleSponsor {
		next += "\n/scholarship new to create a scholarship."
	}
	h.sendText(ctx, chatID, fmt.Sprintf("👋 Signed in as %s.\n%s", services.FormatBold(sess.Label()), next))
}

func (h *BotHandler) handleResend(ctx context.Context, chatID, userID int64) {
	state, _ := h.chatStateRepo.Get(userID)
	if state == nil || state.CurrentState != fsm.StateAwaitingVerification {
		h.sendText(ctx, chatID, "There is no pending verification. Use /signup first.")
		return
	}
	if _, err := h.api.ResendCode(ctx, models.Role(state.Value("role")), state.Value("email")); err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.sendText(ctx, chatID, "📧 A new code is on its way.")
}

func (h *BotHandler) handleForgot(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) != 1 {
		h.sendText(ctx, chatID, "Usage: /forgot &lt;email&gt;")
		return
	}
	role, ok := h.chosenRole(ctx, chatID, userID)
	if !ok {
		return
	}
	if _, err := h.api.ForgotPassword(ctx, role, args[0]); err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.setChatState(userID, fsm.StateAwaitingPasswordReset, map[string]string{"email": args[0], "role": string(role)})
	h.sendText(ctx, chatID, "📧 Check your mail and reply with: <code>&lt;code&gt; &lt;new password&gt;</code>")
}

func (h *BotHandler) handleLogout(ctx context.Context, chatID, userID int64) {
	_ = h.wizards.Unmount(userID)
	if _, err := h.store.Dispatch(userID, services.LoggedOut{}); err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.sendText(ctx, chatID, "👋 Signed out.")
}

func (h *BotHandler) handleStateInput(ctx context.Context, msg *tgmodels.Message, state *models.ChatState) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	fields := strings.Fields(msg.Text)
	role := models.Role(state.Value("role"))

	switch state.CurrentState {
	case fsm.StateAwaitingVerification:
		if len(fields) != 1 {
			h.sendText(ctx, chatID, "Reply with the code only, or /cancel.")
			return
		}
		auth, err := h.api.Verify(ctx, role, apiclient.VerifyRequest{Email: state.Value("email"), Code: fields[0]})
		if err != nil {
			h.sendError(ctx, chatID, err)
			return
		}
		h.clearChatState(userID)
		h.completeLogin(ctx, chatID, userID, role, auth)
	case fsm.StateAwaitingPasswordReset:
		if len(fields) != 2 {
			h.sendText(ctx, chatID, "Reply with: <code>&lt;code&gt; &lt;new password&gt;</code>")
			return
		}
		_, err := h.api.ResetPassword(ctx, role, apiclient.ResetPasswordRequest{Email: state.Value("email"), Code: fields[0], Password: fields[1]})
		if err != nil {
			h.sendError(ctx, chatID, err)
			return
		}
		h.clearChatState(userID)
		h.sendText(ctx, chatID, "🔑 Password changed. Sign in with /login.")
	default:
		h.clearChatState(userID)
	}
}

func (h *BotHandler) setChatState(userID int64, state string, data map[string]string) {
	if err := h.chatStateRepo.Save(&models.ChatState{UserID: userID, CurrentState: state, Data: data}); err != nil {
		h.logger.Warn("save chat state", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (h *BotHandler) clearChatState(userID int64) {
	if err := h.chatStateRepo.Clear(userID); err != nil {
		h.logger.Warn("clear chat state", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// --- Wizards ---

func (h *BotHandler) handleProfile(ctx context.Context, chatID, userID int64, role models.Role, args []string) {
	sess, ok := h.session(ctx, chatID, userID)
	if !ok {
		return
	}
	if role == "" {
		role = sess.Role
	}
	var step models.StepKey
	if len(args) > 0 {
		step = models.StepKey(args[0])
	}
	mt, err := h.wizards.Mount(ctx, userID, role.ProfileFlow(), "", step)
	h.openWizard(ctx, chatID, mt, err)
}

func (h *BotHandler) handleScholarship(ctx context.Context, chatID, userID int64, args []string) {
	if _, ok := h.session(ctx, chatID, userID); !ok {
		return
	}
	if len(args) != 1 {
		h.sendText(ctx, chatID, "Usage: /scholarship new or /scholarship &lt;id&gt;")
		return
	}
	id := args[0]
	if id == "new" {
		id = ""
	}
	mt, err := h.wizards.Mount(ctx, userID, models.FlowScholarship, id, "")
	h.openWizard(ctx, chatID, mt, err)
}

// openWizard shows a freshly mounted wizard. A fetch failure still shows the
// wizard, with the problem as a notice.
func (h *BotHandler) openWizard(ctx context.Context, chatID int64, mt *services.Mounted, err error) {
	if mt == nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.showWizard(ctx, chatID, mt, services.DescribeError(err), true)
}

// showWizard renders the wizard screen. fresh sends it as a new message and
// removes the previous one so it stays at the bottom of the chat.
func (h *BotHandler) showWizard(ctx context.Context, chatID int64, mt *services.Mounted, notice string, fresh bool) {
	messageID := mt.MessageID
	if fresh && messageID != 0 {
		_ = h.msgManager.DeleteMessage(ctx, chatID, messageID)
		messageID = 0
	}
	id, err := h.msgManager.ShowScreen(ctx, chatID, messageID, services.RenderWizard(mt.Wizard.State(), notice))
	if err != nil {
		h.logger.Warn("show wizard", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if id != mt.MessageID {
		h.wizards.SetMessage(mt, id)
	}
}

func (h *BotHandler) mounted(ctx context.Context, chatID, userID int64) (*services.Mounted, bool) {
	mt, err := h.wizards.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotMounted) {
			h.sendText(ctx, chatID, "No wizard is open. Start one with /profile or /scholarship.")
		} else {
			h.sendError(ctx, chatID, err)
		}
		return nil, false
	}
	return mt, true
}

func (h *BotHandler) handleFieldEdits(ctx context.Context, msg *tgmodels.Message, text string) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	mt, ok := h.mounted(ctx, chatID, userID)
	if !ok {
		return
	}
	edits, err := parseFieldEdits(text)
	if err != nil {
		h.showWizard(ctx, chatID, mt, "✏️ Send one <code>field: value</code> per line.", true)
		return
	}
	notice := "✏️ Draft updated. Tap Save to keep it."
	if _, err := mt.Wizard.Edit(edits); err != nil {
		notice = services.DescribeError(err)
	}
	h.showWizard(ctx, chatID, mt, notice, true)
}

func (h *BotHandler) handleFile(ctx context.Context, msg *tgmodels.Message, caption, name, fileID string) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	mt, ok := h.mounted(ctx, chatID, userID)
	if !ok {
		return
	}
	field := fileField(mt.Wizard.State(), strings.TrimSpace(caption))
	if field == "" {
		h.showWizard(ctx, chatID, mt, "📎 This step takes no files.", true)
		return
	}
	notice := fmt.Sprintf("📎 %s queued for %s. It uploads when you save.", services.FormatCode(name), services.FormatCode(field))
	if err := mt.Wizard.AddFile(field, name, fileID); err != nil {
		notice = services.DescribeError(err)
	}
	h.showWizard(ctx, chatID, mt, notice, true)
}

func (h *BotHandler) handleCallback(ctx context.Context, callback *tgmodels.CallbackQuery) {
	answer := ""
	defer func() {
		_, _ = h.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callback.ID,
			Text:            answer,
		})
	}()

	if callback.From.ID == h.adminID && h.adminHandler.HandleCallback(ctx, callback) {
		return
	}

	switch {
	case strings.HasPrefix(callback.Data, services.CallbackRole):
		answer = h.handleRoleCallback(ctx, callback)
	case strings.HasPrefix(callback.Data, "wiz:"):
		answer = h.handleWizardCallback(ctx, callback)
	}
}

func (h *BotHandler) handleRoleCallback(ctx context.Context, callback *tgmodels.CallbackQuery) string {
	role, ok := models.ParseRole(strings.TrimPrefix(callback.Data, services.CallbackRole))
	if !ok {
		return "Unknown role"
	}
	sess, err := h.store.Dispatch(callback.From.ID, services.RoleChosen{Role: role})
	if err != nil {
		return "Please try again"
	}
	if sess.LoggedIn() && sess.Role != role {
		return "Sign out first with /logout"
	}
	h.sendText(ctx, callback.From.ID, fmt.Sprintf("You are a %s. Now /signup or /login.", services.FormatBold(string(role))))
	return ""
}

func (h *BotHandler) handleWizardCallback(ctx context.Context, callback *tgmodels.CallbackQuery) string {
	chatID, userID := callback.From.ID, callback.From.ID
	mt, err := h.wizards.Get(ctx, userID)
	if err != nil {
		return "This wizard is closed"
	}
	if callback.Message.Message != nil && mt.MessageID != callback.Message.Message.ID {
		h.wizards.SetMessage(mt, callback.Message.Message.ID)
	}

	var notice string
	saving := false
	switch data := callback.Data; {
	case data == services.CallbackPrev:
		_, err = mt.Wizard.Prev(ctx, nil)
	case data == services.CallbackNext:
		saving = true
		_, err = h.wizards.Save(ctx, mt, true)
		notice = h.texts().Saved
	case data == services.CallbackSave:
		saving = true
		_, err = h.wizards.Save(ctx, mt, false)
		notice = h.texts().Saved
	case data == services.CallbackSubmit:
		_, err = h.wizards.Submit(ctx, mt)
		notice = h.texts().Submitted
	case strings.HasPrefix(data, services.CallbackGoTo):
		_, err = mt.Wizard.GoTo(ctx, models.StepKey(strings.TrimPrefix(data, services.CallbackGoTo)))
	default:
		return ""
	}

	// Fetch failures leave the wizard usable, everything else means the
	// action did not happen.
	var ferr *models.FetchError
	failed := err != nil && !errors.As(err, &ferr)
	if failed && saving && reportable(err) {
		h.errorManager.NotifySaveFailure(ctx, userID, string(mt.Wizard.Active()), err)
	}
	if err != nil {
		notice = services.DescribeError(err)
	}
	h.showWizard(ctx, chatID, mt, notice, false)
	if failed {
		return "Not done"
	}
	return ""
}

// reportable filters out save errors the user can fix on their own.
func reportable(err error) bool {
	var verr *models.ValidationError
	return !errors.As(err, &verr) && !errors.Is(err, models.ErrSaveInFlight)
}

// --- Lists and payments ---

func pageArg(args []string) int {
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

func (h *BotHandler) client(ctx context.Context, chatID, userID int64) (*apiclient.Client, models.Session, bool) {
	sess, ok := h.session(ctx, chatID, userID)
	if !ok {
		return nil, sess, false
	}
	return h.api.WithToken(sess.Token), sess, true
}

func (h *BotHandler) handleScholarships(ctx context.Context, chatID, userID int64, args []string) {
	c, _, ok := h.client(ctx, chatID, userID)
	if !ok {
		return
	}
	page, err := c.ListScholarships(ctx, models.ListQuery{Page: pageArg(args), Limit: 10})
	if err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.sendText(ctx, chatID, services.RenderScholarships(*page, h.now()))
}

func (h *BotHandler) handleApplications(ctx context.Context, chatID, userID int64, args []string) {
	c, sess, ok := h.client(ctx, chatID, userID)
	if !ok {
		return
	}
	page, err := c.ListApplications(ctx, sess.Role, models.ListQuery{Page: pageArg(args), Limit: 10})
	if err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.sendText(ctx, chatID, services.RenderApplications(*page, h.now()))
}

func (h *BotHandler) handleTransactions(ctx context.Context, chatID, userID int64, args []string) {
	c, _, ok := h.client(ctx, chatID, userID)
	if !ok {
		return
	}
	page, err := c.ListTransactions(ctx, models.ListQuery{Page: pageArg(args), Limit: 10})
	if err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.sendText(ctx, chatID, services.RenderTransactions(*page, h.now()))
}

func (h *BotHandler) handleFund(ctx context.Context, chatID, userID int64) {
	mt, ok := h.mounted(ctx, chatID, userID)
	if !ok {
		return
	}
	fi, err := h.wizards.Fund(ctx, mt)
	if err != nil {
		if errors.Is(err, services.ErrNoEntity) {
			h.sendText(ctx, chatID, "Save the scholarship details first.")
			return
		}
		h.sendError(ctx, chatID, err)
		return
	}
	h.sendText(ctx, chatID, fmt.Sprintf("💳 Pay %d %s here: %s\nThen send /verify %s",
		fi.Amount, fi.Currency, services.FormatLink("checkout", fi.AuthorizationURL), fi.Reference))
}

func (h *BotHandler) handleVerify(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) != 1 {
		h.sendText(ctx, chatID, "Usage: /verify &lt;reference&gt;")
		return
	}
	mt, ok := h.mounted(ctx, chatID, userID)
	if !ok {
		return
	}
	v, err := h.wizards.VerifyPayment(ctx, mt, args[0])
	if err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	if !v.Paid() {
		h.sendText(ctx, chatID, services.FormatPaymentPending(v))
		return
	}
	h.showWizard(ctx, chatID, mt, "💰 Payment confirmed.", true)
}

func (h *BotHandler) handleRetry(ctx context.Context, chatID, userID int64) {
	mt, ok := h.mounted(ctx, chatID, userID)
	if !ok {
		return
	}
	h.showWizard(ctx, chatID, mt, services.DescribeError(mt.Wizard.Retry(ctx)), true)
}

func (h *BotHandler) handleHistory(ctx context.Context, chatID, userID int64) {
	outcomes, err := h.auditRepo.Recent(userID, 10)
	if err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.sendText(ctx, chatID, services.RenderAudit(outcomes, h.now()))
}

func (h *BotHandler) handleCancel(ctx context.Context, chatID, userID int64) {
	h.clearChatState(userID)
	if err := h.wizards.Unmount(userID); err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.sendText(ctx, chatID, "Closed. Unsaved drafts were discarded.")
}

func (h *BotHandler) sendText(ctx context.Context, chatID int64, text string) {
	if err := h.msgManager.SendText(ctx, chatID, text); err != nil {
		h.logger.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *BotHandler) sendError(ctx context.Context, chatID int64, err error) {
	if errors.Is(err, services.ErrLoginRequired) {
		h.sendText(ctx, chatID, h.texts().LoginRequired)
		return
	}
	if errors.Is(err, services.ErrWrongRole) {
		h.sendText(ctx, chatID, "🚫 That is not available for your role.")
		return
	}
	h.sendText(ctx, chatID, services.DescribeError(err))
}
