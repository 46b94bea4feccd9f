package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/ad/go-scholar-wizard/internal/config"
	"github.com/ad/go-scholar-wizard/internal/db"
	"github.com/ad/go-scholar-wizard/internal/handlers"
	"github.com/ad/go-scholar-wizard/internal/logging"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"github.com/ad/go-scholar-wizard/internal/services"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bot stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	dbQueue := db.NewDBQueue(sqlDB)
	defer dbQueue.Close()

	reg, err := registry.Load()
	if err != nil {
		return fmt.Errorf("load step catalogue: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	b, err := bot.New(cfg.BotToken, bot.WithHTTPClient(15*time.Second, httpClient))
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	botInfo, err := connect(b, logger)
	if err != nil {
		return err
	}

	sessionRepo := db.NewSessionRepository(dbQueue)
	settingsRepo := db.NewSettingsRepository(dbQueue)
	chatStateRepo := db.NewChatStateRepository(dbQueue)
	auditRepo := db.NewAuditRepository(dbQueue)
	mountRepo := db.NewMountRepository(dbQueue)

	api := apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout)
	files := services.NewTelegramFiles(b, cfg.HTTPTimeout)

	errorManager := services.NewErrorManager(b, cfg.AdminID, logger)
	msgManager := services.NewMessageManager(b, errorManager)
	store := services.NewAppStateStore(sessionRepo, logger)
	wizards := services.NewWizardManager(reg, api, files, store, auditRepo, mountRepo, logger)

	handler := handlers.NewBotHandler(
		b,
		cfg.AdminID,
		logger,
		api,
		errorManager,
		msgManager,
		store,
		wizards,
		settingsRepo,
		chatStateRepo,
		auditRepo,
		services.NewBotStateManager(settingsRepo, logger),
		services.NewStatisticsService(dbQueue),
	)

	b.RegisterHandlerMatchFunc(func(update *tgmodels.Update) bool {
		return true
	}, handler.HandleUpdate, logMiddleware(logger))

	logger.Info("bot started",
		zap.String("username", botInfo.Username),
		zap.Int64("admin_id", cfg.AdminID),
		zap.String("db", cfg.DBPath),
		zap.String("api", cfg.APIBaseURL),
	)

	b.Start(ctx)
	return nil
}

func openDB(path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.InitSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return sqlDB, nil
}

// connect retries getMe with a short timeout.
func connect(b *bot.Bot, logger *zap.Logger) (*tgmodels.User, error) {
	var (
		botInfo *tgmodels.User
		err     error
	)
	for i := 0; i < 3; i++ {
		logger.Info("connecting to Telegram API", zap.Int("attempt", i+1))
		getMeCtx, getMeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		botInfo, err = b.GetMe(getMeCtx)
		getMeCancel()
		if err == nil {
			return botInfo, nil
		}
		logger.Warn("getMe failed", zap.Int("attempt", i+1), zap.Error(err))
		if i < 2 {
			time.Sleep(2 * time.Second)
		}
	}
	return nil, fmt.Errorf("get bot info after 3 attempts: %w", err)
}

func formatUser(u tgmodels.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if u.Username != "" {
		name += " @" + u.Username
	}
	return fmt.Sprintf("%s [%d]", name, u.ID)
}

func logMiddleware(logger *zap.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
			if update.Message != nil && update.Message.From != nil {
				logger.Debug("message",
					zap.String("from", formatUser(*update.Message.From)),
					zap.Bool("has_file", update.Message.Document != nil || len(update.Message.Photo) > 0),
					zap.Int("text_len", len(update.Message.Text)),
				)
			}
			if update.CallbackQuery != nil {
				logger.Debug("callback",
					zap.String("from", formatUser(update.CallbackQuery.From)),
					zap.String("data", update.CallbackQuery.Data),
				)
			}
			next(ctx, b, update)
		}
	}
}
