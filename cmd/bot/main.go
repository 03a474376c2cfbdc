package main

import (
	"context"
	"log"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/app"
	"github.com/h4rdev/batch_access_bot/internal/config"
	"github.com/h4rdev/batch_access_bot/internal/controller"
	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/service"
	"github.com/h4rdev/batch_access_bot/internal/state"
	"github.com/h4rdev/batch_access_bot/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting batch access bot",
		zap.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище: Postgres при наличии DSN, локальный JSON-файл как
	// резерв и как единственное хранилище без базы
	fileStore := storage.NewFileStore(cfg.DataFile)
	var store storage.Store = fileStore

	if cfg.DBDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			logger.Fatal("Failed to create database pool", zap.Error(err))
		}
		defer pool.Close()

		migrator, err := app.NewMigrator(pool, "migrations", logger)
		if err != nil {
			logger.Fatal("Failed to create migrator", zap.Error(err))
		}
		if err := migrator.Run(ctx); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		migrator.Close()

		store = storage.NewLayeredStore(storage.NewPgStore(pool), fileStore, logger)
	}

	st, err := state.Load(ctx, store, logger)
	if err != nil {
		logger.Fatal("Failed to load state", zap.Error(err))
	}

	// Админы из конфига добавляются к сохранённым, не замещая их
	err = st.Update(ctx, func(snap *storage.Snapshot) error {
		for _, id := range cfg.AdminIDs {
			if !snap.IsAdmin(id) {
				snap.AdminIDs = append(snap.AdminIDs, id)
			}
		}
		return nil
	})
	if err != nil {
		logger.Fatal("Failed to seed admins", zap.Error(err))
	}

	// Контроллер появляется после бота, поэтому default handler
	// привязывается через замыкание
	var ctrl *controller.BotController
	defaultHandler := func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if ctrl != nil {
			ctrl.HandleDefault(ctx, b, update)
		}
	}

	b, err := bot.New(cfg.TelegramToken,
		bot.WithDefaultHandler(defaultHandler),
		bot.WithAllowedUpdates(bot.AllowedUpdates{
			"message",
			"edited_message",
			"callback_query",
			"message_reaction",
			"chat_member",
			"my_chat_member",
			"chat_join_request",
		}),
	)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	selfID, err := selfIDFromToken(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to parse bot ID from token", zap.Error(err))
	}

	gw := gateway.NewTelegramGateway(b)

	principals := service.NewPrincipalService(st, cfg.OwnerID, logger)
	sessions := service.NewSessionService(st, gw, cfg.SupportChatID, logger)
	relay := service.NewRelayService(sessions, gw, selfID, logger)
	tokens := service.NewTokenService(st, gw, sessions, cfg.MandatoryChannelID, logger)
	grants := service.NewGrantService(st, gw, cfg.LogChannelID, cfg.WarnBefore, logger)
	channels := service.NewChannelService(st, logger)
	broadcast := service.NewBroadcastService(st, gw, logger)

	ctrl = controller.NewBotController(
		b, gw,
		principals, sessions, relay, tokens, grants, channels, broadcast,
		controller.Options{
			MandatoryChannelID:   cfg.MandatoryChannelID,
			MandatoryChannelLink: cfg.MandatoryChannelLink,
			ContactAdminLink:     cfg.ContactAdminLink,
			DemoDuration:         cfg.DemoDuration,
		},
		logger,
	)

	if err := ctrl.RegisterHandlers(ctx); err != nil {
		logger.Warn("Failed to register command menu", zap.Error(err))
	}

	scheduler := app.NewScheduler(grants, cfg.ScanInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	keepAlive := app.NewKeepAlive(cfg.Port, logger)
	keepAlive.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		keepAlive.Stop(shutdownCtx)
	}()

	if err := ctrl.Start(ctx); err != nil {
		logger.Fatal("Bot stopped with error", zap.Error(err))
	}

	logger.Info("Bot stopped")
}

// selfIDFromToken извлекает ID бота из токена вида "123456:ABC-...".
// Свой ID нужен, чтобы не пересылать собственные копии повторно.
func selfIDFromToken(token string) (int64, error) {
	idPart, _, _ := strings.Cut(token, ":")
	return strconv.ParseInt(idPart, 10, 64)
}
