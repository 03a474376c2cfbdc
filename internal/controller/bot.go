package controller

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/controller/callbacks"
	"github.com/h4rdev/batch_access_bot/internal/controller/handlers"
	"github.com/h4rdev/batch_access_bot/internal/controller/state"
	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/service"
	"go.uber.org/zap"
)

// Options параметры контроллера, не зависящие от сервисов
type Options struct {
	MandatoryChannelID   int64
	MandatoryChannelLink string
	ContactAdminLink     string
	DemoDuration         time.Duration
}

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	logger          *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	gw gateway.Gateway,
	principals *service.PrincipalService,
	sessions *service.SessionService,
	relay *service.RelayService,
	tokens *service.TokenService,
	grants *service.GrantService,
	channels *service.ChannelService,
	broadcast *service.BroadcastService,
	opts Options,
	logger *zap.Logger,
) *BotController {
	// Менеджер состояний диалогов админов
	stateManager := state.NewManager()

	cmdHandlers := handlers.NewHandlers(
		principals,
		sessions,
		relay,
		tokens,
		grants,
		channels,
		broadcast,
		stateManager,
		opts.MandatoryChannelID,
		opts.MandatoryChannelLink,
		opts.ContactAdminLink,
		logger,
	)

	callbackHandler := callbacks.NewHandler(
		principals,
		sessions,
		tokens,
		grants,
		channels,
		stateManager,
		gw,
		opts.DemoDuration,
		opts.MandatoryChannelID,
		opts.MandatoryChannelLink,
		logger,
	)

	return &BotController{
		bot:             botInstance,
		handlers:        cmdHandlers,
		callbackHandler: callbackHandler,
		logger:          logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/id", bot.MatchTypeExact, c.handlers.HandleID)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/mygrants", bot.MatchTypeExact, c.handlers.HandleMyGrants)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/admin", bot.MatchTypeExact, c.handlers.HandleAdmin)

	// Обработчик текстовых сообщений: диалоги админов и пересылка
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handlers.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// HandleDefault обрабатывает обновления без явного handler: медиа,
// правки, реакции, заявки и изменения членства. Передаётся в bot.New
// через WithDefaultHandler.
func (c *BotController) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	c.handlers.HandleDefault(ctx, b, update)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Главное меню"},
		{Command: "mygrants", Description: "🎫 Мои доступы"},
		{Command: "help", Description: "❓ Справка"},
		{Command: "cancel", Description: "✖️ Отменить операцию"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
