package callbacks

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/controller/state"
	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/service"
	"go.uber.org/zap"
)

// Handler содержит зависимости обработчиков inline-кнопок
type Handler struct {
	principals *service.PrincipalService
	sessions   *service.SessionService
	tokens     *service.TokenService
	grants     *service.GrantService
	channels   *service.ChannelService

	stateManager *state.Manager
	gw           gateway.Gateway

	demoDuration         time.Duration
	mandatoryChannelID   int64
	mandatoryChannelLink string

	logger *zap.Logger
}

// NewHandler создаёт новый обработчик callbacks с зависимостями
func NewHandler(
	principals *service.PrincipalService,
	sessions *service.SessionService,
	tokens *service.TokenService,
	grants *service.GrantService,
	channels *service.ChannelService,
	stateManager *state.Manager,
	gw gateway.Gateway,
	demoDuration time.Duration,
	mandatoryChannelID int64,
	mandatoryChannelLink string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		principals:           principals,
		sessions:             sessions,
		tokens:               tokens,
		grants:               grants,
		channels:             channels,
		stateManager:         stateManager,
		gw:                   gw,
		demoDuration:         demoDuration,
		mandatoryChannelID:   mandatoryChannelID,
		mandatoryChannelLink: mandatoryChannelLink,
		logger:               logger,
	}
}

// HandleCallbackQuery - главный обработчик callback queries
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	callback := update.CallbackQuery

	h.logger.Info("Callback received",
		zap.String("data", callback.Data),
		zap.Int64("user_id", callback.From.ID),
	)

	h.route(ctx, b, callback)
}

// answer отвечает на callback query (без alert)
func (h *Handler) answer(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       false,
	})
}

// answerAlert отвечает на callback query с всплывающим окном
func (h *Handler) answerAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

// callbackMessage извлекает сообщение из callback query, если оно доступно
func callbackMessage(callback *models.CallbackQuery) *models.Message {
	if callback.Message.Message != nil {
		return callback.Message.Message
	}
	return nil
}

// editOrSend правит сообщение с кнопкой, а если его уже нет — шлёт новое
func (h *Handler) editOrSend(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, text string, markup models.ReplyMarkup) {
	msg := callbackMessage(callback)
	if msg != nil {
		_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      msg.Chat.ID,
			MessageID:   msg.ID,
			Text:        text,
			ReplyMarkup: markup,
		})
		if err == nil {
			return
		}
		h.logger.Debug("Failed to edit callback message, sending a new one", zap.Error(err))
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      callback.From.ID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		h.logger.Error("Failed to send callback reply", zap.Error(err))
	}
}
