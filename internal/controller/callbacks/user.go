package callbacks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/controller/handlers"
	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/model"
	"go.uber.org/zap"
)

// Сообщение со ссылкой на платный канал живёт минуту
const paidLinkTTL = 60 * time.Second

func (h *Handler) registerFrom(ctx context.Context, callback *models.CallbackQuery) *model.Principal {
	from := callback.From
	p, err := h.principals.Register(ctx, from.ID, from.FirstName, from.LastName, from.Username, from.LanguageCode)
	if err != nil {
		h.logger.Error("Failed to register principal from callback", zap.Error(err))
		return nil
	}
	return p
}

func (h *Handler) handleMainMenu(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	h.answer(ctx, b, callback.ID, "")
	h.editOrSend(ctx, b, callback, "Главное меню", handlers.MainMenuKeyboard(h.principals.IsAdmin(callback.From.ID)))
}

func (h *Handler) handleFreeChannels(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	h.answer(ctx, b, callback.ID, "")

	channels := h.channels.Channels()
	if len(channels) == 0 {
		h.editOrSend(ctx, b, callback, "Каталог каналов пока пуст.", handlers.BackToMenuKeyboard())
		return
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(channels)+1)
	for _, ch := range channels {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: ch.Title, CallbackData: fmt.Sprintf("%s%d", handlers.CbJoinFree, ch.ChatID)},
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "⬅️ В меню", CallbackData: handlers.CbMenuMain},
	})

	h.editOrSend(ctx, b, callback,
		"📚 Выберите канал, чтобы запросить доступ:",
		&models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (h *Handler) handlePaidChannels(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	h.answer(ctx, b, callback.ID, "")

	paid := h.channels.PaidChannels()
	if len(paid) == 0 {
		h.editOrSend(ctx, b, callback, "Платных каналов пока нет.", handlers.BackToMenuKeyboard())
		return
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(paid)+1)
	for i, ch := range paid {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "💎 " + ch.Title, CallbackData: fmt.Sprintf("%s%d", handlers.CbPaidLink, i)},
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "⬅️ В меню", CallbackData: handlers.CbMenuMain},
	})

	h.editOrSend(ctx, b, callback,
		"💎 Платные каналы. Нажмите, чтобы получить ссылку:",
		&models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// handlePaidLink шлёт ссылку на платный канал отдельным сообщением и
// удаляет его через минуту, чтобы ссылка не лежала в истории чата
func (h *Handler) handlePaidLink(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, raw string) {
	index, err := strconv.Atoi(raw)
	paid := h.channels.PaidChannels()
	if err != nil || index < 0 || index >= len(paid) {
		h.answerAlert(ctx, b, callback.ID, "Канал не найден, обновите список.")
		return
	}

	ch := paid[index]
	msg, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: callback.From.ID,
		Text:   fmt.Sprintf("💎 %s\n%s\n\nСообщение исчезнет через минуту.", ch.Title, ch.Link),
	})
	if err != nil {
		h.logger.Error("Failed to send paid channel link", zap.Error(err))
		h.answerAlert(ctx, b, callback.ID, "Не удалось отправить ссылку.")
		return
	}

	chatID := callback.From.ID
	messageID := msg.ID
	time.AfterFunc(paidLinkTTL, func() {
		_, err := b.DeleteMessage(context.Background(), &bot.DeleteMessageParams{
			ChatID:    chatID,
			MessageID: messageID,
		})
		if err != nil {
			h.logger.Debug("Failed to delete paid link message", zap.Error(err))
		}
	})

	h.answer(ctx, b, callback.ID, "Ссылка отправлена")
}

func (h *Handler) handleMyGrants(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	h.answer(ctx, b, callback.ID, "")

	grants := h.grants.ActiveGrantsFor(callback.From.ID)
	if len(grants) == 0 {
		h.editOrSend(ctx, b, callback, "У вас пока нет активных доступов.", handlers.BackToMenuKeyboard())
		return
	}

	text := "🎫 Ваши доступы:\n"
	for _, g := range grants {
		title := fmt.Sprintf("%d", g.ResourceID)
		if ch := h.channels.Get(g.ResourceID); ch != nil {
			title = ch.Title
		}
		if g.IsDemo() && g.ExpiresAt != nil {
			text += fmt.Sprintf("\n• %s — демо до %s", title, g.ExpiresAt.Format("02.01.2006 15:04"))
		} else {
			text += fmt.Sprintf("\n• %s — постоянный", title)
		}
	}

	h.editOrSend(ctx, b, callback, text, handlers.BackToMenuKeyboard())
}

// handleVerifyJoin перепроверяет подписку на обязательный канал по кнопке
// "Я подписался"
func (h *Handler) handleVerifyJoin(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	if h.mandatoryChannelID == 0 {
		h.handleMainMenu(ctx, b, callback)
		return
	}

	status, err := h.gw.MemberStatus(ctx, h.mandatoryChannelID, callback.From.ID)
	if err != nil || !status.IsMember() {
		h.answerAlert(ctx, b, callback.ID, "Подписка не найдена. Подпишитесь на канал и нажмите кнопку ещё раз.")
		return
	}

	h.answer(ctx, b, callback.ID, "✅ Подписка подтверждена")
	h.editOrSend(ctx, b, callback, "Главное меню", handlers.MainMenuKeyboard(h.principals.IsAdmin(callback.From.ID)))
}

// handleJoinFree оформляет запрос доступа к закрытому каналу
func (h *Handler) handleJoinFree(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, raw string) {
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.answerAlert(ctx, b, callback.ID, "Канал не найден, обновите список.")
		return
	}

	ch := h.channels.Get(chatID)
	if ch == nil {
		h.answerAlert(ctx, b, callback.ID, "Канал не найден, обновите список.")
		return
	}

	p := h.registerFrom(ctx, callback)
	if p == nil {
		h.answerAlert(ctx, b, callback.ID, "Произошла ошибка, попробуйте позже.")
		return
	}

	// Без подписки на обязательный канал заявки не оформляются:
	// показываем ворота с кнопкой перепроверки
	if h.mandatoryChannelID != 0 && !h.principals.IsAdmin(p.TelegramID) {
		status, statusErr := h.gw.MemberStatus(ctx, h.mandatoryChannelID, p.TelegramID)
		if statusErr != nil || !status.IsMember() {
			h.answer(ctx, b, callback.ID, "")
			h.editOrSend(ctx, b, callback,
				"📢 Сначала подпишитесь на наш основной канал, затем нажмите «Я подписался».",
				handlers.VerifyJoinKeyboard(h.mandatoryChannelLink))
			return
		}
	}

	_, err = h.tokens.IssueToken(ctx, p, ch)
	if err != nil {
		if gateway.IsPrecondition(err) {
			h.answerAlert(ctx, b, callback.ID, "Заявка не оформлена: возможно, вы уже состоите в этом канале.")
			return
		}
		h.logger.Error("Failed to issue access token", zap.Error(err))
		h.answerAlert(ctx, b, callback.ID, "Не удалось оформить заявку, попробуйте позже.")
		return
	}

	h.answer(ctx, b, callback.ID, "🎟 Заявка оформлена")
}
