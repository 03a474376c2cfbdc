package callbacks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/controller/handlers"
	"github.com/h4rdev/batch_access_bot/internal/controller/state"
	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"go.uber.org/zap"
)

// requireAdminCallback проверяет что кнопку нажал админ
func (h *Handler) requireAdminCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) bool {
	if h.principals.IsAdmin(callback.From.ID) {
		return true
	}
	h.answerAlert(ctx, b, callback.ID, "Недостаточно прав.")
	return false
}

// requireOwnerCallback проверяет что кнопку нажал владелец. Состав
// админов и блокировки трогает только он.
func (h *Handler) requireOwnerCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) bool {
	if h.principals.IsOwner(callback.From.ID) {
		return true
	}
	h.answerAlert(ctx, b, callback.ID, "Доступно только владельцу бота.")
	return false
}

func (h *Handler) handleAdminPanel(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	if !h.requireAdminCallback(ctx, b, callback) {
		return
	}

	h.answer(ctx, b, callback.ID, "")
	h.editOrSend(ctx, b, callback, "🛠 Панель администратора",
		handlers.AdminPanelKeyboard(h.principals.IsOwner(callback.From.ID)))
}

// handleAdminPrompt запускает одношаговый диалог: следующий текст админа
// будет обработан как ответ
func (h *Handler) handleAdminPrompt(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, prompt string, st state.UserState) {
	if !h.requireAdminCallback(ctx, b, callback) {
		return
	}

	h.stateManager.SetState(callback.From.ID, st)
	h.answer(ctx, b, callback.ID, "")
	h.editOrSend(ctx, b, callback, prompt, nil)
}

// handleOwnerPrompt то же, но для шагов, доступных только владельцу
func (h *Handler) handleOwnerPrompt(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, prompt string, st state.UserState) {
	if !h.requireOwnerCallback(ctx, b, callback) {
		return
	}

	h.stateManager.SetState(callback.From.ID, st)
	h.answer(ctx, b, callback.ID, "")
	h.editOrSend(ctx, b, callback, prompt, nil)
}

func (h *Handler) handleAdminStats(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	if !h.requireAdminCallback(ctx, b, callback) {
		return
	}

	stats := h.principals.GetStats()
	demo, permanent := h.grants.ActiveCounts()

	text := fmt.Sprintf(
		"📊 Статистика\n\n"+
			"Пользователей: %d\n"+
			"Заблокировано: %d\n"+
			"Админов: %d\n\n"+
			"Каналов в каталоге: %d\n"+
			"Платных каналов: %d\n\n"+
			"Активных демо: %d\n"+
			"Постоянных доступов: %d",
		stats.Total, stats.Blocked, stats.Admins,
		len(h.channels.Channels()), len(h.channels.PaidChannels()),
		demo, permanent,
	)

	if chats := h.channels.ActiveChats(); len(chats) > 0 {
		text += "\n\nЧаты с ботом:"
		for id, title := range chats {
			text += fmt.Sprintf("\n• %s (%d)", title, id)
		}
	}

	h.answer(ctx, b, callback.ID, "")
	h.editOrSend(ctx, b, callback, text,
		handlers.AdminPanelKeyboard(h.principals.IsOwner(callback.From.ID)))
}

func (h *Handler) handleAdminList(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	if !h.requireOwnerCallback(ctx, b, callback) {
		return
	}

	admins := h.principals.Admins()
	rows := make([][]models.InlineKeyboardButton, 0, len(admins)+2)
	for _, id := range admins {
		label := fmt.Sprintf("%d", id)
		if p := h.principals.Get(id); p != nil {
			label = fmt.Sprintf("%s (%d)", p.FullName(), id)
		}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "❌ " + label, CallbackData: fmt.Sprintf("%s%d", handlers.CbAdminAdminDel, id)},
		})
	}
	rows = append(rows,
		[]models.InlineKeyboardButton{{Text: "➕ Добавить", CallbackData: handlers.CbAdminAdminAdd}},
		[]models.InlineKeyboardButton{{Text: "⬅️ Назад", CallbackData: handlers.CbAdminPanel}},
	)

	h.answer(ctx, b, callback.ID, "")
	h.editOrSend(ctx, b, callback,
		"👥 Админы. Нажмите, чтобы убрать:",
		&models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (h *Handler) handleAdminRemove(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, raw string) {
	if !h.requireOwnerCallback(ctx, b, callback) {
		return
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.answerAlert(ctx, b, callback.ID, "Некорректный ID.")
		return
	}

	if err := h.principals.RemoveAdmin(ctx, id); err != nil {
		if gateway.IsPrecondition(err) {
			h.answerAlert(ctx, b, callback.ID, "Владельца убрать нельзя.")
			return
		}
		h.logger.Error("Failed to remove admin", zap.Error(err))
		h.answerAlert(ctx, b, callback.ID, "Не удалось убрать админа.")
		return
	}

	h.handleAdminList(ctx, b, callback)
}

func (h *Handler) handleChannelList(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	if !h.requireAdminCallback(ctx, b, callback) {
		return
	}

	channels := h.channels.Channels()
	rows := make([][]models.InlineKeyboardButton, 0, len(channels)+2)
	for _, ch := range channels {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: fmt.Sprintf("❌ %s (%d)", ch.Title, ch.ChatID), CallbackData: fmt.Sprintf("%s%d", handlers.CbAdminChannelDel, ch.ChatID)},
		})
	}
	rows = append(rows,
		[]models.InlineKeyboardButton{{Text: "➕ Добавить", CallbackData: handlers.CbAdminChannelAdd}},
		[]models.InlineKeyboardButton{{Text: "⬅️ Назад", CallbackData: handlers.CbAdminPanel}},
	)

	h.answer(ctx, b, callback.ID, "")
	h.editOrSend(ctx, b, callback,
		"📚 Каналы каталога. Нажмите, чтобы убрать:",
		&models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (h *Handler) handleChannelRemove(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, raw string) {
	if !h.requireAdminCallback(ctx, b, callback) {
		return
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.answerAlert(ctx, b, callback.ID, "Некорректный ID.")
		return
	}

	if err := h.channels.RemoveChannel(ctx, id); err != nil {
		h.logger.Error("Failed to remove channel", zap.Error(err))
		h.answerAlert(ctx, b, callback.ID, "Не удалось убрать канал.")
		return
	}

	h.handleChannelList(ctx, b, callback)
}

func (h *Handler) handlePaidList(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	if !h.requireAdminCallback(ctx, b, callback) {
		return
	}

	paid := h.channels.PaidChannels()
	rows := make([][]models.InlineKeyboardButton, 0, len(paid)+2)
	for i, ch := range paid {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "❌ " + ch.Title, CallbackData: fmt.Sprintf("%s%d", handlers.CbAdminPaidDel, i)},
		})
	}
	rows = append(rows,
		[]models.InlineKeyboardButton{{Text: "➕ Добавить", CallbackData: handlers.CbAdminPaidAdd}},
		[]models.InlineKeyboardButton{{Text: "⬅️ Назад", CallbackData: handlers.CbAdminPanel}},
	)

	h.answer(ctx, b, callback.ID, "")
	h.editOrSend(ctx, b, callback,
		"💎 Платные каналы. Нажмите, чтобы убрать:",
		&models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (h *Handler) handlePaidRemove(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, raw string) {
	if !h.requireAdminCallback(ctx, b, callback) {
		return
	}

	index, err := strconv.Atoi(raw)
	if err != nil {
		h.answerAlert(ctx, b, callback.ID, "Некорректная позиция.")
		return
	}

	if err := h.channels.RemovePaidChannel(ctx, index); err != nil {
		h.logger.Error("Failed to remove paid channel", zap.Error(err))
		h.answerAlert(ctx, b, callback.ID, "Не удалось убрать канал.")
		return
	}

	h.handlePaidList(ctx, b, callback)
}
