package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/controller/state"
	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"go.uber.org/zap"
)

// handleDialogStep обрабатывает текст админа в активном диалоге.
// Все диалоги одношаговые: один ответ, подтверждение, сброс состояния.
func (h *Handlers) handleDialogStep(ctx context.Context, b *bot.Bot, msg *models.Message, st state.UserState) {
	telegramID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	h.logger.Info("Handling admin dialog step",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(st)))

	defer h.stateManager.ClearState(telegramID)

	// Состав админов и блокировки меняет только владелец
	if ownerOnlyState(st) && !h.principals.IsOwner(telegramID) {
		h.sendError(ctx, b, chatID, "❌ Эта операция доступна только владельцу бота.")
		return
	}

	switch st {
	case state.StateBroadcastText:
		sent, failed := h.broadcast.BroadcastToUsers(ctx, text)
		h.sendMessage(ctx, b, chatID, fmt.Sprintf("📣 Рассылка завершена.\nДоставлено: %d\nОшибок: %d", sent, failed))

	case state.StatePostText:
		sent, failedIDs := h.broadcast.PostToChannels(ctx, text)
		report := fmt.Sprintf("📝 Опубликовано в каналах: %d", sent)
		if len(failedIDs) > 0 {
			report += fmt.Sprintf("\nНе удалось: %v", failedIDs)
		}
		h.sendMessage(ctx, b, chatID, report)

	case state.StateAddAdminID:
		h.stepAddAdmin(ctx, b, chatID, text)

	case state.StateBlockUserID:
		h.stepBlockUser(ctx, b, chatID, text, true)

	case state.StateUnblockUserID:
		h.stepBlockUser(ctx, b, chatID, text, false)

	case state.StateAddChannel:
		h.stepAddChannel(ctx, b, chatID, text)

	case state.StateAddPaidChannel:
		h.stepAddPaidChannel(ctx, b, chatID, text)

	case state.StateExtendGrant:
		h.stepExtendGrant(ctx, b, chatID, text)
	}
}

// ownerOnlyState помечает шаги диалогов, доступные только владельцу
func ownerOnlyState(st state.UserState) bool {
	switch st {
	case state.StateAddAdminID, state.StateBlockUserID, state.StateUnblockUserID:
		return true
	default:
		return false
	}
}

func (h *Handlers) stepAddAdmin(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ Нужен числовой Telegram ID. Попробуйте ещё раз через меню.")
		return
	}

	if err := h.principals.AddAdmin(ctx, id); err != nil {
		if gateway.IsConflict(err) {
			h.sendError(ctx, b, chatID, "⚠️ Этот пользователь уже админ.")
			return
		}
		h.logger.Error("Failed to add admin", zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Не удалось добавить админа.")
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Пользователь %d теперь админ.", id))
}

func (h *Handlers) stepBlockUser(ctx context.Context, b *bot.Bot, chatID int64, text string, block bool) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ Нужен числовой Telegram ID.")
		return
	}

	if err := h.principals.SetBlocked(ctx, id, block); err != nil {
		switch {
		case gateway.IsPrecondition(err):
			h.sendError(ctx, b, chatID, "⚠️ Нельзя заблокировать админа.")
		case gateway.IsNotFound(err):
			h.sendError(ctx, b, chatID, "⚠️ Такой пользователь боту не известен.")
		default:
			h.logger.Error("Failed to change block flag", zap.Error(err))
			h.sendError(ctx, b, chatID, "❌ Не удалось изменить блокировку.")
		}
		return
	}

	if block {
		revoked := h.grants.RevokeAllFor(ctx, id, "blocked")
		h.sendMessage(ctx, b, chatID, fmt.Sprintf("🚫 Пользователь %d заблокирован, доступов отозвано: %d.", id, revoked))
		return
	}
	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Пользователь %d разблокирован.", id))
}

func (h *Handlers) stepAddChannel(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	parts := strings.SplitN(text, " ", 2)
	if len(parts) != 2 {
		h.sendError(ctx, b, chatID, "❌ Формат: <chat_id> <Название канала>")
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ Первым должен идти числовой ID канала. Узнать его можно командой /id в канале.")
		return
	}
	title := strings.TrimSpace(parts[1])

	if err := h.channels.AddChannel(ctx, id, title); err != nil {
		if gateway.IsConflict(err) {
			h.sendError(ctx, b, chatID, "⚠️ Этот канал уже в каталоге.")
			return
		}
		h.logger.Error("Failed to add channel", zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Не удалось добавить канал.")
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Канал «%s» (%d) добавлен в каталог.", title, id))
}

func (h *Handlers) stepAddPaidChannel(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	parts := strings.SplitN(text, "|", 2)
	if len(parts) != 2 {
		h.sendError(ctx, b, chatID, "❌ Формат: Название | https://ссылка")
		return
	}

	title := strings.TrimSpace(parts[0])
	link := strings.TrimSpace(parts[1])
	if title == "" || link == "" {
		h.sendError(ctx, b, chatID, "❌ И название, и ссылка обязательны.")
		return
	}

	if err := h.channels.AddPaidChannel(ctx, title, link); err != nil {
		h.logger.Error("Failed to add paid channel", zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Не удалось добавить платный канал.")
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Платный канал «%s» добавлен.", title))
}

func (h *Handlers) stepExtendGrant(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	parts := strings.Fields(text)
	if len(parts) != 3 {
		h.sendError(ctx, b, chatID, "❌ Формат: <user_id> <chat_id> <часы>")
		return
	}

	userID, err1 := strconv.ParseInt(parts[0], 10, 64)
	resourceID, err2 := strconv.ParseInt(parts[1], 10, 64)
	hours, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || hours <= 0 {
		h.sendError(ctx, b, chatID, "❌ Все три значения должны быть числами, часы — больше нуля.")
		return
	}

	grant, err := h.grants.Extend(ctx, userID, resourceID, time.Duration(hours)*time.Hour)
	if err != nil {
		if gateway.IsNotFound(err) {
			h.sendError(ctx, b, chatID, "⚠️ У этой пары нет активного демо-доступа.")
			return
		}
		h.logger.Error("Failed to extend grant", zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Не удалось продлить доступ.")
		return
	}

	until := grant.ExpiresAt.Format("02.01.2006 15:04")
	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Демо продлён до %s.", until))

	title := fmt.Sprintf("%d", resourceID)
	if ch := h.channels.Get(resourceID); ch != nil {
		title = ch.Title
	}
	h.sendMessage(ctx, b, userID, fmt.Sprintf("⏳ Ваш демо-доступ к «%s» продлён до %s.", title, until))
}
