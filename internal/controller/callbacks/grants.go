package callbacks

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/model"
	"go.uber.org/zap"
)

// handleGrantDecision одобряет заявку по кнопке в операторском топике
func (h *Handler) handleGrantDecision(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, tokenID string, mode model.GrantMode) {
	if !h.requireAdminCallback(ctx, b, callback) {
		return
	}

	token := h.tokens.Find(tokenID)
	if token == nil {
		h.answerAlert(ctx, b, callback.ID, "Токен не найден.")
		return
	}

	// Повторное демо по той же паре разрешено, но оператор должен
	// увидеть, что оно повторное
	repeatDemo := mode == model.GrantModeDemo && h.grants.HadDemo(token.PrincipalID, token.ResourceID)

	grant, err := h.grants.Approve(ctx, tokenID, mode, h.demoDuration)
	if err != nil {
		switch {
		case gateway.IsConflict(err):
			h.answerAlert(ctx, b, callback.ID, "Токен уже использован.")
		case gateway.IsNotFound(err):
			h.answerAlert(ctx, b, callback.ID, "Заявка не найдена: пользователь ещё не перешёл по ссылке.")
		default:
			h.logger.Error("Failed to approve grant", zap.String("token_id", tokenID), zap.Error(err))
			h.answerAlert(ctx, b, callback.ID, "Не удалось одобрить заявку, попробуйте позже.")
		}
		return
	}

	var decision string
	if grant.IsDemo() {
		decision = fmt.Sprintf("✅ Демо до %s — %s", grant.ExpiresAt.Format("02.01.2006 15:04"), callback.From.FirstName)
	} else {
		decision = fmt.Sprintf("✅ Постоянный доступ — %s", callback.From.FirstName)
	}
	if repeatDemo {
		decision += "\n⚠️ Повторное демо для этого пользователя."
	}

	h.answer(ctx, b, callback.ID, "Одобрено")
	h.sealDecision(ctx, b, callback, decision)
}

// handleGrantDecline отклоняет заявку и гасит токен
func (h *Handler) handleGrantDecline(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, tokenID string) {
	if !h.requireAdminCallback(ctx, b, callback) {
		return
	}

	if err := h.grants.Decline(ctx, tokenID); err != nil {
		switch {
		case gateway.IsConflict(err):
			h.answerAlert(ctx, b, callback.ID, "Токен уже использован.")
		case gateway.IsNotFound(err):
			h.answerAlert(ctx, b, callback.ID, "Токен не найден.")
		default:
			h.logger.Error("Failed to decline token", zap.String("token_id", tokenID), zap.Error(err))
			h.answerAlert(ctx, b, callback.ID, "Не удалось отклонить заявку.")
		}
		return
	}

	h.answer(ctx, b, callback.ID, "Отклонено")
	h.sealDecision(ctx, b, callback, fmt.Sprintf("⛔️ Отклонено — %s", callback.From.FirstName))
}

// sealDecision дописывает решение к сообщению с заявкой и убирает кнопки
func (h *Handler) sealDecision(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, decision string) {
	msg := callbackMessage(callback)
	if msg == nil {
		return
	}

	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      msg.Text + "\n\n" + decision,
	})
	if err != nil {
		h.logger.Warn("Failed to seal decision on request message", zap.Error(err))
	}
}
