package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/controller/state"
	"go.uber.org/zap"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if update.Message.Chat.Type != "private" {
		return
	}

	from := update.Message.From
	p, err := h.principals.Register(ctx, from.ID, from.FirstName, from.LastName, from.Username, from.LanguageCode)
	if err != nil {
		h.logger.Error("Failed to register principal", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Здесь можно запросить доступ к закрытым каналам.\n\n"+
			"Любое сообщение в этот чат попадёт к операторам — "+
			"просто напишите, если нужна помощь.",
		p.FullName(),
	)

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        welcomeText,
		ReplyMarkup: MainMenuKeyboard(h.principals.IsAdmin(from.ID)),
	})
	if err != nil {
		h.logger.Error("Failed to send welcome message", zap.Error(err))
	}
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📚 Справка:\n\n" +
		"/start - Главное меню\n" +
		"/mygrants - Мои доступы\n" +
		"/id - Показать ID чата\n" +
		"/cancel - Отменить текущую операцию\n" +
		"/help - Показать эту справку\n\n" +
		"Сообщения в этот чат пересылаются операторам, " +
		"ответ придёт сюда же."
	if h.contactAdminLink != "" {
		helpText += "\n\nСвязь с администратором: " + h.contactAdminLink
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleID показывает ID чата и топика. Работает в любом чате: так удобно
// узнавать ID каналов и групп при настройке.
func (h *Handlers) HandleID(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := fmt.Sprintf("🆔 Чат: %d", update.Message.Chat.ID)
	if update.Message.MessageThreadID != 0 {
		text += fmt.Sprintf("\n🧵 Топик: %d", update.Message.MessageThreadID)
	}
	if update.Message.From != nil {
		text += fmt.Sprintf("\n👤 Вы: %d", update.Message.From.ID)
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          update.Message.Chat.ID,
		MessageThreadID: update.Message.MessageThreadID,
		Text:            text,
	})
	if err != nil {
		h.logger.Error("Failed to send id message", zap.Error(err))
	}
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.")
}

// HandleMyGrants обрабатывает команду /mygrants - список доступов
func (h *Handlers) HandleMyGrants(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if update.Message.Chat.Type != "private" {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, h.GrantsSummary(update.Message.From.ID))
}

// GrantsSummary собирает текст со списком доступов пользователя.
// Используется и командой /mygrants, и кнопкой меню.
func (h *Handlers) GrantsSummary(telegramID int64) string {
	grants := h.grants.ActiveGrantsFor(telegramID)
	if len(grants) == 0 {
		return "У вас пока нет активных доступов.\n\nВыберите канал в меню /start."
	}

	var sb strings.Builder
	sb.WriteString("🎫 Ваши доступы:\n")
	for _, g := range grants {
		title := fmt.Sprintf("%d", g.ResourceID)
		if ch := h.channels.Get(g.ResourceID); ch != nil {
			title = ch.Title
		}
		if g.IsDemo() && g.ExpiresAt != nil {
			sb.WriteString(fmt.Sprintf("\n• %s — демо до %s", title, g.ExpiresAt.Format("02.01.2006 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("\n• %s — постоянный", title))
		}
	}
	return sb.String()
}

// HandleAdmin обрабатывает команду /admin - панель администратора
func (h *Handlers) HandleAdmin(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID, ok := h.requireAdmin(ctx, b, update)
	if !ok {
		return
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        "🛠 Панель администратора",
		ReplyMarkup: AdminPanelKeyboard(h.principals.IsOwner(telegramID)),
	})
	if err != nil {
		h.logger.Error("Failed to send admin panel", zap.Error(err))
	}
}
