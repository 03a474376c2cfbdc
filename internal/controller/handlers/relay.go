package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/controller/state"
	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"go.uber.org/zap"
)

// HandleTextMessage обрабатывает текстовые сообщения: шаги диалогов
// админов и пересылку между пользователем и операторским топиком
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	// Команды обрабатываются своими handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	h.RouteMessage(ctx, b, update.Message)
}

// HandleDefault обрабатывает всё, что не попало в явные handlers:
// медиа-сообщения, правки, реакции, заявки на вступление и смену членства
func (h *Handlers) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	switch {
	case update.Message != nil:
		h.RouteMessage(ctx, b, update.Message)
	case update.EditedMessage != nil:
		h.handleEdited(ctx, update.EditedMessage)
	case update.MessageReaction != nil:
		h.handleReaction(ctx, update.MessageReaction)
	case update.ChatJoinRequest != nil:
		h.handleJoinRequest(ctx, update.ChatJoinRequest)
	case update.MyChatMember != nil:
		h.handleMyChatMember(ctx, b, update.MyChatMember)
	case update.ChatMember != nil:
		h.handleChatMember(ctx, b, update.ChatMember)
	}
}

// RouteMessage направляет входящее сообщение: из личного чата — в топик
// пользователя, из операторского топика — пользователю
func (h *Handlers) RouteMessage(ctx context.Context, b *bot.Bot, msg *models.Message) {
	if msg.From == nil || h.relay.IsSelf(msg.From.ID) {
		return
	}

	switch {
	case msg.Chat.Type == "private":
		h.routePrivateMessage(ctx, b, msg)
	case msg.Chat.ID == h.sessions.SupportChatID():
		h.routeOperatorMessage(ctx, b, msg)
	}
}

func (h *Handlers) routePrivateMessage(ctx context.Context, b *bot.Bot, msg *models.Message) {
	from := msg.From
	p, err := h.principals.Register(ctx, from.ID, from.FirstName, from.LastName, from.Username, from.LanguageCode)
	if err != nil {
		h.logger.Error("Failed to register principal", zap.Error(err))
		return
	}

	// Текст админа в активном диалоге — шаг мастера, не пересылка
	if msg.Text != "" && h.principals.IsAdmin(from.ID) {
		if st := h.stateManager.GetState(from.ID); st != state.StateNone {
			h.handleDialogStep(ctx, b, msg, st)
			return
		}
	}

	if p.Blocked {
		return
	}

	ref := gateway.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
	if err := h.relay.ForwardToOperators(ctx, p, ref); err != nil {
		h.logger.Error("Failed to relay message to operators",
			zap.Int64("principal_id", from.ID),
			zap.Error(err))
	}
}

func (h *Handlers) routeOperatorMessage(ctx context.Context, b *bot.Bot, msg *models.Message) {
	// Вне топиков пересылать некому
	if msg.MessageThreadID == 0 {
		return
	}

	sess := h.sessions.FindByTopic(msg.MessageThreadID)
	if sess == nil {
		return
	}

	ref := gateway.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
	err := h.relay.ForwardToPrincipal(ctx, sess, ref)
	if err == nil {
		return
	}

	h.logger.Error("Failed to relay message to principal",
		zap.Int64("principal_id", sess.PrincipalID),
		zap.Error(err))

	if gateway.IsForbidden(err) {
		_, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          msg.Chat.ID,
			MessageThreadID: msg.MessageThreadID,
			Text:            "🚫 Не доставлено: похоже, пользователь заблокировал бота.",
		})
		if sendErr != nil {
			h.logger.Error("Failed to report delivery failure", zap.Error(sendErr))
		}
	}
}

func (h *Handlers) handleEdited(ctx context.Context, msg *models.Message) {
	if msg.From == nil || h.relay.IsSelf(msg.From.ID) {
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}

	ref := gateway.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
	if err := h.relay.OnEdit(ctx, ref, text); err != nil {
		h.logger.Warn("Failed to mirror edit",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.ID),
			zap.Error(err))
	}
}

func (h *Handlers) handleReaction(ctx context.Context, mr *models.MessageReactionUpdated) {
	if mr.User == nil || h.relay.IsSelf(mr.User.ID) {
		return
	}

	var emoji []string
	for _, r := range mr.NewReaction {
		if r.Type == models.ReactionTypeTypeEmoji && r.ReactionTypeEmoji != nil {
			emoji = append(emoji, r.ReactionTypeEmoji.Emoji)
		}
	}

	ref := gateway.MessageRef{ChatID: mr.Chat.ID, MessageID: mr.MessageID}
	if err := h.relay.OnReaction(ctx, ref, emoji); err != nil {
		h.logger.Warn("Failed to mirror reaction",
			zap.Int64("chat_id", mr.Chat.ID),
			zap.Int("message_id", mr.MessageID),
			zap.Error(err))
	}
}
