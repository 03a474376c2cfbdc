package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// handleJoinRequest уведомляет операторский топик, что пользователь
// перешёл по ссылке и ждёт решения. Саму заявку одобряют кнопками
// под запросом доступа.
func (h *Handlers) handleJoinRequest(ctx context.Context, req *models.ChatJoinRequest) {
	if h.channels.Get(req.Chat.ID) == nil {
		return
	}

	from := req.From
	p, err := h.principals.Register(ctx, from.ID, from.FirstName, from.LastName, from.Username, from.LanguageCode)
	if err != nil {
		h.logger.Error("Failed to register principal on join request", zap.Error(err))
		return
	}

	title := req.Chat.Title
	if ch := h.channels.Get(req.Chat.ID); ch != nil {
		title = ch.Title
	}

	text := fmt.Sprintf("📨 %s перешёл по ссылке в «%s», заявка ждёт решения.", p.FullName(), title)
	if err := h.sessions.SendToSession(ctx, p, text, nil); err != nil {
		h.logger.Warn("Failed to notify operators about join request",
			zap.Int64("principal_id", from.ID),
			zap.Error(err))
	}
}

// handleMyChatMember реагирует на смену членства самого бота: блокировку
// в личном чате и добавление или удаление из групп и каналов
func (h *Handlers) handleMyChatMember(ctx context.Context, b *bot.Bot, u *models.ChatMemberUpdated) {
	newType := u.NewChatMember.Type

	if u.Chat.Type == "private" {
		userID := u.From.ID
		switch newType {
		case models.ChatMemberTypeBanned:
			h.onPrincipalBlockedBot(ctx, userID)
		case models.ChatMemberTypeMember:
			// Пользователь разблокировал бота
			if err := h.principals.SetBlocked(ctx, userID, false); err != nil {
				h.logger.Debug("Failed to clear blocked flag", zap.Int64("telegram_id", userID), zap.Error(err))
			}
		}
		return
	}

	switch newType {
	case models.ChatMemberTypeMember, models.ChatMemberTypeAdministrator, models.ChatMemberTypeOwner:
		h.channels.TrackChat(ctx, u.Chat.ID, u.Chat.Title)
	case models.ChatMemberTypeLeft, models.ChatMemberTypeBanned:
		h.channels.UntrackChat(ctx, u.Chat.ID)
	}
}

func (h *Handlers) onPrincipalBlockedBot(ctx context.Context, userID int64) {
	h.logger.Info("Principal blocked the bot", zap.Int64("telegram_id", userID))

	if err := h.principals.SetBlocked(ctx, userID, true); err != nil {
		h.logger.Warn("Failed to mark principal as blocked",
			zap.Int64("telegram_id", userID),
			zap.Error(err))
	}

	if revoked := h.grants.RevokeAllFor(ctx, userID, "blocked"); revoked > 0 {
		h.logger.Info("Grants revoked after bot block",
			zap.Int64("telegram_id", userID),
			zap.Int("revoked", revoked))
	}

	if p := h.principals.Get(userID); p != nil {
		text := "🚫 Пользователь заблокировал бота."
		if err := h.sessions.SendToSession(ctx, p, text, nil); err != nil {
			h.logger.Debug("Failed to notify operators about block", zap.Error(err))
		}
	}
}

// handleChatMember следит за членством пользователей в обязательном
// канале: покинувший его теряет выданные доступы
func (h *Handlers) handleChatMember(ctx context.Context, b *bot.Bot, u *models.ChatMemberUpdated) {
	if h.mandatoryChannelID == 0 || u.Chat.ID != h.mandatoryChannelID {
		return
	}

	newType := u.NewChatMember.Type
	if newType != models.ChatMemberTypeLeft && newType != models.ChatMemberTypeBanned {
		return
	}

	user := chatMemberUser(u.NewChatMember)
	if user == nil || h.principals.IsAdmin(user.ID) {
		return
	}

	revoked := h.grants.RevokeAllFor(ctx, user.ID, "left_mandatory")
	if revoked == 0 {
		return
	}

	h.logger.Info("Grants revoked after leaving mandatory channel",
		zap.Int64("telegram_id", user.ID),
		zap.Int("revoked", revoked))

	text := fmt.Sprintf(
		"⚠️ Вы покинули основной канал, доступы отозваны (%d).\n\n"+
			"Подпишитесь снова и запросите доступ заново.", revoked)
	if h.mandatoryChannelLink != "" {
		text += "\n" + h.mandatoryChannelLink
	}
	h.sendMessage(ctx, b, user.ID, text)
}

// chatMemberUser достаёт пользователя из варианта ChatMember
func chatMemberUser(cm models.ChatMember) *models.User {
	switch {
	case cm.Owner != nil:
		return cm.Owner.User
	case cm.Administrator != nil:
		return &cm.Administrator.User
	case cm.Member != nil:
		return cm.Member.User
	case cm.Restricted != nil:
		return cm.Restricted.User
	case cm.Left != nil:
		return cm.Left.User
	case cm.Banned != nil:
		return cm.Banned.User
	}
	return nil
}
