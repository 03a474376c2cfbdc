package gateway

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramGateway реализация шлюза поверх go-telegram/bot
type TelegramGateway struct {
	bot *bot.Bot
}

// NewTelegramGateway создаёт шлюз
func NewTelegramGateway(b *bot.Bot) *TelegramGateway {
	return &TelegramGateway{bot: b}
}

// SendMessage отправляет текстовое сообщение
func (g *TelegramGateway) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (MessageRef, error) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if opts != nil {
		params.MessageThreadID = opts.TopicID
		params.ParseMode = opts.ParseMode
		params.ReplyMarkup = opts.ReplyMarkup
	}

	msg, err := g.bot.SendMessage(ctx, params)
	if err != nil {
		return MessageRef{}, classify("send_message", err)
	}

	return MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

// CopyMessage копирует сообщение в другой чат. Именно копия, а не
// forward: копию бот потом может редактировать и ставить на неё реакции.
func (g *TelegramGateway) CopyMessage(ctx context.Context, from MessageRef, toChatID int64, topicID int) (MessageRef, error) {
	msgID, err := g.bot.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:          toChatID,
		FromChatID:      from.ChatID,
		MessageID:       from.MessageID,
		MessageThreadID: topicID,
	})
	if err != nil {
		return MessageRef{}, classify("copy_message", err)
	}

	return MessageRef{ChatID: toChatID, MessageID: msgID.ID}, nil
}

// EditMessageText редактирует текст сообщения
func (g *TelegramGateway) EditMessageText(ctx context.Context, ref MessageRef, text string) error {
	_, err := g.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    ref.ChatID,
		MessageID: ref.MessageID,
		Text:      text,
	})
	return classify("edit_message_text", err)
}

// EditMessageCaption редактирует подпись медиа-сообщения
func (g *TelegramGateway) EditMessageCaption(ctx context.Context, ref MessageRef, caption string) error {
	_, err := g.bot.EditMessageCaption(ctx, &bot.EditMessageCaptionParams{
		ChatID:    ref.ChatID,
		MessageID: ref.MessageID,
		Caption:   caption,
	})
	return classify("edit_message_caption", err)
}

// SetReaction выставляет набор emoji-реакций на сообщение
func (g *TelegramGateway) SetReaction(ctx context.Context, ref MessageRef, emoji []string) error {
	reactions := make([]models.ReactionType, 0, len(emoji))
	for _, e := range emoji {
		reactions = append(reactions, models.ReactionType{
			Type: models.ReactionTypeTypeEmoji,
			ReactionTypeEmoji: &models.ReactionTypeEmoji{
				Type:  "emoji",
				Emoji: e,
			},
		})
	}

	_, err := g.bot.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
		ChatID:    ref.ChatID,
		MessageID: ref.MessageID,
		Reaction:  reactions,
	})
	return classify("set_reaction", err)
}

// DeleteMessage удаляет сообщение
func (g *TelegramGateway) DeleteMessage(ctx context.Context, ref MessageRef) error {
	_, err := g.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    ref.ChatID,
		MessageID: ref.MessageID,
	})
	return classify("delete_message", err)
}

// CreateSessionTopic создаёт форумный топик в операторской группе
func (g *TelegramGateway) CreateSessionTopic(ctx context.Context, chatID int64, title string) (int, error) {
	topic, err := g.bot.CreateForumTopic(ctx, &bot.CreateForumTopicParams{
		ChatID: chatID,
		Name:   title,
	})
	if err != nil {
		return 0, classify("create_forum_topic", err)
	}

	return topic.MessageThreadID, nil
}

// CreateInviteLink создаёт одноразовую ссылку-заявку на вступление.
// Вступление по ней требует одобрения оператором.
func (g *TelegramGateway) CreateInviteLink(ctx context.Context, chatID int64, name string) (string, error) {
	link, err := g.bot.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{
		ChatID:             chatID,
		Name:               name,
		CreatesJoinRequest: true,
	})
	if err != nil {
		return "", classify("create_invite_link", err)
	}

	return link.InviteLink, nil
}

// RevokeInviteLink отзывает ссылку-приглашение
func (g *TelegramGateway) RevokeInviteLink(ctx context.Context, chatID int64, link string) error {
	_, err := g.bot.RevokeChatInviteLink(ctx, &bot.RevokeChatInviteLinkParams{
		ChatID:     chatID,
		InviteLink: link,
	})
	return classify("revoke_invite_link", err)
}

// ApproveJoinRequest одобряет заявку на вступление
func (g *TelegramGateway) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := g.bot.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
		ChatID: chatID,
		UserID: userID,
	})
	return classify("approve_join_request", err)
}

// DeclineJoinRequest отклоняет заявку на вступление
func (g *TelegramGateway) DeclineJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := g.bot.DeclineChatJoinRequest(ctx, &bot.DeclineChatJoinRequestParams{
		ChatID: chatID,
		UserID: userID,
	})
	return classify("decline_join_request", err)
}

// BanMember банит пользователя в чате
func (g *TelegramGateway) BanMember(ctx context.Context, chatID, userID int64) error {
	_, err := g.bot.BanChatMember(ctx, &bot.BanChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	return classify("ban_member", err)
}

// UnbanMember снимает бан, возвращая пользователю возможность вступить
func (g *TelegramGateway) UnbanMember(ctx context.Context, chatID, userID int64) error {
	_, err := g.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       chatID,
		UserID:       userID,
		OnlyIfBanned: true,
	})
	return classify("unban_member", err)
}

// MemberStatus возвращает статус членства пользователя в чате
func (g *TelegramGateway) MemberStatus(ctx context.Context, chatID, userID int64) (MemberStatus, error) {
	member, err := g.bot.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		return "", classify("get_chat_member", err)
	}

	switch member.Type {
	case models.ChatMemberTypeOwner:
		return StatusOwner, nil
	case models.ChatMemberTypeAdministrator:
		return StatusAdministrator, nil
	case models.ChatMemberTypeMember:
		return StatusMember, nil
	case models.ChatMemberTypeRestricted:
		return StatusRestricted, nil
	case models.ChatMemberTypeBanned:
		return StatusBanned, nil
	default:
		return StatusLeft, nil
	}
}
