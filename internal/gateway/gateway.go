package gateway

import (
	"context"

	"github.com/go-telegram/bot/models"
)

// MessageRef адрес сообщения: чат плюс сообщение. Используется и как
// ключ карты связей relay, поэтому структура сравнимая.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// MemberStatus статус членства пользователя в чате
type MemberStatus string

const (
	StatusOwner         MemberStatus = "owner"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusBanned        MemberStatus = "banned"
)

// IsMember проверяет что статус означает членство в чате
func (s MemberStatus) IsMember() bool {
	switch s {
	case StatusOwner, StatusAdministrator, StatusMember, StatusRestricted:
		return true
	default:
		return false
	}
}

// SendOptions дополнительные параметры отправки сообщения
type SendOptions struct {
	TopicID     int
	ParseMode   models.ParseMode
	ReplyMarkup models.ReplyMarkup
}

// Gateway единственная граница с Telegram. Логики здесь нет: методы
// один в один отображаются на вызовы Bot API и возвращают
// типизированные ошибки.
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (MessageRef, error)
	CopyMessage(ctx context.Context, from MessageRef, toChatID int64, topicID int) (MessageRef, error)
	EditMessageText(ctx context.Context, ref MessageRef, text string) error
	EditMessageCaption(ctx context.Context, ref MessageRef, caption string) error
	SetReaction(ctx context.Context, ref MessageRef, emoji []string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error

	CreateSessionTopic(ctx context.Context, chatID int64, title string) (int, error)

	CreateInviteLink(ctx context.Context, chatID int64, name string) (string, error)
	RevokeInviteLink(ctx context.Context, chatID int64, link string) error
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
	DeclineJoinRequest(ctx context.Context, chatID, userID int64) error

	BanMember(ctx context.Context, chatID, userID int64) error
	UnbanMember(ctx context.Context, chatID, userID int64) error
	MemberStatus(ctx context.Context, chatID, userID int64) (MemberStatus, error)
}
