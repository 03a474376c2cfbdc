package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/metrics"
	"github.com/h4rdev/batch_access_bot/internal/model"
	"github.com/h4rdev/batch_access_bot/internal/state"
	"github.com/h4rdev/batch_access_bot/internal/storage"
	"go.uber.org/zap"
)

// Префиксы callback-данных кнопок одобрения. Разбираются в контроллере.
const (
	CallbackGrantDemo    = "grant_demo:"    // grant_demo:<token id>
	CallbackGrantPerm    = "grant_perm:"    // grant_perm:<token id>
	CallbackGrantDecline = "grant_decline:" // grant_decline:<token id>
)

// TokenService выпускает одноразовые токены доступа к закрытым каналам
type TokenService struct {
	st                 *state.State
	gw                 gateway.Gateway
	sessions           *SessionService
	mandatoryChannelID int64
	logger             *zap.Logger
}

// NewTokenService создаёт сервис токенов
func NewTokenService(
	st *state.State,
	gw gateway.Gateway,
	sessions *SessionService,
	mandatoryChannelID int64,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		st:                 st,
		gw:                 gw,
		sessions:           sessions,
		mandatoryChannelID: mandatoryChannelID,
		logger:             logger,
	}
}

// Find возвращает токен по ID или nil
func (s *TokenService) Find(tokenID string) *model.AccessToken {
	var token *model.AccessToken
	s.st.View(func(snap *storage.Snapshot) {
		if found, ok := snap.Tokens[tokenID]; ok {
			copied := *found
			token = &copied
		}
	})
	return token
}

// IssueToken выпускает новый токен для пары (пользователь, канал),
// сохраняет его и уведомляет пользователя и операторский топик.
// На каждый запрос выпускается свежий токен, даже если по этой паре
// уже есть невыкупленный: операторы работают с последним, одобрение
// протухшего просто упадёт на шлюзе.
func (s *TokenService) IssueToken(ctx context.Context, p *model.Principal, channel *model.ManagedChannel) (*model.AccessToken, error) {
	if p.Blocked {
		return nil, gateway.Errorf(gateway.KindPrecondition, "issue_token",
			"principal %d is blocked", p.TelegramID)
	}

	isAdmin := false
	s.st.View(func(snap *storage.Snapshot) {
		isAdmin = snap.IsAdmin(p.TelegramID)
	})

	if err := s.checkMandatoryMembership(ctx, p, isAdmin); err != nil {
		return nil, err
	}

	// Уже состоит в канале — заявка не нужна. Ошибку проверки статуса
	// трактуем как "не состоит": лучше лишняя заявка, чем молча
	// отказать живому пользователю.
	status, err := s.gw.MemberStatus(ctx, channel.ChatID, p.TelegramID)
	if err == nil && status.IsMember() {
		return nil, gateway.Errorf(gateway.KindPrecondition, "issue_token",
			"principal %d is already a member of %d", p.TelegramID, channel.ChatID)
	}

	linkName := fmt.Sprintf("%s %d", p.FullName(), p.TelegramID)
	link, err := s.gw.CreateInviteLink(ctx, channel.ChatID, linkName)
	if err != nil {
		return nil, fmt.Errorf("mint invite link: %w", err)
	}

	token := &model.AccessToken{
		ID:          uuid.NewString(),
		InviteLink:  link,
		PrincipalID: p.TelegramID,
		ResourceID:  channel.ChatID,
		IssuedAt:    time.Now(),
	}

	err = s.st.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Tokens[token.ID] = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TokensIssued.Inc()
	s.logger.Info("Access token issued",
		zap.String("token_id", token.ID),
		zap.Int64("principal_id", p.TelegramID),
		zap.Int64("resource_id", channel.ChatID))

	s.notifyPrincipal(ctx, p, channel, link)
	s.notifyOperators(ctx, p, channel, token)

	return token, nil
}

// checkMandatoryMembership проверяет подписку на обязательный канал.
// Админы освобождены от проверки.
func (s *TokenService) checkMandatoryMembership(ctx context.Context, p *model.Principal, isAdmin bool) error {
	if s.mandatoryChannelID == 0 || isAdmin {
		return nil
	}

	status, err := s.gw.MemberStatus(ctx, s.mandatoryChannelID, p.TelegramID)
	if err != nil || !status.IsMember() {
		if err != nil {
			s.logger.Warn("Mandatory membership check failed",
				zap.Int64("principal_id", p.TelegramID),
				zap.Error(err))
		}
		return gateway.Errorf(gateway.KindPrecondition, "issue_token",
			"principal %d has not joined the mandatory channel", p.TelegramID)
	}

	return nil
}

func (s *TokenService) notifyPrincipal(ctx context.Context, p *model.Principal, channel *model.ManagedChannel, link string) {
	text := fmt.Sprintf(
		"🎟 Заявка на «%s» создана.\n\n"+
			"Перейдите по ссылке и дождитесь одобрения оператором:\n%s\n\n"+
			"Ссылка одноразовая.",
		channel.Title, link,
	)

	if _, err := s.gw.SendMessage(ctx, p.TelegramID, text, nil); err != nil {
		s.logger.Warn("Failed to notify principal about token",
			zap.Int64("principal_id", p.TelegramID),
			zap.Error(err))
	}
}

func (s *TokenService) notifyOperators(ctx context.Context, p *model.Principal, channel *model.ManagedChannel, token *model.AccessToken) {
	text := fmt.Sprintf(
		"🎟 Запрос доступа\n\n"+
			"Канал: %s\n"+
			"Пользователь: %s %s\n"+
			"Токен: %s",
		channel.Title, p.FullName(), p.Handle(), token.ID,
	)

	markup := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "⏳ Демо", CallbackData: CallbackGrantDemo + token.ID},
				{Text: "♾ Навсегда", CallbackData: CallbackGrantPerm + token.ID},
			},
			{
				{Text: "⛔️ Отклонить", CallbackData: CallbackGrantDecline + token.ID},
			},
		},
	}

	err := s.sessions.SendToSession(ctx, p, text, &gateway.SendOptions{ReplyMarkup: markup})
	if err != nil {
		// Пользователь не должен пострадать из-за недоступности
		// операторского топика: токен уже выпущен и ссылка у него
		s.logger.Error("Failed to notify operators about token",
			zap.String("token_id", token.ID),
			zap.Error(err))
	}
}
