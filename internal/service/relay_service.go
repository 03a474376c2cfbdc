package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/metrics"
	"github.com/h4rdev/batch_access_bot/internal/model"
	"go.uber.org/zap"
)

// RelayService копирует сообщения между личным чатом пользователя и его
// топиком в операторской группе и зеркалит правки и реакции.
//
// Карта связей живёт только в памяти процесса: после рестарта правки
// старых сообщений просто перестают зеркалиться, это осознанный
// компромисс — новые сообщения связываются как обычно.
type RelayService struct {
	sessions *SessionService
	gw       gateway.Gateway
	selfID   int64
	logger   *zap.Logger

	mu    sync.RWMutex
	links map[gateway.MessageRef]gateway.MessageRef
}

// NewRelayService создаёт relay. selfID — ID самого бота: его собственные
// копии не должны пересылаться повторно.
func NewRelayService(sessions *SessionService, gw gateway.Gateway, selfID int64, logger *zap.Logger) *RelayService {
	return &RelayService{
		sessions: sessions,
		gw:       gw,
		selfID:   selfID,
		logger:   logger,
		links:    make(map[gateway.MessageRef]gateway.MessageRef),
	}
}

// IsSelf проверяет что отправитель — сам бот
func (r *RelayService) IsSelf(senderID int64) bool {
	return senderID == r.selfID
}

// forward копирует сообщение в чат назначения и связывает оригинал с
// копией в обе стороны. Связь пишется одной операцией под замком.
func (r *RelayService) forward(ctx context.Context, from gateway.MessageRef, toChatID int64, topicID int) (gateway.MessageRef, error) {
	copied, err := r.gw.CopyMessage(ctx, from, toChatID, topicID)
	if err != nil {
		return gateway.MessageRef{}, err
	}

	r.mu.Lock()
	r.links[from] = copied
	r.links[copied] = from
	r.mu.Unlock()

	return copied, nil
}

// ForwardToOperators копирует сообщение пользователя в его топик.
// Если платформа сообщает что топика нет, сессия сбрасывается и будет
// создана заново следующим сообщением.
func (r *RelayService) ForwardToOperators(ctx context.Context, p *model.Principal, msg gateway.MessageRef) error {
	sess, err := r.sessions.EnsureSession(ctx, p)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}

	_, err = r.forward(ctx, msg, r.sessions.SupportChatID(), sess.TopicID)
	if err != nil {
		if gateway.IsNotFound(err) {
			r.sessions.Drop(ctx, p.TelegramID)
		}
		return fmt.Errorf("relay to operators: %w", err)
	}

	metrics.RelayedMessages.WithLabelValues("to_operators").Inc()
	return nil
}

// ForwardToPrincipal копирует сообщение оператора из топика пользователю
func (r *RelayService) ForwardToPrincipal(ctx context.Context, sess *model.Session, msg gateway.MessageRef) error {
	_, err := r.forward(ctx, msg, sess.PrincipalID, 0)
	if err != nil {
		return fmt.Errorf("relay to principal: %w", err)
	}

	metrics.RelayedMessages.WithLabelValues("to_principal").Inc()
	return nil
}

// Linked возвращает сообщение, связанное с данным, если связь известна
func (r *RelayService) Linked(ref gateway.MessageRef) (gateway.MessageRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	linked, ok := r.links[ref]
	return linked, ok
}

// OnEdit зеркалит правку на связанную копию. Неизвестное сообщение —
// не ошибка: оно старше процесса или не было скопировано.
// Тип сообщения заранее неизвестен, поэтому сначала пробуем текст,
// потом подпись.
func (r *RelayService) OnEdit(ctx context.Context, ref gateway.MessageRef, newText string) error {
	linked, ok := r.Linked(ref)
	if !ok {
		return nil
	}

	annotated := newText + "\n\n✏️ [изменено]"

	err := r.gw.EditMessageText(ctx, linked, annotated)
	if err == nil {
		return nil
	}
	if capErr := r.gw.EditMessageCaption(ctx, linked, annotated); capErr == nil {
		return nil
	}

	return fmt.Errorf("mirror edit: %w", err)
}

// OnReaction зеркалит набор реакций на связанную копию. Повторная
// доставка того же набора не считается ошибкой.
func (r *RelayService) OnReaction(ctx context.Context, ref gateway.MessageRef, emoji []string) error {
	linked, ok := r.Linked(ref)
	if !ok {
		return nil
	}

	err := r.gw.SetReaction(ctx, linked, emoji)
	if gateway.IsConflict(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mirror reaction: %w", err)
	}

	r.logger.Debug("Reaction mirrored",
		zap.Int64("chat_id", linked.ChatID),
		zap.Int("message_id", linked.MessageID))

	return nil
}
