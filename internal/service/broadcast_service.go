package service

import (
	"context"

	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/state"
	"github.com/h4rdev/batch_access_bot/internal/storage"
	"go.uber.org/zap"
)

// BroadcastService рассылает сообщения пользователям и публикует посты
// в управляемые каналы
type BroadcastService struct {
	st     *state.State
	gw     gateway.Gateway
	logger *zap.Logger
}

// NewBroadcastService создаёт сервис рассылок
func NewBroadcastService(st *state.State, gw gateway.Gateway, logger *zap.Logger) *BroadcastService {
	return &BroadcastService{st: st, gw: gw, logger: logger}
}

// BroadcastToUsers отправляет текст всем известным пользователям, кроме
// админов и заблокированных. Получатели собираются под замком, отправка
// идёт без него.
func (s *BroadcastService) BroadcastToUsers(ctx context.Context, text string) (sent, failed int) {
	var recipients []int64
	s.st.View(func(snap *storage.Snapshot) {
		for id, p := range snap.Principals {
			if p.Blocked || snap.IsAdmin(id) {
				continue
			}
			recipients = append(recipients, id)
		}
	})

	for _, id := range recipients {
		if _, err := s.gw.SendMessage(ctx, id, text, nil); err != nil {
			failed++
			s.logger.Debug("Broadcast delivery failed",
				zap.Int64("principal_id", id),
				zap.Error(err))
			continue
		}
		sent++
	}

	s.logger.Info("Broadcast finished",
		zap.Int("sent", sent),
		zap.Int("failed", failed))

	return sent, failed
}

// PostToChannels публикует текст во все управляемые каналы
func (s *BroadcastService) PostToChannels(ctx context.Context, text string) (sent int, failedIDs []int64) {
	var channels []int64
	s.st.View(func(snap *storage.Snapshot) {
		for id := range snap.Channels {
			channels = append(channels, id)
		}
	})

	for _, id := range channels {
		if _, err := s.gw.SendMessage(ctx, id, text, nil); err != nil {
			failedIDs = append(failedIDs, id)
			s.logger.Warn("Channel post failed",
				zap.Int64("chat_id", id),
				zap.Error(err))
			continue
		}
		sent++
	}

	return sent, failedIDs
}
