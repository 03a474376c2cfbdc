package service

import (
	"context"
	"sort"

	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/model"
	"github.com/h4rdev/batch_access_bot/internal/state"
	"github.com/h4rdev/batch_access_bot/internal/storage"
	"go.uber.org/zap"
)

// ChannelService ведёт каталог каналов: закрытые каналы с выдачей доступа
// и платные каналы, для которых бот показывает только ссылку
type ChannelService struct {
	st     *state.State
	logger *zap.Logger
}

// NewChannelService создаёт сервис каналов
func NewChannelService(st *state.State, logger *zap.Logger) *ChannelService {
	return &ChannelService{st: st, logger: logger}
}

// AddChannel добавляет закрытый канал в каталог
func (s *ChannelService) AddChannel(ctx context.Context, chatID int64, title string) error {
	return s.st.Update(ctx, func(snap *storage.Snapshot) error {
		if _, ok := snap.Channels[chatID]; ok {
			return gateway.Errorf(gateway.KindConflict, "add_channel", "channel %d already managed", chatID)
		}
		snap.Channels[chatID] = &model.ManagedChannel{ChatID: chatID, Title: title}
		return nil
	})
}

// RemoveChannel убирает канал из каталога. Активные гранты не трогаются:
// их доживание решает оператор.
func (s *ChannelService) RemoveChannel(ctx context.Context, chatID int64) error {
	return s.st.Update(ctx, func(snap *storage.Snapshot) error {
		if _, ok := snap.Channels[chatID]; !ok {
			return gateway.Errorf(gateway.KindNotFound, "remove_channel", "channel %d is not managed", chatID)
		}
		delete(snap.Channels, chatID)
		return nil
	})
}

// Get возвращает канал каталога или nil
func (s *ChannelService) Get(chatID int64) *model.ManagedChannel {
	var ch *model.ManagedChannel
	s.st.View(func(snap *storage.Snapshot) {
		if found, ok := snap.Channels[chatID]; ok {
			copied := *found
			ch = &copied
		}
	})
	return ch
}

// Channels возвращает закрытые каналы, отсортированные по названию
func (s *ChannelService) Channels() []model.ManagedChannel {
	var out []model.ManagedChannel
	s.st.View(func(snap *storage.Snapshot) {
		for _, ch := range snap.Channels {
			out = append(out, *ch)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// AddPaidChannel добавляет платный канал в каталог
func (s *ChannelService) AddPaidChannel(ctx context.Context, title, link string) error {
	return s.st.Update(ctx, func(snap *storage.Snapshot) error {
		snap.PaidChannels = append(snap.PaidChannels, model.PaidChannel{Title: title, Link: link})
		return nil
	})
}

// RemovePaidChannel убирает платный канал по позиции в каталоге
func (s *ChannelService) RemovePaidChannel(ctx context.Context, index int) error {
	return s.st.Update(ctx, func(snap *storage.Snapshot) error {
		if index < 0 || index >= len(snap.PaidChannels) {
			return gateway.Errorf(gateway.KindNotFound, "remove_paid_channel", "no paid channel at %d", index)
		}
		snap.PaidChannels = append(snap.PaidChannels[:index], snap.PaidChannels[index+1:]...)
		return nil
	})
}

// PaidChannels возвращает каталог платных каналов
func (s *ChannelService) PaidChannels() []model.PaidChannel {
	var out []model.PaidChannel
	s.st.View(func(snap *storage.Snapshot) {
		out = append(out, snap.PaidChannels...)
	})
	return out
}

// TrackChat запоминает чат, куда добавили бота
func (s *ChannelService) TrackChat(ctx context.Context, chatID int64, title string) {
	err := s.st.Update(ctx, func(snap *storage.Snapshot) error {
		snap.ActiveChats[chatID] = title
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to track chat", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	s.logger.Info("Chat tracked", zap.Int64("chat_id", chatID), zap.String("title", title))
}

// UntrackChat забывает чат, откуда бота удалили
func (s *ChannelService) UntrackChat(ctx context.Context, chatID int64) {
	err := s.st.Update(ctx, func(snap *storage.Snapshot) error {
		delete(snap.ActiveChats, chatID)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to untrack chat", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	s.logger.Info("Chat untracked", zap.Int64("chat_id", chatID))
}

// ActiveChats возвращает копию списка чатов, где состоит бот
func (s *ChannelService) ActiveChats() map[int64]string {
	out := make(map[int64]string)
	s.st.View(func(snap *storage.Snapshot) {
		for id, title := range snap.ActiveChats {
			out[id] = title
		}
	})
	return out
}
