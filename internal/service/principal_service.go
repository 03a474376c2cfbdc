package service

import (
	"context"
	"sort"
	"time"

	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/model"
	"github.com/h4rdev/batch_access_bot/internal/state"
	"github.com/h4rdev/batch_access_bot/internal/storage"
	"go.uber.org/zap"
)

// PrincipalService ведёт учёт пользователей, блокировки и список админов
type PrincipalService struct {
	st      *state.State
	ownerID int64
	logger  *zap.Logger
}

// NewPrincipalService создаёт сервис пользователей
func NewPrincipalService(st *state.State, ownerID int64, logger *zap.Logger) *PrincipalService {
	return &PrincipalService{st: st, ownerID: ownerID, logger: logger}
}

// Register создаёт пользователя при первом контакте или обновляет
// профиль существующего
func (s *PrincipalService) Register(ctx context.Context, telegramID int64, firstName, lastName, username, languageCode string) (*model.Principal, error) {
	var result *model.Principal

	err := s.st.Update(ctx, func(snap *storage.Snapshot) error {
		p, ok := snap.Principals[telegramID]
		if !ok {
			p = &model.Principal{
				TelegramID:  telegramID,
				FirstSeenAt: time.Now(),
			}
			snap.Principals[telegramID] = p
			s.logger.Info("New principal registered",
				zap.Int64("telegram_id", telegramID),
				zap.String("username", username))
		}

		p.FirstName = firstName
		p.LastName = lastName
		p.Username = username
		p.LanguageCode = languageCode

		copied := *p
		result = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Get возвращает пользователя или nil
func (s *PrincipalService) Get(telegramID int64) *model.Principal {
	var p *model.Principal
	s.st.View(func(snap *storage.Snapshot) {
		if found, ok := snap.Principals[telegramID]; ok {
			copied := *found
			p = &copied
		}
	})
	return p
}

// IsOwner проверяет что это владелец бота
func (s *PrincipalService) IsOwner(telegramID int64) bool {
	return telegramID != 0 && telegramID == s.ownerID
}

// IsAdmin проверяет что пользователь админ или владелец
func (s *PrincipalService) IsAdmin(telegramID int64) bool {
	if s.IsOwner(telegramID) {
		return true
	}
	admin := false
	s.st.View(func(snap *storage.Snapshot) {
		admin = snap.IsAdmin(telegramID)
	})
	return admin
}

// SetBlocked выставляет флаг блокировки. Пользователи не удаляются,
// только помечаются.
func (s *PrincipalService) SetBlocked(ctx context.Context, telegramID int64, blocked bool) error {
	if blocked && (s.IsOwner(telegramID) || s.IsAdmin(telegramID)) {
		return gateway.Errorf(gateway.KindPrecondition, "block", "cannot block an admin")
	}

	return s.st.Update(ctx, func(snap *storage.Snapshot) error {
		p, ok := snap.Principals[telegramID]
		if !ok {
			if !blocked {
				return gateway.Errorf(gateway.KindNotFound, "unblock", "unknown principal %d", telegramID)
			}
			// Блокировать можно и незнакомого: создаём запись-заглушку
			p = &model.Principal{TelegramID: telegramID, FirstSeenAt: time.Now()}
			snap.Principals[telegramID] = p
		}
		p.Blocked = blocked
		return nil
	})
}

// AddAdmin добавляет админа
func (s *PrincipalService) AddAdmin(ctx context.Context, telegramID int64) error {
	return s.st.Update(ctx, func(snap *storage.Snapshot) error {
		if snap.IsAdmin(telegramID) {
			return gateway.Errorf(gateway.KindConflict, "add_admin", "already an admin")
		}
		snap.AdminIDs = append(snap.AdminIDs, telegramID)
		return nil
	})
}

// RemoveAdmin убирает админа. Владельца убрать нельзя.
func (s *PrincipalService) RemoveAdmin(ctx context.Context, telegramID int64) error {
	if s.IsOwner(telegramID) {
		return gateway.Errorf(gateway.KindPrecondition, "remove_admin", "cannot remove the owner")
	}

	return s.st.Update(ctx, func(snap *storage.Snapshot) error {
		for i, id := range snap.AdminIDs {
			if id == telegramID {
				snap.AdminIDs = append(snap.AdminIDs[:i], snap.AdminIDs[i+1:]...)
				return nil
			}
		}
		return gateway.Errorf(gateway.KindNotFound, "remove_admin", "not an admin")
	})
}

// Admins возвращает отсортированный список админов
func (s *PrincipalService) Admins() []int64 {
	var ids []int64
	s.st.View(func(snap *storage.Snapshot) {
		ids = append(ids, snap.AdminIDs...)
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Stats сводка по пользователям
type Stats struct {
	Total   int
	Admins  int
	Blocked int
}

// GetStats возвращает сводку по пользователям
func (s *PrincipalService) GetStats() Stats {
	var st Stats
	s.st.View(func(snap *storage.Snapshot) {
		st.Total = len(snap.Principals)
		st.Admins = len(snap.AdminIDs)
		for _, p := range snap.Principals {
			if p.Blocked {
				st.Blocked++
			}
		}
	})
	return st
}
