package state

import (
	"context"
	"errors"
	"sync"

	"github.com/h4rdev/batch_access_bot/internal/storage"
	"go.uber.org/zap"
)

// State владеет рабочей копией снапшота и сериализует все изменения:
// одна мутация за раз, после мутации — сохранение целиком.
type State struct {
	mu     sync.Mutex
	store  storage.Store
	snap   *storage.Snapshot
	logger *zap.Logger
}

// Load загружает состояние из хранилища. Отсутствие сохранённого
// состояния — нормальный первый запуск.
func Load(ctx context.Context, store storage.Store, logger *zap.Logger) (*State, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		logger.Warn("No saved state found, starting fresh")
		snap = storage.NewSnapshot()
	}

	return &State{
		store:  store,
		snap:   snap,
		logger: logger,
	}, nil
}

// Update выполняет мутацию под замком и сохраняет снапшот.
// Ошибка сохранения логируется, но состояние в памяти не откатывается:
// следующий успешный Update сохранит всё заново.
func (s *State) Update(ctx context.Context, fn func(snap *storage.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.snap); err != nil {
		return err
	}

	if err := s.store.Save(ctx, s.snap); err != nil {
		s.logger.Error("Failed to persist state", zap.Error(err))
	}

	return nil
}

// View выполняет чтение под замком. Из fn нельзя выносить указатели
// на содержимое снапшота.
func (s *State) View(fn func(snap *storage.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.snap)
}
