package storage

import (
	"context"

	"go.uber.org/zap"
)

// LayeredStore пишет в основное и в резервное хранилище, читает из
// основного с откатом на резервное. Типичная связка: Postgres + локальный
// файл на случай недоступности базы.
type LayeredStore struct {
	primary  Store
	fallback Store
	logger   *zap.Logger
}

// NewLayeredStore создаёт связку из основного и резервного хранилища
func NewLayeredStore(primary, fallback Store, logger *zap.Logger) *LayeredStore {
	return &LayeredStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Load загружает снапшот из основного хранилища, при ошибке — из резервного
func (ls *LayeredStore) Load(ctx context.Context) (*Snapshot, error) {
	snap, err := ls.primary.Load(ctx)
	if err == nil {
		return snap, nil
	}
	if err != ErrNotFound {
		ls.logger.Warn("Primary store load failed, falling back", zap.Error(err))
	}

	return ls.fallback.Load(ctx)
}

// Save сохраняет снапшот в оба хранилища. Ошибка резервного только
// логируется: основное хранилище остаётся источником правды.
func (ls *LayeredStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ls.fallback.Save(ctx, snap); err != nil {
		ls.logger.Warn("Fallback store save failed", zap.Error(err))
	}

	return ls.primary.Save(ctx, snap)
}
