package storage

import (
	"context"
	"errors"
)

// ErrNotFound возвращается когда сохранённого состояния ещё нет
var ErrNotFound = errors.New("snapshot not found")

// Store хранилище состояния бота. Загрузка и сохранение всегда целиком,
// выбор движка (файл, Postgres, связка) скрыт за интерфейсом.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}
