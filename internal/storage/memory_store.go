package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore хранит снапшот в памяти. Используется в тестах и как
// заглушка, когда не настроены ни файл, ни база.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore создаёт хранилище в памяти
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load загружает снапшот
func (ms *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.data == nil {
		return nil, ErrNotFound
	}

	var snap Snapshot
	if err := json.Unmarshal(ms.data, &snap); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	snap.normalize()

	return &snap, nil
}

// Save сохраняет снапшот. Снапшот сериализуется, чтобы хранилище не
// делило память с вызывающим кодом — как и настоящие движки.
func (ms *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	ms.mu.Lock()
	ms.data = data
	ms.mu.Unlock()

	return nil
}
