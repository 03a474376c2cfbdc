package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore хранит снапшот в локальном JSON-файле
type FileStore struct {
	path string
}

// NewFileStore создаёт файловое хранилище
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load загружает снапшот из файла
func (fs *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	snap.normalize()

	return &snap, nil
}

// Save сохраняет снапшот в файл через временный файл и rename,
// чтобы не оставить битый JSON при падении на записи
func (fs *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
