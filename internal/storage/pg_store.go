package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore хранит снапшот одной JSONB-строкой в Postgres.
// Состояние маленькое и пишется целиком, поэтому документ, а не таблицы.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore создаёт хранилище поверх пула соединений
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Load загружает снапшот из базы
func (ps *PgStore) Load(ctx context.Context) (*Snapshot, error) {
	query := `
		SELECT data
		FROM bot_state
		WHERE id = 1
	`

	var data []byte
	err := ps.pool.QueryRow(ctx, query).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load state: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	snap.normalize()

	return &snap, nil
}

// Save сохраняет снапшот в базу
func (ps *PgStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	query := `
		INSERT INTO bot_state (id, data, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`

	if _, err := ps.pool.Exec(ctx, query, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	return nil
}
