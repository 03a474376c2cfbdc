package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/h4rdev/batch_access_bot/internal/model"
	"go.uber.org/zap"
)

func sampleSnapshot() *Snapshot {
	snap := NewSnapshot()
	snap.Principals[42] = &model.Principal{
		TelegramID:  42,
		FirstName:   "Иван",
		Username:    "ivan",
		FirstSeenAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	snap.Sessions[42] = &model.Session{PrincipalID: 42, TopicID: 7}
	expires := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	snap.Grants[model.GrantKey(42, -100123)] = &model.AccessGrant{
		PrincipalID: 42,
		ResourceID:  -100123,
		Mode:        model.GrantModeDemo,
		ExpiresAt:   &expires,
	}
	snap.AppendDemoHistory(42, -100123)
	snap.AdminIDs = []int64{1, 2}
	return snap
}

func TestFileStore_LoadMissing(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	_, err := fs.Load(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load on missing file: err = %v, want ErrNotFound", err)
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "state.json")
	fs := NewFileStore(path)
	ctx := context.Background()

	if err := fs.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.Principals[42] == nil || got.Principals[42].Username != "ivan" {
		t.Errorf("principal 42 not restored: %+v", got.Principals[42])
	}
	if got.Sessions[42] == nil || got.Sessions[42].TopicID != 7 {
		t.Errorf("session 42 not restored: %+v", got.Sessions[42])
	}
	grant := got.Grants[model.GrantKey(42, -100123)]
	if grant == nil || grant.ExpiresAt == nil {
		t.Fatalf("grant not restored: %+v", grant)
	}
	if !grant.ExpiresAt.Equal(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("grant expiry = %v", grant.ExpiresAt)
	}
	if !got.HasDemoHistory(42, -100123) {
		t.Error("demo history lost")
	}
	if !got.IsAdmin(1) || got.IsAdmin(42) {
		t.Error("admin list not restored")
	}
}

func TestMemoryStore_SaveIsolatesSnapshot(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	snap := sampleSnapshot()
	if err := ms.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Мутация после сохранения не должна попасть в хранилище
	snap.Principals[42].Blocked = true

	got, err := ms.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Principals[42].Blocked {
		t.Error("store shares memory with caller")
	}
}

type failingStore struct{ err error }

func (f *failingStore) Load(ctx context.Context) (*Snapshot, error) { return nil, f.err }
func (f *failingStore) Save(ctx context.Context, snap *Snapshot) error {
	return f.err
}

func TestLayeredStore_FallbackOnPrimaryFailure(t *testing.T) {
	ctx := context.Background()
	fallback := NewMemoryStore()
	if err := fallback.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("seed fallback: %v", err)
	}

	ls := NewLayeredStore(&failingStore{err: errors.New("db down")}, fallback, zap.NewNop())

	got, err := ls.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Principals[42] == nil {
		t.Error("snapshot not loaded from fallback")
	}
}

func TestLayeredStore_SaveSurvivesFallbackFailure(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	ls := NewLayeredStore(primary, &failingStore{err: errors.New("disk full")}, zap.NewNop())

	if err := ls.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := primary.Load(ctx); err != nil {
		t.Fatalf("primary did not receive snapshot: %v", err)
	}
}

func TestSnapshot_AppendDemoHistoryNoDuplicates(t *testing.T) {
	snap := NewSnapshot()
	snap.AppendDemoHistory(42, -100123)
	snap.AppendDemoHistory(42, -100123)

	if len(snap.DemoHistory[42]) != 1 {
		t.Errorf("history = %v, want single entry", snap.DemoHistory[42])
	}
}
