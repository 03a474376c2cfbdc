package service

import (
	"context"
	"testing"

	"github.com/h4rdev/batch_access_bot/internal/model"
	"github.com/h4rdev/batch_access_bot/internal/storage"
	"go.uber.org/zap"
)

func TestBroadcastToUsers_SkipsAdminsAndBlocked(t *testing.T) {
	st := newTestState(t)
	fg := newFakeGateway()
	svc := NewBroadcastService(st, fg, zap.NewNop())
	ctx := context.Background()

	err := st.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Principals[1] = &model.Principal{TelegramID: 1}
		snap.Principals[2] = &model.Principal{TelegramID: 2, Blocked: true}
		snap.Principals[3] = &model.Principal{TelegramID: 3}
		snap.AdminIDs = []int64{3}
		return nil
	})
	if err != nil {
		t.Fatalf("seed state: %v", err)
	}

	sent, failed := svc.BroadcastToUsers(ctx, "привет")
	if sent != 1 || failed != 0 {
		t.Errorf("sent=%d failed=%d, want 1/0", sent, failed)
	}
	if got := fg.sentTo(1); len(got) != 1 || got[0].Text != "привет" {
		t.Errorf("delivery to user 1 = %+v", got)
	}
	if len(fg.sentTo(2)) != 0 || len(fg.sentTo(3)) != 0 {
		t.Error("blocked user or admin received the broadcast")
	}
}

func TestPostToChannels(t *testing.T) {
	st := newTestState(t)
	fg := newFakeGateway()
	svc := NewBroadcastService(st, fg, zap.NewNop())
	ctx := context.Background()

	err := st.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Channels[-100222] = &model.ManagedChannel{ChatID: -100222, Title: "Батч А"}
		snap.Channels[-100333] = &model.ManagedChannel{ChatID: -100333, Title: "Батч Б"}
		return nil
	})
	if err != nil {
		t.Fatalf("seed state: %v", err)
	}

	sent, failedIDs := svc.PostToChannels(ctx, "анонс")
	if sent != 2 || len(failedIDs) != 0 {
		t.Errorf("sent=%d failed=%v, want 2 and none", sent, failedIDs)
	}
}
