package service

import (
	"context"
	"testing"

	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"go.uber.org/zap"
)

func TestChannelCatalog(t *testing.T) {
	svc := NewChannelService(newTestState(t), zap.NewNop())
	ctx := context.Background()

	if err := svc.AddChannel(ctx, -100222, "Батч А"); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	if err := svc.AddChannel(ctx, -100222, "Дубль"); !gateway.IsConflict(err) {
		t.Errorf("duplicate AddChannel err = %v, want conflict", err)
	}
	if ch := svc.Get(-100222); ch == nil || ch.Title != "Батч А" {
		t.Errorf("Get = %+v", ch)
	}

	if err := svc.AddChannel(ctx, -100333, "Батч Б"); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	channels := svc.Channels()
	if len(channels) != 2 || channels[0].Title != "Батч А" {
		t.Errorf("Channels = %+v", channels)
	}

	if err := svc.RemoveChannel(ctx, -100222); err != nil {
		t.Fatalf("RemoveChannel: %v", err)
	}
	if err := svc.RemoveChannel(ctx, -100222); !gateway.IsNotFound(err) {
		t.Errorf("repeated RemoveChannel err = %v, want not found", err)
	}
}

func TestPaidChannelCatalog(t *testing.T) {
	svc := NewChannelService(newTestState(t), zap.NewNop())
	ctx := context.Background()

	if err := svc.AddPaidChannel(ctx, "VIP", "https://t.me/+vip"); err != nil {
		t.Fatalf("AddPaidChannel: %v", err)
	}
	if paid := svc.PaidChannels(); len(paid) != 1 || paid[0].Title != "VIP" {
		t.Errorf("PaidChannels = %+v", paid)
	}

	if err := svc.RemovePaidChannel(ctx, 5); !gateway.IsNotFound(err) {
		t.Errorf("out of range remove err = %v, want not found", err)
	}
	if err := svc.RemovePaidChannel(ctx, 0); err != nil {
		t.Fatalf("RemovePaidChannel: %v", err)
	}
	if paid := svc.PaidChannels(); len(paid) != 0 {
		t.Errorf("paid catalog not empty: %+v", paid)
	}
}

func TestActiveChatTracking(t *testing.T) {
	svc := NewChannelService(newTestState(t), zap.NewNop())
	ctx := context.Background()

	svc.TrackChat(ctx, -100444, "Чат операторов")
	if chats := svc.ActiveChats(); chats[-100444] != "Чат операторов" {
		t.Errorf("ActiveChats = %+v", chats)
	}

	svc.UntrackChat(ctx, -100444)
	if chats := svc.ActiveChats(); len(chats) != 0 {
		t.Errorf("chat not untracked: %+v", chats)
	}
}
