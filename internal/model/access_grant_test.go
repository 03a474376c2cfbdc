package model

import (
	"testing"
	"time"
)

func TestAccessGrantIsExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	perm := &AccessGrant{Mode: GrantModePermanent}
	if perm.IsExpired(now) {
		t.Error("permanent grant must never expire")
	}

	expires := now.Add(time.Hour)
	demo := &AccessGrant{Mode: GrantModeDemo, ExpiresAt: &expires}

	if demo.IsExpired(now) {
		t.Error("grant expired before its deadline")
	}
	// Ровно в момент дедлайна грант ещё действует
	if demo.IsExpired(expires) {
		t.Error("grant expired exactly at the deadline")
	}
	if !demo.IsExpired(expires.Add(time.Second)) {
		t.Error("grant still active past the deadline")
	}
}
