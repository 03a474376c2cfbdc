package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/model"
	"github.com/h4rdev/batch_access_bot/internal/state"
	"github.com/h4rdev/batch_access_bot/internal/storage"
	"go.uber.org/zap"
)

const testLogChannelID int64 = -100999

type grantFixture struct {
	st     *state.State
	fg     *fakeGateway
	tokens *TokenService
	grants *GrantService
	clock  time.Time
}

func newGrantFixture(t *testing.T) *grantFixture {
	t.Helper()
	st := newTestState(t)
	fg := newFakeGateway()
	sessions := NewSessionService(st, fg, testSupportChatID, zap.NewNop())
	tokens := NewTokenService(st, fg, sessions, 0, zap.NewNop())
	grants := NewGrantService(st, fg, testLogChannelID, 30*time.Minute, zap.NewNop())

	f := &grantFixture{
		st:     st,
		fg:     fg,
		tokens: tokens,
		grants: grants,
		clock:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	grants.now = func() time.Time { return f.clock }
	return f
}

func (f *grantFixture) issueToken(t *testing.T) *model.AccessToken {
	t.Helper()
	token, err := f.tokens.IssueToken(context.Background(), testPrincipal(), testChannel())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func (f *grantFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func TestApprove_Demo(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	grant, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, 3*time.Hour)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if !grant.IsDemo() || grant.ExpiresAt == nil {
		t.Fatal("demo grant has no expiry")
	}
	if want := f.clock.Add(3 * time.Hour); !grant.ExpiresAt.Equal(want) {
		t.Errorf("expires at %v, want %v", grant.ExpiresAt, want)
	}
	if len(f.fg.approved) != 1 {
		t.Errorf("approved join requests = %d, want 1", len(f.fg.approved))
	}
	if len(f.fg.revoked) != 1 || f.fg.revoked[0] != token.InviteLink {
		t.Errorf("invite link not revoked after approval: %v", f.fg.revoked)
	}

	f.st.View(func(snap *storage.Snapshot) {
		if !snap.Tokens[token.ID].Consumed {
			t.Error("token not consumed")
		}
		if !snap.HasDemoHistory(token.PrincipalID, token.ResourceID) {
			t.Error("demo history not recorded")
		}
	})
	if !f.grants.HadDemo(token.PrincipalID, token.ResourceID) {
		t.Error("HadDemo = false after a demo approval")
	}
}

func TestApprove_Permanent(t *testing.T) {
	f := newGrantFixture(t)
	token := f.issueToken(t)

	grant, err := f.grants.Approve(context.Background(), token.ID, model.GrantModePermanent, 0)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if grant.IsDemo() || grant.ExpiresAt != nil {
		t.Error("permanent grant must have no expiry")
	}

	f.st.View(func(snap *storage.Snapshot) {
		if snap.HasDemoHistory(token.PrincipalID, token.ResourceID) {
			t.Error("permanent approval recorded in demo history")
		}
	})

	// Вечный грант тик не трогает
	f.advance(1000 * time.Hour)
	f.grants.CheckExpirations(context.Background())
	if len(f.fg.banned) != 0 {
		t.Error("permanent grant was revoked by the scan")
	}
}

func TestApprove_TokenIsSingleUse(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, time.Hour); err != nil {
		t.Fatalf("first Approve: %v", err)
	}

	_, err := f.grants.Approve(ctx, token.ID, model.GrantModePermanent, 0)
	if !gateway.IsConflict(err) {
		t.Fatalf("second Approve err = %v, want conflict", err)
	}
	if len(f.fg.approved) != 1 {
		t.Errorf("gateway approvals = %d, want 1", len(f.fg.approved))
	}
}

func TestApprove_UnknownToken(t *testing.T) {
	f := newGrantFixture(t)

	_, err := f.grants.Approve(context.Background(), "no-such-token", model.GrantModeDemo, time.Hour)
	if !gateway.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestApprove_GatewayFailureKeepsTokenAlive(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	f.fg.approveErr = gateway.Errorf(gateway.KindTransient, "approve_join_request", "network")
	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, time.Hour); err == nil {
		t.Fatal("expected approval failure")
	}

	f.st.View(func(snap *storage.Snapshot) {
		if snap.Tokens[token.ID].Consumed {
			t.Error("token consumed despite gateway failure")
		}
		if len(snap.Grants) != 0 {
			t.Error("grant persisted despite gateway failure")
		}
	})

	// Повтор после восстановления шлюза проходит
	f.fg.approveErr = nil
	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, time.Hour); err != nil {
		t.Fatalf("retry Approve: %v", err)
	}
}

func TestApprove_ReplacesExistingGrant(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()

	first := f.issueToken(t)
	if _, err := f.grants.Approve(ctx, first.ID, model.GrantModeDemo, time.Hour); err != nil {
		t.Fatalf("first Approve: %v", err)
	}

	// Повторный запрос той же пары: новый грант замещает старый
	second := f.issueToken(t)
	if _, err := f.grants.Approve(ctx, second.ID, model.GrantModePermanent, 0); err != nil {
		t.Fatalf("second Approve: %v", err)
	}

	active := f.grants.ActiveGrantsFor(42)
	if len(active) != 1 {
		t.Fatalf("active grants = %d, want 1", len(active))
	}
	if active[0].IsDemo() {
		t.Error("old demo grant survived the permanent approval")
	}
}

func TestDecline_ConsumesToken(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	if err := f.grants.Decline(ctx, token.ID); err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if len(f.fg.declined) != 1 {
		t.Errorf("declined join requests = %d, want 1", len(f.fg.declined))
	}

	// Выкупленный токен больше не одобрить
	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, time.Hour); !gateway.IsConflict(err) {
		t.Fatalf("Approve after decline err = %v, want conflict", err)
	}
}

func TestExtend_NeverShortens(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	grant, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, 3*time.Hour)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	extended, err := f.grants.Extend(ctx, grant.PrincipalID, grant.ResourceID, 2*time.Hour)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if want := grant.ExpiresAt.Add(2 * time.Hour); !extended.ExpiresAt.Equal(want) {
		t.Errorf("extended to %v, want %v", extended.ExpiresAt, want)
	}
}

func TestExtend_ExpiredGrantCountsFromNow(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, time.Hour); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// Срок уже прошёл, но тик ещё не отработал
	f.advance(5 * time.Hour)
	extended, err := f.grants.Extend(ctx, 42, testChannel().ChatID, 2*time.Hour)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if want := f.clock.Add(2 * time.Hour); !extended.ExpiresAt.Equal(want) {
		t.Errorf("extended to %v, want %v", extended.ExpiresAt, want)
	}
}

func TestExtend_ResetsWarnedFlag(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, time.Hour); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	f.advance(45 * time.Minute)
	f.grants.CheckExpirations(ctx)

	f.st.View(func(snap *storage.Snapshot) {
		if !snap.Grants[model.GrantKey(42, testChannel().ChatID)].Warned {
			t.Fatal("grant not warned before extension")
		}
	})

	if _, err := f.grants.Extend(ctx, 42, testChannel().ChatID, 2*time.Hour); err != nil {
		t.Fatalf("Extend: %v", err)
	}

	f.st.View(func(snap *storage.Snapshot) {
		if snap.Grants[model.GrantKey(42, testChannel().ChatID)].Warned {
			t.Error("Warned flag not reset by extension")
		}
	})
}

func TestExtend_PermanentGrantNotFound(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModePermanent, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.grants.Extend(ctx, 42, testChannel().ChatID, time.Hour); !gateway.IsNotFound(err) {
		t.Fatalf("Extend on permanent grant err = %v, want not found", err)
	}
}

func TestRevokeNow(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModePermanent, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := f.grants.RevokeNow(ctx, 42, testChannel().ChatID); err != nil {
		t.Fatalf("RevokeNow: %v", err)
	}

	// Мягкий кик: бан и сразу разбан
	if len(f.fg.banned) != 1 || len(f.fg.unbanned) != 1 {
		t.Errorf("banned=%d unbanned=%d, want 1/1", len(f.fg.banned), len(f.fg.unbanned))
	}
	if got := f.grants.ActiveGrantsFor(42); len(got) != 0 {
		t.Errorf("active grants after revoke = %d", len(got))
	}
}

func TestRevokeAllFor(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()

	// Два канала, два гранта у одного пользователя
	other := &model.ManagedChannel{ChatID: -100333, Title: "Батч Б"}
	t1, err := f.tokens.IssueToken(ctx, testPrincipal(), testChannel())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	t2, err := f.tokens.IssueToken(ctx, testPrincipal(), other)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := f.grants.Approve(ctx, t1.ID, model.GrantModeDemo, time.Hour); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.grants.Approve(ctx, t2.ID, model.GrantModePermanent, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if n := f.grants.RevokeAllFor(ctx, 42, "blocked"); n != 2 {
		t.Errorf("revoked = %d, want 2", n)
	}
	if got := f.grants.ActiveGrantsFor(42); len(got) != 0 {
		t.Errorf("active grants after revoke all = %d", len(got))
	}
	if len(f.fg.banned) != 2 {
		t.Errorf("kicks = %d, want 2", len(f.fg.banned))
	}
}

func TestCheckExpirations_WarnsExactlyOnce(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, 3*time.Hour); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	before := len(f.fg.sentTo(42))

	// Рано: до срока больше окна предупреждения
	f.advance(2 * time.Hour)
	f.grants.CheckExpirations(ctx)
	if got := len(f.fg.sentTo(42)); got != before {
		t.Errorf("warned too early: %d messages", got-before)
	}

	// Вошли в окно
	f.advance(31 * time.Minute)
	f.grants.CheckExpirations(ctx)
	if got := len(f.fg.sentTo(42)); got != before+1 {
		t.Fatalf("warnings = %d, want 1", got-before)
	}
	warning := f.fg.sentTo(42)[before].Text
	if !strings.Contains(warning, "29м") {
		t.Errorf("warning text = %q, want remaining time mentioned", warning)
	}

	// Повторный тик в том же окне молчит
	f.advance(5 * time.Minute)
	f.grants.CheckExpirations(ctx)
	if got := len(f.fg.sentTo(42)); got != before+1 {
		t.Errorf("duplicate warning sent")
	}
}

func TestCheckExpirations_WarnFailureRetriesNextTick(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, time.Hour); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	f.advance(45 * time.Minute)
	f.fg.sendErr = gateway.Errorf(gateway.KindTransient, "send_message", "network")
	f.grants.CheckExpirations(ctx)

	f.st.View(func(snap *storage.Snapshot) {
		if snap.Grants[model.GrantKey(42, testChannel().ChatID)].Warned {
			t.Fatal("Warned set despite send failure")
		}
	})

	f.fg.sendErr = nil
	f.grants.CheckExpirations(ctx)
	f.st.View(func(snap *storage.Snapshot) {
		if !snap.Grants[model.GrantKey(42, testChannel().ChatID)].Warned {
			t.Error("Warned not set after successful retry")
		}
	})
}

func TestCheckExpirations_ExpiresAndKicks(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, time.Hour); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	f.advance(61 * time.Minute)
	f.grants.CheckExpirations(ctx)

	if len(f.fg.banned) != 1 || len(f.fg.unbanned) != 1 {
		t.Errorf("banned=%d unbanned=%d, want 1/1", len(f.fg.banned), len(f.fg.unbanned))
	}
	if got := f.grants.ActiveGrantsFor(42); len(got) != 0 {
		t.Errorf("grant still active after expiry: %d", len(got))
	}

	// Следующий тик уже ничего не делает
	f.advance(time.Hour)
	f.grants.CheckExpirations(ctx)
	if len(f.fg.banned) != 1 {
		t.Errorf("expired grant processed twice: %d kicks", len(f.fg.banned))
	}
}

func TestCheckExpirations_KickFailureReported(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	token := f.issueToken(t)

	if _, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, time.Hour); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	f.advance(2 * time.Hour)
	f.fg.banErr = gateway.Errorf(gateway.KindForbidden, "ban_member", "not enough rights")
	f.grants.CheckExpirations(ctx)

	// Грант снят с учёта, а неудачный кик уходит в лог-канал
	if got := f.grants.ActiveGrantsFor(42); len(got) != 0 {
		t.Errorf("grant kept after kick failure: %d", len(got))
	}
	if alerts := f.fg.sentTo(testLogChannelID); len(alerts) != 1 {
		t.Errorf("alerts in log channel = %d, want 1", len(alerts))
	}
}

func TestGrants_SurviveRestart(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	st, err := state.Load(ctx, store, zap.NewNop())
	if err != nil {
		t.Fatalf("state.Load: %v", err)
	}
	fg := newFakeGateway()
	sessions := NewSessionService(st, fg, testSupportChatID, zap.NewNop())
	tokens := NewTokenService(st, fg, sessions, 0, zap.NewNop())
	grants := NewGrantService(st, fg, testLogChannelID, 30*time.Minute, zap.NewNop())
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	grants.now = func() time.Time { return base }

	token, err := tokens.IssueToken(ctx, testPrincipal(), testChannel())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := grants.Approve(ctx, token.ID, model.GrantModeDemo, 3*time.Hour); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// "Рестарт": новое состояние из того же хранилища, часы ушли за срок
	st2, err := state.Load(ctx, store, zap.NewNop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	fg2 := newFakeGateway()
	grants2 := NewGrantService(st2, fg2, testLogChannelID, 30*time.Minute, zap.NewNop())
	grants2.now = func() time.Time { return base.Add(4 * time.Hour) }

	grants2.CheckExpirations(ctx)

	if len(fg2.banned) != 1 {
		t.Fatalf("kicks after restart = %d, want 1", len(fg2.banned))
	}
	if got := grants2.ActiveGrantsFor(42); len(got) != 0 {
		t.Errorf("grant survived its expiry across restart: %d", len(got))
	}
}

// Полный путь: запрос доступа, одобрение демо на 3 часа, предупреждение
// за полчаса, отзыв после истечения.
func TestGrantLifecycle_EndToEnd(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	ch := testChannel()

	token, err := f.tokens.IssueToken(ctx, testPrincipal(), ch)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	grant, err := f.grants.Approve(ctx, token.ID, model.GrantModeDemo, 3*time.Hour)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if want := f.clock.Add(3 * time.Hour); !grant.ExpiresAt.Equal(want) {
		t.Fatalf("expires at %v, want %v", grant.ExpiresAt, want)
	}
	approvedMsgs := len(f.fg.sentTo(42))

	// 2ч31м: внутри окна предупреждения
	f.advance(2*time.Hour + 31*time.Minute)
	f.grants.CheckExpirations(ctx)
	if got := len(f.fg.sentTo(42)); got != approvedMsgs+1 {
		t.Fatalf("messages after warn tick = %d, want %d", got, approvedMsgs+1)
	}

	// 3ч01м: срок вышел
	f.advance(30 * time.Minute)
	f.grants.CheckExpirations(ctx)
	if len(f.fg.banned) != 1 {
		t.Fatalf("kicks = %d, want 1", len(f.fg.banned))
	}
	if f.fg.banned[0].ChatID != ch.ChatID || f.fg.banned[0].UserID != 42 {
		t.Errorf("kicked %+v", f.fg.banned[0])
	}
	if got := f.grants.ActiveGrantsFor(42); len(got) != 0 {
		t.Errorf("active grants after expiry = %d", len(got))
	}

	// Дальше тики молчат
	f.advance(time.Hour)
	f.grants.CheckExpirations(ctx)
	if len(f.fg.banned) != 1 {
		t.Error("expired grant kicked twice")
	}
}
