package service

import (
	"context"
	"fmt"
	"time"

	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/metrics"
	"github.com/h4rdev/batch_access_bot/internal/model"
	"github.com/h4rdev/batch_access_bot/internal/state"
	"github.com/h4rdev/batch_access_bot/internal/storage"
	"go.uber.org/zap"
)

// GrantService управляет жизненным циклом доступа: одобрение токена,
// продление, ручной и автоматический отзыв.
//
// Ключевое свойство — устойчивость к рестартам: срок действия хранится
// как timestamp в снапшоте, а не как таймер в памяти, поэтому первая же
// проверка после перезапуска восстанавливает точную картину.
type GrantService struct {
	st           *state.State
	gw           gateway.Gateway
	logChannelID int64
	warnBefore   time.Duration
	logger       *zap.Logger

	// Подменяется в тестах
	now func() time.Time
}

// NewGrantService создаёт сервис грантов
func NewGrantService(st *state.State, gw gateway.Gateway, logChannelID int64, warnBefore time.Duration, logger *zap.Logger) *GrantService {
	return &GrantService{
		st:           st,
		gw:           gw,
		logChannelID: logChannelID,
		warnBefore:   warnBefore,
		logger:       logger,
		now:          time.Now,
	}
}

// Approve превращает токен в грант. Заявка одобряется на шлюзе до
// каких-либо изменений состояния: токен не должен быть выкуплен без
// реально одобренного членства. При ошибке шлюза токен остаётся
// невыкупленным, оператору предлагается проверить заявку.
func (s *GrantService) Approve(ctx context.Context, tokenID string, mode model.GrantMode, duration time.Duration) (*model.AccessGrant, error) {
	var token *model.AccessToken
	s.st.View(func(snap *storage.Snapshot) {
		if found, ok := snap.Tokens[tokenID]; ok {
			copied := *found
			token = &copied
		}
	})

	if token == nil {
		return nil, gateway.Errorf(gateway.KindNotFound, "approve", "unknown token %s", tokenID)
	}
	if token.Consumed {
		return nil, gateway.Errorf(gateway.KindConflict, "approve", "token %s already consumed", tokenID)
	}

	if err := s.gw.ApproveJoinRequest(ctx, token.ResourceID, token.PrincipalID); err != nil {
		return nil, fmt.Errorf("approve join request: %w", err)
	}

	grant := &model.AccessGrant{
		PrincipalID: token.PrincipalID,
		ResourceID:  token.ResourceID,
		Mode:        mode,
		GrantedAt:   s.now(),
	}
	if mode == model.GrantModeDemo {
		expires := s.now().Add(duration)
		grant.ExpiresAt = &expires
	}

	err := s.st.Update(ctx, func(snap *storage.Snapshot) error {
		if stored, ok := snap.Tokens[tokenID]; ok {
			stored.Consumed = true
		}
		// Новый грант замещает прежний для этой пары целиком,
		// вместе с флагом предупреждения
		snap.Grants[model.GrantKey(grant.PrincipalID, grant.ResourceID)] = grant
		if mode == model.GrantModeDemo {
			snap.AppendDemoHistory(grant.PrincipalID, grant.ResourceID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Ссылка одноразовая по смыслу: после одобрения отзываем её,
	// неудача отзыва ничего не ломает
	if err := s.gw.RevokeInviteLink(ctx, token.ResourceID, token.InviteLink); err != nil {
		s.logger.Warn("Failed to revoke invite link",
			zap.String("token_id", tokenID),
			zap.Error(err))
	}

	metrics.GrantsApproved.WithLabelValues(string(mode)).Inc()
	s.logger.Info("Grant approved",
		zap.Int64("principal_id", grant.PrincipalID),
		zap.Int64("resource_id", grant.ResourceID),
		zap.String("mode", string(mode)))

	s.notifyApproved(ctx, grant)

	return grant, nil
}

// Decline отклоняет заявку и выкупает токен
func (s *GrantService) Decline(ctx context.Context, tokenID string) error {
	var token *model.AccessToken
	s.st.View(func(snap *storage.Snapshot) {
		if found, ok := snap.Tokens[tokenID]; ok {
			copied := *found
			token = &copied
		}
	})

	if token == nil {
		return gateway.Errorf(gateway.KindNotFound, "decline", "unknown token %s", tokenID)
	}
	if token.Consumed {
		return gateway.Errorf(gateway.KindConflict, "decline", "token %s already consumed", tokenID)
	}

	// Заявки может и не быть (пользователь не перешёл по ссылке) —
	// отклонение всё равно выкупает токен
	if err := s.gw.DeclineJoinRequest(ctx, token.ResourceID, token.PrincipalID); err != nil && !gateway.IsNotFound(err) {
		s.logger.Warn("Failed to decline join request", zap.Error(err))
	}

	return s.st.Update(ctx, func(snap *storage.Snapshot) error {
		if stored, ok := snap.Tokens[tokenID]; ok {
			stored.Consumed = true
		}
		return nil
	})
}

// Extend продлевает демо-грант. Продление никогда не укорачивает ещё
// идущий срок, а истёкший грант отсчитывается от момента продления:
// новый срок = max(сейчас, текущий срок) + добавка.
func (s *GrantService) Extend(ctx context.Context, principalID, resourceID int64, extra time.Duration) (*model.AccessGrant, error) {
	var result *model.AccessGrant

	err := s.st.Update(ctx, func(snap *storage.Snapshot) error {
		grant, ok := snap.Grants[model.GrantKey(principalID, resourceID)]
		if !ok || !grant.IsDemo() || grant.ExpiresAt == nil {
			return gateway.Errorf(gateway.KindNotFound, "extend",
				"no demo grant for principal %d in %d", principalID, resourceID)
		}

		base := s.now()
		if grant.ExpiresAt.After(base) {
			base = *grant.ExpiresAt
		}
		expires := base.Add(extra)
		grant.ExpiresAt = &expires
		grant.Warned = false

		copied := *grant
		result = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Grant extended",
		zap.Int64("principal_id", principalID),
		zap.Int64("resource_id", resourceID),
		zap.Timep("expires_at", result.ExpiresAt))

	return result, nil
}

// RevokeNow вручную выгоняет пользователя из канала и удаляет грант
// независимо от режима
func (s *GrantService) RevokeNow(ctx context.Context, principalID, resourceID int64) error {
	kickErr := s.softKick(ctx, resourceID, principalID)

	err := s.st.Update(ctx, func(snap *storage.Snapshot) error {
		delete(snap.Grants, model.GrantKey(principalID, resourceID))
		return nil
	})
	if err != nil {
		return err
	}

	metrics.GrantsRevoked.WithLabelValues("manual").Inc()
	return kickErr
}

// RevokeAllFor удаляет все гранты пользователя с выгоном из каналов.
// Вызывается когда пользователь заблокировал бота или покинул
// обязательный канал. Возвращает число отозванных грантов.
func (s *GrantService) RevokeAllFor(ctx context.Context, principalID int64, reason string) int {
	var grants []model.AccessGrant
	s.st.View(func(snap *storage.Snapshot) {
		for _, g := range snap.Grants {
			if g.PrincipalID == principalID {
				grants = append(grants, *g)
			}
		}
	})

	for _, g := range grants {
		if err := s.softKick(ctx, g.ResourceID, g.PrincipalID); err != nil {
			s.reportKickFailure(ctx, g, err)
		}
	}

	if len(grants) > 0 {
		err := s.st.Update(ctx, func(snap *storage.Snapshot) error {
			for _, g := range grants {
				delete(snap.Grants, model.GrantKey(g.PrincipalID, g.ResourceID))
			}
			return nil
		})
		if err != nil {
			s.logger.Error("Failed to drop grants", zap.Error(err))
		}
		metrics.GrantsRevoked.WithLabelValues(reason).Add(float64(len(grants)))
	}

	return len(grants)
}

// ActiveGrantsFor возвращает копии активных грантов пользователя
func (s *GrantService) ActiveGrantsFor(principalID int64) []*model.AccessGrant {
	var grants []*model.AccessGrant
	s.st.View(func(snap *storage.Snapshot) {
		for _, g := range snap.Grants {
			if g.PrincipalID == principalID {
				copied := *g
				grants = append(grants, &copied)
			}
		}
	})
	return grants
}

// ActiveCounts возвращает число активных демо и постоянных грантов
func (s *GrantService) ActiveCounts() (demo, permanent int) {
	s.st.View(func(snap *storage.Snapshot) {
		for _, g := range snap.Grants {
			if g.IsDemo() {
				demo++
			} else {
				permanent++
			}
		}
	})
	return demo, permanent
}

// HadDemo проверяет историю демо-доступов. История только предупреждает
// оператора о повторном демо, повторное одобрение не блокируется.
func (s *GrantService) HadDemo(principalID, resourceID int64) bool {
	had := false
	s.st.View(func(snap *storage.Snapshot) {
		had = snap.HasDemoHistory(principalID, resourceID)
	})
	return had
}

// CheckExpirations один проход проверки сроков: предупреждает тех, у кого
// срок на исходе, и отзывает истёкшие гранты. Ошибка по одному гранту
// не мешает обработать остальные.
func (s *GrantService) CheckExpirations(ctx context.Context) {
	now := s.now()

	var expired, toWarn []model.AccessGrant
	s.st.View(func(snap *storage.Snapshot) {
		for _, g := range snap.Grants {
			if g.ExpiresAt == nil {
				continue
			}
			switch {
			case g.IsExpired(now):
				expired = append(expired, *g)
			case !g.Warned && g.ExpiresAt.Sub(now) <= s.warnBefore:
				toWarn = append(toWarn, *g)
			}
		}
	})

	for _, g := range expired {
		s.expire(ctx, g)
	}
	for _, g := range toWarn {
		s.warn(ctx, g)
	}

	metrics.ScanTicks.Inc()
}

// expire выгоняет пользователя по истёкшему гранту. Грант удаляется из
// активных даже если кик не удался: неудача сообщается в лог-канал для
// ручного вмешательства, а не повторяется каждый тик.
func (s *GrantService) expire(ctx context.Context, g model.AccessGrant) {
	kickErr := s.softKick(ctx, g.ResourceID, g.PrincipalID)

	err := s.st.Update(ctx, func(snap *storage.Snapshot) error {
		delete(snap.Grants, model.GrantKey(g.PrincipalID, g.ResourceID))
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to drop expired grant", zap.Error(err))
	}

	metrics.GrantsRevoked.WithLabelValues("expired").Inc()

	if kickErr != nil {
		s.logger.Error("Failed to kick expired member",
			zap.Int64("principal_id", g.PrincipalID),
			zap.Int64("resource_id", g.ResourceID),
			zap.Error(kickErr))
		s.reportKickFailure(ctx, g, kickErr)
		return
	}

	s.logger.Info("Expired grant revoked",
		zap.Int64("principal_id", g.PrincipalID),
		zap.Int64("resource_id", g.ResourceID))

	text := fmt.Sprintf("⌛️ Срок демо-доступа к «%s» истёк, вы удалены из канала.\n\n"+
		"Для продления обратитесь к оператору.", s.channelTitle(g.ResourceID))
	if _, err := s.gw.SendMessage(ctx, g.PrincipalID, text, nil); err != nil {
		s.logger.Warn("Failed to send expiry notice",
			zap.Int64("principal_id", g.PrincipalID),
			zap.Error(err))
	}
}

// warn отправляет разовое напоминание о скором окончании срока.
// Флаг ставится после успешной отправки и больше не срабатывает.
func (s *GrantService) warn(ctx context.Context, g model.AccessGrant) {
	left := g.ExpiresAt.Sub(s.now()).Round(time.Minute)
	text := fmt.Sprintf("⏳ Демо-доступ к «%s» закончится через %s.",
		s.channelTitle(g.ResourceID), formatDuration(left))

	if _, err := s.gw.SendMessage(ctx, g.PrincipalID, text, nil); err != nil {
		s.logger.Warn("Failed to send expiry warning",
			zap.Int64("principal_id", g.PrincipalID),
			zap.Error(err))
		return
	}

	err := s.st.Update(ctx, func(snap *storage.Snapshot) error {
		if stored, ok := snap.Grants[model.GrantKey(g.PrincipalID, g.ResourceID)]; ok {
			stored.Warned = true
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to mark grant as warned", zap.Error(err))
	}
}

// softKick удаляет пользователя из канала без постоянного бана:
// бан и сразу разбан, чтобы позже он мог вступить снова
func (s *GrantService) softKick(ctx context.Context, chatID, userID int64) error {
	if err := s.gw.BanMember(ctx, chatID, userID); err != nil {
		return err
	}
	if err := s.gw.UnbanMember(ctx, chatID, userID); err != nil {
		return err
	}
	return nil
}

func (s *GrantService) reportKickFailure(ctx context.Context, g model.AccessGrant, kickErr error) {
	if s.logChannelID == 0 {
		return
	}

	text := fmt.Sprintf(
		"🚨 Не удалось удалить пользователя из канала\n\n"+
			"Пользователь: %d\n"+
			"Канал: %d (%s)\n"+
			"Ошибка: %v\n\n"+
			"Удалите вручную.",
		g.PrincipalID, g.ResourceID, s.channelTitle(g.ResourceID), kickErr,
	)

	if _, err := s.gw.SendMessage(ctx, s.logChannelID, text, nil); err != nil {
		s.logger.Error("Failed to report kick failure", zap.Error(err))
	}
}

func (s *GrantService) notifyApproved(ctx context.Context, g *model.AccessGrant) {
	var text string
	if g.IsDemo() {
		text = fmt.Sprintf("✅ Вам одобрен демо-доступ к «%s» до %s.",
			s.channelTitle(g.ResourceID), g.ExpiresAt.Format("02.01.2006 15:04"))
	} else {
		text = fmt.Sprintf("✅ Вам одобрен постоянный доступ к «%s».",
			s.channelTitle(g.ResourceID))
	}

	if _, err := s.gw.SendMessage(ctx, g.PrincipalID, text, nil); err != nil {
		s.logger.Warn("Failed to send approval notice",
			zap.Int64("principal_id", g.PrincipalID),
			zap.Error(err))
	}
}

func (s *GrantService) channelTitle(resourceID int64) string {
	title := fmt.Sprintf("%d", resourceID)
	s.st.View(func(snap *storage.Snapshot) {
		if ch, ok := snap.Channels[resourceID]; ok {
			title = ch.Title
		}
	})
	return title
}

// formatDuration форматирует длительность по-человечески: "2ч 30м"
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dм", m)
	}
	if m == 0 {
		return fmt.Sprintf("%dч", h)
	}
	return fmt.Sprintf("%dч %dм", h, m)
}
