package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/h4rdev/batch_access_bot/internal/gateway"
	"github.com/h4rdev/batch_access_bot/internal/model"
	"github.com/h4rdev/batch_access_bot/internal/state"
	"github.com/h4rdev/batch_access_bot/internal/storage"
	"go.uber.org/zap"
)

// SessionService следит за тем, чтобы у каждого пользователя был ровно
// один топик в операторской группе
type SessionService struct {
	st            *state.State
	gw            gateway.Gateway
	supportChatID int64
	logger        *zap.Logger

	// Замки создания по пользователям: два первых сообщения одного
	// пользователя не должны породить два топика, при этом разные
	// пользователи друг друга не ждут. Записи живут до конца процесса,
	// их не больше чем пользователей.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewSessionService создаёт менеджер сессий
func NewSessionService(st *state.State, gw gateway.Gateway, supportChatID int64, logger *zap.Logger) *SessionService {
	return &SessionService{
		st:            st,
		gw:            gw,
		supportChatID: supportChatID,
		logger:        logger,
		locks:         make(map[int64]*sync.Mutex),
	}
}

// SupportChatID возвращает ID операторской группы
func (s *SessionService) SupportChatID() int64 {
	return s.supportChatID
}

func (s *SessionService) lockFor(principalID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.locks[principalID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[principalID] = m
	}
	return m
}

// EnsureSession возвращает сессию пользователя, создавая топик при
// необходимости. Ошибка шлюза не повторяется здесь же: следующее
// входящее сообщение начнёт всё заново.
func (s *SessionService) EnsureSession(ctx context.Context, p *model.Principal) (*model.Session, error) {
	if sess := s.Find(p.TelegramID); sess != nil {
		return sess, nil
	}

	lock := s.lockFor(p.TelegramID)
	lock.Lock()
	defer lock.Unlock()

	// Перепроверка под замком: топик мог создать параллельный обработчик
	if sess := s.Find(p.TelegramID); sess != nil {
		return sess, nil
	}

	title := p.FullName()
	if h := p.Handle(); h != "" {
		title += " (" + h + ")"
	}

	topicID, err := s.gw.CreateSessionTopic(ctx, s.supportChatID, title)
	if err != nil {
		return nil, fmt.Errorf("create session topic: %w", err)
	}

	sess := &model.Session{
		PrincipalID: p.TelegramID,
		TopicID:     topicID,
		CreatedAt:   time.Now(),
	}

	err = s.st.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Sessions[p.TelegramID] = sess
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session topic created",
		zap.Int64("principal_id", p.TelegramID),
		zap.Int("topic_id", topicID))

	s.sendIntro(ctx, p, sess)

	return sess, nil
}

// sendIntro отправляет в топик карточку пользователя. Неудача не мешает
// работе сессии, только логируется.
func (s *SessionService) sendIntro(ctx context.Context, p *model.Principal, sess *model.Session) {
	handle := p.Handle()
	if handle == "" {
		handle = "—"
	}
	locale := p.LanguageCode
	if locale == "" {
		locale = "—"
	}

	intro := fmt.Sprintf(
		"👤 %s\n"+
			"🆔 %d\n"+
			"🔗 %s\n"+
			"🌐 %s\n\n"+
			"tg://user?id=%d\n\n"+
			"Сообщения в этом топике пересылаются пользователю.",
		p.FullName(), p.TelegramID, handle, locale, p.TelegramID,
	)

	_, err := s.gw.SendMessage(ctx, s.supportChatID, intro, &gateway.SendOptions{TopicID: sess.TopicID})
	if err != nil {
		s.logger.Warn("Failed to send session intro",
			zap.Int64("principal_id", p.TelegramID),
			zap.Error(err))
	}
}

// Find возвращает сессию пользователя или nil
func (s *SessionService) Find(principalID int64) *model.Session {
	var sess *model.Session
	s.st.View(func(snap *storage.Snapshot) {
		if found, ok := snap.Sessions[principalID]; ok {
			copied := *found
			sess = &copied
		}
	})
	return sess
}

// FindByTopic возвращает сессию по ID топика или nil
func (s *SessionService) FindByTopic(topicID int) *model.Session {
	var sess *model.Session
	s.st.View(func(snap *storage.Snapshot) {
		for _, found := range snap.Sessions {
			if found.TopicID == topicID {
				copied := *found
				sess = &copied
				return
			}
		}
	})
	return sess
}

// Drop удаляет сессию. Вызывается когда платформа сообщила, что топика
// больше нет; следующее сообщение пользователя создаст новый.
func (s *SessionService) Drop(ctx context.Context, principalID int64) {
	err := s.st.Update(ctx, func(snap *storage.Snapshot) error {
		delete(snap.Sessions, principalID)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to drop session",
			zap.Int64("principal_id", principalID),
			zap.Error(err))
		return
	}

	s.logger.Info("Session dropped", zap.Int64("principal_id", principalID))
}

// SendToSession отправляет сообщение в топик пользователя, создавая
// сессию при необходимости
func (s *SessionService) SendToSession(ctx context.Context, p *model.Principal, text string, opts *gateway.SendOptions) error {
	sess, err := s.EnsureSession(ctx, p)
	if err != nil {
		return err
	}

	sendOpts := gateway.SendOptions{TopicID: sess.TopicID}
	if opts != nil {
		sendOpts.ParseMode = opts.ParseMode
		sendOpts.ReplyMarkup = opts.ReplyMarkup
	}

	_, err = s.gw.SendMessage(ctx, s.supportChatID, text, &sendOpts)
	if gateway.IsNotFound(err) {
		// Топик удалили руками: сбрасываем сессию, сообщение уйдёт
		// в новый топик при следующей попытке
		s.Drop(ctx, p.TelegramID)
	}
	return err
}
