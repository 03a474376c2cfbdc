package storage

import (
	"github.com/h4rdev/batch_access_bot/internal/model"
)

// Snapshot полное состояние бота, сохраняемое и загружаемое целиком.
// Формат повторяет bot_data.json первых версий бота.
type Snapshot struct {
	Principals   map[int64]*model.Principal      `json:"principals"`    // telegram_id -> пользователь
	Sessions     map[int64]*model.Session        `json:"sessions"`      // telegram_id -> сессия
	Tokens       map[string]*model.AccessToken   `json:"tokens"`        // token id -> токен
	Grants       map[string]*model.AccessGrant   `json:"grants"`        // GrantKey -> активный грант
	DemoHistory  map[int64][]int64               `json:"demo_history"`  // telegram_id -> каналы, где уже было демо
	Channels     map[int64]*model.ManagedChannel `json:"channels"`      // chat_id -> закрытый канал
	PaidChannels []model.PaidChannel             `json:"paid_channels"` // каталог платных каналов
	AdminIDs     []int64                         `json:"admin_ids"`
	ActiveChats  map[int64]string                `json:"active_chats"`  // чаты, где состоит бот
}

// NewSnapshot создаёт пустой снапшот с инициализированными мапами
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Principals:  make(map[int64]*model.Principal),
		Sessions:    make(map[int64]*model.Session),
		Tokens:      make(map[string]*model.AccessToken),
		Grants:      make(map[string]*model.AccessGrant),
		DemoHistory: make(map[int64][]int64),
		Channels:    make(map[int64]*model.ManagedChannel),
		ActiveChats: make(map[int64]string),
	}
}

// normalize инициализирует nil-мапы после десериализации старых данных
func (s *Snapshot) normalize() {
	if s.Principals == nil {
		s.Principals = make(map[int64]*model.Principal)
	}
	if s.Sessions == nil {
		s.Sessions = make(map[int64]*model.Session)
	}
	if s.Tokens == nil {
		s.Tokens = make(map[string]*model.AccessToken)
	}
	if s.Grants == nil {
		s.Grants = make(map[string]*model.AccessGrant)
	}
	if s.DemoHistory == nil {
		s.DemoHistory = make(map[int64][]int64)
	}
	if s.Channels == nil {
		s.Channels = make(map[int64]*model.ManagedChannel)
	}
	if s.ActiveChats == nil {
		s.ActiveChats = make(map[int64]string)
	}
}

// IsAdmin проверяет что пользователь входит в список админов
func (s *Snapshot) IsAdmin(telegramID int64) bool {
	for _, id := range s.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// HasDemoHistory проверяет что пользователь уже получал демо-доступ к каналу
func (s *Snapshot) HasDemoHistory(principalID, resourceID int64) bool {
	for _, id := range s.DemoHistory[principalID] {
		if id == resourceID {
			return true
		}
	}
	return false
}

// AppendDemoHistory добавляет канал в историю демо-доступов пользователя
func (s *Snapshot) AppendDemoHistory(principalID, resourceID int64) {
	if s.HasDemoHistory(principalID, resourceID) {
		return
	}
	s.DemoHistory[principalID] = append(s.DemoHistory[principalID], resourceID)
}
