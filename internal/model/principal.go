package model

import "time"

// Principal представляет пользователя бота
type Principal struct {
	TelegramID   int64     `json:"telegram_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Username     string    `json:"username"`
	LanguageCode string    `json:"language_code"`
	Blocked      bool      `json:"blocked"`
	FirstSeenAt  time.Time `json:"first_seen_at"`
}

// FullName возвращает полное имя пользователя
func (p *Principal) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Handle возвращает @username или пустую строку
func (p *Principal) Handle() string {
	if p.Username == "" {
		return ""
	}
	return "@" + p.Username
}
