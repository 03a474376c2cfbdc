package model

import "time"

// AccessToken представляет одноразовое предложение вступить в закрытый канал.
// ID — внутренний идентификатор для кнопок оператора, InviteLink — сама
// ссылка-заявка, выданная Telegram.
type AccessToken struct {
	ID          string    `json:"id"`
	InviteLink  string    `json:"invite_link"`
	PrincipalID int64     `json:"principal_id"`
	ResourceID  int64     `json:"resource_id"`
	IssuedAt    time.Time `json:"issued_at"`
	Consumed    bool      `json:"consumed"`
}
