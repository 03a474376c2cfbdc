package model

import "time"

// Session представляет личный топик пользователя в операторской группе.
// На одного пользователя существует не более одной живой сессии.
type Session struct {
	PrincipalID int64     `json:"principal_id"`
	TopicID     int       `json:"topic_id"`
	CreatedAt   time.Time `json:"created_at"`
}
