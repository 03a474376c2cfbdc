package model

import (
	"fmt"
	"time"
)

// GrantMode режим выданного доступа
type GrantMode string

const (
	GrantModeDemo      GrantMode = "demo"      // Доступ на время
	GrantModePermanent GrantMode = "permanent" // Постоянный доступ
)

// AccessGrant представляет текущее членство пользователя в закрытом канале,
// выданное через бота
type AccessGrant struct {
	PrincipalID int64      `json:"principal_id"`
	ResourceID  int64      `json:"resource_id"`
	Mode        GrantMode  `json:"mode"`
	ExpiresAt   *time.Time `json:"expires_at"` // nil для постоянного доступа
	Warned      bool       `json:"warned"`
	GrantedAt   time.Time  `json:"granted_at"`
}

// IsDemo проверяет что доступ временный
func (g *AccessGrant) IsDemo() bool {
	return g.Mode == GrantModeDemo
}

// IsExpired проверяет что срок доступа истёк
func (g *AccessGrant) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// GrantKey возвращает ключ гранта для пары (пользователь, канал)
func GrantKey(principalID, resourceID int64) string {
	return fmt.Sprintf("%d:%d", principalID, resourceID)
}
