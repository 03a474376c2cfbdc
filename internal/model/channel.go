package model

// ManagedChannel представляет закрытый канал, доступ к которому выдаёт бот
type ManagedChannel struct {
	ChatID int64  `json:"chat_id"`
	Title  string `json:"title"`
}

// PaidChannel представляет платный канал из каталога.
// Бот не управляет членством в нём, только показывает ссылку.
type PaidChannel struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}
