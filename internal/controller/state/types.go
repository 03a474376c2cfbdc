package state

// UserState представляет текущий шаг диалога с админом
type UserState string

const (
	StateNone UserState = "" // Нет активного диалога

	// Рассылки
	StateBroadcastText UserState = "broadcast_text"
	StatePostText      UserState = "post_text"

	// Управление админами
	StateAddAdminID UserState = "add_admin_id"

	// Блокировки
	StateBlockUserID   UserState = "block_user_id"
	StateUnblockUserID UserState = "unblock_user_id"

	// Каталог закрытых каналов
	StateAddChannel UserState = "add_channel"

	// Каталог платных каналов
	StateAddPaidChannel UserState = "add_paid_channel"

	// Продление демо-доступа
	StateExtendGrant UserState = "extend_grant"
)
