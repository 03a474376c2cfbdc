package handlers

// Callback data кнопок. Префиксы с двоеточием несут параметр после него.
const (
	CbVerifyJoin = "verify_join"

	CbMenuMain   = "menu_main"
	CbMenuFree   = "menu_free"
	CbMenuPaid   = "menu_paid"
	CbMenuGrants = "menu_grants"

	CbJoinFree = "join_free:" // join_free:<chat_id>
	CbPaidLink = "paid_link:" // paid_link:<позиция в каталоге>

	CbAdminPanel      = "admin_panel"
	CbAdminBroadcast  = "admin_broadcast"
	CbAdminPost       = "admin_post"
	CbAdminStats      = "admin_stats"
	CbAdminAdmins     = "admin_admins"
	CbAdminAdminAdd   = "admin_admin_add"
	CbAdminAdminDel   = "admin_admin_del:" // admin_admin_del:<telegram_id>
	CbAdminChannels   = "admin_channels"
	CbAdminChannelAdd = "admin_channel_add"
	CbAdminChannelDel = "admin_channel_del:" // admin_channel_del:<chat_id>
	CbAdminPaid       = "admin_paid"
	CbAdminPaidAdd    = "admin_paid_add"
	CbAdminPaidDel    = "admin_paid_del:" // admin_paid_del:<позиция>
	CbAdminBlock      = "admin_block"
	CbAdminUnblock    = "admin_unblock"
	CbAdminExtend     = "admin_extend"
)
