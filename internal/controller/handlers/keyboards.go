package handlers

import (
	"github.com/go-telegram/bot/models"
)

// MainMenuKeyboard строит главное меню пользователя. Админы дополнительно
// видят кнопку панели управления.
func MainMenuKeyboard(isAdmin bool) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{
		{
			{Text: "📚 Закрытые каналы", CallbackData: CbMenuFree},
			{Text: "💎 Платные каналы", CallbackData: CbMenuPaid},
		},
		{
			{Text: "🎫 Мои доступы", CallbackData: CbMenuGrants},
		},
	}
	if isAdmin {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "🛠 Админ-панель", CallbackData: CbAdminPanel},
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// AdminPanelKeyboard строит панель администратора. Разделы владельца
// (состав админов, блокировки) видны только ему.
func AdminPanelKeyboard(isOwner bool) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{
		{
			{Text: "📣 Рассылка", CallbackData: CbAdminBroadcast},
			{Text: "📝 Пост в каналы", CallbackData: CbAdminPost},
		},
		{
			{Text: "📊 Статистика", CallbackData: CbAdminStats},
			{Text: "⏳ Продлить демо", CallbackData: CbAdminExtend},
		},
		{
			{Text: "📚 Каналы", CallbackData: CbAdminChannels},
			{Text: "💎 Платные", CallbackData: CbAdminPaid},
		},
	}
	if isOwner {
		rows = append(rows,
			[]models.InlineKeyboardButton{
				{Text: "👥 Админы", CallbackData: CbAdminAdmins},
			},
			[]models.InlineKeyboardButton{
				{Text: "🚫 Заблокировать", CallbackData: CbAdminBlock},
				{Text: "✅ Разблокировать", CallbackData: CbAdminUnblock},
			},
		)
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "⬅️ В меню", CallbackData: CbMenuMain},
	})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// BackToMenuKeyboard одна кнопка возврата в главное меню
func BackToMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "⬅️ В меню", CallbackData: CbMenuMain}},
		},
	}
}

// VerifyJoinKeyboard кнопки подписки на обязательный канал
func VerifyJoinKeyboard(channelLink string) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{}
	if channelLink != "" {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "📢 Перейти в канал", URL: channelLink},
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "✅ Я подписался", CallbackData: CbVerifyJoin},
	})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
