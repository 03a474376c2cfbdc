package callbacks

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/controller/handlers"
	"github.com/h4rdev/batch_access_bot/internal/controller/state"
	"github.com/h4rdev/batch_access_bot/internal/model"
	"github.com/h4rdev/batch_access_bot/internal/service"
)

// route распределяет callback query по обработчикам
func (h *Handler) route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	data := callback.Data

	switch {
	// ===== Меню пользователя =====
	case data == handlers.CbMenuMain:
		h.handleMainMenu(ctx, b, callback)
	case data == handlers.CbMenuFree:
		h.handleFreeChannels(ctx, b, callback)
	case data == handlers.CbMenuPaid:
		h.handlePaidChannels(ctx, b, callback)
	case data == handlers.CbMenuGrants:
		h.handleMyGrants(ctx, b, callback)
	case data == handlers.CbVerifyJoin:
		h.handleVerifyJoin(ctx, b, callback)
	case strings.HasPrefix(data, handlers.CbJoinFree):
		h.handleJoinFree(ctx, b, callback, strings.TrimPrefix(data, handlers.CbJoinFree))
	case strings.HasPrefix(data, handlers.CbPaidLink):
		h.handlePaidLink(ctx, b, callback, strings.TrimPrefix(data, handlers.CbPaidLink))

	// ===== Решения по заявкам =====
	case strings.HasPrefix(data, service.CallbackGrantDemo):
		h.handleGrantDecision(ctx, b, callback, strings.TrimPrefix(data, service.CallbackGrantDemo), model.GrantModeDemo)
	case strings.HasPrefix(data, service.CallbackGrantPerm):
		h.handleGrantDecision(ctx, b, callback, strings.TrimPrefix(data, service.CallbackGrantPerm), model.GrantModePermanent)
	case strings.HasPrefix(data, service.CallbackGrantDecline):
		h.handleGrantDecline(ctx, b, callback, strings.TrimPrefix(data, service.CallbackGrantDecline))

	// ===== Админ-панель =====
	case data == handlers.CbAdminPanel:
		h.handleAdminPanel(ctx, b, callback)
	case data == handlers.CbAdminBroadcast:
		h.handleAdminPrompt(ctx, b, callback, "📣 Отправьте текст рассылки.\nОтмена: /cancel", state.StateBroadcastText)
	case data == handlers.CbAdminPost:
		h.handleAdminPrompt(ctx, b, callback, "📝 Отправьте текст поста для каналов.\nОтмена: /cancel", state.StatePostText)
	case data == handlers.CbAdminStats:
		h.handleAdminStats(ctx, b, callback)
	case data == handlers.CbAdminAdmins:
		h.handleAdminList(ctx, b, callback)
	case data == handlers.CbAdminAdminAdd:
		h.handleOwnerPrompt(ctx, b, callback, "👥 Отправьте Telegram ID нового админа.\nОтмена: /cancel", state.StateAddAdminID)
	case strings.HasPrefix(data, handlers.CbAdminAdminDel):
		h.handleAdminRemove(ctx, b, callback, strings.TrimPrefix(data, handlers.CbAdminAdminDel))
	case data == handlers.CbAdminChannels:
		h.handleChannelList(ctx, b, callback)
	case data == handlers.CbAdminChannelAdd:
		h.handleAdminPrompt(ctx, b, callback, "📚 Отправьте: <chat_id> <Название канала>\nОтмена: /cancel", state.StateAddChannel)
	case strings.HasPrefix(data, handlers.CbAdminChannelDel):
		h.handleChannelRemove(ctx, b, callback, strings.TrimPrefix(data, handlers.CbAdminChannelDel))
	case data == handlers.CbAdminPaid:
		h.handlePaidList(ctx, b, callback)
	case data == handlers.CbAdminPaidAdd:
		h.handleAdminPrompt(ctx, b, callback, "💎 Отправьте: Название | https://ссылка\nОтмена: /cancel", state.StateAddPaidChannel)
	case strings.HasPrefix(data, handlers.CbAdminPaidDel):
		h.handlePaidRemove(ctx, b, callback, strings.TrimPrefix(data, handlers.CbAdminPaidDel))
	case data == handlers.CbAdminBlock:
		h.handleOwnerPrompt(ctx, b, callback, "🚫 Отправьте Telegram ID пользователя для блокировки.\nОтмена: /cancel", state.StateBlockUserID)
	case data == handlers.CbAdminUnblock:
		h.handleOwnerPrompt(ctx, b, callback, "✅ Отправьте Telegram ID пользователя для разблокировки.\nОтмена: /cancel", state.StateUnblockUserID)
	case data == handlers.CbAdminExtend:
		h.handleAdminPrompt(ctx, b, callback, "⏳ Отправьте: <user_id> <chat_id> <часы>\nОтмена: /cancel", state.StateExtendGrant)

	default:
		h.answer(ctx, b, callback.ID, "")
	}
}
