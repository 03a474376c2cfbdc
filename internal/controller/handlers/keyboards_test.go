package handlers

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/h4rdev/batch_access_bot/internal/controller/state"
)

func keyboardCallbacks(kb *models.InlineKeyboardMarkup) map[string]bool {
	out := make(map[string]bool)
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != "" {
				out[btn.CallbackData] = true
			}
		}
	}
	return out
}

func TestAdminPanelKeyboard_OwnerSections(t *testing.T) {
	owner := keyboardCallbacks(AdminPanelKeyboard(true))
	admin := keyboardCallbacks(AdminPanelKeyboard(false))

	// Состав админов и блокировки видит только владелец
	for _, cb := range []string{CbAdminAdmins, CbAdminBlock, CbAdminUnblock} {
		if !owner[cb] {
			t.Errorf("owner panel is missing %q", cb)
		}
		if admin[cb] {
			t.Errorf("admin panel must not contain %q", cb)
		}
	}

	// Остальные разделы общие
	for _, cb := range []string{CbAdminBroadcast, CbAdminPost, CbAdminStats, CbAdminExtend, CbAdminChannels, CbAdminPaid} {
		if !admin[cb] {
			t.Errorf("admin panel is missing %q", cb)
		}
	}
}

func TestMainMenuKeyboard_AdminButton(t *testing.T) {
	if keyboardCallbacks(MainMenuKeyboard(false))[CbAdminPanel] {
		t.Error("regular user sees the admin panel button")
	}
	if !keyboardCallbacks(MainMenuKeyboard(true))[CbAdminPanel] {
		t.Error("admin does not see the admin panel button")
	}
}

func TestOwnerOnlyState(t *testing.T) {
	ownerOnly := []state.UserState{state.StateAddAdminID, state.StateBlockUserID, state.StateUnblockUserID}
	for _, st := range ownerOnly {
		if !ownerOnlyState(st) {
			t.Errorf("state %q must be owner-only", st)
		}
	}

	shared := []state.UserState{
		state.StateBroadcastText,
		state.StatePostText,
		state.StateAddChannel,
		state.StateAddPaidChannel,
		state.StateExtendGrant,
	}
	for _, st := range shared {
		if ownerOnlyState(st) {
			t.Errorf("state %q must be available to admins", st)
		}
	}
}
