package rooms

import (
	"testing"

	"chisato/domain/entities"
	"chisato/domain/testhelpers"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		customID   string
		wantKind   ComponentKind
		wantAction entities.PanelAction
		wantOK     bool
	}{
		{"room_panel:close", ComponentButton, entities.ActionClose, true},
		{"room_panel:info", ComponentButton, entities.ActionInfo, true},
		{"room_panel_target:kick", ComponentTargetSelect, entities.ActionKick, true},
		{"room_panel_modal:limit", ComponentModal, entities.ActionLimit, true},
		{"room_panel_activity", ComponentActivitySelect, entities.ActionActivity, true},
		{"room_panel:explode", ComponentUnknown, "", false},
		{"room_panel_target:", ComponentUnknown, "", false},
		{"lotto_buy_1", ComponentUnknown, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.customID, func(t *testing.T) {
			t.Parallel()

			kind, action, ok := ParseCustomID(tt.customID)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantAction, action)
		})
	}
}

func TestCreatePanelComponents(t *testing.T) {
	t.Parallel()

	rows := CreatePanelComponents(testhelpers.EchoLocalizer{}, "en")
	require.Len(t, rows, 3)

	var ids []string
	for _, row := range rows {
		actionsRow, ok := row.(discordgo.ActionsRow)
		require.True(t, ok)
		assert.LessOrEqual(t, len(actionsRow.Components), 5)
		for _, component := range actionsRow.Components {
			button := component.(discordgo.Button)
			assert.Equal(t, "rooms.button."+button.CustomID[len(ButtonPrefix):], button.Label)
			ids = append(ids, button.CustomID)
		}
	}

	require.Len(t, ids, len(entities.PanelActions))
	for _, id := range ids {
		kind, _, ok := ParseCustomID(id)
		assert.True(t, ok)
		assert.Equal(t, ComponentButton, kind)
	}
}

func TestCreateActionModal(t *testing.T) {
	t.Parallel()

	modal := CreateActionModal(testhelpers.EchoLocalizer{}, "en", entities.ActionLimit)
	assert.Equal(t, "room_panel_modal:limit", modal.CustomID)
	assert.Equal(t, "rooms.modal.limit.title", modal.Title)

	input := modal.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.TextInput)
	assert.Equal(t, ModalInputID, input.CustomID)
	assert.True(t, input.Required)
	assert.Equal(t, 2, input.MaxLength)

	rename := CreateActionModal(testhelpers.EchoLocalizer{}, "en", entities.ActionEdit)
	renameInput := rename.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.TextInput)
	assert.False(t, renameInput.Required)
	assert.Equal(t, entities.MaxRoomNameLength, renameInput.MaxLength)
}

func TestCreateActivitySelect(t *testing.T) {
	t.Parallel()

	rows := CreateActivitySelect(testhelpers.EchoLocalizer{}, "en")
	menu := rows[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	assert.Equal(t, ActivitySelectID, menu.CustomID)
	require.Len(t, menu.Options, len(entities.Activities))
	for _, option := range menu.Options {
		_, ok := entities.FindActivity(option.Value)
		assert.True(t, ok, option.Value)
	}
}

func TestModalValue(t *testing.T) {
	t.Parallel()

	data := discordgo.ModalSubmitInteractionData{
		CustomID: "room_panel_modal:edit",
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: ModalInputID, Value: "  night shift  "},
				},
			},
		},
	}
	assert.Equal(t, "night shift", ModalValue(data))
	assert.Empty(t, ModalValue(discordgo.ModalSubmitInteractionData{}))
}
