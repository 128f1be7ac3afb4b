package rooms

import (
	"strings"

	"chisato/domain/entities"
	"chisato/domain/interfaces"

	"github.com/bwmarrin/discordgo"
)

// Custom id namespaces. Every panel message shares them, so a click is
// resolved from the interaction alone and survives restarts.
const (
	CustomIDPrefix     = "room_panel"
	ButtonPrefix       = "room_panel:"
	TargetSelectPrefix = "room_panel_target:"
	ModalPrefix        = "room_panel_modal:"
	ActivitySelectID   = "room_panel_activity"
	ModalInputID       = "value"
)

// ComponentKind tells which part of the panel flow a custom id belongs to
type ComponentKind int

const (
	ComponentUnknown ComponentKind = iota
	ComponentButton
	ComponentTargetSelect
	ComponentModal
	ComponentActivitySelect
)

// ParseCustomID splits a panel custom id into its kind and action
func ParseCustomID(customID string) (ComponentKind, entities.PanelAction, bool) {
	if customID == ActivitySelectID {
		return ComponentActivitySelect, entities.ActionActivity, true
	}

	prefixes := []struct {
		prefix string
		kind   ComponentKind
	}{
		{ButtonPrefix, ComponentButton},
		{TargetSelectPrefix, ComponentTargetSelect},
		{ModalPrefix, ComponentModal},
	}
	for _, p := range prefixes {
		if !strings.HasPrefix(customID, p.prefix) {
			continue
		}
		action, ok := entities.ParsePanelAction(strings.TrimPrefix(customID, p.prefix))
		if !ok {
			return ComponentUnknown, "", false
		}
		return p.kind, action, true
	}
	return ComponentUnknown, "", false
}

var actionEmojis = map[entities.PanelAction]string{
	entities.ActionActivity: "🎮",
	entities.ActionEdit:     "✏️",
	entities.ActionLimit:    "👥",
	entities.ActionClose:    "🔒",
	entities.ActionVision:   "👁️",
	entities.ActionMute:     "🔇",
	entities.ActionKick:     "👢",
	entities.ActionAccess:   "🔑",
	entities.ActionTransfer: "👑",
	entities.ActionReset:    "♻️",
	entities.ActionInfo:     "ℹ️",
}

const buttonsPerRow = 4

// CreatePanelComponents lays the panel buttons out in rows
func CreatePanelComponents(localizer interfaces.Localizer, locale string) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var row []discordgo.MessageComponent

	for _, action := range entities.PanelActions {
		style := discordgo.SecondaryButton
		if action == entities.ActionInfo {
			style = discordgo.PrimaryButton
		}
		row = append(row, discordgo.Button{
			Label:    localizer.Render("rooms.button."+string(action), locale, nil),
			Style:    style,
			CustomID: ButtonPrefix + string(action),
			Emoji:    &discordgo.ComponentEmoji{Name: actionEmojis[action]},
		})
		if len(row) == buttonsPerRow {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

// CreateTargetSelect creates the member picker for targeted actions
func CreateTargetSelect(localizer interfaces.Localizer, locale string, action entities.PanelAction) []discordgo.MessageComponent {
	minValues := 1
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.UserSelectMenu,
					CustomID:    TargetSelectPrefix + string(action),
					Placeholder: localizer.Render("rooms.select.target", locale, nil),
					MinValues:   &minValues,
					MaxValues:   1,
				},
			},
		},
	}
}

// CreateActivitySelect lists the launchable activities
func CreateActivitySelect(localizer interfaces.Localizer, locale string) []discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(entities.Activities))
	for _, activity := range entities.Activities {
		options = append(options, discordgo.SelectMenuOption{
			Label: activity.Name,
			Value: activity.Key,
		})
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    ActivitySelectID,
					Placeholder: localizer.Render("rooms.select.activity", locale, nil),
					Options:     options,
				},
			},
		},
	}
}

// CreateActionModal creates the text input modal for edit and limit
func CreateActionModal(localizer interfaces.Localizer, locale string, action entities.PanelAction) *discordgo.InteractionResponseData {
	maxLength := entities.MaxRoomNameLength
	required := false
	if action == entities.ActionLimit {
		maxLength = 2
		required = true
	}

	prefix := "rooms.modal." + string(action)
	return &discordgo.InteractionResponseData{
		CustomID: ModalPrefix + string(action),
		Title:    localizer.Render(prefix+".title", locale, nil),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  ModalInputID,
						Label:     localizer.Render(prefix+".label", locale, nil),
						Style:     discordgo.TextInputShort,
						Required:  required,
						MaxLength: maxLength,
					},
				},
			},
		},
	}
}

// ModalValue extracts the text input of a submitted panel modal
func ModalValue(data discordgo.ModalSubmitInteractionData) string {
	for _, component := range data.Components {
		actionRow, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionRow.Components {
			if textInput, ok := comp.(*discordgo.TextInput); ok && textInput.CustomID == ModalInputID {
				return strings.TrimSpace(textInput.Value)
			}
		}
	}
	return ""
}
