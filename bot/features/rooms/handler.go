package rooms

import (
	"context"

	"chisato/bot/common"
	"chisato/domain/entities"
	"chisato/domain/interfaces"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// HandleInteraction handles panel buttons, selectors and modals
func (f *Feature) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		f.handleComponentInteraction(s, i)
	case discordgo.InteractionModalSubmit:
		f.handleModalSubmit(s, i)
	default:
		log.Warnf("Unknown interaction type in rooms: %v", i.Type)
	}
}

// handleComponentInteraction routes button clicks and select menus based on custom ID
func (f *Feature) handleComponentInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()

	inv, err := newInvocation(i)
	if err != nil {
		log.WithError(err).Warn("Ignoring room panel interaction")
		common.RespondWithError(s, i, f.localizer.Render(common.GenericErrorKey, common.InteractionLocale(i), nil))
		return
	}

	kind, action, ok := ParseCustomID(data.CustomID)
	if !ok {
		log.WithField("custom_id", data.CustomID).Warn("Unknown room panel component")
		f.respondError(s, i, inv.locale, entities.NewUserError(entities.CodeInvalidInput, data.CustomID), "Unknown room panel component", false)
		return
	}

	switch kind {
	case ComponentButton:
		f.handleButton(s, i, inv, action)
	case ComponentTargetSelect:
		if len(data.Values) == 0 {
			f.respondError(s, i, inv.locale, entities.ErrNoTarget, "Target selector submitted empty", false)
			return
		}
		targetID, err := common.ParseSnowflake(data.Values[0])
		if err != nil {
			f.respondError(s, i, inv.locale, entities.ErrNoTarget, "Target selector value unparsable", false)
			return
		}
		f.execute(s, i, inv, interfaces.PanelRequest{Action: action, TargetID: &targetID})
	case ComponentActivitySelect:
		if len(data.Values) == 0 {
			f.respondError(s, i, inv.locale, entities.NewUserError(entities.CodeInvalidInput, "no activity"), "Activity selector submitted empty", false)
			return
		}
		f.execute(s, i, inv, interfaces.PanelRequest{Action: action, ActivityKey: data.Values[0]})
	default:
		f.respondError(s, i, inv.locale, entities.NewUserError(entities.CodeInvalidInput, data.CustomID), "Room modal id on a component", false)
	}
}

// handleButton decides whether a button acts right away or collects input first
func (f *Feature) handleButton(s *discordgo.Session, i *discordgo.InteractionCreate, inv *invocation, action entities.PanelAction) {
	if i.Message != nil {
		messageID, err := common.ParseSnowflake(i.Message.ID)
		if err == nil && f.lookup.IsStale(inv.guildID, messageID) {
			f.respondError(s, i, inv.locale, entities.ErrNotConfigured, "Click on an outdated panel", false)
			return
		}
	}

	collectsInput := action == entities.ActionActivity || action.NeedsModal() || action.NeedsTarget()
	if !collectsInput {
		f.execute(s, i, inv, interfaces.PanelRequest{Action: action})
		return
	}

	if _, err := f.panels.Precheck(context.Background(), inv.guildID, inv.actorID, action); err != nil {
		f.respondError(s, i, inv.locale, err, "Panel precheck failed", false)
		return
	}

	var err error
	switch {
	case action == entities.ActionActivity:
		err = common.RespondWithComponents(s, i, "", CreateActivitySelect(f.localizer, inv.locale))
	case action.NeedsModal():
		err = common.RespondWithModal(s, i, CreateActionModal(f.localizer, inv.locale, action))
	default:
		err = common.RespondWithComponents(s, i, "", CreateTargetSelect(f.localizer, inv.locale, action))
	}
	if err != nil {
		log.WithFields(f.fields(inv, action)).WithError(err).Error("Failed to open panel input")
	}
}

// handleModalSubmit handles the rename and limit modals
func (f *Feature) handleModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()

	inv, err := newInvocation(i)
	if err != nil {
		log.WithError(err).Warn("Ignoring room modal submit")
		common.RespondWithError(s, i, f.localizer.Render(common.GenericErrorKey, common.InteractionLocale(i), nil))
		return
	}

	kind, action, ok := ParseCustomID(data.CustomID)
	if !ok || kind != ComponentModal {
		log.Warnf("Unknown room modal customID: %s", data.CustomID)
		f.respondError(s, i, inv.locale, entities.NewUserError(entities.CodeInvalidInput, data.CustomID), "Unknown room modal", false)
		return
	}

	f.execute(s, i, inv, interfaces.PanelRequest{Action: action, Text: ModalValue(data)})
}

// execute defers the interaction, runs the action and answers ephemerally
func (f *Feature) execute(s *discordgo.Session, i *discordgo.InteractionCreate, inv *invocation, req interfaces.PanelRequest) {
	req.GuildID = inv.guildID
	req.ActorID = inv.actorID
	req.Locale = inv.locale

	if err := common.DeferResponse(s, i, true); err != nil {
		log.WithFields(f.fields(inv, req.Action)).WithError(err).Error("Failed to defer panel interaction")
		return
	}

	result, err := f.panels.Execute(context.Background(), req)
	if err != nil {
		f.respondError(s, i, inv.locale, err, "Panel action failed", true)
		return
	}

	content := f.localizer.Render(result.MessageKey, inv.locale, result.Vars)
	if result.Info == nil {
		common.FollowUp(s, i, content, nil, nil, true)
		return
	}

	labels := LoadInfoLabels(f.localizer, inv.locale)
	card, err := f.cards.Render(labels, result.Info)
	if err != nil {
		log.WithFields(f.fields(inv, req.Action)).WithError(err).Warn("Failed to render room info card")
		common.FollowUp(s, i, content, BuildInfoEmbed(labels, result.Info, false), nil, true)
		return
	}
	common.FollowUp(s, i, content, BuildInfoEmbed(labels, result.Info, true), &common.Attachment{
		Name:        infoCardName,
		ContentType: "image/png",
		Data:        card,
	}, true)
}
