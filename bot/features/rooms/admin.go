package rooms

import (
	"context"
	"fmt"

	"chisato/bot/common"
	"chisato/domain/interfaces"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// CommandName is the slash command owning the admin subcommands
const CommandName = "rooms"

var adminPermission int64 = discordgo.PermissionAdministrator

// Command describes /rooms for registration
func Command() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     CommandName,
		Description:              "Manage temporary voice rooms",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "setup",
				Description: "Create the room category, hub and control panel",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "disable",
				Description: "Remove the panel and every live room",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "love-hub",
				Description: "Turn the couple hub on or off",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "enabled",
						Description: "Whether the couple hub should exist",
						Required:    true,
					},
				},
			},
		},
	}
}

// HandleCommand handles /rooms with its subcommands
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	inv, err := newInvocation(i)
	if err != nil {
		log.WithError(err).Warn("Ignoring rooms command")
		common.RespondWithError(s, i, f.localizer.Render(common.GenericErrorKey, common.InteractionLocale(i), nil))
		return
	}

	if !isAdministrator(i) {
		common.RespondWithError(s, i, f.localizer.Render("rooms.admin.admin_only", inv.locale, nil))
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		common.RespondWithError(s, i, f.localizer.Render(common.GenericErrorKey, inv.locale, nil))
		return
	}

	if err := common.DeferResponse(s, i, true); err != nil {
		log.WithField("guild_id", inv.guildID).WithError(err).Error("Failed to defer rooms command")
		return
	}

	ctx := context.Background()
	subcommand := options[0]

	var message string
	switch subcommand.Name {
	case "setup":
		message, err = f.setup(ctx, inv)
	case "disable":
		message, err = f.disable(ctx, inv)
	case "love-hub":
		enabled := false
		for _, opt := range subcommand.Options {
			if opt.Name == "enabled" {
				enabled = opt.BoolValue()
			}
		}
		message, err = f.setLoveHub(ctx, inv, enabled)
	default:
		err = fmt.Errorf("unknown subcommand %q", subcommand.Name)
	}

	if err != nil {
		f.respondError(s, i, inv.locale, err, fmt.Sprintf("rooms %s failed", subcommand.Name), true)
		return
	}

	log.WithFields(log.Fields{
		"guild_id":   inv.guildID,
		"user_id":    inv.actorID,
		"subcommand": subcommand.Name,
	}).Info("Rooms admin command completed")
	common.FollowUp(s, i, "", BuildAdminEmbed(message), nil, true)
}

// channelLocale names created channels in the guild's language
func (inv *invocation) channelLocale() string {
	if inv.guildLocale != "" {
		return inv.guildLocale
	}
	return inv.locale
}

func (f *Feature) setup(ctx context.Context, inv *invocation) (string, error) {
	locale := inv.channelLocale()
	cfg, err := f.admin.Setup(ctx, interfaces.SetupRequest{
		GuildID:      inv.guildID,
		Locale:       locale,
		CategoryName: f.localizer.Render("rooms.admin.category_name", locale, nil),
		HubName:      f.localizer.Render("rooms.admin.hub_name", locale, nil),
		PanelName:    f.localizer.Render("rooms.admin.panel_name", locale, nil),
	})
	if err != nil {
		return "", err
	}
	return f.localizer.Render("rooms.admin.setup_done", inv.locale, map[string]string{
		"hub":   fmt.Sprintf("<#%d>", cfg.HubVoiceID),
		"panel": fmt.Sprintf("<#%d>", cfg.PanelChannelID),
	}), nil
}

func (f *Feature) disable(ctx context.Context, inv *invocation) (string, error) {
	if err := f.admin.Disable(ctx, inv.guildID); err != nil {
		return "", err
	}
	return f.localizer.Render("rooms.admin.disabled", inv.locale, nil), nil
}

func (f *Feature) setLoveHub(ctx context.Context, inv *invocation, enabled bool) (string, error) {
	hubName := f.localizer.Render("rooms.admin.love_hub_name", inv.channelLocale(), nil)
	cfg, err := f.admin.SetLoveHub(ctx, inv.guildID, enabled, hubName)
	if err != nil {
		return "", err
	}
	if !enabled || cfg.LoveHubVoiceID == nil {
		return f.localizer.Render("rooms.admin.love_hub_off", inv.locale, nil), nil
	}
	return f.localizer.Render("rooms.admin.love_hub_on", inv.locale, map[string]string{
		"hub": fmt.Sprintf("<#%d>", *cfg.LoveHubVoiceID),
	}), nil
}

// isAdministrator double checks the command permission, which guild admins can override
func isAdministrator(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}
