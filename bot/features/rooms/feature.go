package rooms

import (
	"context"
	"fmt"

	"chisato/bot/common"
	"chisato/domain/entities"
	"chisato/domain/interfaces"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// PanelExecutor runs control panel actions
type PanelExecutor interface {
	Precheck(ctx context.Context, guildID, actorID int64, action entities.PanelAction) (*entities.LiveRoom, error)
	Execute(ctx context.Context, req interfaces.PanelRequest) (*interfaces.PanelResult, error)
}

// RoomAdministrator runs the /rooms admin commands
type RoomAdministrator interface {
	Setup(ctx context.Context, req interfaces.SetupRequest) (*entities.GuildRoomConfig, error)
	Disable(ctx context.Context, guildID int64) error
	SetLoveHub(ctx context.Context, guildID int64, enabled bool, hubName string) (*entities.GuildRoomConfig, error)
}

// PanelLookup tells whether a clicked message is an outdated panel
type PanelLookup interface {
	IsStale(guildID, messageID int64) bool
}

// Feature represents the temporary voice room feature
type Feature struct {
	panels    PanelExecutor
	admin     RoomAdministrator
	lookup    PanelLookup
	localizer interfaces.Localizer
	cards     *InfoCardRenderer
}

// NewFeature creates a new voice room feature instance
func NewFeature(panels PanelExecutor, admin RoomAdministrator, lookup PanelLookup, localizer interfaces.Localizer) *Feature {
	return &Feature{
		panels:    panels,
		admin:     admin,
		lookup:    lookup,
		localizer: localizer,
		cards:     NewInfoCardRenderer(),
	}
}

// invocation is who pressed what, where
type invocation struct {
	guildID     int64
	actorID     int64
	locale      string
	guildLocale string
}

func newInvocation(i *discordgo.InteractionCreate) (*invocation, error) {
	if i.GuildID == "" {
		return nil, fmt.Errorf("interaction outside a guild")
	}
	guildID, err := common.ParseSnowflake(i.GuildID)
	if err != nil {
		return nil, err
	}
	actorID, err := common.ParseSnowflake(common.InvokerID(i))
	if err != nil {
		return nil, err
	}

	inv := &invocation{
		guildID: guildID,
		actorID: actorID,
		locale:  common.InteractionLocale(i),
	}
	if i.GuildLocale != nil {
		inv.guildLocale = string(*i.GuildLocale)
	}
	return inv, nil
}

func (f *Feature) fields(inv *invocation, action entities.PanelAction) log.Fields {
	return log.Fields{
		"guild_id": inv.guildID,
		"user_id":  inv.actorID,
		"action":   action,
	}
}

// respondError answers with the localized form of err
func (f *Feature) respondError(s *discordgo.Session, i *discordgo.InteractionCreate, locale string, err error, logMessage string, deferred bool) {
	common.HandleError(s, i, common.LocalizeError(f.localizer, err, locale, logMessage), deferred)
}
