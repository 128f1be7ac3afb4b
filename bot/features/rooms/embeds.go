package rooms

import (
	"fmt"
	"strconv"

	"chisato/bot/common"
	"chisato/domain/interfaces"

	"github.com/bwmarrin/discordgo"
)

const (
	colorPanel = 0x5865F2
	colorInfo  = 0x57F287
	colorAdmin = 0xFEE75C

	infoCardName = "room.png"
)

// BuildPanelMessage builds the control panel posted into the panel channel
func BuildPanelMessage(localizer interfaces.Localizer, locale string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       localizer.Render("rooms.panel_message.title", locale, nil),
				Description: localizer.Render("rooms.panel_message.description", locale, nil),
				Color:       colorPanel,
			},
		},
		Components: CreatePanelComponents(localizer, locale),
	}
}

// InfoLabels are the localized captions of the info embed and card
type InfoLabels struct {
	Title     string
	Channel   string
	Leader    string
	Members   string
	Limit     string
	Unlimited string
	Closed    string
	Hidden    string
	Cooldown  string
	Ready     string
	Yes       string
	No        string
}

// LoadInfoLabels renders every info caption for locale
func LoadInfoLabels(localizer interfaces.Localizer, locale string) InfoLabels {
	label := func(key string) string {
		return localizer.Render("rooms.info."+key, locale, nil)
	}
	return InfoLabels{
		Title:     label("title"),
		Channel:   label("channel"),
		Leader:    label("leader"),
		Members:   label("members"),
		Limit:     label("limit"),
		Unlimited: label("unlimited"),
		Closed:    label("closed"),
		Hidden:    label("hidden"),
		Cooldown:  label("cooldown"),
		Ready:     label("ready"),
		Yes:       label("yes"),
		No:        label("no"),
	}
}

func (l InfoLabels) yesNo(value bool) string {
	if value {
		return l.Yes
	}
	return l.No
}

func (l InfoLabels) limit(limit int) string {
	if limit == 0 {
		return l.Unlimited
	}
	return strconv.Itoa(limit)
}

func (l InfoLabels) cooldown(info *interfaces.RoomInfo) string {
	if info.CooldownRemaining <= 0 {
		return l.Ready
	}
	return common.FormatRemaining(info.CooldownRemaining)
}

// BuildInfoEmbed renders the room info action. withCard points the image at the attached card.
func BuildInfoEmbed(labels InfoLabels, info *interfaces.RoomInfo, withCard bool) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: labels.Title,
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: labels.Channel, Value: fmt.Sprintf("<#%d>", info.Room.VoiceChannelID), Inline: true},
			{Name: labels.Leader, Value: fmt.Sprintf("<@%d>", info.Room.LeaderUserID), Inline: true},
			{Name: labels.Members, Value: strconv.Itoa(info.MemberCount), Inline: true},
			{Name: labels.Limit, Value: labels.limit(info.UserLimit), Inline: true},
			{Name: labels.Closed, Value: labels.yesNo(info.Closed), Inline: true},
			{Name: labels.Hidden, Value: labels.yesNo(info.Hidden), Inline: true},
			{Name: labels.Cooldown, Value: labels.cooldown(info), Inline: false},
		},
	}
	if withCard {
		embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + infoCardName}
	}
	return embed
}

// BuildAdminEmbed wraps an admin command reply
func BuildAdminEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: message,
		Color:       colorAdmin,
	}
}
