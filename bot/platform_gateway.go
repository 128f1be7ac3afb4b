package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"chisato/bot/common"
	"chisato/bot/features/rooms"
	"chisato/domain/entities"
	"chisato/domain/interfaces"
	"chisato/infrastructure/observability"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	defaultGatewayTimeout = 10 * time.Second
	activityInviteMaxAge  = 86400
	inviteTargetEmbedded  = 2
	inviteBaseURL         = "https://discord.gg/"
)

// PlatformGateway implements interfaces.PlatformGateway on a discordgo session
type PlatformGateway struct {
	session   *discordgo.Session
	localizer interfaces.Localizer
	timeout   time.Duration
}

// NewPlatformGateway creates a gateway bounding every call by timeout
func NewPlatformGateway(session *discordgo.Session, localizer interfaces.Localizer, timeout time.Duration) *PlatformGateway {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &PlatformGateway{
		session:   session,
		localizer: localizer,
		timeout:   timeout,
	}
}

var _ interfaces.PlatformGateway = (*PlatformGateway)(nil)

// call runs fn under the per-call deadline and classifies its error
func (g *PlatformGateway) call(ctx context.Context, op string, fn func(opts ...discordgo.RequestOption) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := fn(discordgo.WithContext(ctx)); err != nil {
		return classifyError(op, err)
	}
	return nil
}

// CreateVoiceChannel creates a voice channel in the requested category
func (g *PlatformGateway) CreateVoiceChannel(ctx context.Context, spec interfaces.VoiceChannelSpec) (int64, error) {
	var channel *discordgo.Channel
	err := g.call(ctx, "create_voice_channel", func(opts ...discordgo.RequestOption) error {
		var err error
		channel, err = g.session.GuildChannelCreateComplex(common.FormatSnowflake(spec.GuildID), discordgo.GuildChannelCreateData{
			Name:                 spec.Name,
			Type:                 discordgo.ChannelTypeGuildVoice,
			UserLimit:            spec.UserLimit,
			ParentID:             common.FormatSnowflake(spec.CategoryID),
			PermissionOverwrites: toDiscordOverwrites(spec.Overwrites),
		}, opts...)
		return err
	})
	if err != nil {
		return 0, err
	}
	return parseChannelID("create_voice_channel", channel)
}

// CreateCategory creates a channel category
func (g *PlatformGateway) CreateCategory(ctx context.Context, guildID int64, name string) (int64, error) {
	var channel *discordgo.Channel
	err := g.call(ctx, "create_category", func(opts ...discordgo.RequestOption) error {
		var err error
		channel, err = g.session.GuildChannelCreateComplex(common.FormatSnowflake(guildID), discordgo.GuildChannelCreateData{
			Name: name,
			Type: discordgo.ChannelTypeGuildCategory,
		}, opts...)
		return err
	})
	if err != nil {
		return 0, err
	}
	return parseChannelID("create_category", channel)
}

// CreateTextChannel creates a text channel under a category
func (g *PlatformGateway) CreateTextChannel(ctx context.Context, guildID, categoryID int64, name string) (int64, error) {
	var channel *discordgo.Channel
	err := g.call(ctx, "create_text_channel", func(opts ...discordgo.RequestOption) error {
		var err error
		channel, err = g.session.GuildChannelCreateComplex(common.FormatSnowflake(guildID), discordgo.GuildChannelCreateData{
			Name:     name,
			Type:     discordgo.ChannelTypeGuildText,
			ParentID: common.FormatSnowflake(categoryID),
		}, opts...)
		return err
	})
	if err != nil {
		return 0, err
	}
	return parseChannelID("create_text_channel", channel)
}

func (g *PlatformGateway) DeleteChannel(ctx context.Context, channelID int64) error {
	return g.call(ctx, "delete_channel", func(opts ...discordgo.RequestOption) error {
		_, err := g.session.ChannelDelete(common.FormatSnowflake(channelID), opts...)
		return err
	})
}

// EditChannel sends a raw PATCH since discordgo omits a zero user limit
func (g *PlatformGateway) EditChannel(ctx context.Context, channelID int64, patch interfaces.ChannelPatch) error {
	body := channelPatchBody(patch)
	if len(body) == 0 {
		return nil
	}

	endpoint := discordgo.EndpointChannel(common.FormatSnowflake(channelID))
	return g.call(ctx, "edit_channel", func(opts ...discordgo.RequestOption) error {
		_, err := g.session.RequestWithBucketID(http.MethodPatch, endpoint, body, endpoint, opts...)
		return err
	})
}

func channelPatchBody(patch interfaces.ChannelPatch) map[string]interface{} {
	body := make(map[string]interface{})
	if patch.Name != nil {
		body["name"] = *patch.Name
	}
	if patch.UserLimit != nil {
		body["user_limit"] = *patch.UserLimit
	}
	if patch.Overwrites != nil {
		body["permission_overwrites"] = toDiscordOverwrites(patch.Overwrites)
	}
	return body
}

// MoveMember moves a member between voice channels, disconnecting on nil
func (g *PlatformGateway) MoveMember(ctx context.Context, guildID, userID int64, channelID *int64) error {
	var target *string
	if channelID != nil {
		id := common.FormatSnowflake(*channelID)
		target = &id
	}
	return g.call(ctx, "move_member", func(opts ...discordgo.RequestOption) error {
		return g.session.GuildMemberMove(common.FormatSnowflake(guildID), common.FormatSnowflake(userID), target, opts...)
	})
}

func (g *PlatformGateway) SetPermissionOverwrite(ctx context.Context, channelID int64, overwrite entities.PermissionOverwrite) error {
	return g.call(ctx, "set_permission_overwrite", func(opts ...discordgo.RequestOption) error {
		return g.session.ChannelPermissionSet(
			common.FormatSnowflake(channelID),
			common.FormatSnowflake(overwrite.TargetID),
			toDiscordOverwriteType(overwrite.TargetType),
			int64(overwrite.Allow),
			int64(overwrite.Deny),
			opts...,
		)
	})
}

func (g *PlatformGateway) ClearPermissionOverwrite(ctx context.Context, channelID, targetID int64) error {
	return g.call(ctx, "clear_permission_overwrite", func(opts ...discordgo.RequestOption) error {
		return g.session.ChannelPermissionDelete(common.FormatSnowflake(channelID), common.FormatSnowflake(targetID), opts...)
	})
}

// ResolveChannel fetches the channel over REST and reads its members from the voice state cache
func (g *PlatformGateway) ResolveChannel(ctx context.Context, channelID int64) (*interfaces.ChannelSnapshot, error) {
	var channel *discordgo.Channel
	err := g.call(ctx, "resolve_channel", func(opts ...discordgo.RequestOption) error {
		var err error
		channel, err = g.session.Channel(common.FormatSnowflake(channelID), opts...)
		return err
	})
	if interfaces.IsNotFound(err) {
		return &interfaces.ChannelSnapshot{ID: channelID, Present: false}, nil
	}
	if err != nil {
		return nil, err
	}

	guildID, _ := strconv.ParseInt(channel.GuildID, 10, 64)
	overwrites, err := fromDiscordOverwrites(channel.PermissionOverwrites)
	if err != nil {
		return nil, classifyError("resolve_channel", err)
	}

	return &interfaces.ChannelSnapshot{
		ID:         channelID,
		GuildID:    guildID,
		Present:    true,
		Name:       channel.Name,
		UserLimit:  channel.UserLimit,
		MemberIDs:  g.voiceMembers(channel.GuildID, channel.ID),
		Overwrites: overwrites,
	}, nil
}

// voiceMembers lists the cached voice states pointing at channelID
func (g *PlatformGateway) voiceMembers(guildID, channelID string) []int64 {
	guild, err := g.session.State.Guild(guildID)
	if err != nil {
		return nil
	}

	g.session.State.RLock()
	defer g.session.State.RUnlock()

	var members []int64
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if id, err := strconv.ParseInt(vs.UserID, 10, 64); err == nil {
			members = append(members, id)
		}
	}
	return members
}

// SendPanelMessage posts the localized control panel
func (g *PlatformGateway) SendPanelMessage(ctx context.Context, channelID int64, locale string) (int64, error) {
	var message *discordgo.Message
	err := g.call(ctx, "send_panel_message", func(opts ...discordgo.RequestOption) error {
		var err error
		message, err = g.session.ChannelMessageSendComplex(common.FormatSnowflake(channelID), rooms.BuildPanelMessage(g.localizer, locale), opts...)
		return err
	})
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(message.ID, 10, 64)
	if err != nil {
		return 0, classifyError("send_panel_message", err)
	}
	return id, nil
}

// MessageExists treats a missing channel like a missing message
func (g *PlatformGateway) MessageExists(ctx context.Context, channelID, messageID int64) (bool, error) {
	err := g.call(ctx, "message_exists", func(opts ...discordgo.RequestOption) error {
		_, err := g.session.ChannelMessage(common.FormatSnowflake(channelID), common.FormatSnowflake(messageID), opts...)
		return err
	})
	if interfaces.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *PlatformGateway) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	return g.call(ctx, "delete_message", func(opts ...discordgo.RequestOption) error {
		return g.session.ChannelMessageDelete(common.FormatSnowflake(channelID), common.FormatSnowflake(messageID), opts...)
	})
}

// SendChannelMessage posts plain text, used for announcements inside voice channels
func (g *PlatformGateway) SendChannelMessage(ctx context.Context, channelID int64, content string) error {
	return g.call(ctx, "send_channel_message", func(opts ...discordgo.RequestOption) error {
		_, err := g.session.ChannelMessageSend(common.FormatSnowflake(channelID), content, opts...)
		return err
	})
}

// CreateActivityInvite creates an embedded application invite. discordgo has no
// field for target_application_id, so the request is sent raw.
func (g *PlatformGateway) CreateActivityInvite(ctx context.Context, channelID, applicationID int64) (string, error) {
	endpoint := discordgo.EndpointChannelInvites(common.FormatSnowflake(channelID))
	body := map[string]interface{}{
		"max_age":               activityInviteMaxAge,
		"target_type":           inviteTargetEmbedded,
		"target_application_id": common.FormatSnowflake(applicationID),
	}

	var invite discordgo.Invite
	err := g.call(ctx, "create_activity_invite", func(opts ...discordgo.RequestOption) error {
		response, err := g.session.RequestWithBucketID(http.MethodPost, endpoint, body, endpoint, opts...)
		if err != nil {
			return err
		}
		return json.Unmarshal(response, &invite)
	})
	if err != nil {
		return "", err
	}
	if invite.Code == "" {
		return "", &interfaces.GatewayError{Kind: interfaces.ErrorKindUnknown, Op: "create_activity_invite", Err: errors.New("empty invite code")}
	}
	return inviteBaseURL + invite.Code, nil
}

// MemberDisplayName prefers the state cache and falls back to REST
func (g *PlatformGateway) MemberDisplayName(ctx context.Context, guildID, userID int64) (string, error) {
	gid, uid := common.FormatSnowflake(guildID), common.FormatSnowflake(userID)
	if member, err := g.session.State.Member(gid, uid); err == nil && member.User != nil {
		return member.DisplayName(), nil
	}

	var member *discordgo.Member
	err := g.call(ctx, "member_display_name", func(opts ...discordgo.RequestOption) error {
		var err error
		member, err = g.session.GuildMember(gid, uid, opts...)
		return err
	})
	if err != nil {
		return "", err
	}
	return member.DisplayName(), nil
}

// MemberVoiceChannel reads the voice state cache, which the gateway keeps current
func (g *PlatformGateway) MemberVoiceChannel(ctx context.Context, guildID, userID int64) (*int64, error) {
	vs, err := g.session.State.VoiceState(common.FormatSnowflake(guildID), common.FormatSnowflake(userID))
	if errors.Is(err, discordgo.ErrStateNotFound) || (err == nil && vs.ChannelID == "") {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError("member_voice_channel", err)
	}

	channelID, err := strconv.ParseInt(vs.ChannelID, 10, 64)
	if err != nil {
		return nil, classifyError("member_voice_channel", err)
	}
	return &channelID, nil
}

// GuildLocale returns the guild's preferred locale, "" when the guild is not cached
func (g *PlatformGateway) GuildLocale(ctx context.Context, guildID int64) string {
	guild, err := g.session.State.Guild(common.FormatSnowflake(guildID))
	if err != nil {
		return ""
	}
	return guild.PreferredLocale
}

// classifyError maps a discordgo failure onto a GatewayError kind
func classifyError(op string, err error) error {
	gwErr := &interfaces.GatewayError{Kind: errorKind(err), Op: op, Err: err}

	observability.GetMetrics().RecordGatewayError(op, string(gwErr.Kind))
	if gwErr.Kind != interfaces.ErrorKindNotFound {
		log.WithFields(log.Fields{
			"op":         op,
			"error_kind": gwErr.Kind,
		}).WithError(err).Debug("Discord call failed")
	}
	return gwErr
}

func errorKind(err error) interfaces.ErrorKind {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch status := restErr.Response.StatusCode; {
		case status == http.StatusUnauthorized:
			return interfaces.ErrorKindUnauthorized
		case status == http.StatusForbidden:
			return interfaces.ErrorKindForbidden
		case status == http.StatusNotFound:
			return interfaces.ErrorKindNotFound
		case status == http.StatusTooManyRequests:
			return interfaces.ErrorKindRateLimited
		case status >= http.StatusInternalServerError:
			return interfaces.ErrorKindTransient
		}
		return interfaces.ErrorKindUnknown
	}

	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return interfaces.ErrorKindRateLimited
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return interfaces.ErrorKindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return interfaces.ErrorKindTransient
	}

	return interfaces.ErrorKindUnknown
}

func parseChannelID(op string, channel *discordgo.Channel) (int64, error) {
	id, err := strconv.ParseInt(channel.ID, 10, 64)
	if err != nil {
		return 0, classifyError(op, fmt.Errorf("channel id %q: %w", channel.ID, err))
	}
	return id, nil
}

func toDiscordOverwriteType(target entities.OverwriteTarget) discordgo.PermissionOverwriteType {
	if target == entities.OverwriteMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func toDiscordOverwrites(overwrites []entities.PermissionOverwrite) []*discordgo.PermissionOverwrite {
	result := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, ow := range overwrites {
		result = append(result, &discordgo.PermissionOverwrite{
			ID:    common.FormatSnowflake(ow.TargetID),
			Type:  toDiscordOverwriteType(ow.TargetType),
			Allow: int64(ow.Allow),
			Deny:  int64(ow.Deny),
		})
	}
	return result
}

func fromDiscordOverwrites(overwrites []*discordgo.PermissionOverwrite) ([]entities.PermissionOverwrite, error) {
	result := make([]entities.PermissionOverwrite, 0, len(overwrites))
	for _, ow := range overwrites {
		id, err := strconv.ParseInt(ow.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("overwrite id %q: %w", ow.ID, err)
		}
		target := entities.OverwriteRole
		if ow.Type == discordgo.PermissionOverwriteTypeMember {
			target = entities.OverwriteMember
		}
		result = append(result, entities.PermissionOverwrite{
			TargetID:   id,
			TargetType: target,
			Allow:      entities.Permission(ow.Allow),
			Deny:       entities.Permission(ow.Deny),
		})
	}
	return result, nil
}
