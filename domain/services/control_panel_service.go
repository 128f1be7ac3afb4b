package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chisato/domain/entities"
	"chisato/domain/events"
	"chisato/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// controlPanelService implements the ControlPanelService interface
type controlPanelService struct {
	prefsRepo      interfaces.RoomPrefsRepository
	liveRoomRepo   interfaces.LiveRoomRepository
	gateway        interfaces.PlatformGateway
	eventPublisher interfaces.EventPublisher
	settings       RoomSettings
}

// NewControlPanelService creates a new control panel service
func NewControlPanelService(
	prefsRepo interfaces.RoomPrefsRepository,
	liveRoomRepo interfaces.LiveRoomRepository,
	gateway interfaces.PlatformGateway,
	eventPublisher interfaces.EventPublisher,
	settings RoomSettings,
) interfaces.ControlPanelService {
	return &controlPanelService{
		prefsRepo:      prefsRepo,
		liveRoomRepo:   liveRoomRepo,
		gateway:        gateway,
		eventPublisher: eventPublisher,
		settings:       settings.withDefaults(),
	}
}

// panelCall carries one validated action through its handler
type panelCall struct {
	req  interfaces.PanelRequest
	room *entities.LiveRoom
	snap *interfaces.ChannelSnapshot
}

func (c *panelCall) channelID() int64 { return c.room.VoiceChannelID }

func (c *panelCall) target() int64 { return *c.req.TargetID }

func (c *panelCall) fields() log.Fields {
	f := log.Fields{
		"guild_id":   c.req.GuildID,
		"channel_id": c.room.VoiceChannelID,
		"user_id":    c.req.ActorID,
		"action":     c.req.Action,
	}
	if c.req.TargetID != nil {
		f["target_id"] = *c.req.TargetID
	}
	return f
}

// Precheck evaluates in-voice, registered room, leader and couple room checks in that order
func (s *controlPanelService) Precheck(ctx context.Context, guildID, actorID int64, action entities.PanelAction) (*entities.LiveRoom, error) {
	return s.authorize(ctx, guildID, actorID, action, false)
}

func (s *controlPanelService) authorize(ctx context.Context, guildID, actorID int64, action entities.PanelAction, lock bool) (*entities.LiveRoom, error) {
	channelID, err := s.gateway.MemberVoiceChannel(ctx, guildID, actorID)
	if err != nil {
		return nil, classifyGatewayError("resolve member voice channel", err)
	}
	if channelID == nil {
		return nil, entities.ErrNotInRoom
	}

	var room *entities.LiveRoom
	if lock {
		room, err = s.liveRoomRepo.LockLiveRoom(ctx, guildID, *channelID)
	} else {
		room, err = s.liveRoomRepo.FindLiveRoomByChannel(ctx, guildID, *channelID)
	}
	if err != nil {
		return nil, storeError("find room by channel", err)
	}
	if room == nil {
		return nil, entities.ErrNotInRoom
	}

	if action.RequiresLeader() && !room.IsLeader(actorID) {
		return nil, entities.ErrNotLeader
	}
	if room.IsLoveRoom && !action.AllowedInLoveRoom() {
		return nil, entities.ErrLoveRoom
	}
	return room, nil
}

// Execute applies the action to the invoker's room
func (s *controlPanelService) Execute(ctx context.Context, req interfaces.PanelRequest) (*interfaces.PanelResult, error) {
	room, err := s.authorize(ctx, req.GuildID, req.ActorID, req.Action, true)
	if err != nil {
		return nil, err
	}

	if req.Action.NeedsTarget() {
		if req.TargetID == nil {
			return nil, entities.ErrNoTarget
		}
		if *req.TargetID == req.ActorID {
			return nil, entities.ErrSelfTarget
		}
	}

	call := &panelCall{req: req, room: room}
	if req.Action != entities.ActionActivity {
		snap, err := resolveChannel(ctx, s.gateway, room.VoiceChannelID)
		if err != nil {
			return nil, classifyGatewayError("resolve room channel", err)
		}
		if !snap.Present {
			return nil, entities.ErrNotInRoom
		}
		call.snap = snap
	}

	var result *interfaces.PanelResult
	switch req.Action {
	case entities.ActionActivity:
		result, err = s.activity(ctx, call)
	case entities.ActionEdit:
		result, err = s.rename(ctx, call)
	case entities.ActionLimit:
		result, err = s.limit(ctx, call)
	case entities.ActionClose:
		result, err = s.toggleEveryone(ctx, call, entities.PermissionConnect, "rooms.panel.closed", "rooms.panel.opened")
	case entities.ActionVision:
		result, err = s.toggleEveryone(ctx, call, entities.PermissionViewChannel, "rooms.panel.hidden", "rooms.panel.visible")
	case entities.ActionMute:
		result, err = s.mute(ctx, call)
	case entities.ActionKick:
		result, err = s.kick(ctx, call)
	case entities.ActionAccess:
		result, err = s.access(ctx, call)
	case entities.ActionTransfer:
		result, err = s.transfer(ctx, call)
	case entities.ActionReset:
		result, err = s.reset(ctx, call)
	case entities.ActionInfo:
		result, err = s.info(ctx, call)
	default:
		return nil, entities.NewUserError(entities.CodeInvalidInput, fmt.Sprintf("unknown action %q", req.Action))
	}
	if err != nil {
		return nil, err
	}

	result.Action = req.Action
	if req.Action != entities.ActionInfo && req.Action != entities.ActionActivity {
		s.publishMutation(call)
	}
	return result, nil
}

func (s *controlPanelService) activity(ctx context.Context, call *panelCall) (*interfaces.PanelResult, error) {
	activity, ok := entities.FindActivity(call.req.ActivityKey)
	if !ok {
		return nil, entities.NewUserError(entities.CodeInvalidInput, fmt.Sprintf("unknown activity %q", call.req.ActivityKey))
	}

	url, err := s.gateway.CreateActivityInvite(ctx, call.channelID(), activity.ApplicationID)
	if err != nil {
		return nil, s.mapError("create activity invite", err, call)
	}

	return &interfaces.PanelResult{
		MessageKey: "rooms.panel.activity",
		Vars:       map[string]string{"activity": activity.Name, "url": url},
		InviteURL:  url,
	}, nil
}

// rename sets a new channel name. Empty input clears the saved name and
// restores the default one.
func (s *controlPanelService) rename(ctx context.Context, call *panelCall) (*interfaces.PanelResult, error) {
	name, err := entities.NormalizeRoomName(call.req.Text)
	if err != nil {
		return nil, err
	}

	patch := entities.PrefsPatch{RoomName: &name}
	channelName := name
	messageKey := "rooms.panel.renamed"
	if name == "" {
		patch = entities.PrefsPatch{ClearRoomName: true}
		displayName, err := s.gateway.MemberDisplayName(ctx, call.req.GuildID, call.req.ActorID)
		if err != nil {
			return nil, s.mapError("resolve display name", err, call)
		}
		channelName = DefaultRoomName(s.settings.Random, displayName)
		messageKey = "rooms.panel.name_reset"
	}

	if err := s.gatedEdit(ctx, call, interfaces.ChannelPatch{Name: &channelName}); err != nil {
		return nil, err
	}
	if _, err := s.prefsRepo.UpsertPrefs(ctx, call.req.GuildID, call.req.ActorID, patch); err != nil {
		return nil, storeError("upsert room prefs", err)
	}

	return &interfaces.PanelResult{
		MessageKey: messageKey,
		Vars:       map[string]string{"name": channelName},
	}, nil
}

func (s *controlPanelService) limit(ctx context.Context, call *panelCall) (*interfaces.PanelResult, error) {
	limit, err := strconv.Atoi(strings.TrimSpace(call.req.Text))
	if err != nil {
		return nil, entities.NewUserError(entities.CodeInvalidInput, fmt.Sprintf("%q is not a number", call.req.Text))
	}
	if err := entities.ValidateUserLimit(limit); err != nil {
		return nil, err
	}

	if err := s.gatedEdit(ctx, call, interfaces.ChannelPatch{UserLimit: &limit}); err != nil {
		return nil, err
	}
	if _, err := s.prefsRepo.UpsertPrefs(ctx, call.req.GuildID, call.req.ActorID, entities.PrefsPatch{UserLimit: &limit}); err != nil {
		return nil, storeError("upsert room prefs", err)
	}

	return &interfaces.PanelResult{
		MessageKey: "rooms.panel.limit_set",
		Vars:       map[string]string{"limit": strconv.Itoa(limit)},
	}, nil
}

// gatedEdit arms the rename/limit cooldown and edits the channel. A platform
// rate limit keeps the cooldown armed; any other failure releases it.
func (s *controlPanelService) gatedEdit(ctx context.Context, call *panelCall, patch interfaces.ChannelPatch) error {
	now := s.settings.Now()
	armed, err := s.liveRoomRepo.ArmCooldown(ctx, call.req.GuildID, call.channelID(), now, now.Add(s.settings.Cooldown))
	if err != nil {
		return storeError("arm cooldown", err)
	}
	if !armed {
		remaining := call.room.CooldownRemaining(now)
		return entities.NewUserError(entities.CodeRateLimited, fmt.Sprintf("try again in %s", remaining.Round(time.Second)))
	}

	editErr := s.gateway.EditChannel(ctx, call.channelID(), patch)
	if editErr == nil {
		return nil
	}
	if interfaces.KindOf(editErr) == interfaces.ErrorKindRateLimited {
		return entities.NewUserError(entities.CodeRateLimited, "platform rename limit reached")
	}
	if err := s.liveRoomRepo.ClearCooldown(ctx, call.req.GuildID, call.channelID()); err != nil {
		return storeError("clear cooldown", err)
	}
	return s.mapError("edit channel", editErr, call)
}

// toggleEveryone flips perm on the @everyone overwrite between denied and inherited
func (s *controlPanelService) toggleEveryone(ctx context.Context, call *panelCall, perm entities.Permission, deniedKey, restoredKey string) (*interfaces.PanelResult, error) {
	everyone, _ := call.snap.Overwrite(call.req.GuildID, entities.OverwriteRole)

	next, key := everyone.With(perm, entities.Denied), deniedKey
	if everyone.State(perm) == entities.Denied {
		next, key = everyone.With(perm, entities.Inherit), restoredKey
	}

	if err := s.writeOverwrite(ctx, call, next); err != nil {
		return nil, err
	}
	return &interfaces.PanelResult{MessageKey: key}, nil
}

func (s *controlPanelService) mute(ctx context.Context, call *panelCall) (*interfaces.PanelResult, error) {
	current, _ := call.snap.Overwrite(call.target(), entities.OverwriteMember)

	next, key := current.With(entities.PermissionSpeak, entities.Denied), "rooms.panel.muted"
	if current.State(entities.PermissionSpeak) == entities.Denied {
		next, key = current.With(entities.PermissionSpeak, entities.Inherit), "rooms.panel.unmuted"
	}

	if err := s.writeOverwrite(ctx, call, next); err != nil {
		return nil, err
	}

	// Voice permissions apply on reconnect
	if call.snap.HasMember(call.target()) {
		channelID := call.channelID()
		if err := s.gateway.MoveMember(ctx, call.req.GuildID, call.target(), &channelID); err != nil {
			log.WithFields(call.fields()).WithError(err).Debug("Failed to re-seat muted member")
		}
	}

	return &interfaces.PanelResult{MessageKey: key, Vars: targetVars(call)}, nil
}

func (s *controlPanelService) kick(ctx context.Context, call *panelCall) (*interfaces.PanelResult, error) {
	if !call.snap.HasMember(call.target()) {
		return nil, entities.ErrTargetNotPresent
	}
	if err := s.gateway.MoveMember(ctx, call.req.GuildID, call.target(), nil); err != nil {
		if interfaces.IsNotFound(err) {
			return nil, entities.ErrTargetNotPresent
		}
		return nil, s.mapError("disconnect member", err, call)
	}
	return &interfaces.PanelResult{MessageKey: "rooms.panel.kicked", Vars: targetVars(call)}, nil
}

// access grants connect in a closed room and bans connect in an open one.
// Pressing again removes the grant or the ban.
func (s *controlPanelService) access(ctx context.Context, call *panelCall) (*interfaces.PanelResult, error) {
	everyone, _ := call.snap.Overwrite(call.req.GuildID, entities.OverwriteRole)
	current, _ := call.snap.Overwrite(call.target(), entities.OverwriteMember)
	closed := everyone.State(entities.PermissionConnect) == entities.Denied

	var next entities.PermissionOverwrite
	var key string
	disconnect := false
	switch state := current.State(entities.PermissionConnect); {
	case closed && state == entities.Allowed:
		next, key = current.With(entities.PermissionConnect, entities.Inherit), "rooms.panel.access_revoked"
	case closed:
		next, key = current.With(entities.PermissionConnect, entities.Allowed), "rooms.panel.access_granted"
	case state == entities.Denied:
		next, key = current.With(entities.PermissionConnect, entities.Inherit), "rooms.panel.access_granted"
	default:
		next, key = current.With(entities.PermissionConnect, entities.Denied), "rooms.panel.access_revoked"
		disconnect = true
	}

	if err := s.writeOverwrite(ctx, call, next); err != nil {
		return nil, err
	}

	if disconnect && call.snap.HasMember(call.target()) {
		if err := s.gateway.MoveMember(ctx, call.req.GuildID, call.target(), nil); err != nil && !interfaces.IsNotFound(err) {
			log.WithFields(call.fields()).WithError(err).Warn("Failed to disconnect denied member")
		}
	}

	return &interfaces.PanelResult{MessageKey: key, Vars: targetVars(call)}, nil
}

func (s *controlPanelService) transfer(ctx context.Context, call *panelCall) (*interfaces.PanelResult, error) {
	if !call.snap.HasMember(call.target()) {
		return nil, entities.ErrTargetNotPresent
	}

	grant, _ := call.snap.Overwrite(call.target(), entities.OverwriteMember)
	if err := s.writeOverwrite(ctx, call, grant.With(entities.LeaderPermissions, entities.Allowed)); err != nil {
		return nil, err
	}
	if err := s.liveRoomRepo.UpdateLeader(ctx, call.req.GuildID, call.channelID(), call.target()); err != nil {
		return nil, storeError("update leader", err)
	}
	if old, ok := call.snap.Overwrite(call.req.ActorID, entities.OverwriteMember); ok {
		applyOverwriteBestEffort(ctx, s.gateway, call.channelID(), old.With(entities.LeaderPermissions, entities.Inherit), call.fields())
	}

	if err := s.eventPublisher.Publish(events.LeaderTransferredEvent{
		GuildID:          call.req.GuildID,
		VoiceChannelID:   call.channelID(),
		PreviousLeaderID: call.req.ActorID,
		NewLeaderID:      call.target(),
		Voluntary:        true,
	}); err != nil {
		log.WithError(err).Error("Failed to publish leader transferred event")
	}

	return &interfaces.PanelResult{MessageKey: "rooms.panel.transferred", Vars: targetVars(call)}, nil
}

func (s *controlPanelService) reset(ctx context.Context, call *panelCall) (*interfaces.PanelResult, error) {
	if _, ok := call.snap.Overwrite(call.target(), entities.OverwriteMember); ok {
		if err := s.gateway.ClearPermissionOverwrite(ctx, call.channelID(), call.target()); err != nil && !interfaces.IsNotFound(err) {
			return nil, s.mapError("clear overwrite", err, call)
		}
	}
	return &interfaces.PanelResult{MessageKey: "rooms.panel.reset", Vars: targetVars(call)}, nil
}

func (s *controlPanelService) info(ctx context.Context, call *panelCall) (*interfaces.PanelResult, error) {
	leaderName, err := s.gateway.MemberDisplayName(ctx, call.req.GuildID, call.room.LeaderUserID)
	if err != nil {
		if !interfaces.IsNotFound(err) {
			return nil, s.mapError("resolve leader name", err, call)
		}
		leaderName = mention(call.room.LeaderUserID)
	}

	everyone, _ := call.snap.Overwrite(call.req.GuildID, entities.OverwriteRole)
	info := &interfaces.RoomInfo{
		Room:              *call.room,
		ChannelName:       call.snap.Name,
		LeaderName:        leaderName,
		MemberCount:       len(call.snap.MemberIDs),
		UserLimit:         call.snap.UserLimit,
		Closed:            everyone.State(entities.PermissionConnect) == entities.Denied,
		Hidden:            everyone.State(entities.PermissionViewChannel) == entities.Denied,
		CooldownRemaining: call.room.CooldownRemaining(s.settings.Now()),
	}

	return &interfaces.PanelResult{
		MessageKey: "rooms.panel.info",
		Vars: map[string]string{
			"name":    info.ChannelName,
			"leader":  info.LeaderName,
			"members": strconv.Itoa(info.MemberCount),
		},
		Info: info,
	}, nil
}

// writeOverwrite stores an overwrite, removing it when nothing is left in it
func (s *controlPanelService) writeOverwrite(ctx context.Context, call *panelCall, ow entities.PermissionOverwrite) error {
	var err error
	if ow.IsEmpty() {
		err = s.gateway.ClearPermissionOverwrite(ctx, call.channelID(), ow.TargetID)
		if interfaces.IsNotFound(err) {
			err = nil
		}
	} else {
		err = s.gateway.SetPermissionOverwrite(ctx, call.channelID(), ow)
	}
	if err != nil {
		return s.mapError("write overwrite", err, call)
	}
	return nil
}

// mapError turns a platform failure into the error shown to the invoker
func (s *controlPanelService) mapError(op string, err error, call *panelCall) error {
	mapped := classifyGatewayError(op, err)
	if interfaces.IsNotFound(err) && call.req.TargetID != nil {
		mapped = entities.ErrTargetNotPresent
	}
	var roomErr *entities.RoomError
	if errors.As(mapped, &roomErr) && roomErr.Class == entities.ClassUser {
		log.WithFields(call.fields()).WithError(err).Info("Panel action refused by platform")
	}
	return mapped
}

func (s *controlPanelService) publishMutation(call *panelCall) {
	if err := s.eventPublisher.Publish(events.RoomMutatedEvent{
		GuildID:        call.req.GuildID,
		VoiceChannelID: call.channelID(),
		ActorID:        call.req.ActorID,
		Action:         string(call.req.Action),
		TargetID:       call.req.TargetID,
	}); err != nil {
		log.WithError(err).Error("Failed to publish room mutated event")
	}
}

func targetVars(call *panelCall) map[string]string {
	return map[string]string{"target": mention(call.target())}
}
