package entities

// PanelAction is one control panel component
type PanelAction string

const (
	ActionActivity PanelAction = "activity"
	ActionEdit     PanelAction = "edit"
	ActionLimit    PanelAction = "limit"
	ActionClose    PanelAction = "close"
	ActionVision   PanelAction = "vision"
	ActionMute     PanelAction = "mute"
	ActionKick     PanelAction = "kick"
	ActionAccess   PanelAction = "access"
	ActionTransfer PanelAction = "transfer"
	ActionReset    PanelAction = "reset"
	ActionInfo     PanelAction = "info"
)

// PanelActions lists every action in panel order
var PanelActions = []PanelAction{
	ActionActivity,
	ActionEdit,
	ActionLimit,
	ActionClose,
	ActionVision,
	ActionMute,
	ActionKick,
	ActionAccess,
	ActionTransfer,
	ActionReset,
	ActionInfo,
}

// ParsePanelAction converts a component id suffix into an action
func ParsePanelAction(s string) (PanelAction, bool) {
	for _, a := range PanelActions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// RequiresLeader reports whether only the room leader may use the action
func (a PanelAction) RequiresLeader() bool {
	return a != ActionInfo
}

// AllowedInLoveRoom reports whether the action works in couple rooms
func (a PanelAction) AllowedInLoveRoom() bool {
	return a == ActionInfo
}

// NeedsTarget reports whether the action applies to a selected member
func (a PanelAction) NeedsTarget() bool {
	switch a {
	case ActionMute, ActionKick, ActionAccess, ActionTransfer, ActionReset:
		return true
	}
	return false
}

// NeedsModal reports whether the action collects text input first
func (a PanelAction) NeedsModal() bool {
	return a == ActionEdit || a == ActionLimit
}

// CooldownGated reports whether the action is subject to the rename/limit lock
func (a PanelAction) CooldownGated() bool {
	return a == ActionEdit || a == ActionLimit
}

// TargetMustBePresent reports whether the selected member has to be in the room
func (a PanelAction) TargetMustBePresent() bool {
	return a == ActionKick || a == ActionTransfer
}

// Activity is an embedded application that can be launched in a voice channel
type Activity struct {
	Key           string
	Name          string
	ApplicationID int64
}

// Activities lists the launchable embedded applications
var Activities = []Activity{
	{Key: "watch_together", Name: "Watch Together", ApplicationID: 880218394199220334},
	{Key: "poker", Name: "Poker Night", ApplicationID: 755827207812677713},
	{Key: "chess", Name: "Chess in the Park", ApplicationID: 832012774040141894},
	{Key: "checkers", Name: "Checkers in the Park", ApplicationID: 832013003968348200},
	{Key: "sketch_heads", Name: "Sketch Heads", ApplicationID: 902271654783242291},
	{Key: "letter_league", Name: "Letter League", ApplicationID: 879863686565621790},
	{Key: "spellcast", Name: "SpellCast", ApplicationID: 852509694341283871},
	{Key: "blazing_8s", Name: "Blazing 8s", ApplicationID: 832025144389533716},
}

// FindActivity looks an activity up by key
func FindActivity(key string) (Activity, bool) {
	for _, a := range Activities {
		if a.Key == key {
			return a, true
		}
	}
	return Activity{}, false
}
