package entities

// Permission is a platform permission bit set
type Permission int64

// Permission bits used by rooms. Values follow the platform's bit layout.
const (
	PermissionManageChannels Permission = 1 << 4
	PermissionViewChannel    Permission = 1 << 10
	PermissionConnect        Permission = 1 << 20
	PermissionSpeak          Permission = 1 << 21
	PermissionMoveMembers    Permission = 1 << 24
)

// LeaderPermissions are granted to whoever leads a room
const LeaderPermissions = PermissionManageChannels

// Has checks whether every bit of other is set
func (p Permission) Has(other Permission) bool {
	return p&other == other
}

// OverwriteTarget distinguishes role and member overwrites
type OverwriteTarget int

const (
	OverwriteRole OverwriteTarget = iota
	OverwriteMember
)

// TriState is the effective state of one permission inside an overwrite
type TriState int

const (
	Inherit TriState = iota
	Allowed
	Denied
)

func (s TriState) String() string {
	switch s {
	case Allowed:
		return "allow"
	case Denied:
		return "deny"
	default:
		return "inherit"
	}
}

// PermissionOverwrite is a channel level allow/deny pair for one role or member
type PermissionOverwrite struct {
	TargetID   int64
	TargetType OverwriteTarget
	Allow      Permission
	Deny       Permission
}

// EveryoneOverwrite returns an empty overwrite for the @everyone role.
// The platform gives that role the guild's id.
func EveryoneOverwrite(guildID int64) PermissionOverwrite {
	return PermissionOverwrite{TargetID: guildID, TargetType: OverwriteRole}
}

// MemberOverwrite returns an empty overwrite for a member
func MemberOverwrite(userID int64) PermissionOverwrite {
	return PermissionOverwrite{TargetID: userID, TargetType: OverwriteMember}
}

// State reports how the overwrite treats perm
func (o PermissionOverwrite) State(perm Permission) TriState {
	switch {
	case o.Deny.Has(perm):
		return Denied
	case o.Allow.Has(perm):
		return Allowed
	default:
		return Inherit
	}
}

// With returns a copy of the overwrite with perm set to state
func (o PermissionOverwrite) With(perm Permission, state TriState) PermissionOverwrite {
	o.Allow &^= perm
	o.Deny &^= perm
	switch state {
	case Allowed:
		o.Allow |= perm
	case Denied:
		o.Deny |= perm
	}
	return o
}

// IsEmpty reports whether the overwrite neither allows nor denies anything
func (o PermissionOverwrite) IsEmpty() bool {
	return o.Allow == 0 && o.Deny == 0
}

// FindOverwrite returns the overwrite for targetID in the list
func FindOverwrite(overwrites []PermissionOverwrite, targetID int64) (PermissionOverwrite, bool) {
	for _, o := range overwrites {
		if o.TargetID == targetID {
			return o, true
		}
	}
	return PermissionOverwrite{}, false
}
