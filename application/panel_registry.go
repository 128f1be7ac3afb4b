package application

import (
	"sort"
	"sync"

	"chisato/domain/entities"
)

// PanelBinding locates the control panel message of a guild
type PanelBinding struct {
	GuildID   int64 `json:"guild_id"`
	ChannelID int64 `json:"channel_id"`
	MessageID int64 `json:"message_id"`
}

// PanelRegistry tracks which panel message is current for each guild. Clicks
// on an older panel of a bound guild are refused.
type PanelRegistry struct {
	mu       sync.RWMutex
	bindings map[int64]PanelBinding
}

// NewPanelRegistry creates an empty registry
func NewPanelRegistry() *PanelRegistry {
	return &PanelRegistry{
		bindings: make(map[int64]PanelBinding),
	}
}

// Bind records the panel of cfg, replacing any earlier one
func (r *PanelRegistry) Bind(cfg *entities.GuildRoomConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindings[cfg.GuildID] = PanelBinding{
		GuildID:   cfg.GuildID,
		ChannelID: cfg.PanelChannelID,
		MessageID: cfg.PanelMessageID,
	}
}

// Unbind forgets the panel of a guild
func (r *PanelRegistry) Unbind(guildID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.bindings, guildID)
}

// IsStale reports whether the guild has a bound panel other than messageID.
// Guilds not bound yet accept any message.
func (r *PanelRegistry) IsStale(guildID, messageID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	binding, ok := r.bindings[guildID]
	return ok && binding.MessageID != messageID
}

// Get returns the binding of a guild
func (r *PanelRegistry) Get(guildID int64) (PanelBinding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	binding, ok := r.bindings[guildID]
	return binding, ok
}

// All returns every binding ordered by guild id
func (r *PanelRegistry) All() []PanelBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]PanelBinding, 0, len(r.bindings))
	for _, binding := range r.bindings {
		all = append(all, binding)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].GuildID < all[j].GuildID })
	return all
}
