package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"chisato/application"

	log "github.com/sirupsen/logrus"
)

// DebugResponse represents the response from a debug endpoint
type DebugResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// GuildInfo represents basic guild information
type GuildInfo struct {
	ID    string                    `json:"id"`
	Name  string                    `json:"name"`
	Panel *application.PanelBinding `json:"panel,omitempty"`
}

// RoomInfo is one live room as reported by the debug API
type RoomInfo struct {
	VoiceChannelID        string     `json:"voice_channel_id"`
	LeaderUserID          string     `json:"leader_user_id"`
	IsLoveRoom            bool       `json:"is_love_room"`
	MutationCooldownUntil *time.Time `json:"mutation_cooldown_until,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// StartDebugAPI starts an internal HTTP API for inspecting rooms
func (b *Bot) StartDebugAPI(port int) error {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/debug/guilds", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		respondWithSuccess(w, "", b.GetGuilds())
	})

	mux.HandleFunc("/debug/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		guildID, err := strconv.ParseInt(r.URL.Query().Get("guild_id"), 10, 64)
		if err != nil {
			respondWithError(w, "Missing or invalid guild_id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		liveRooms, err := b.admin.LiveRooms(ctx, guildID)
		if err != nil {
			respondWithError(w, fmt.Sprintf("Failed to list rooms: %v", err), http.StatusInternalServerError)
			return
		}

		result := make([]RoomInfo, 0, len(liveRooms))
		for _, room := range liveRooms {
			result = append(result, RoomInfo{
				VoiceChannelID:        strconv.FormatInt(room.VoiceChannelID, 10),
				LeaderUserID:          strconv.FormatInt(room.LeaderUserID, 10),
				IsLoveRoom:            room.IsLoveRoom,
				MutationCooldownUntil: room.MutationCooldownUntil,
				CreatedAt:             room.CreatedAt,
			})
		}
		respondWithSuccess(w, fmt.Sprintf("%d live rooms", len(result)), result)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	b.mu.Lock()
	b.debugServer = server
	b.mu.Unlock()

	go func() {
		log.Infof("Debug API listening on 127.0.0.1:%d", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Debug API server error: %v", err)
		}
	}()

	return nil
}

func (b *Bot) stopDebugAPI() {
	b.mu.Lock()
	server := b.debugServer
	b.mu.Unlock()
	if server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("Debug API shutdown: %v", err)
	}
}

func respondWithSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DebugResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(DebugResponse{
		Success: false,
		Error:   message,
	})
}
