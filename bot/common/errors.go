package common

import (
	"errors"
	"fmt"

	"chisato/domain/entities"
	"chisato/domain/interfaces"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// GenericErrorKey is the catalog entry shown for anything that is not a user error
const GenericErrorKey = "errors.generic"

// BotError represents a structured error with user-facing and internal messages
type BotError struct {
	UserMessage string      // Message shown to Discord user
	LogMessage  string      // Internal message for logging
	Ephemeral   bool        // Whether the error message should be ephemeral
	Err         error       // Underlying error
	Context     interface{} // Additional context for logging
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.LogMessage, e.Err)
	}
	return e.LogMessage
}

// Unwrap returns the underlying error
func (e *BotError) Unwrap() error {
	return e.Err
}

// NewUserError creates an error for user-caused issues
func NewUserError(userMessage string, logMessage string) *BotError {
	return &BotError{
		UserMessage: userMessage,
		LogMessage:  logMessage,
		Ephemeral:   true,
	}
}

// NewSystemError creates an error for system issues (database, unexpected state, etc)
func NewSystemError(err error, userMessage, logMessage string) *BotError {
	return &BotError{
		UserMessage: userMessage,
		LogMessage:  logMessage,
		Ephemeral:   true,
		Err:         err,
	}
}

// ErrorKey returns the catalog key and placeholder values for a room error
func ErrorKey(err error) (string, map[string]string) {
	var roomErr *entities.RoomError
	if !errors.As(err, &roomErr) || roomErr.Class != entities.ClassUser {
		return GenericErrorKey, nil
	}
	return "errors." + string(roomErr.Code), map[string]string{"detail": roomErr.Message}
}

// LocalizeError converts err into a BotError whose user message is rendered in locale
func LocalizeError(localizer interfaces.Localizer, err error, locale, logMessage string) *BotError {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr
	}

	key, vars := ErrorKey(err)
	message := localizer.Render(key, locale, vars)
	if entities.IsUserError(err) {
		return &BotError{UserMessage: message, LogMessage: logMessage, Ephemeral: true, Err: err}
	}
	return NewSystemError(err, message, logMessage)
}

// RespondWithError sends an error message as an interaction response
func RespondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❌ %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Errorf("Error sending error response: %v", err)
	}
}

// FollowUpWithError sends an error message as a follow-up to a deferred interaction
func FollowUpWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	_, err := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Content: fmt.Sprintf("❌ %s", message),
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Errorf("Error sending follow-up error message: %v", err)
	}
}

// HandleError logs err and shows its user message. User errors are logged at
// debug level since they are expected outcomes.
func HandleError(s *discordgo.Session, i *discordgo.InteractionCreate, err *BotError, deferred bool) {
	fields := log.Fields{
		"guild_id":     i.GuildID,
		"user_id":      InvokerID(i),
		"user_message": err.UserMessage,
		"context":      err.Context,
	}
	if entities.IsUserError(err.Err) || err.Err == nil {
		log.WithFields(fields).WithError(err).Debug(err.LogMessage)
	} else {
		fields["class"] = entities.ClassOf(err.Err).String()
		log.WithFields(fields).WithError(err).Error(err.LogMessage)
	}

	if deferred {
		FollowUpWithError(s, i, err.UserMessage)
	} else {
		RespondWithError(s, i, err.UserMessage)
	}
}
