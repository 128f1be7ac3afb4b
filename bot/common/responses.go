package common

import (
	"bytes"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// DeferResponse sends a deferred response to give more time for processing
func DeferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: flags,
		},
	})
}

// RespondWithComponents sends an ephemeral message carrying components, such as a select menu
func RespondWithComponents(s *discordgo.Session, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

// RespondWithModal opens a modal
func RespondWithModal(s *discordgo.Session, i *discordgo.InteractionCreate, modal *discordgo.InteractionResponseData) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: modal,
	})
}

// Attachment is a file sent along with a follow-up
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// FollowUp sends the answer to a deferred interaction
func FollowUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string, embed *discordgo.MessageEmbed, attachment *Attachment, ephemeral bool) {
	params := &discordgo.WebhookParams{
		Content: content,
	}

	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}

	if embed != nil {
		params.Embeds = []*discordgo.MessageEmbed{embed}
	}

	if attachment != nil {
		params.Files = []*discordgo.File{
			{
				Name:        attachment.Name,
				ContentType: attachment.ContentType,
				Reader:      bytes.NewReader(attachment.Data),
			},
		}
	}

	if _, err := s.FollowupMessageCreate(i.Interaction, false, params); err != nil {
		log.Errorf("Error sending follow-up message: %v", err)
	}
}
