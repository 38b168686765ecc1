package core

import (
	"github.com/bwmarrin/discordgo"
)

// Responder wraps the interaction-response surface. The platform allows
// roughly three seconds for the first acknowledgement, so handlers doing I/O
// defer first and edit the deferred reply when done; modals must be shown
// immediately instead.
type Responder struct {
	session *discordgo.Session
}

// NewResponder creates a Responder for the session.
func NewResponder(session *discordgo.Session) *Responder {
	return &Responder{session: session}
}

// Ephemeral replies with a message only the actor can see.
func (r *Responder) Ephemeral(i *discordgo.InteractionCreate, message string) error {
	return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// EphemeralWithComponents replies with an ephemeral message carrying
// interactive components, used for per-store settings views.
func (r *Responder) EphemeralWithComponents(i *discordgo.InteractionCreate, message string, components []discordgo.MessageComponent) error {
	return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    message,
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

// Error replies with an ephemeral error message.
func (r *Responder) Error(i *discordgo.InteractionCreate, message string) error {
	return r.Ephemeral(i, "❌ "+message)
}

// Defer acknowledges the interaction, buying the ~15 minute follow-up window.
func (r *Responder) Defer(i *discordgo.InteractionCreate, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
}

// DeferUpdate acknowledges a component click without posting a reply.
func (r *Responder) DeferUpdate(i *discordgo.InteractionCreate) error {
	return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// EditDeferred edits the deferred reply.
func (r *Responder) EditDeferred(i *discordgo.InteractionCreate, content string) error {
	_, err := r.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}

// Modal shows a modal. Must be the first response; a deferred interaction can
// no longer show one.
func (r *Responder) Modal(i *discordgo.InteractionCreate, customID, title string, components []discordgo.MessageComponent) error {
	return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: components,
		},
	})
}

// FollowUp posts an additional message after the first response.
func (r *Responder) FollowUp(i *discordgo.InteractionCreate, content string, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_, err := r.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   flags,
	})
	return err
}
