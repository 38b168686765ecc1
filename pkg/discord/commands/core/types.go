package core

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Command represents one slash command.
type Command interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Handle(ctx *Context) error
	RequiresGuild() bool
}

// ComponentHandler handles decoded button, select, and modal interactions.
type ComponentHandler interface {
	HandleComponent(ctx *Context, id CustomID) error
}

// Context carries everything a handler needs for one interaction.
type Context struct {
	Ctx         context.Context
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Responder   *Responder
	GuildID     string
	UserID      string
	Member      *discordgo.Member
}

// DisplayName returns the acting user's server nickname, falling back to the
// account name.
func (c *Context) DisplayName() string {
	if c.Member != nil {
		if c.Member.Nick != "" {
			return c.Member.Nick
		}
		if c.Member.User != nil {
			return c.Member.User.Username
		}
	}
	if c.Interaction.User != nil {
		return c.Interaction.User.Username
	}
	return c.UserID
}

// CommandError is an error whose message is meant for the user.
type CommandError struct {
	Message   string
	Ephemeral bool
}

func (e *CommandError) Error() string { return e.Message }

// NewCommandError creates a user-visible command error.
func NewCommandError(message string, ephemeral bool) *CommandError {
	return &CommandError{Message: message, Ephemeral: ephemeral}
}

// ValidationError rejects malformed form input before any write, naming the
// offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NewValidationError creates a field-scoped validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
