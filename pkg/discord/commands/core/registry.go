package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/log"
)

// Router owns slash-command registration and interaction dispatch. Components
// and modals are decoded once here; handlers receive typed CustomIDs.
type Router struct {
	session    *discordgo.Session
	responder  *Responder
	commands   map[string]Command
	components map[Action]ComponentHandler
}

// NewRouter creates a Router for the session.
func NewRouter(session *discordgo.Session) *Router {
	return &Router{
		session:    session,
		responder:  NewResponder(session),
		commands:   make(map[string]Command),
		components: make(map[Action]ComponentHandler),
	}
}

// Responder exposes the router's responder for handler construction.
func (r *Router) Responder() *Responder { return r.responder }

// RegisterCommand registers a slash command.
func (r *Router) RegisterCommand(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// RegisterComponent routes the given actions to handler.
func (r *Router) RegisterComponent(handler ComponentHandler, actions ...Action) {
	for _, a := range actions {
		r.components[a] = handler
	}
}

// HandleInteraction is installed as the discordgo interaction handler.
func (r *Router) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := r.buildContext(i)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleSlashCommand(ctx)
	case discordgo.InteractionMessageComponent:
		r.handleComponent(ctx, i.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		r.handleComponent(ctx, i.ModalSubmitData().CustomID)
	}
}

func (r *Router) buildContext(i *discordgo.InteractionCreate) *Context {
	ctx := &Context{
		Ctx:         context.Background(),
		Session:     r.session,
		Interaction: i,
		Responder:   r.responder,
		GuildID:     i.GuildID,
		Member:      i.Member,
	}
	if i.Member != nil && i.Member.User != nil {
		ctx.UserID = i.Member.User.ID
	} else if i.User != nil {
		ctx.UserID = i.User.ID
	}
	return ctx
}

func (r *Router) handleSlashCommand(ctx *Context) {
	name := ctx.Interaction.ApplicationCommandData().Name
	cmd, ok := r.commands[name]
	if !ok {
		log.DiscordLogger().Error("Command not found", "command", name)
		_ = r.responder.Error(ctx.Interaction, "Command not found")
		return
	}
	if cmd.RequiresGuild() && ctx.GuildID == "" {
		_ = r.responder.Error(ctx.Interaction, "This command can only be used in a server")
		return
	}

	log.DiscordLogger().Info("Executing command", "command", name, "guildID", ctx.GuildID, "userID", ctx.UserID)
	if err := cmd.Handle(ctx); err != nil {
		r.reportError(ctx, err)
	}
}

func (r *Router) handleComponent(ctx *Context, rawID string) {
	id, err := ParseCustomID(rawID)
	if err != nil {
		// Components from other bots or stale panels; not ours to answer.
		log.DiscordLogger().Warn("Ignoring unrecognized component", "customID", rawID, "error", err)
		return
	}

	handler, ok := r.components[id.Action]
	if !ok {
		log.DiscordLogger().Error("No handler for component action", "action", id.Action)
		_ = r.responder.Error(ctx.Interaction, "This control is no longer supported")
		return
	}

	log.DiscordLogger().Info("Handling component",
		"feature", id.Feature, "action", id.Action, "storeID", id.StoreID,
		"guildID", ctx.GuildID, "userID", ctx.UserID)
	if err := handler.HandleComponent(ctx, id); err != nil {
		r.reportError(ctx, err)
	}
}

// reportError is the uniform interaction boundary: every handler error turns
// into an ephemeral reply plus a log line, and nothing escapes to crash the
// process.
func (r *Router) reportError(ctx *Context, err error) {
	var cmdErr *CommandError
	var valErr *ValidationError

	message := "An error occurred while processing the request"
	switch {
	case errors.As(err, &valErr):
		message = fmt.Sprintf("Invalid input for %s: %s", valErr.Field, valErr.Message)
	case errors.As(err, &cmdErr):
		message = cmdErr.Message
	default:
		log.ErrorLogger().Error("Handler failed",
			"guildID", ctx.GuildID, "userID", ctx.UserID, "error", err)
	}

	if respondErr := r.responder.Error(ctx.Interaction, message); respondErr != nil {
		// Already acknowledged (deferred); edit the deferred reply instead.
		_ = r.responder.EditDeferred(ctx.Interaction, "❌ "+message)
	}
}

// SetupCommands installs the interaction handler and synchronizes slash
// commands incrementally: create missing, update drifted, delete orphans.
func (r *Router) SetupCommands() error {
	r.session.AddHandler(r.HandleInteraction)

	appID := r.session.State.User.ID
	registered, err := r.session.ApplicationCommands(appID, "")
	if err != nil {
		return fmt.Errorf("fetch registered commands: %w", err)
	}

	regByName := make(map[string]*discordgo.ApplicationCommand, len(registered))
	for _, rc := range registered {
		regByName[rc.Name] = rc
	}

	created, updated, unchanged := 0, 0, 0
	for name, cmd := range r.commands {
		desired := &discordgo.ApplicationCommand{
			Name:        cmd.Name(),
			Description: cmd.Description(),
			Options:     cmd.Options(),
		}
		if existing, ok := regByName[name]; ok {
			if commandsEqual(existing, desired) {
				unchanged++
				continue
			}
			if _, err := r.session.ApplicationCommandEdit(appID, "", existing.ID, desired); err != nil {
				return fmt.Errorf("update command %q: %w", name, err)
			}
			updated++
		} else {
			if _, err := r.session.ApplicationCommandCreate(appID, "", desired); err != nil {
				return fmt.Errorf("create command %q: %w", name, err)
			}
			created++
		}
	}

	deleted := 0
	for _, rc := range registered {
		if _, ok := r.commands[rc.Name]; !ok {
			if err := r.session.ApplicationCommandDelete(appID, "", rc.ID); err != nil {
				log.DiscordLogger().Warn("Error removing orphan command", "command", rc.Name, "error", err)
				continue
			}
			deleted++
		}
	}

	log.DiscordLogger().Info("Command synchronization completed",
		"created", created, "updated", updated, "deleted", deleted, "unchanged", unchanged)
	return nil
}
