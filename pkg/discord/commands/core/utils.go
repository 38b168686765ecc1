package core

import (
	"github.com/bwmarrin/discordgo"
)

// SubCommandName returns the invoked subcommand, or "".
func SubCommandName(i *discordgo.InteractionCreate) string {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 {
		return ""
	}
	if opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return opts[0].Name
	}
	return ""
}

// SubCommandOptions returns the options of the invoked subcommand.
func SubCommandOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 || opts[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return nil
	}
	return opts[0].Options
}

// StringOption returns a named string option from opts, or "".
func StringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue()
		}
	}
	return ""
}

// ChannelOption returns a named channel-id option from opts, or "".
func ChannelOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionChannel {
			return o.Value.(string)
		}
	}
	return ""
}

// IntOption returns a named integer option from opts, or 0.
func IntOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionInteger {
			return int(o.IntValue())
		}
	}
	return 0
}

// ModalValues flattens a modal submission into field custom-id -> entered text.
func ModalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

// commandsEqual reports whether a registered command already matches the
// desired definition closely enough to skip the update call.
func commandsEqual(existing, desired *discordgo.ApplicationCommand) bool {
	if existing.Name != desired.Name || existing.Description != desired.Description {
		return false
	}
	if len(existing.Options) != len(desired.Options) {
		return false
	}
	for i := range desired.Options {
		if !optionsEqual(existing.Options[i], desired.Options[i]) {
			return false
		}
	}
	return true
}

func optionsEqual(a, b *discordgo.ApplicationCommandOption) bool {
	if a.Name != b.Name || a.Description != b.Description || a.Type != b.Type || a.Required != b.Required {
		return false
	}
	if len(a.Options) != len(b.Options) || len(a.Choices) != len(b.Choices) {
		return false
	}
	for i := range b.Options {
		if !optionsEqual(a.Options[i], b.Options[i]) {
			return false
		}
	}
	for i := range b.Choices {
		if a.Choices[i].Name != b.Choices[i].Name || a.Choices[i].Value != b.Choices[i].Value {
			return false
		}
	}
	return true
}
