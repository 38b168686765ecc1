package gateway

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/log"
)

// NewDiscordSession authenticates and opens a gateway connection.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}

	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages

	log.DiscordLogger().Info("Connecting to Discord")
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("failed to connect to Discord: %w", err)
	}
	if s.State == nil || s.State.User == nil {
		_ = s.Close()
		return nil, fmt.Errorf("discord session state not properly initialized")
	}
	log.DiscordLogger().Info("Authenticated", "user", s.State.User.Username)
	return s, nil
}
