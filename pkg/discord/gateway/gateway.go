package gateway

import (
	"github.com/bwmarrin/discordgo"
)

// Gateway is the capability surface the bot needs from the chat platform.
// Handlers and the lifecycle controller depend on this interface rather than
// a process-wide session, so tests can substitute an in-memory fake.
type Gateway interface {
	Message(channelID, messageID string) (*discordgo.Message, error)
	SendMessage(channelID string, send *discordgo.MessageSend) (*discordgo.Message, error)
	EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error)
	DeleteMessage(channelID, messageID string) error
	RecentMessages(channelID string, limit int) ([]*discordgo.Message, error)

	StartThread(channelID, name string) (*discordgo.Channel, error)
	ActiveThreads(guildID string) ([]*discordgo.Channel, error)
	AddThreadMember(threadID, userID string) error

	GuildMembers(guildID string) ([]*discordgo.Member, error)
}

// SessionGateway adapts a discordgo session to the Gateway interface.
type SessionGateway struct {
	session *discordgo.Session
}

// NewSessionGateway wraps an authenticated session.
func NewSessionGateway(session *discordgo.Session) *SessionGateway {
	return &SessionGateway{session: session}
}

func (g *SessionGateway) Message(channelID, messageID string) (*discordgo.Message, error) {
	return g.session.ChannelMessage(channelID, messageID)
}

func (g *SessionGateway) SendMessage(channelID string, send *discordgo.MessageSend) (*discordgo.Message, error) {
	return g.session.ChannelMessageSendComplex(channelID, send)
}

func (g *SessionGateway) EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	return g.session.ChannelMessageEditComplex(edit)
}

func (g *SessionGateway) DeleteMessage(channelID, messageID string) error {
	return g.session.ChannelMessageDelete(channelID, messageID)
}

func (g *SessionGateway) RecentMessages(channelID string, limit int) ([]*discordgo.Message, error) {
	return g.session.ChannelMessages(channelID, limit, "", "", "")
}

func (g *SessionGateway) StartThread(channelID, name string) (*discordgo.Channel, error) {
	return g.session.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: 10080, // one week
		Type:                discordgo.ChannelTypeGuildPublicThread,
	})
}

func (g *SessionGateway) ActiveThreads(guildID string) ([]*discordgo.Channel, error) {
	list, err := g.session.GuildThreadsActive(guildID)
	if err != nil {
		return nil, err
	}
	return list.Threads, nil
}

func (g *SessionGateway) AddThreadMember(threadID, userID string) error {
	return g.session.ThreadMemberAdd(threadID, userID)
}

func (g *SessionGateway) GuildMembers(guildID string) ([]*discordgo.Member, error) {
	return g.session.GuildMembers(guildID, "", 1000)
}
