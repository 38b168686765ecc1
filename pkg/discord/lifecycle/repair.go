package lifecycle

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/gateway"
)

// Bounded repair for stale message references. A stored log-message id can go
// stale when a message is deleted or the channel is purged out-of-band; the
// stored id stays the "last known good" pointer, and these scans are the only
// place recovery-by-content happens.

const repairScanLimit = 50

// relinkByContentPrefix scans the channel's most recent messages for one
// whose content starts with prefix. Returns nil when nothing matches.
func relinkByContentPrefix(gw gateway.Gateway, channelID, prefix string) *discordgo.Message {
	msgs, err := gw.RecentMessages(channelID, repairScanLimit)
	if err != nil {
		return nil
	}
	for _, m := range msgs {
		if strings.HasPrefix(m.Content, prefix) {
			return m
		}
	}
	return nil
}

// relinkByEmbedTitle scans the channel's most recent messages for one whose
// first embed carries the given title. Returns nil when nothing matches.
func relinkByEmbedTitle(gw gateway.Gateway, channelID, title string) *discordgo.Message {
	msgs, err := gw.RecentMessages(channelID, repairScanLimit)
	if err != nil {
		return nil
	}
	for _, m := range msgs {
		if len(m.Embeds) > 0 && m.Embeds[0].Title == title {
			return m
		}
	}
	return nil
}
