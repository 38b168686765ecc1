package lifecycle

import (
	"fmt"
	"regexp"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/gateway"
	"github.com/small-frappuccino/storeops/pkg/discord/panel"
	"github.com/small-frappuccino/storeops/pkg/log"
	"github.com/small-frappuccino/storeops/pkg/ops"
)

// Each record is mirrored to a one-line channel log and an admin-log embed.
// Status transitions patch the existing messages rather than posting new
// ones, so the channel history stays one line per record.

var (
	statusToken   = regexp.MustCompile(`状態:\S+`)
	approverToken = regexp.MustCompile(`承認者:\S+`)
)

// updateChannelLog patches the record's channel log line. On a status-only
// transition the 状態/承認者 tokens are replaced in place; rebuild forces the
// whole line to be regenerated (after a modify changed other fields). When
// the stored message id is stale a bounded scan relinks by line prefix.
// Returns the (possibly relinked) message id, or "" with an error when the
// line could not be updated.
func updateChannelLog(gw gateway.Gateway, channelID string, f ops.Feature, storeName string, rec *ops.RequestRecord, rebuild bool) (string, error) {
	msgID := rec.ChannelLogID
	var msg *discordgo.Message
	var err error

	if msgID != "" {
		msg, err = gw.Message(channelID, msgID)
	}
	if msgID == "" || err != nil {
		prefix := fmt.Sprintf("【%s】%s %s", f.Label(), rec.Date, storeName)
		if found := relinkByContentPrefix(gw, channelID, prefix); found != nil {
			log.DiscordLogger().Info("Relinked stale channel log message",
				"channelID", channelID, "old", msgID, "new", found.ID)
			msg = found
			msgID = found.ID
		} else {
			return "", fmt.Errorf("channel log message not found for record %s", rec.ID)
		}
	}

	content := msg.Content
	if rebuild {
		content = panel.ChannelLogLine(f, storeName, rec)
	} else {
		content = statusToken.ReplaceAllString(content, "状態:"+rec.Status.Label())
		approver := "-"
		if rec.ApproverName != "" {
			approver = rec.ApproverName
		}
		content = approverToken.ReplaceAllString(content, "承認者:"+approver)
	}

	edit := discordgo.NewMessageEdit(channelID, msgID)
	edit.SetContent(content)
	if _, err := gw.EditMessage(edit); err != nil {
		return "", fmt.Errorf("edit channel log message: %w", err)
	}
	return msgID, nil
}

// updateAdminLog patches the record's admin-log embed in place. Stale ids
// are relinked by embed title. Returns the (possibly relinked) message id.
func updateAdminLog(gw gateway.Gateway, channelID string, f ops.Feature, storeName string, rec *ops.RequestRecord) (string, error) {
	if channelID == "" {
		return "", nil
	}

	msgID := rec.AdminLogID
	var msg *discordgo.Message
	var err error

	if msgID != "" {
		msg, err = gw.Message(channelID, msgID)
	}
	if msgID == "" || err != nil {
		title := panel.RecordTitle(f, storeName, rec.Date)
		if found := relinkByEmbedTitle(gw, channelID, title); found != nil {
			log.DiscordLogger().Info("Relinked stale admin log message",
				"channelID", channelID, "old", msgID, "new", found.ID)
			msg = found
			msgID = found.ID
		} else {
			return "", fmt.Errorf("admin log message not found for record %s", rec.ID)
		}
	}

	if len(msg.Embeds) == 0 {
		return "", fmt.Errorf("admin log message %s has no embed", msgID)
	}
	embed := msg.Embeds[0]
	patchEmbed(embed, f, rec)

	edit := discordgo.NewMessageEdit(channelID, msgID)
	edit.SetEmbeds([]*discordgo.MessageEmbed{embed})
	if _, err := gw.EditMessage(edit); err != nil {
		return "", fmt.Errorf("edit admin log message: %w", err)
	}
	return msgID, nil
}
