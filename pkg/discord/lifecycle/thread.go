package lifecycle

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/gateway"
	"github.com/small-frappuccino/storeops/pkg/discord/roles"
	"github.com/small-frappuccino/storeops/pkg/log"
	"github.com/small-frappuccino/storeops/pkg/ops"
)

// ThreadName is the deterministic per-month thread naming convention. One
// thread per (month, store, feature) bounds thread growth.
func ThreadName(yearMonth, storeName string, f ops.Feature) string {
	return fmt.Sprintf("%s-%s-%s", yearMonth, storeName, f)
}

// findOrCreateThread locates the month's thread under the store channel, or
// creates it and invites the permitted members.
func findOrCreateThread(gw gateway.Gateway, guildID, channelID, name string, checker *roles.Checker) (*discordgo.Channel, error) {
	threads, err := gw.ActiveThreads(guildID)
	if err != nil {
		log.DiscordLogger().Warn("Could not list active threads, creating fresh", "guildID", guildID, "error", err)
	} else {
		for _, th := range threads {
			if th.Name == name && th.ParentID == channelID {
				return th, nil
			}
		}
	}

	thread, err := gw.StartThread(channelID, name)
	if err != nil {
		return nil, fmt.Errorf("create thread %q: %w", name, err)
	}
	addPermittedMembers(gw, guildID, thread.ID, checker)
	return thread, nil
}

// addPermittedMembers invites everyone holding a view, request, or approver
// role. Failures are logged; the thread still works without the invite.
func addPermittedMembers(gw gateway.Gateway, guildID, threadID string, checker *roles.Checker) {
	members, err := gw.GuildMembers(guildID)
	if err != nil {
		log.DiscordLogger().Warn("Could not enumerate members for thread invite", "guildID", guildID, "error", err)
		return
	}

	for _, m := range members {
		if m.User == nil || m.User.Bot {
			continue
		}
		if !roles.HasAnyRole(m, checker.ViewRoles) &&
			!roles.HasAnyRole(m, checker.RequestRoles) &&
			!roles.HasAnyRole(m, checker.ApproverRoles) {
			continue
		}
		if err := gw.AddThreadMember(threadID, m.User.ID); err != nil {
			log.DiscordLogger().Warn("Could not add member to thread",
				"threadID", threadID, "userID", m.User.ID, "error", err)
		}
	}
}
