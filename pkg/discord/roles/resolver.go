package roles

import (
	"regexp"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/ops"
)

// Positions are an indirection layer: per-store config stores abstract
// position ids ("approver", "floor-staff") and the guild document maps each
// to concrete role ids. Remapping a position touches one document instead of
// every store config.

// Resolve expands position ids through the guild's position map and merges
// them with directly configured role ids, de-duplicating while keeping first
// occurrence order.
func Resolve(positions map[string][]string, positionIDs, roleIDs []string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, id := range roleIDs {
		add(id)
	}
	for _, pos := range positionIDs {
		for _, id := range positions[pos] {
			add(id)
		}
	}
	return out
}

// HasAnyRole reports whether the member holds at least one of the allowed
// roles.
func HasAnyRole(member *discordgo.Member, allowed []string) bool {
	if member == nil {
		return false
	}
	for _, roleID := range member.Roles {
		if slices.Contains(allowed, roleID) {
			return true
		}
	}
	return false
}

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)

// ParseMention recovers a user id from a stored mention string. Ledgers
// written by the predecessor recorded requesters as mentions only.
func ParseMention(s string) string {
	m := mentionPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// isRequester reports whether the actor originally submitted the record.
func isRequester(actorID string, rec *ops.RequestRecord) bool {
	if actorID == "" || rec == nil {
		return false
	}
	if rec.RequesterID != "" {
		return rec.RequesterID == actorID
	}
	return ParseMention(rec.RequesterName) == actorID
}

// Checker answers permission questions for one (guild, feature, store)
// combination after resolving positions once.
type Checker struct {
	ApproverRoles []string
	RequestRoles  []string
	ViewRoles     []string
}

// NewChecker resolves the configured positions into concrete role sets.
func NewChecker(guildCfg *ops.GuildFeatureConfig, storeCfg *ops.StoreConfig) *Checker {
	return &Checker{
		ApproverRoles: Resolve(guildCfg.Positions, guildCfg.ApproverPositionIDs, guildCfg.ApproverRoleIDs),
		RequestRoles:  Resolve(guildCfg.Positions, storeCfg.RequestPositionIDs, storeCfg.RequestRoleIDs),
		ViewRoles:     Resolve(guildCfg.Positions, storeCfg.ViewPositionIDs, storeCfg.ViewRoleIDs),
	}
}

// CanSubmit allows requesters, viewers, and approvers to file a record.
func (c *Checker) CanSubmit(member *discordgo.Member) bool {
	return HasAnyRole(member, c.RequestRoles) ||
		HasAnyRole(member, c.ViewRoles) ||
		HasAnyRole(member, c.ApproverRoles)
}

// CanApprove allows approvers only.
func (c *Checker) CanApprove(member *discordgo.Member) bool {
	return HasAnyRole(member, c.ApproverRoles)
}

// CanModify allows approvers and the original requester.
func (c *Checker) CanModify(member *discordgo.Member, actorID string, rec *ops.RequestRecord) bool {
	return HasAnyRole(member, c.ApproverRoles) || isRequester(actorID, rec)
}

// CanDelete allows approvers and the original requester.
func (c *Checker) CanDelete(member *discordgo.Member, actorID string, rec *ops.RequestRecord) bool {
	return HasAnyRole(member, c.ApproverRoles) || isRequester(actorID, rec)
}
