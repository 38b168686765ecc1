package panel

import (
	"context"
	"fmt"

	"github.com/small-frappuccino/storeops/pkg/discord/gateway"
	"github.com/small-frappuccino/storeops/pkg/log"
	"github.com/small-frappuccino/storeops/pkg/ops"
)

// Upserter reconciles panel messages with their config documents: edit in
// place when the stored reference is live, otherwise send fresh, persist the
// new reference, and best-effort delete the stale message. After a
// successful upsert the stored PanelRef points at a message rendering the
// latest document; a transient duplicate is possible when deleting the old
// message fails, and is logged rather than retried.
type Upserter struct {
	gw      gateway.Gateway
	configs *ops.ConfigStore
}

// NewUpserter creates an Upserter.
func NewUpserter(gw gateway.Gateway, configs *ops.ConfigStore) *Upserter {
	return &Upserter{gw: gw, configs: configs}
}

// UpsertStorePanel reconciles one store's panel message. channelID overrides
// the stored channel when non-empty (panel placement or move).
func (u *Upserter) UpsertStorePanel(ctx context.Context, guildID string, f ops.Feature, storeID, channelID string) (ops.PanelRef, error) {
	storeCfg, err := u.configs.LoadStoreConfig(ctx, guildID, f, storeID)
	if err != nil {
		return ops.PanelRef{}, err
	}
	if channelID == "" {
		channelID = storeCfg.ChannelID
	}
	if channelID == "" {
		return ops.PanelRef{}, fmt.Errorf("store %s has no panel channel configured", storeID)
	}

	payload := RenderStorePanel(f, storeCfg)
	ref, err := u.reconcile(payload, channelID, storeCfg.Panel())
	if err != nil {
		return ops.PanelRef{}, err
	}

	if _, err := u.configs.UpdateStoreConfig(ctx, guildID, f, storeID, func(cfg *ops.StoreConfig) error {
		cfg.ChannelID = ref.ChannelID
		cfg.MessageID = ref.MessageID
		return nil
	}); err != nil {
		return ops.PanelRef{}, err
	}
	if _, err := u.configs.UpdateGuildConfig(ctx, guildID, f, func(cfg *ops.GuildFeatureConfig) error {
		cfg.Stores[storeID] = ref
		return nil
	}); err != nil {
		return ops.PanelRef{}, err
	}
	return ref, nil
}

// UpsertSettingsPanel reconciles the feature's settings panel message.
func (u *Upserter) UpsertSettingsPanel(ctx context.Context, guildID string, f ops.Feature, channelID string) (ops.PanelRef, error) {
	guildCfg, err := u.configs.LoadGuildConfig(ctx, guildID, f)
	if err != nil {
		return ops.PanelRef{}, err
	}
	if channelID == "" {
		channelID = guildCfg.SettingsPanel.ChannelID
	}
	if channelID == "" {
		return ops.PanelRef{}, fmt.Errorf("no settings panel channel configured for %s", f)
	}

	payload := RenderSettingsPanel(f, guildCfg)
	ref, err := u.reconcile(payload, channelID, guildCfg.SettingsPanel)
	if err != nil {
		return ops.PanelRef{}, err
	}

	if _, err := u.configs.UpdateGuildConfig(ctx, guildID, f, func(cfg *ops.GuildFeatureConfig) error {
		cfg.SettingsPanel = ref
		return nil
	}); err != nil {
		return ops.PanelRef{}, err
	}
	return ref, nil
}

// reconcile performs the edit-or-resend step against a prior reference.
func (u *Upserter) reconcile(payload MessagePayload, channelID string, prior ops.PanelRef) (ops.PanelRef, error) {
	priorLive := false
	if prior.MessageID != "" {
		if _, err := u.gw.Message(prior.ChannelID, prior.MessageID); err == nil {
			priorLive = true
		} else {
			log.DiscordLogger().Warn("Stored panel message is stale, recreating",
				"channelID", prior.ChannelID, "messageID", prior.MessageID)
		}
	}

	if priorLive && prior.ChannelID == channelID {
		if _, err := u.gw.EditMessage(payload.ToEdit(prior.ChannelID, prior.MessageID)); err != nil {
			return ops.PanelRef{}, fmt.Errorf("edit panel message: %w", err)
		}
		return prior, nil
	}

	msg, err := u.gw.SendMessage(channelID, payload.ToSend())
	if err != nil {
		return ops.PanelRef{}, fmt.Errorf("send panel message: %w", err)
	}
	ref := ops.PanelRef{ChannelID: channelID, MessageID: msg.ID}

	// A live old panel in another channel gets replaced: deletion is best
	// effort, a leftover duplicate is tolerated.
	if priorLive && prior.MessageID != msg.ID {
		if err := u.gw.DeleteMessage(prior.ChannelID, prior.MessageID); err != nil {
			log.DiscordLogger().Warn("Failed to delete replaced panel message",
				"channelID", prior.ChannelID, "messageID", prior.MessageID, "error", err)
		}
	}
	return ref, nil
}
