package storeops

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/commands/core"
	"github.com/small-frappuccino/storeops/pkg/discord/panel"
	"github.com/small-frappuccino/storeops/pkg/ops"
)

// SettingsHandler serves the ⚙ buttons on the settings panel: an ephemeral
// per-store view with role selects, the item-list modal, and a panel refresh.
// Every change persists the config document and re-renders the store panel so
// the message and the document never drift.
type SettingsHandler struct {
	configs  *ops.ConfigStore
	upserter *panel.Upserter
}

// NewSettingsHandler wires the handler.
func NewSettingsHandler(configs *ops.ConfigStore, upserter *panel.Upserter) *SettingsHandler {
	return &SettingsHandler{configs: configs, upserter: upserter}
}

// Actions returns the component actions this handler serves.
func (h *SettingsHandler) Actions() []core.Action {
	return []core.Action{
		core.ActionSettings,
		core.ActionViewRoles, core.ActionReqRoles, core.ActionApprRoles,
		core.ActionItems, core.ActionItemsModal, core.ActionRefresh,
	}
}

func (h *SettingsHandler) HandleComponent(ctx *core.Context, id core.CustomID) error {
	if !canManage(ctx.Member) {
		return core.NewCommandError("サーバー管理権限が必要です", true)
	}

	switch id.Action {
	case core.ActionSettings:
		return h.openSettings(ctx, id)
	case core.ActionViewRoles, core.ActionReqRoles, core.ActionApprRoles:
		return h.updateRoles(ctx, id)
	case core.ActionItems:
		return h.showItemsModal(ctx, id)
	case core.ActionItemsModal:
		return h.updateItems(ctx, id)
	case core.ActionRefresh:
		return h.refreshPanel(ctx, id)
	}
	return core.NewCommandError("This control is no longer supported", true)
}

func roleSelect(id core.CustomID, action core.Action, placeholder string) discordgo.MessageComponent {
	zero := 0
	sel := core.CustomID{Feature: id.Feature, Role: core.RoleAdmin, Action: action, StoreID: id.StoreID}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.RoleSelectMenu,
			CustomID:    sel.Encode(),
			Placeholder: placeholder,
			MinValues:   &zero,
			MaxValues:   10,
		},
	}}
}

// openSettings shows the ephemeral settings view for one store.
func (h *SettingsHandler) openSettings(ctx *core.Context, id core.CustomID) error {
	storeCfg, err := h.configs.LoadStoreConfig(ctx.Ctx, ctx.GuildID, id.Feature, id.StoreID)
	if err != nil {
		return err
	}

	items := "未設定"
	if len(storeCfg.Items) > 0 {
		items = strings.Join(storeCfg.Items, " / ")
	}
	content := fmt.Sprintf("**%s — %s 設定**\n品目: %s\nロールの選択はすぐに保存されます。",
		id.Feature.Label(), storeCfg.Name, items)

	itemsID := core.CustomID{Feature: id.Feature, Role: core.RoleAdmin, Action: core.ActionItems, StoreID: id.StoreID}
	refreshID := core.CustomID{Feature: id.Feature, Role: core.RoleAdmin, Action: core.ActionRefresh, StoreID: id.StoreID}
	components := []discordgo.MessageComponent{
		roleSelect(id, core.ActionViewRoles, "閲覧できるロール"),
		roleSelect(id, core.ActionReqRoles, "申請できるロール"),
		roleSelect(id, core.ActionApprRoles, "承認できるロール"),
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "品目を編集", Style: discordgo.SecondaryButton, CustomID: itemsID.Encode()},
			discordgo.Button{Label: "パネルを再生成", Style: discordgo.SecondaryButton, CustomID: refreshID.Encode()},
		}},
	}
	return ctx.Responder.EphemeralWithComponents(ctx.Interaction, content, components)
}

// updateRoles persists a role-select change. Approver roles live on the guild
// document; view and request roles live on the store document.
func (h *SettingsHandler) updateRoles(ctx *core.Context, id core.CustomID) error {
	if err := ctx.Responder.DeferUpdate(ctx.Interaction); err != nil {
		return err
	}
	selected := ctx.Interaction.MessageComponentData().Values

	var label string
	switch id.Action {
	case core.ActionApprRoles:
		label = "承認ロール"
		if _, err := h.configs.UpdateGuildConfig(ctx.Ctx, ctx.GuildID, id.Feature, func(cfg *ops.GuildFeatureConfig) error {
			cfg.ApproverRoleIDs = selected
			return nil
		}); err != nil {
			return err
		}
	default:
		if _, err := h.configs.UpdateStoreConfig(ctx.Ctx, ctx.GuildID, id.Feature, id.StoreID, func(cfg *ops.StoreConfig) error {
			if id.Action == core.ActionViewRoles {
				label = "閲覧ロール"
				cfg.ViewRoleIDs = selected
			} else {
				label = "申請ロール"
				cfg.RequestRoleIDs = selected
			}
			return nil
		}); err != nil {
			return err
		}
	}

	return ctx.Responder.FollowUp(ctx.Interaction,
		fmt.Sprintf("✅ %s の%sを更新しました (%d件)", id.StoreID, label, len(selected)), true)
}

func (h *SettingsHandler) showItemsModal(ctx *core.Context, id core.CustomID) error {
	storeCfg, err := h.configs.LoadStoreConfig(ctx.Ctx, ctx.GuildID, id.Feature, id.StoreID)
	if err != nil {
		return err
	}

	modalID := core.CustomID{Feature: id.Feature, Role: core.RoleAdmin, Action: core.ActionItemsModal, StoreID: id.StoreID}
	return ctx.Responder.Modal(ctx.Interaction, modalID.Encode(), "品目の編集", []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    "items",
				Label:       "品目 (1行に1つ)",
				Style:       discordgo.TextInputParagraph,
				Value:       strings.Join(storeCfg.Items, "\n"),
				Placeholder: "仕入\n消耗品\n光熱費",
			},
		}},
	})
}

func (h *SettingsHandler) updateItems(ctx *core.Context, id core.CustomID) error {
	if err := ctx.Responder.Defer(ctx.Interaction, true); err != nil {
		return err
	}

	raw := core.ModalValues(ctx.Interaction.ModalSubmitData())["items"]
	var items []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}

	if _, err := h.configs.UpdateStoreConfig(ctx.Ctx, ctx.GuildID, id.Feature, id.StoreID, func(cfg *ops.StoreConfig) error {
		cfg.Items = items
		return nil
	}); err != nil {
		return err
	}

	// The panel shows the item list, so it has to follow the document.
	if _, err := h.upserter.UpsertStorePanel(ctx.Ctx, ctx.GuildID, id.Feature, id.StoreID, ""); err != nil {
		return err
	}
	return ctx.Responder.EditDeferred(ctx.Interaction,
		fmt.Sprintf("✅ %s の品目を更新しました (%d件)", id.StoreID, len(items)))
}

func (h *SettingsHandler) refreshPanel(ctx *core.Context, id core.CustomID) error {
	if err := ctx.Responder.Defer(ctx.Interaction, true); err != nil {
		return err
	}
	ref, err := h.upserter.UpsertStorePanel(ctx.Ctx, ctx.GuildID, id.Feature, id.StoreID, "")
	if err != nil {
		return err
	}
	return ctx.Responder.EditDeferred(ctx.Interaction,
		fmt.Sprintf("✅ %s のパネルを再生成しました (<#%s>)", id.StoreID, ref.ChannelID))
}
