package storeops

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/commands/core"
	"github.com/small-frappuccino/storeops/pkg/discord/panel"
	"github.com/small-frappuccino/storeops/pkg/discord/roles"
	"github.com/small-frappuccino/storeops/pkg/log"
	"github.com/small-frappuccino/storeops/pkg/ops"
	"github.com/small-frappuccino/storeops/pkg/storage"
)

var featureChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "経費", Value: string(ops.FeatureExpense)},
	{Name: "売上", Value: string(ops.FeatureSales)},
}

// Command is the /storeops slash command: panel placement, guild settings,
// CSV export, and the audit trail.
type Command struct {
	configs  *ops.ConfigStore
	upserter *panel.Upserter
	exporter *ops.Exporter
	audit    *storage.AuditStore // optional
}

// NewCommand wires the command. audit may be nil.
func NewCommand(configs *ops.ConfigStore, upserter *panel.Upserter, exporter *ops.Exporter, audit *storage.AuditStore) *Command {
	return &Command{configs: configs, upserter: upserter, exporter: exporter, audit: audit}
}

func (c *Command) Name() string        { return "storeops" }
func (c *Command) Description() string { return "経費・売上申請の管理" }
func (c *Command) RequiresGuild() bool { return true }

func (c *Command) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "setup",
			Description: "店舗パネルを設置または更新する",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "feature", Description: "対象の申請種別", Required: true, Choices: featureChoices},
				{Type: discordgo.ApplicationCommandOptionString, Name: "store", Description: "店舗ID", Required: true},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "パネルを設置するチャンネル", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "店舗の表示名"},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "settings",
			Description: "設定パネルと管理ログを構成する",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "feature", Description: "対象の申請種別", Required: true, Choices: featureChoices},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "設定パネルを設置するチャンネル"},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "adminlog", Description: "管理ログを送るチャンネル"},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "export",
			Description: "承認済みの申請をCSVに出力する",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "feature", Description: "対象の申請種別", Required: true, Choices: featureChoices},
				{Type: discordgo.ApplicationCommandOptionString, Name: "store", Description: "店舗ID", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "granularity", Description: "集計単位", Required: true, Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "日次", Value: string(ops.GranularityDaily)},
					{Name: "月次", Value: string(ops.GranularityMonthly)},
					{Name: "四半期", Value: string(ops.GranularityQuarterly)},
				}},
				{Type: discordgo.ApplicationCommandOptionString, Name: "period", Description: "期間 (YYYY-MM-DD / YYYY-MM / YYYY-Qn)", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "audit",
			Description: "最近の状態変更履歴を表示する",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "count", Description: "表示件数 (既定10)"},
			},
		},
	}
}

func (c *Command) Handle(ctx *core.Context) error {
	opts := core.SubCommandOptions(ctx.Interaction)

	switch core.SubCommandName(ctx.Interaction) {
	case "setup":
		return c.handleSetup(ctx, opts)
	case "settings":
		return c.handleSettings(ctx, opts)
	case "export":
		return c.handleExport(ctx, opts)
	case "audit":
		return c.handleAudit(ctx, opts)
	}
	return core.NewCommandError("Unknown subcommand", true)
}

func canManage(member *discordgo.Member) bool {
	return member != nil && member.Permissions&discordgo.PermissionManageServer != 0
}

func (c *Command) handleSetup(ctx *core.Context, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	if !canManage(ctx.Member) {
		return core.NewCommandError("サーバー管理権限が必要です", true)
	}
	f, err := ops.ParseFeature(core.StringOption(opts, "feature"))
	if err != nil {
		return core.NewValidationError("feature", "経費か売上を選択してください")
	}
	storeID := core.StringOption(opts, "store")
	channelID := core.ChannelOption(opts, "channel")
	if storeID == "" || channelID == "" {
		return core.NewValidationError("store", "店舗IDとチャンネルは必須です")
	}

	if err := ctx.Responder.Defer(ctx.Interaction, true); err != nil {
		return err
	}

	if name := core.StringOption(opts, "name"); name != "" {
		if _, err := c.configs.UpdateStoreConfig(ctx.Ctx, ctx.GuildID, f, storeID, func(cfg *ops.StoreConfig) error {
			cfg.Name = name
			return nil
		}); err != nil {
			return err
		}
	}

	ref, err := c.upserter.UpsertStorePanel(ctx.Ctx, ctx.GuildID, f, storeID, channelID)
	if err != nil {
		return err
	}

	// The settings panel lists stores, so a new store should show up there.
	if _, err := c.upserter.UpsertSettingsPanel(ctx.Ctx, ctx.GuildID, f, ""); err != nil {
		log.DiscordLogger().Info("Settings panel not refreshed after setup", "guildID", ctx.GuildID, "feature", f, "reason", err)
	}

	return ctx.Responder.EditDeferred(ctx.Interaction,
		fmt.Sprintf("✅ %s の%sパネルを <#%s> に設置しました", storeID, f.Label(), ref.ChannelID))
}

func (c *Command) handleSettings(ctx *core.Context, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	if !canManage(ctx.Member) {
		return core.NewCommandError("サーバー管理権限が必要です", true)
	}
	f, err := ops.ParseFeature(core.StringOption(opts, "feature"))
	if err != nil {
		return core.NewValidationError("feature", "経費か売上を選択してください")
	}
	channelID := core.ChannelOption(opts, "channel")
	adminLogID := core.ChannelOption(opts, "adminlog")

	if err := ctx.Responder.Defer(ctx.Interaction, true); err != nil {
		return err
	}

	var lines []string
	if adminLogID != "" {
		if _, err := c.configs.UpdateGuildConfig(ctx.Ctx, ctx.GuildID, f, func(cfg *ops.GuildFeatureConfig) error {
			cfg.AdminLogChannelID = adminLogID
			return nil
		}); err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("管理ログ: <#%s>", adminLogID))
	}

	guildCfg, err := c.configs.LoadGuildConfig(ctx.Ctx, ctx.GuildID, f)
	if err != nil {
		return err
	}
	if channelID != "" || !guildCfg.SettingsPanel.IsZero() {
		ref, err := c.upserter.UpsertSettingsPanel(ctx.Ctx, ctx.GuildID, f, channelID)
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("設定パネル: <#%s>", ref.ChannelID))
	}

	if len(lines) == 0 {
		return ctx.Responder.EditDeferred(ctx.Interaction, "変更はありません。channel か adminlog を指定してください。")
	}
	return ctx.Responder.EditDeferred(ctx.Interaction, "✅ 更新しました\n"+strings.Join(lines, "\n"))
}

func (c *Command) handleExport(ctx *core.Context, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	f, err := ops.ParseFeature(core.StringOption(opts, "feature"))
	if err != nil {
		return core.NewValidationError("feature", "経費か売上を選択してください")
	}
	storeID := core.StringOption(opts, "store")
	g, err := ops.ParseGranularity(core.StringOption(opts, "granularity"))
	if err != nil {
		return core.NewValidationError("granularity", "日次・月次・四半期から選択してください")
	}
	period := core.StringOption(opts, "period")

	guildCfg, err := c.configs.LoadGuildConfig(ctx.Ctx, ctx.GuildID, f)
	if err != nil {
		return err
	}
	storeCfg, err := c.configs.LoadStoreConfig(ctx.Ctx, ctx.GuildID, f, storeID)
	if err != nil {
		return err
	}
	checker := roles.NewChecker(guildCfg, storeCfg)
	if !checker.CanApprove(ctx.Member) && !canManage(ctx.Member) {
		return core.NewCommandError("CSV出力は承認者のみ実行できます", true)
	}

	if err := ctx.Responder.Defer(ctx.Interaction, true); err != nil {
		return err
	}

	scope := ops.LedgerScope{GuildID: ctx.GuildID, Feature: f, StoreID: storeID}
	if _, err := ops.PeriodDays(g, period); err != nil {
		return core.NewValidationError("period", "YYYY-MM-DD / YYYY-MM / YYYY-Qn 形式で入力してください")
	}

	export, url, err := c.exporter.Export(ctx.Ctx, scope, g, period)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("✅ %s を出力しました", export.FileName)
	if url != "" {
		msg += "\n" + url
	}
	return ctx.Responder.EditDeferred(ctx.Interaction, msg)
}

func (c *Command) handleAudit(ctx *core.Context, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	if !canManage(ctx.Member) {
		return core.NewCommandError("サーバー管理権限が必要です", true)
	}
	if c.audit == nil {
		return core.NewCommandError("監査履歴はこの環境では無効です", true)
	}

	if err := ctx.Responder.Defer(ctx.Interaction, true); err != nil {
		return err
	}

	count := core.IntOption(opts, "count")
	transitions, err := c.audit.Recent(ctx.GuildID, count)
	if err != nil {
		return err
	}
	if len(transitions) == 0 {
		return ctx.Responder.EditDeferred(ctx.Interaction, "履歴はまだありません")
	}

	var sb strings.Builder
	for _, t := range transitions {
		prev := t.PrevStatus
		if prev == "" {
			prev = "-"
		}
		fmt.Fprintf(&sb, "`%s` %s/%s %s %s→%s by %s\n",
			t.At.Format("2006-01-02 15:04"), t.Feature, t.StoreID, t.Action, prev, t.NextStatus, t.ActorName)
	}
	return ctx.Responder.EditDeferred(ctx.Interaction, sb.String())
}
