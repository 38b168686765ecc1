package panel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/commands/core"
	"github.com/small-frappuccino/storeops/pkg/ops"
)

// Rendering is pure: the same documents always produce the same payload, so
// re-rendering after an unrelated config change never perturbs other fields.

// Embed colors.
const (
	colorExpense  = 0x2b6cb0
	colorSales    = 0x2f855a
	colorApproved = 0x38a169
	colorDeleted  = 0x718096
	colorSettings = 0x805ad5
)

// Embed field names the lifecycle controller mutates in place.
const (
	FieldStatus   = "状態"
	FieldApprover = "承認者"
)

// MessagePayload is a renderer result, convertible to a send or an edit.
type MessagePayload struct {
	Content    string
	Embed      *discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

// ToSend converts the payload into a MessageSend.
func (p MessagePayload) ToSend() *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: p.Content, Components: p.Components}
	if p.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{p.Embed}
	}
	return send
}

// ToEdit converts the payload into a MessageEdit targeting an existing message.
func (p MessagePayload) ToEdit(channelID, messageID string) *discordgo.MessageEdit {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.SetContent(p.Content)
	if p.Embed != nil {
		edit.SetEmbeds([]*discordgo.MessageEmbed{p.Embed})
	} else {
		edit.SetEmbeds([]*discordgo.MessageEmbed{})
	}
	edit.Components = &p.Components
	return edit
}

func featureColor(f ops.Feature) int {
	if f == ops.FeatureSales {
		return colorSales
	}
	return colorExpense
}

// PanelTitle is the deterministic store-panel title, also used by the repair
// scan to recognize orphaned panels.
func PanelTitle(f ops.Feature, storeName string) string {
	return fmt.Sprintf("%sパネル — %s", f.Label(), storeName)
}

// RenderStorePanel builds the store panel: one embed describing the store
// plus the submit button.
func RenderStorePanel(f ops.Feature, storeCfg *ops.StoreConfig) MessagePayload {
	items := "未設定"
	if len(storeCfg.Items) > 0 {
		items = strings.Join(storeCfg.Items, " / ")
	}

	embed := &discordgo.MessageEmbed{
		Title: PanelTitle(f, storeCfg.Name),
		Color: featureColor(f),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "店舗ID", Value: storeCfg.StoreID, Inline: true},
			{Name: "品目", Value: items, Inline: false},
		},
	}

	submit := core.CustomID{Feature: f, Role: core.RoleRequester, Action: core.ActionSubmit, StoreID: storeCfg.StoreID}
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    f.Label() + "を申請する",
				Style:    discordgo.PrimaryButton,
				CustomID: submit.Encode(),
			},
		}},
	}
	return MessagePayload{Embed: embed, Components: components}
}

// SettingsPanelTitle is the deterministic settings-panel title.
func SettingsPanelTitle(f ops.Feature) string {
	return fmt.Sprintf("%s設定パネル", f.Label())
}

// RenderSettingsPanel builds the feature's settings panel: store list plus a
// settings button per store. Store ids are sorted so the output is stable.
func RenderSettingsPanel(f ops.Feature, guildCfg *ops.GuildFeatureConfig) MessagePayload {
	storeIDs := make([]string, 0, len(guildCfg.Stores))
	for id := range guildCfg.Stores {
		storeIDs = append(storeIDs, id)
	}
	sort.Strings(storeIDs)

	value := "店舗は未登録です。/storeops setup で追加してください。"
	if len(storeIDs) > 0 {
		var sb strings.Builder
		for _, id := range storeIDs {
			ref := guildCfg.Stores[id]
			if ref.IsZero() {
				fmt.Fprintf(&sb, "• %s (パネル未設置)\n", id)
			} else {
				fmt.Fprintf(&sb, "• %s → <#%s>\n", id, ref.ChannelID)
			}
		}
		value = sb.String()
	}

	embed := &discordgo.MessageEmbed{
		Title: SettingsPanelTitle(f),
		Color: colorSettings,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "店舗一覧", Value: value},
		},
	}

	var components []discordgo.MessageComponent
	var row []discordgo.MessageComponent
	for _, id := range storeIDs {
		settings := core.CustomID{Feature: f, Role: core.RoleAdmin, Action: core.ActionSettings, StoreID: id}
		row = append(row, discordgo.Button{
			Label:    "⚙ " + id,
			Style:    discordgo.SecondaryButton,
			CustomID: settings.Encode(),
		})
		if len(row) == 5 {
			components = append(components, discordgo.ActionsRow{Components: row})
			row = nil
		}
		if len(components) == 5 {
			break
		}
	}
	if len(row) > 0 && len(components) < 5 {
		components = append(components, discordgo.ActionsRow{Components: row})
	}
	return MessagePayload{Embed: embed, Components: components}
}

// RecordTitle is the deterministic thread-message title for a record.
func RecordTitle(f ops.Feature, storeName, date string) string {
	return fmt.Sprintf("%s — %s %s", f.Label(), storeName, date)
}

// RenderRecordEmbed builds the embed displayed in the thread and mirrored to
// the admin log.
func RenderRecordEmbed(f ops.Feature, storeName string, rec *ops.RequestRecord) *discordgo.MessageEmbed {
	color := featureColor(f)
	switch rec.Status {
	case ops.StatusApproved:
		color = colorApproved
	case ops.StatusDeleted:
		color = colorDeleted
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "日付", Value: rec.Date, Inline: true},
	}
	if f == ops.FeatureSales {
		fields = append(fields,
			&discordgo.MessageEmbedField{Name: "売上合計", Value: yen(rec.Total), Inline: true},
			&discordgo.MessageEmbedField{Name: "カード", Value: yen(rec.Card), Inline: true},
			&discordgo.MessageEmbedField{Name: "経費", Value: yen(rec.Cost), Inline: true},
			&discordgo.MessageEmbedField{Name: "残金", Value: yen(rec.Remain()), Inline: true},
		)
	} else {
		fields = append(fields,
			&discordgo.MessageEmbedField{Name: "品目", Value: orDash(rec.Item), Inline: true},
			&discordgo.MessageEmbedField{Name: "部門", Value: orDash(rec.Department), Inline: true},
			&discordgo.MessageEmbedField{Name: "金額", Value: yen(rec.Amount), Inline: true},
		)
	}
	fields = append(fields,
		&discordgo.MessageEmbedField{Name: "備考", Value: orDash(rec.Note), Inline: false},
		&discordgo.MessageEmbedField{Name: "申請者", Value: orDash(rec.RequesterName), Inline: true},
		&discordgo.MessageEmbedField{Name: FieldStatus, Value: rec.Status.Label(), Inline: true},
		&discordgo.MessageEmbedField{Name: FieldApprover, Value: approverValue(rec), Inline: true},
	)

	return &discordgo.MessageEmbed{
		Title:  RecordTitle(f, storeName, rec.Date),
		Color:  color,
		Fields: fields,
	}
}

func approverValue(rec *ops.RequestRecord) string {
	if rec.ApproverName == "" {
		return "-"
	}
	if rec.ApprovedAt != "" {
		return fmt.Sprintf("%s (%s)", rec.ApproverName, rec.ApprovedAt)
	}
	return rec.ApproverName
}

func yen(v int) string { return fmt.Sprintf("%d円", v) }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RecordButtons builds the lifecycle button row for a record. Terminal
// records get no row: the remaining actions would all be invalid.
func RecordButtons(f ops.Feature, storeID, threadID, messageID string, status ops.Status) []discordgo.MessageComponent {
	if status.Terminal() {
		return []discordgo.MessageComponent{}
	}

	id := func(action core.Action) string {
		return core.CustomID{
			Feature: f, Role: core.RoleApprover, Action: action, StoreID: storeID,
			ThreadID: threadID, MessageID: messageID, Status: status,
		}.Encode()
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "承認", Style: discordgo.SuccessButton, CustomID: id(core.ActionApprove)},
			discordgo.Button{Label: "修正", Style: discordgo.SecondaryButton, CustomID: id(core.ActionModify)},
			discordgo.Button{Label: "削除", Style: discordgo.DangerButton, CustomID: id(core.ActionDelete)},
		}},
	}
}

// ChannelLogLine is the one-line mirror posted to the store channel. The
// 状態 and 承認者 tokens are replaced in place on later transitions.
func ChannelLogLine(f ops.Feature, storeName string, rec *ops.RequestRecord) string {
	amount := rec.Amount
	if f == ops.FeatureSales {
		amount = rec.Total
	}
	return fmt.Sprintf("【%s】%s %s %d円 申請者:%s 状態:%s 承認者:%s",
		f.Label(), rec.Date, storeName, amount, orDash(rec.RequesterName),
		rec.Status.Label(), approverToken(rec))
}

func approverToken(rec *ops.RequestRecord) string {
	if rec.ApproverName == "" {
		return "-"
	}
	return rec.ApproverName
}
