package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/commands/core"
	"github.com/small-frappuccino/storeops/pkg/discord/gateway"
	"github.com/small-frappuccino/storeops/pkg/discord/panel"
	"github.com/small-frappuccino/storeops/pkg/discord/roles"
	"github.com/small-frappuccino/storeops/pkg/log"
	"github.com/small-frappuccino/storeops/pkg/ops"
	"github.com/small-frappuccino/storeops/pkg/storage"
)

// Controller drives a record through submitted → modified → approved/deleted.
// Every transition mirrors the record into three places: the thread message,
// the store-channel log line, and the admin log; the daily ledger is the
// record of truth. Writes after the permission check are not rolled back on
// later failures; the system favors visible feedback over atomicity, and a
// lost mirror is repaired on the next transition by the bounded relink scan.
type Controller struct {
	gw       gateway.Gateway
	configs  *ops.ConfigStore
	ledgers  *ops.LedgerStore
	exporter *ops.Exporter
	audit    *storage.AuditStore // optional
}

// NewController wires the lifecycle controller. audit may be nil.
func NewController(gw gateway.Gateway, configs *ops.ConfigStore, ledgers *ops.LedgerStore, exporter *ops.Exporter, audit *storage.AuditStore) *Controller {
	return &Controller{gw: gw, configs: configs, ledgers: ledgers, exporter: exporter, audit: audit}
}

// Actor is the interacting user.
type Actor struct {
	ID     string
	Name   string
	Member *discordgo.Member
}

// Submission carries the validated form fields of a submit or modify.
type Submission struct {
	Date       string
	Amount     int
	Total      int
	Card       int
	Cost       int
	Department string
	Item       string
	Note       string
}

// Validate rejects malformed input before any write.
func (s Submission) Validate(f ops.Feature) error {
	if _, err := time.Parse("2006-01-02", s.Date); err != nil {
		return core.NewValidationError("日付", "YYYY-MM-DD 形式で入力してください")
	}
	if f == ops.FeatureSales {
		if s.Total <= 0 {
			return core.NewValidationError("売上合計", "正の金額を入力してください")
		}
		if s.Card < 0 || s.Cost < 0 {
			return core.NewValidationError("カード/経費", "負の金額は入力できません")
		}
		return nil
	}
	if s.Amount <= 0 {
		return core.NewValidationError("金額", "正の金額を入力してください")
	}
	return nil
}

const errPermissionDenied = "この操作を行う権限がありません"

// Submit files a new record: thread message, channel log line, admin log
// embed, ledger append, CSV refresh. Returned warnings describe partial-log
// failures that did not abort the submission.
func (c *Controller) Submit(ctx context.Context, guildID string, f ops.Feature, storeID string, sub Submission, actor Actor) (*ops.RequestRecord, []string, error) {
	guildCfg, err := c.configs.LoadGuildConfig(ctx, guildID, f)
	if err != nil {
		return nil, nil, err
	}
	storeCfg, err := c.configs.LoadStoreConfig(ctx, guildID, f, storeID)
	if err != nil {
		return nil, nil, err
	}
	checker := roles.NewChecker(guildCfg, storeCfg)

	if !checker.CanSubmit(actor.Member) {
		return nil, nil, core.NewCommandError(errPermissionDenied, true)
	}
	if err := sub.Validate(f); err != nil {
		return nil, nil, err
	}
	if storeCfg.ChannelID == "" {
		return nil, nil, core.NewCommandError("この店舗にはパネルが設置されていません", true)
	}

	rec := ops.RequestRecord{
		Status:        ops.StatusSubmitted,
		Date:          sub.Date,
		Amount:        sub.Amount,
		Total:         sub.Total,
		Card:          sub.Card,
		Cost:          sub.Cost,
		Department:    sub.Department,
		Item:          sub.Item,
		Note:          sub.Note,
		RequesterID:   actor.ID,
		RequesterName: actor.Name,
	}

	// One thread per calendar month per store bounds thread count.
	thread, err := findOrCreateThread(c.gw, guildID, storeCfg.ChannelID, ThreadName(sub.Date[:7], storeCfg.Name, f), checker)
	if err != nil {
		return nil, nil, err
	}
	rec.ThreadID = thread.ID

	// The record id must equal the id of the message displaying it, so the
	// embed is sent first and the buttons (which encode the id) follow in an
	// edit.
	embed := panel.RenderRecordEmbed(f, storeCfg.Name, &rec)
	msg, err := c.gw.SendMessage(thread.ID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	if err != nil {
		return nil, nil, fmt.Errorf("send record message: %w", err)
	}
	rec.ID = msg.ID

	edit := discordgo.NewMessageEdit(thread.ID, msg.ID)
	buttons := panel.RecordButtons(f, storeID, thread.ID, msg.ID, rec.Status)
	edit.Components = &buttons
	if _, err := c.gw.EditMessage(edit); err != nil {
		return nil, nil, fmt.Errorf("attach record buttons: %w", err)
	}

	var warnings []string

	logMsg, err := c.gw.SendMessage(storeCfg.ChannelID, &discordgo.MessageSend{
		Content: panel.ChannelLogLine(f, storeCfg.Name, &rec),
	})
	if err != nil {
		log.DiscordLogger().Warn("Channel log send failed", "recordID", rec.ID, "error", err)
		warnings = append(warnings, "チャンネルログの記録に失敗しました")
	} else {
		rec.ChannelLogID = logMsg.ID
	}

	if guildCfg.AdminLogChannelID != "" {
		adminMsg, err := c.gw.SendMessage(guildCfg.AdminLogChannelID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{panel.RenderRecordEmbed(f, storeCfg.Name, &rec)},
		})
		if err != nil {
			log.DiscordLogger().Warn("Admin log send failed", "recordID", rec.ID, "error", err)
			warnings = append(warnings, "管理ログの記録に失敗しました")
		} else {
			rec.AdminLogID = adminMsg.ID
		}
	}

	day, _ := rec.Day()
	scope := ops.LedgerScope{GuildID: guildID, Feature: f, StoreID: storeID}
	if err := c.ledgers.Append(ctx, scope, day, rec); err != nil {
		return nil, warnings, err
	}

	if err := c.exporter.RefreshDay(ctx, scope, day, false); err != nil {
		log.StorageLogger().Warn("CSV refresh after submit failed", "recordID", rec.ID, "error", err)
		warnings = append(warnings, "CSVの更新に失敗しました")
	}

	c.auditAppend(guildID, f, storeID, rec.ID, "submit", "", rec.Status, actor)
	return &rec, warnings, nil
}

// Approve moves a record to approved and stamps the approver.
func (c *Controller) Approve(ctx context.Context, guildID string, id core.CustomID, actor Actor) (ops.RequestRecord, []string, error) {
	return c.transition(ctx, guildID, id, actor, "approve", ops.StatusApproved, nil, func(rec *ops.RequestRecord) {
		rec.ApproverID = actor.ID
		rec.ApproverName = actor.Name
		rec.ApprovedAt = time.Now().Format("2006-01-02 15:04")
	})
}

// Modify applies changed form fields to a live record. The date is fixed at
// submission time; a record never migrates between daily ledgers.
func (c *Controller) Modify(ctx context.Context, guildID string, id core.CustomID, changes Submission, actor Actor) (ops.RequestRecord, []string, error) {
	return c.transition(ctx, guildID, id, actor, "modify", ops.StatusModified, &changes, func(rec *ops.RequestRecord) {
		rec.Amount = changes.Amount
		rec.Total = changes.Total
		rec.Card = changes.Card
		rec.Cost = changes.Cost
		rec.Department = changes.Department
		rec.Item = changes.Item
		rec.Note = changes.Note
	})
}

// Delete soft-deletes a record; it stays in the ledger for audit.
func (c *Controller) Delete(ctx context.Context, guildID string, id core.CustomID, actor Actor) (ops.RequestRecord, []string, error) {
	return c.transition(ctx, guildID, id, actor, "delete", ops.StatusDeleted, nil, nil)
}

// transition implements the shared modify/approve/delete path: locate the
// thread message, check permission and legality, mirror the change into the
// thread embed, both logs, and the ledger, then refresh exports.
func (c *Controller) transition(ctx context.Context, guildID string, id core.CustomID, actor Actor, action string, next ops.Status, changes *Submission, mutate func(*ops.RequestRecord)) (ops.RequestRecord, []string, error) {
	guildCfg, err := c.configs.LoadGuildConfig(ctx, guildID, id.Feature)
	if err != nil {
		return ops.RequestRecord{}, nil, err
	}
	storeCfg, err := c.configs.LoadStoreConfig(ctx, guildID, id.Feature, id.StoreID)
	if err != nil {
		return ops.RequestRecord{}, nil, err
	}
	checker := roles.NewChecker(guildCfg, storeCfg)

	// Thread/message lookups fail loudly and are not retried.
	msg, err := c.gw.Message(id.ThreadID, id.MessageID)
	if err != nil {
		return ops.RequestRecord{}, nil, core.NewCommandError("元の申請メッセージが見つかりません", true)
	}
	if len(msg.Embeds) == 0 {
		return ops.RequestRecord{}, nil, core.NewCommandError("申請メッセージの内容が読み取れません", true)
	}
	embed := msg.Embeds[0]

	date := EmbedField(embed, "日付")
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ops.RequestRecord{}, nil, core.NewCommandError("申請メッセージの日付が読み取れません", true)
	}

	scope := ops.LedgerScope{GuildID: guildID, Feature: id.Feature, StoreID: id.StoreID}
	ledger, err := c.ledgers.Load(ctx, scope, day)
	if err != nil {
		return ops.RequestRecord{}, nil, err
	}
	current := ledger.Find(id.MessageID)
	if current == nil {
		return ops.RequestRecord{}, nil, core.NewCommandError("台帳に該当する申請が見つかりません", true)
	}

	switch action {
	case "approve":
		if !checker.CanApprove(actor.Member) {
			return ops.RequestRecord{}, nil, core.NewCommandError(errPermissionDenied, true)
		}
	case "modify":
		if !checker.CanModify(actor.Member, actor.ID, current) {
			return ops.RequestRecord{}, nil, core.NewCommandError(errPermissionDenied, true)
		}
		changes.Date = current.Date
		if err := changes.Validate(id.Feature); err != nil {
			return ops.RequestRecord{}, nil, err
		}
	case "delete":
		if !checker.CanDelete(actor.Member, actor.ID, current) {
			return ops.RequestRecord{}, nil, core.NewCommandError(errPermissionDenied, true)
		}
	}

	if !current.Status.CanTransition(next) {
		return ops.RequestRecord{}, nil, core.NewCommandError(
			fmt.Sprintf("この申請は%sのため操作できません", current.Status.Label()), true)
	}

	// Local preview of the post-transition record drives the Discord edits;
	// the ledger write below is authoritative.
	preview := *current
	preview.Status = next
	if mutate != nil {
		mutate(&preview)
	}

	patchEmbed(embed, id.Feature, &preview)
	edit := discordgo.NewMessageEdit(id.ThreadID, id.MessageID)
	edit.SetEmbeds([]*discordgo.MessageEmbed{embed})
	buttons := panel.RecordButtons(id.Feature, id.StoreID, id.ThreadID, id.MessageID, next)
	edit.Components = &buttons
	if _, err := c.gw.EditMessage(edit); err != nil {
		return ops.RequestRecord{}, nil, fmt.Errorf("edit record message: %w", err)
	}

	var warnings []string

	channelLogID, err := updateChannelLog(c.gw, storeCfg.ChannelID, id.Feature, storeCfg.Name, &preview, action == "modify")
	if err != nil {
		log.DiscordLogger().Warn("Channel log update failed", "recordID", preview.ID, "error", err)
		warnings = append(warnings, "チャンネルログの更新に失敗しました")
	} else {
		preview.ChannelLogID = channelLogID
	}

	adminLogID, err := updateAdminLog(c.gw, guildCfg.AdminLogChannelID, id.Feature, storeCfg.Name, &preview)
	if err != nil {
		log.DiscordLogger().Warn("Admin log update failed", "recordID", preview.ID, "error", err)
		warnings = append(warnings, "管理ログの更新に失敗しました")
	} else if adminLogID != "" {
		preview.AdminLogID = adminLogID
	}

	prev, updated, err := c.ledgers.Transition(ctx, scope, day, id.MessageID, next, func(rec *ops.RequestRecord) {
		if mutate != nil {
			mutate(rec)
		}
		rec.ChannelLogID = preview.ChannelLogID
		rec.AdminLogID = preview.AdminLogID
	})
	if err != nil {
		return ops.RequestRecord{}, warnings, err
	}

	if next == ops.StatusApproved {
		if err := c.exporter.RefreshDay(ctx, scope, day, true); err != nil {
			log.StorageLogger().Warn("CSV refresh after approve failed", "recordID", updated.ID, "error", err)
			warnings = append(warnings, "CSVの更新に失敗しました")
		}
	}

	c.auditAppend(guildID, id.Feature, id.StoreID, updated.ID, action, prev, next, actor)
	return updated, warnings, nil
}

func (c *Controller) auditAppend(guildID string, f ops.Feature, storeID, recordID, action string, prev, next ops.Status, actor Actor) {
	if c.audit == nil {
		return
	}
	if err := c.audit.Append(storage.Transition{
		GuildID:    guildID,
		Feature:    string(f),
		StoreID:    storeID,
		RecordID:   recordID,
		Action:     action,
		PrevStatus: string(prev),
		NextStatus: string(next),
		ActorID:    actor.ID,
		ActorName:  actor.Name,
	}); err != nil {
		log.StorageLogger().Warn("Audit append failed", "recordID", recordID, "error", err)
	}
}
