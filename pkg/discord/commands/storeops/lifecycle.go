package storeops

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/commands/core"
	"github.com/small-frappuccino/storeops/pkg/discord/gateway"
	"github.com/small-frappuccino/storeops/pkg/discord/lifecycle"
	"github.com/small-frappuccino/storeops/pkg/ops"
)

// Modal field ids. They double as the keys of the flattened submission map.
const (
	fieldDate       = "date"
	fieldAmount     = "amount"
	fieldItem       = "item"
	fieldDepartment = "department"
	fieldNote       = "note"
	fieldTotal      = "total"
	fieldCard       = "card"
	fieldCost       = "cost"
)

// LifecycleHandler turns decoded panel and record buttons into lifecycle
// calls: the submit button opens the form modal, the modal submission files
// the record, and the approve/modify/delete buttons drive transitions.
type LifecycleHandler struct {
	gw         gateway.Gateway
	controller *lifecycle.Controller
}

// NewLifecycleHandler wires the handler.
func NewLifecycleHandler(gw gateway.Gateway, controller *lifecycle.Controller) *LifecycleHandler {
	return &LifecycleHandler{gw: gw, controller: controller}
}

// Actions returns the component actions this handler serves.
func (h *LifecycleHandler) Actions() []core.Action {
	return []core.Action{
		core.ActionSubmit, core.ActionSubmitModal,
		core.ActionApprove, core.ActionModify, core.ActionModifyModal, core.ActionDelete,
	}
}

func (h *LifecycleHandler) HandleComponent(ctx *core.Context, id core.CustomID) error {
	switch id.Action {
	case core.ActionSubmit:
		return h.showSubmitModal(ctx, id)
	case core.ActionSubmitModal:
		return h.submit(ctx, id)
	case core.ActionApprove:
		return h.approve(ctx, id)
	case core.ActionModify:
		return h.showModifyModal(ctx, id)
	case core.ActionModifyModal:
		return h.modify(ctx, id)
	case core.ActionDelete:
		return h.delete(ctx, id)
	}
	return core.NewCommandError("This control is no longer supported", true)
}

func textInput(id, label, value string, required bool) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.TextInput{
			CustomID: id,
			Label:    label,
			Style:    discordgo.TextInputShort,
			Value:    value,
			Required: required,
		},
	}}
}

// formComponents builds the feature's form, prefilled from rec when modifying.
// The date field is only present on submit; a record never changes its day.
func formComponents(f ops.Feature, rec *ops.RequestRecord) []discordgo.MessageComponent {
	if f == ops.FeatureSales {
		total, card, cost, note := "", "", "", ""
		if rec != nil {
			total, card, cost, note = strconv.Itoa(rec.Total), strconv.Itoa(rec.Card), strconv.Itoa(rec.Cost), rec.Note
		}
		components := []discordgo.MessageComponent{}
		if rec == nil {
			components = append(components, textInput(fieldDate, "日付 (YYYY-MM-DD)", time.Now().Format("2006-01-02"), true))
		}
		return append(components,
			textInput(fieldTotal, "売上合計 (円)", total, true),
			textInput(fieldCard, "カード (円)", card, true),
			textInput(fieldCost, "経費 (円)", cost, true),
			textInput(fieldNote, "備考", note, false),
		)
	}

	amount, item, department, note := "", "", "", ""
	if rec != nil {
		amount, item, department, note = strconv.Itoa(rec.Amount), rec.Item, rec.Department, rec.Note
	}
	components := []discordgo.MessageComponent{}
	if rec == nil {
		components = append(components, textInput(fieldDate, "日付 (YYYY-MM-DD)", time.Now().Format("2006-01-02"), true))
	}
	return append(components,
		textInput(fieldItem, "品目", item, true),
		textInput(fieldDepartment, "部門", department, false),
		textInput(fieldAmount, "金額 (円)", amount, true),
		textInput(fieldNote, "備考", note, false),
	)
}

func (h *LifecycleHandler) showSubmitModal(ctx *core.Context, id core.CustomID) error {
	modalID := core.CustomID{Feature: id.Feature, Role: core.RoleRequester, Action: core.ActionSubmitModal, StoreID: id.StoreID}
	return ctx.Responder.Modal(ctx.Interaction, modalID.Encode(),
		id.Feature.Label()+"申請", formComponents(id.Feature, nil))
}

func (h *LifecycleHandler) submit(ctx *core.Context, id core.CustomID) error {
	if err := ctx.Responder.Defer(ctx.Interaction, true); err != nil {
		return err
	}

	values := core.ModalValues(ctx.Interaction.ModalSubmitData())
	sub, err := parseSubmission(id.Feature, values)
	if err != nil {
		return err
	}
	sub.Date = strings.TrimSpace(values[fieldDate])

	actor := lifecycle.Actor{ID: ctx.UserID, Name: ctx.DisplayName(), Member: ctx.Member}
	rec, warnings, err := h.controller.Submit(ctx.Ctx, ctx.GuildID, id.Feature, id.StoreID, sub, actor)
	if err != nil {
		return err
	}

	return ctx.Responder.EditDeferred(ctx.Interaction,
		withWarnings(fmt.Sprintf("✅ %sを申請しました (%s)", id.Feature.Label(), rec.Date), warnings))
}

func (h *LifecycleHandler) approve(ctx *core.Context, id core.CustomID) error {
	if err := ctx.Responder.Defer(ctx.Interaction, true); err != nil {
		return err
	}
	actor := lifecycle.Actor{ID: ctx.UserID, Name: ctx.DisplayName(), Member: ctx.Member}
	rec, warnings, err := h.controller.Approve(ctx.Ctx, ctx.GuildID, id, actor)
	if err != nil {
		return err
	}
	return ctx.Responder.EditDeferred(ctx.Interaction,
		withWarnings(fmt.Sprintf("✅ 承認しました (%s)", rec.Date), warnings))
}

// showModifyModal prefills the form from the live thread message so the modal
// reflects the current values even when another approver just changed them.
func (h *LifecycleHandler) showModifyModal(ctx *core.Context, id core.CustomID) error {
	msg, err := h.gw.Message(id.ThreadID, id.MessageID)
	if err != nil {
		return core.NewCommandError("元の申請メッセージが見つかりません", true)
	}
	if len(msg.Embeds) == 0 {
		return core.NewCommandError("申請メッセージの内容が読み取れません", true)
	}
	rec := recordFromEmbed(id.Feature, msg.Embeds[0])

	modalID := core.CustomID{
		Feature: id.Feature, Role: id.Role, Action: core.ActionModifyModal, StoreID: id.StoreID,
		ThreadID: id.ThreadID, MessageID: id.MessageID, Status: id.Status,
	}
	return ctx.Responder.Modal(ctx.Interaction, modalID.Encode(),
		id.Feature.Label()+"申請の修正", formComponents(id.Feature, rec))
}

func (h *LifecycleHandler) modify(ctx *core.Context, id core.CustomID) error {
	if err := ctx.Responder.Defer(ctx.Interaction, true); err != nil {
		return err
	}

	values := core.ModalValues(ctx.Interaction.ModalSubmitData())
	changes, err := parseSubmission(id.Feature, values)
	if err != nil {
		return err
	}

	actor := lifecycle.Actor{ID: ctx.UserID, Name: ctx.DisplayName(), Member: ctx.Member}
	rec, warnings, err := h.controller.Modify(ctx.Ctx, ctx.GuildID, id, changes, actor)
	if err != nil {
		return err
	}
	return ctx.Responder.EditDeferred(ctx.Interaction,
		withWarnings(fmt.Sprintf("✅ 修正しました (%s)", rec.Date), warnings))
}

func (h *LifecycleHandler) delete(ctx *core.Context, id core.CustomID) error {
	if err := ctx.Responder.Defer(ctx.Interaction, true); err != nil {
		return err
	}
	actor := lifecycle.Actor{ID: ctx.UserID, Name: ctx.DisplayName(), Member: ctx.Member}
	rec, warnings, err := h.controller.Delete(ctx.Ctx, ctx.GuildID, id, actor)
	if err != nil {
		return err
	}
	return ctx.Responder.EditDeferred(ctx.Interaction,
		withWarnings(fmt.Sprintf("✅ 削除しました (%s)", rec.Date), warnings))
}

// parseSubmission converts modal text into the numeric form fields. The date
// is handled by the caller: present on submit, fixed on modify.
func parseSubmission(f ops.Feature, values map[string]string) (lifecycle.Submission, error) {
	sub := lifecycle.Submission{Note: strings.TrimSpace(values[fieldNote])}

	if f == ops.FeatureSales {
		var err error
		if sub.Total, err = intField(values, fieldTotal, "売上合計"); err != nil {
			return sub, err
		}
		if sub.Card, err = intField(values, fieldCard, "カード"); err != nil {
			return sub, err
		}
		if sub.Cost, err = intField(values, fieldCost, "経費"); err != nil {
			return sub, err
		}
		return sub, nil
	}

	sub.Item = strings.TrimSpace(values[fieldItem])
	sub.Department = strings.TrimSpace(values[fieldDepartment])
	var err error
	if sub.Amount, err = intField(values, fieldAmount, "金額"); err != nil {
		return sub, err
	}
	return sub, nil
}

func intField(values map[string]string, key, label string) (int, error) {
	raw := strings.TrimSpace(values[key])
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewValidationError(label, "数値を入力してください")
	}
	return n, nil
}

// recordFromEmbed rebuilds enough of a record from its display to prefill the
// modify form. Monetary fields carry a 円 suffix; empty fields display as "-".
func recordFromEmbed(f ops.Feature, embed *discordgo.MessageEmbed) *ops.RequestRecord {
	rec := &ops.RequestRecord{
		Date: lifecycle.EmbedField(embed, "日付"),
		Note: dashToEmpty(lifecycle.EmbedField(embed, "備考")),
	}
	if f == ops.FeatureSales {
		rec.Total = yenToInt(lifecycle.EmbedField(embed, "売上合計"))
		rec.Card = yenToInt(lifecycle.EmbedField(embed, "カード"))
		rec.Cost = yenToInt(lifecycle.EmbedField(embed, "経費"))
		return rec
	}
	rec.Item = dashToEmpty(lifecycle.EmbedField(embed, "品目"))
	rec.Department = dashToEmpty(lifecycle.EmbedField(embed, "部門"))
	rec.Amount = yenToInt(lifecycle.EmbedField(embed, "金額"))
	return rec
}

func yenToInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "円"))
	return n
}

func dashToEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func withWarnings(msg string, warnings []string) string {
	if len(warnings) == 0 {
		return msg
	}
	return msg + "\n⚠ " + strings.Join(warnings, "\n⚠ ")
}
