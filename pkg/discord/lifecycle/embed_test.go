package lifecycle

import (
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/panel"
	"github.com/small-frappuccino/storeops/pkg/ops"
)

func TestEmbedField(t *testing.T) {
	embed := &discordgo.MessageEmbed{Fields: []*discordgo.MessageEmbedField{
		{Name: "日付", Value: "2026-03-15"},
		{Name: "金額", Value: "1200円"},
	}}
	if got := EmbedField(embed, "金額"); got != "1200円" {
		t.Errorf("EmbedField = %s", got)
	}
	if got := EmbedField(embed, "missing"); got != "" {
		t.Errorf("missing field must be empty, got %s", got)
	}
}

func TestPatchEmbedPreservesUnknownFields(t *testing.T) {
	rec := &ops.RequestRecord{
		Status: ops.StatusSubmitted, Date: "2026-03-15",
		Amount: 1200, Item: "仕入", RequesterName: "alice",
	}
	embed := panel.RenderRecordEmbed(ops.FeatureExpense, "渋谷店", rec)
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "メモ欄", Value: "handwritten"})

	rec.Status = ops.StatusApproved
	rec.ApproverName = "boss"
	rec.Amount = 1500
	patchEmbed(embed, ops.FeatureExpense, rec)

	if got := EmbedField(embed, "状態"); got != "承認済" {
		t.Errorf("status not patched: %s", got)
	}
	if got := EmbedField(embed, "承認者"); got != "boss" {
		t.Errorf("approver not patched: %s", got)
	}
	if got := EmbedField(embed, "金額"); got != "1500円" {
		t.Errorf("amount not patched: %s", got)
	}
	if got := EmbedField(embed, "メモ欄"); got != "handwritten" {
		t.Errorf("foreign field must survive, got %s", got)
	}
	if embed.Title != "経費 — 渋谷店 2026-03-15" {
		t.Errorf("title must not be replaced: %s", embed.Title)
	}
}
