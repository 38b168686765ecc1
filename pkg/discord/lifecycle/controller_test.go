package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/commands/core"
	"github.com/small-frappuccino/storeops/pkg/ops"
	"github.com/small-frappuccino/storeops/pkg/storage"
)

// fakeGateway is an in-memory chat platform: channels, threads, messages.
type fakeGateway struct {
	nextID   int
	messages map[string]map[string]*discordgo.Message
	order    map[string][]string // channel -> message ids, newest last
	threads  []*discordgo.Channel
	members  []*discordgo.Member
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		messages: make(map[string]map[string]*discordgo.Message),
		order:    make(map[string][]string),
	}
}

func (g *fakeGateway) Message(channelID, messageID string) (*discordgo.Message, error) {
	if m, ok := g.messages[channelID][messageID]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("unknown message %s/%s", channelID, messageID)
}

func (g *fakeGateway) SendMessage(channelID string, send *discordgo.MessageSend) (*discordgo.Message, error) {
	g.nextID++
	msg := &discordgo.Message{
		ID:        fmt.Sprintf("m%d", g.nextID),
		ChannelID: channelID,
		Content:   send.Content,
		Embeds:    send.Embeds,
	}
	if g.messages[channelID] == nil {
		g.messages[channelID] = make(map[string]*discordgo.Message)
	}
	g.messages[channelID][msg.ID] = msg
	g.order[channelID] = append(g.order[channelID], msg.ID)
	return msg, nil
}

func (g *fakeGateway) EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	msg, err := g.Message(edit.Channel, edit.ID)
	if err != nil {
		return nil, err
	}
	if edit.Content != nil {
		msg.Content = *edit.Content
	}
	if edit.Embeds != nil {
		msg.Embeds = *edit.Embeds
	}
	if edit.Components != nil {
		msg.Components = *edit.Components
	}
	return msg, nil
}

func (g *fakeGateway) DeleteMessage(channelID, messageID string) error {
	delete(g.messages[channelID], messageID)
	return nil
}

func (g *fakeGateway) RecentMessages(channelID string, limit int) ([]*discordgo.Message, error) {
	ids := g.order[channelID]
	var out []*discordgo.Message
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		if m, ok := g.messages[channelID][ids[i]]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (g *fakeGateway) StartThread(channelID, name string) (*discordgo.Channel, error) {
	g.nextID++
	th := &discordgo.Channel{
		ID:       fmt.Sprintf("t%d", g.nextID),
		Name:     name,
		ParentID: channelID,
		Type:     discordgo.ChannelTypeGuildPublicThread,
	}
	g.threads = append(g.threads, th)
	return th, nil
}

func (g *fakeGateway) ActiveThreads(string) ([]*discordgo.Channel, error) { return g.threads, nil }
func (g *fakeGateway) AddThreadMember(string, string) error               { return nil }
func (g *fakeGateway) GuildMembers(string) ([]*discordgo.Member, error)   { return g.members, nil }

type fixture struct {
	gw         *fakeGateway
	objects    *storage.FSStore
	configs    *ops.ConfigStore
	ledgers    *ops.LedgerStore
	controller *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := newFakeGateway()
	objects := storage.NewFSStore(t.TempDir())
	configs := ops.NewConfigStore(objects)
	ledgers := ops.NewLedgerStore(objects)
	exporter := ops.NewExporter(ledgers, objects)
	ctx := context.Background()

	if _, err := configs.UpdateGuildConfig(ctx, "g1", ops.FeatureExpense, func(cfg *ops.GuildFeatureConfig) error {
		cfg.ApproverRoleIDs = []string{"r-appr"}
		cfg.AdminLogChannelID = "c-admin"
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := configs.UpdateStoreConfig(ctx, "g1", ops.FeatureExpense, "shibuya", func(cfg *ops.StoreConfig) error {
		cfg.Name = "渋谷店"
		cfg.ChannelID = "c-store"
		cfg.RequestRoleIDs = []string{"r-req"}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		gw:         gw,
		objects:    objects,
		configs:    configs,
		ledgers:    ledgers,
		controller: NewController(gw, configs, ledgers, exporter, nil),
	}
}

func requester() Actor {
	return Actor{ID: "u1", Name: "alice", Member: &discordgo.Member{
		User: &discordgo.User{ID: "u1"}, Roles: []string{"r-req"},
	}}
}

func approver() Actor {
	return Actor{ID: "u2", Name: "boss", Member: &discordgo.Member{
		User: &discordgo.User{ID: "u2"}, Roles: []string{"r-appr"},
	}}
}

func expenseSubmission() Submission {
	return Submission{Date: "2026-03-15", Amount: 1200, Item: "仕入", Department: "キッチン", Note: "note"}
}

func (f *fixture) submit(t *testing.T) *ops.RequestRecord {
	t.Helper()
	rec, warnings, err := f.controller.Submit(context.Background(), "g1", ops.FeatureExpense, "shibuya", expenseSubmission(), requester())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("Submit warnings: %v", warnings)
	}
	return rec
}

func (f *fixture) lifecycleID(rec *ops.RequestRecord) core.CustomID {
	return core.CustomID{
		Feature: ops.FeatureExpense, Role: core.RoleApprover, Action: core.ActionApprove,
		StoreID: "shibuya", ThreadID: rec.ThreadID, MessageID: rec.ID, Status: rec.Status,
	}
}

func TestSubmitMirrorsEverywhere(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t)

	// The record id is the id of the thread message displaying it.
	msg, err := f.gw.Message(rec.ThreadID, rec.ID)
	if err != nil {
		t.Fatalf("thread message missing: %v", err)
	}
	if len(msg.Embeds) == 0 || len(msg.Components) == 0 {
		t.Fatal("thread message must carry the embed and the button row")
	}
	if EmbedField(msg.Embeds[0], "金額") != "1200円" {
		t.Errorf("embed amount mismatch")
	}

	// One thread per month and store.
	if len(f.gw.threads) != 1 {
		t.Fatalf("want 1 thread, got %d", len(f.gw.threads))
	}
	if f.gw.threads[0].Name != "2026-03-渋谷店-expense" {
		t.Errorf("thread name = %s", f.gw.threads[0].Name)
	}

	// Channel log line in the store channel.
	logMsg, err := f.gw.Message("c-store", rec.ChannelLogID)
	if err != nil {
		t.Fatalf("channel log missing: %v", err)
	}
	if !strings.Contains(logMsg.Content, "状態:申請中") {
		t.Errorf("channel log = %q", logMsg.Content)
	}

	// Admin log embed.
	adminMsg, err := f.gw.Message("c-admin", rec.AdminLogID)
	if err != nil {
		t.Fatalf("admin log missing: %v", err)
	}
	if len(adminMsg.Embeds) == 0 {
		t.Error("admin log must carry an embed")
	}

	// Ledger entry.
	day, _ := rec.Day()
	scope := ops.LedgerScope{GuildID: "g1", Feature: ops.FeatureExpense, StoreID: "shibuya"}
	ledger, err := f.ledgers.Load(context.Background(), scope, day)
	if err != nil {
		t.Fatal(err)
	}
	stored := ledger.Find(rec.ID)
	if stored == nil || stored.Status != ops.StatusSubmitted || stored.RequesterID != "u1" {
		t.Errorf("ledger record = %+v", stored)
	}

	// The daily CSV artifact exists even before approval.
	keys, _ := f.objects.List(context.Background(), "g1/expense/shibuya/csv/")
	if len(keys) != 1 {
		t.Errorf("want daily csv artifact, got %v", keys)
	}
}

func TestSubmitRejectsUnauthorized(t *testing.T) {
	f := newFixture(t)
	outsider := Actor{ID: "u9", Name: "mallory", Member: &discordgo.Member{
		User: &discordgo.User{ID: "u9"}, Roles: []string{"r-other"},
	}}

	_, _, err := f.controller.Submit(context.Background(), "g1", ops.FeatureExpense, "shibuya", expenseSubmission(), outsider)
	if err == nil {
		t.Fatal("unauthorized submit must fail")
	}
	if len(f.gw.threads) != 0 || len(f.gw.messages) != 0 {
		t.Error("a denied submit must write nothing")
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := expenseSubmission()
	bad.Date = "03/15/2026"
	if _, _, err := f.controller.Submit(ctx, "g1", ops.FeatureExpense, "shibuya", bad, requester()); err == nil {
		t.Error("malformed date must be rejected")
	}

	bad = expenseSubmission()
	bad.Amount = 0
	if _, _, err := f.controller.Submit(ctx, "g1", ops.FeatureExpense, "shibuya", bad, requester()); err == nil {
		t.Error("non-positive amount must be rejected")
	}

	if len(f.gw.messages) != 0 {
		t.Error("rejected submissions must write nothing")
	}
}

func TestSubmitReusesMonthThread(t *testing.T) {
	f := newFixture(t)
	first := f.submit(t)

	second, _, err := f.controller.Submit(context.Background(), "g1", ops.FeatureExpense, "shibuya",
		Submission{Date: "2026-03-20", Amount: 900, Item: "備品"}, requester())
	if err != nil {
		t.Fatal(err)
	}
	if second.ThreadID != first.ThreadID {
		t.Error("same month must reuse the thread")
	}
	if len(f.gw.threads) != 1 {
		t.Errorf("want 1 thread, got %d", len(f.gw.threads))
	}
}

func TestApproveTransition(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t)
	ctx := context.Background()

	updated, warnings, err := f.controller.Approve(ctx, "g1", f.lifecycleID(rec), approver())
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings: %v", warnings)
	}
	if updated.Status != ops.StatusApproved || updated.ApproverName != "boss" || updated.ApprovedAt == "" {
		t.Errorf("updated = %+v", updated)
	}

	// Thread embed patched, buttons removed.
	msg, _ := f.gw.Message(rec.ThreadID, rec.ID)
	if EmbedField(msg.Embeds[0], "状態") != "承認済" {
		t.Errorf("embed status not patched: %s", EmbedField(msg.Embeds[0], "状態"))
	}
	if len(msg.Components) != 0 {
		t.Error("terminal record must lose its buttons")
	}

	// Channel log tokens replaced in place, rest of the line untouched.
	logMsg, _ := f.gw.Message("c-store", rec.ChannelLogID)
	if !strings.Contains(logMsg.Content, "状態:承認済") || !strings.Contains(logMsg.Content, "承認者:boss") {
		t.Errorf("channel log not updated: %q", logMsg.Content)
	}
	if !strings.Contains(logMsg.Content, "申請者:alice") {
		t.Errorf("unrelated tokens must survive: %q", logMsg.Content)
	}

	// Admin log embed patched.
	adminMsg, _ := f.gw.Message("c-admin", rec.AdminLogID)
	if EmbedField(adminMsg.Embeds[0], "承認者") == "-" {
		t.Error("admin log approver not patched")
	}

	// The approved row lands in the monthly CSV.
	scope := ops.LedgerScope{GuildID: "g1", Feature: ops.FeatureExpense, StoreID: "shibuya"}
	export, err := ops.BuildCSV(ctx, f.ledgers, scope, ops.GranularityMonthly, "2026-03")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(export.Text, "1200") || !strings.Contains(export.Text, "APPROVED") {
		t.Errorf("monthly csv missing approved row:\n%s", export.Text)
	}
	keys, _ := f.objects.List(ctx, "g1/expense/shibuya/csv/")
	if len(keys) != 2 {
		t.Errorf("approve must refresh daily and monthly artifacts, got %v", keys)
	}

	// Terminal records reject further transitions.
	if _, _, err := f.controller.Approve(ctx, "g1", f.lifecycleID(rec), approver()); err == nil {
		t.Error("double approve must fail")
	}
	if _, _, err := f.controller.Delete(ctx, "g1", f.lifecycleID(rec), approver()); err == nil {
		t.Error("delete after approve must fail")
	}
}

func TestApproveRequiresApproverRole(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t)

	if _, _, err := f.controller.Approve(context.Background(), "g1", f.lifecycleID(rec), requester()); err == nil {
		t.Fatal("a requester must not approve")
	}

	msg, _ := f.gw.Message(rec.ThreadID, rec.ID)
	if EmbedField(msg.Embeds[0], "状態") != "申請中" {
		t.Error("denied approval must not touch the record")
	}
}

func TestModifyTransition(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t)
	ctx := context.Background()

	changes := Submission{Amount: 1500, Item: "仕入", Department: "ホール", Note: "corrected"}
	updated, _, err := f.controller.Modify(ctx, "g1", f.lifecycleID(rec), changes, requester())
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if updated.Status != ops.StatusModified || updated.Amount != 1500 || updated.Department != "ホール" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Date != rec.Date {
		t.Error("modify must not move the record to another day")
	}

	// The channel log line is rebuilt so the new amount shows.
	logMsg, _ := f.gw.Message("c-store", rec.ChannelLogID)
	if !strings.Contains(logMsg.Content, "1500円") || !strings.Contains(logMsg.Content, "状態:修正済") {
		t.Errorf("channel log not rebuilt: %q", logMsg.Content)
	}

	// Modified records can still be approved.
	id := f.lifecycleID(rec)
	id.Status = ops.StatusModified
	if _, _, err := f.controller.Approve(ctx, "g1", id, approver()); err != nil {
		t.Fatalf("approve after modify: %v", err)
	}
}

func TestModifyByStrangerDenied(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t)

	stranger := Actor{ID: "u9", Name: "mallory", Member: &discordgo.Member{
		User: &discordgo.User{ID: "u9"}, Roles: []string{"r-req"},
	}}
	changes := Submission{Amount: 1, Item: "x"}
	if _, _, err := f.controller.Modify(context.Background(), "g1", f.lifecycleID(rec), changes, stranger); err == nil {
		t.Fatal("another requester must not modify the record")
	}
}

func TestDeleteIsSoft(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t)
	ctx := context.Background()

	updated, _, err := f.controller.Delete(ctx, "g1", f.lifecycleID(rec), requester())
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if updated.Status != ops.StatusDeleted {
		t.Errorf("status = %s", updated.Status)
	}

	// The record stays in the ledger and out of exports.
	day, _ := rec.Day()
	scope := ops.LedgerScope{GuildID: "g1", Feature: ops.FeatureExpense, StoreID: "shibuya"}
	ledger, _ := f.ledgers.Load(ctx, scope, day)
	if ledger.Find(rec.ID) == nil {
		t.Fatal("deleted record must survive in the ledger")
	}
	export, err := ops.BuildCSV(ctx, f.ledgers, scope, ops.GranularityDaily, rec.Date)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(export.Text, "1200") {
		t.Error("deleted record must not appear in exports")
	}
}

func TestChannelLogRelinkAfterPurge(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t)
	ctx := context.Background()

	// The log message survives but its stored id was lost (document edited
	// out-of-band). The bounded scan finds it again by its line prefix.
	scope := ops.LedgerScope{GuildID: "g1", Feature: ops.FeatureExpense, StoreID: "shibuya"}
	day, _ := rec.Day()
	if _, _, err := f.ledgers.Transition(ctx, scope, day, rec.ID, ops.StatusModified, func(r *ops.RequestRecord) {
		r.ChannelLogID = "gone"
	}); err != nil {
		t.Fatal(err)
	}

	id := f.lifecycleID(rec)
	id.Status = ops.StatusModified
	updated, warnings, err := f.controller.Approve(ctx, "g1", id, approver())
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("relink should succeed without warnings: %v", warnings)
	}
	if updated.ChannelLogID != rec.ChannelLogID {
		t.Errorf("relinked id = %s, want the surviving message %s", updated.ChannelLogID, rec.ChannelLogID)
	}
	logMsg, _ := f.gw.Message("c-store", rec.ChannelLogID)
	if !strings.Contains(logMsg.Content, "状態:承認済") {
		t.Errorf("relinked log not updated: %q", logMsg.Content)
	}
}

func TestThreadNameFormat(t *testing.T) {
	if got := ThreadName("2026-03", "渋谷店", ops.FeatureSales); got != "2026-03-渋谷店-sales" {
		t.Errorf("ThreadName = %s", got)
	}
}
