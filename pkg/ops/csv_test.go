package ops

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/small-frappuccino/storeops/pkg/storage"
)

func TestPeriodDays(t *testing.T) {
	daily, err := PeriodDays(GranularityDaily, "2026-03-15")
	if err != nil || len(daily) != 1 {
		t.Fatalf("daily: days=%d err=%v", len(daily), err)
	}

	monthly, err := PeriodDays(GranularityMonthly, "2026-02")
	if err != nil || len(monthly) != 28 {
		t.Fatalf("2026-02: days=%d err=%v", len(monthly), err)
	}

	quarterly, err := PeriodDays(GranularityQuarterly, "2026-Q1")
	if err != nil || len(quarterly) != 31+28+31 {
		t.Fatalf("2026-Q1: days=%d err=%v", len(quarterly), err)
	}

	for _, bad := range []string{"2026", "2026-13", "2026-Q5", "2026-Q0", "yesterday"} {
		for _, g := range []Granularity{GranularityDaily, GranularityMonthly, GranularityQuarterly} {
			if _, err := PeriodDays(g, bad); err == nil {
				t.Errorf("PeriodDays(%s, %q) accepted malformed period", g, bad)
			}
		}
	}
}

func seedLedger(t *testing.T, ledgers *LedgerStore, scope LedgerScope) {
	t.Helper()
	ctx := context.Background()
	day := mustDay(t, "2026-03-15")

	records := []RequestRecord{
		{ID: "m1", Status: StatusApproved, Date: "2026-03-15", Amount: 1200, Item: "仕入", Department: "キッチン", Note: "a, quoted", RequesterName: "alice", ApproverName: "boss"},
		{ID: "m2", Status: StatusSubmitted, Date: "2026-03-15", Amount: 800, Item: "消耗品", RequesterName: "bob"},
		{ID: "m3", Status: StatusDeleted, Date: "2026-03-15", Amount: 300, Item: "雑費", RequesterName: "carol"},
	}
	for _, rec := range records {
		if err := ledgers.Append(ctx, scope, day, rec); err != nil {
			t.Fatal(err)
		}
	}
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestBuildCSVApprovedOnly(t *testing.T) {
	ledgers := NewLedgerStore(storage.NewFSStore(t.TempDir()))
	scope := testScope()
	seedLedger(t, ledgers, scope)

	export, err := BuildCSV(context.Background(), ledgers, scope, GranularityMonthly, "2026-03")
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}

	lines := strings.Split(strings.TrimRight(export.Text, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("want header + 1 approved row, got %d lines:\n%s", len(lines), export.Text)
	}
	if lines[0] != "日付,品目,部門,金額,備考,申請者,承認者,状態" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	row := lines[1]
	if !strings.Contains(row, "1200") || !strings.Contains(row, "APPROVED") {
		t.Errorf("approved row mismatch: %s", row)
	}
	if strings.Contains(export.Text, "消耗品") || strings.Contains(export.Text, "雑費") {
		t.Error("unapproved records must not appear in the export")
	}
	// The comma in the note forces quoting.
	if !strings.Contains(row, `"a, quoted"`) {
		t.Errorf("note with comma must be quoted: %s", row)
	}
	if export.FileName != "expense-shibuya-2026-03.csv" {
		t.Errorf("unexpected file name %s", export.FileName)
	}
}

func TestBuildCSVDeterministic(t *testing.T) {
	ledgers := NewLedgerStore(storage.NewFSStore(t.TempDir()))
	scope := testScope()
	seedLedger(t, ledgers, scope)
	ctx := context.Background()

	first, err := BuildCSV(ctx, ledgers, scope, GranularityQuarterly, "2026-Q1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := BuildCSV(ctx, ledgers, scope, GranularityQuarterly, "2026-Q1")
	if err != nil {
		t.Fatal(err)
	}
	if first.Text != second.Text {
		t.Error("regeneration over unchanged ledgers must be byte-identical")
	}
}

func TestBuildCSVSalesColumns(t *testing.T) {
	objects := storage.NewFSStore(t.TempDir())
	ledgers := NewLedgerStore(objects)
	scope := LedgerScope{GuildID: "g1", Feature: FeatureSales, StoreID: "shibuya"}
	ctx := context.Background()

	rec := RequestRecord{ID: "m1", Status: StatusApproved, Date: "2026-03-15", Total: 10000, Card: 1500, Cost: 1000, RequesterName: "alice", ApproverName: "boss"}
	if err := ledgers.Append(ctx, scope, mustDay(t, "2026-03-15"), rec); err != nil {
		t.Fatal(err)
	}

	export, err := BuildCSV(ctx, ledgers, scope, GranularityDaily, "2026-03-15")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(export.Text, "\n"), "\n")
	if lines[0] != "日付,売上合計,カード,経費,残金,備考,申請者,承認者,状態" {
		t.Errorf("unexpected sales header: %s", lines[0])
	}
	if !strings.Contains(lines[1], ",7500,") {
		t.Errorf("remain column must be total minus card and cost: %s", lines[1])
	}
}

func TestExporterUploadsAndRefreshes(t *testing.T) {
	objects := storage.NewFSStore(t.TempDir())
	ledgers := NewLedgerStore(objects)
	exporter := NewExporter(ledgers, objects)
	scope := testScope()
	seedLedger(t, ledgers, scope)
	ctx := context.Background()

	export, url, err := exporter.Export(ctx, scope, GranularityDaily, "2026-03-15")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if url == "" {
		t.Error("export must return a URL")
	}

	keys, err := objects.List(ctx, "g1/expense/shibuya/csv/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || !strings.HasSuffix(keys[0], export.FileName) {
		t.Errorf("uploaded keys = %v, want one ending in %s", keys, export.FileName)
	}

	// An approval refreshes the daily and monthly artifacts.
	if err := exporter.RefreshDay(ctx, scope, mustDay(t, "2026-03-15"), true); err != nil {
		t.Fatalf("RefreshDay: %v", err)
	}
	keys, _ = objects.List(ctx, "g1/expense/shibuya/csv/")
	if len(keys) != 2 {
		t.Errorf("after approved refresh want daily + monthly artifacts, got %v", keys)
	}
}
