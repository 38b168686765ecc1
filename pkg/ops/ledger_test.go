package ops

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/small-frappuccino/storeops/pkg/storage"
)

func testScope() LedgerScope {
	return LedgerScope{GuildID: "g1", Feature: FeatureExpense, StoreID: "shibuya"}
}

func testDay(t *testing.T) time.Time {
	t.Helper()
	day, err := time.Parse("2006-01-02", "2026-03-15")
	if err != nil {
		t.Fatal(err)
	}
	return day
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusSubmitted, StatusModified, true},
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusDeleted, true},
		{StatusModified, StatusApproved, true},
		{StatusModified, StatusDeleted, true},
		{StatusModified, StatusModified, false},
		{StatusApproved, StatusModified, false},
		{StatusApproved, StatusDeleted, false},
		{StatusDeleted, StatusApproved, false},
		{StatusDeleted, StatusSubmitted, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}

	if !StatusApproved.Terminal() || !StatusDeleted.Terminal() {
		t.Error("approved and deleted must be terminal")
	}
	if StatusSubmitted.Terminal() || StatusModified.Terminal() {
		t.Error("submitted and modified must not be terminal")
	}
}

func TestLedgerAppendAndLoad(t *testing.T) {
	ledgers := NewLedgerStore(storage.NewFSStore(t.TempDir()))
	ctx := context.Background()
	scope, day := testScope(), testDay(t)

	rec := RequestRecord{ID: "m1", Status: StatusSubmitted, Date: "2026-03-15", Amount: 1200, RequesterID: "u1"}
	if err := ledgers.Append(ctx, scope, day, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := ledgers.Append(ctx, scope, day, rec); err == nil {
		t.Fatal("duplicate record id must be rejected")
	}

	ledger, err := ledgers.Load(ctx, scope, day)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := ledger.Find("m1")
	if got == nil {
		t.Fatal("record not found after append")
	}
	if got.Amount != 1200 || got.Status != StatusSubmitted {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestLedgerLoadAbsentDay(t *testing.T) {
	ledgers := NewLedgerStore(storage.NewFSStore(t.TempDir()))
	ledger, err := ledgers.Load(context.Background(), testScope(), testDay(t))
	if err != nil {
		t.Fatalf("Load absent: %v", err)
	}
	if len(ledger.Records) != 0 {
		t.Errorf("absent day must load empty, got %d records", len(ledger.Records))
	}
}

func TestLedgerTransition(t *testing.T) {
	ledgers := NewLedgerStore(storage.NewFSStore(t.TempDir()))
	ctx := context.Background()
	scope, day := testScope(), testDay(t)

	rec := RequestRecord{ID: "m1", Status: StatusSubmitted, Date: "2026-03-15", Amount: 500}
	if err := ledgers.Append(ctx, scope, day, rec); err != nil {
		t.Fatal(err)
	}

	prev, updated, err := ledgers.Transition(ctx, scope, day, "m1", StatusApproved, func(r *RequestRecord) {
		r.ApproverID = "a1"
		r.ApproverName = "boss"
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if prev != StatusSubmitted || updated.Status != StatusApproved || updated.ApproverName != "boss" {
		t.Errorf("unexpected transition result: prev=%s updated=%+v", prev, updated)
	}

	// Approved is terminal; any further move must fail and leave the record alone.
	if _, _, err := ledgers.Transition(ctx, scope, day, "m1", StatusDeleted, nil); err == nil {
		t.Fatal("transition out of approved must fail")
	}
	ledger, _ := ledgers.Load(ctx, scope, day)
	if ledger.Find("m1").Status != StatusApproved {
		t.Error("failed transition must not change the stored record")
	}

	if _, _, err := ledgers.Transition(ctx, scope, day, "nope", StatusApproved, nil); err == nil {
		t.Fatal("unknown record id must fail")
	} else if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unknown id error should say not found: %v", err)
	}
}

func TestRemain(t *testing.T) {
	rec := RequestRecord{Total: 10000, Card: 1500, Cost: 1000}
	if got := rec.Remain(); got != 7500 {
		t.Errorf("Remain() = %d, want 7500", got)
	}
}
