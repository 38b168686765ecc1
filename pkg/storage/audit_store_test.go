package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestAuditStore(t *testing.T) *AuditStore {
	t.Helper()
	store := NewAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAuditAppendAndRecent(t *testing.T) {
	store := newTestAuditStore(t)

	base := time.Now().Add(-time.Hour)
	for i, action := range []string{"submit", "modify", "approve"} {
		err := store.Append(Transition{
			GuildID: "g1", Feature: "expense", StoreID: "shibuya",
			RecordID: "m1", Action: action,
			PrevStatus: "", NextStatus: action,
			ActorID: "u1", ActorName: "alice",
			At: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append %s: %v", action, err)
		}
	}
	if err := store.Append(Transition{
		GuildID: "g2", Feature: "sales", StoreID: "ueno",
		RecordID: "m9", Action: "submit", NextStatus: "submitted",
		ActorID: "u2", ActorName: "bob",
	}); err != nil {
		t.Fatal(err)
	}

	recent, err := store.Recent("g1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("want 3 transitions for g1, got %d", len(recent))
	}
	if recent[0].Action != "approve" {
		t.Errorf("newest first, got %s", recent[0].Action)
	}
	if recent[0].ID == "" {
		t.Error("append must assign an id")
	}

	limited, err := store.Recent("g1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit not honored, got %d", len(limited))
	}

	none, err := store.Recent("g9", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("unknown guild must have no history, got %d", len(none))
	}
}

func TestAuditInitTwice(t *testing.T) {
	store := newTestAuditStore(t)
	if err := store.Init(); err != nil {
		t.Fatalf("second Init must be a no-op: %v", err)
	}
}

func TestAuditRequiresInit(t *testing.T) {
	store := NewAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	if err := store.Append(Transition{GuildID: "g1"}); err == nil {
		t.Error("Append before Init must fail")
	}
	if _, err := store.Recent("g1", 1); err == nil {
		t.Error("Recent before Init must fail")
	}
}
