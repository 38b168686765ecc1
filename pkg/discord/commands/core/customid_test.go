package core

import (
	"testing"

	"github.com/small-frappuccino/storeops/pkg/ops"
)

func TestCustomIDRoundTrip(t *testing.T) {
	cases := []CustomID{
		{Feature: ops.FeatureExpense, Role: RoleRequester, Action: ActionSubmit, StoreID: "shibuya"},
		{Feature: ops.FeatureSales, Role: RoleAdmin, Action: ActionSettings, StoreID: "ueno-2"},
		{Feature: ops.FeatureExpense, Role: RoleApprover, Action: ActionApprove, StoreID: "shibuya",
			ThreadID: "t1", MessageID: "m1", Status: ops.StatusSubmitted},
		{Feature: ops.FeatureSales, Role: RoleApprover, Action: ActionModify, StoreID: "shibuya",
			ThreadID: "t1", MessageID: "m1", Status: ops.StatusModified},
	}
	for _, want := range cases {
		got, err := ParseCustomID(want.Encode())
		if err != nil {
			t.Errorf("ParseCustomID(%q): %v", want.Encode(), err)
			continue
		}
		if got != want {
			t.Errorf("round trip mismatch:\nencoded %q\ngot  %+v\nwant %+v", want.Encode(), got, want)
		}
	}
}

func TestCustomIDShortForm(t *testing.T) {
	id, err := ParseCustomID("expense:requester:submit:shibuya")
	if err != nil {
		t.Fatalf("ParseCustomID: %v", err)
	}
	if id.Feature != ops.FeatureExpense || id.Action != ActionSubmit || id.StoreID != "shibuya" {
		t.Errorf("unexpected decode: %+v", id)
	}
	if id.IsLifecycle() {
		t.Error("submit is not a lifecycle action")
	}
}

func TestCustomIDLongForm(t *testing.T) {
	id, err := ParseCustomID("expense:approver:approve:shibuya::t1::m1::submitted")
	if err != nil {
		t.Fatalf("ParseCustomID: %v", err)
	}
	if id.ThreadID != "t1" || id.MessageID != "m1" || id.Status != ops.StatusSubmitted {
		t.Errorf("context not decoded: %+v", id)
	}
	if !id.IsLifecycle() {
		t.Error("approve is a lifecycle action")
	}
}

func TestCustomIDRejectsForeignIDs(t *testing.T) {
	bad := []string{
		"",
		"ping",
		"expense:requester:submit",                      // missing store id
		"expense:requester:submit:",                     // empty store id
		"groceries:requester:submit:shibuya",            // unknown feature
		"expense:requester:launch:shibuya",              // unknown action
		"expense:approver:approve:shibuya::t1",          // truncated context
		"expense:approver:approve:shibuya::::submitted", // lifecycle without ids
		"other_bot_button",
		"a:b:c:d:e:f",
	}
	for _, raw := range bad {
		if _, err := ParseCustomID(raw); err == nil {
			t.Errorf("ParseCustomID(%q) accepted a malformed id", raw)
		}
	}
}
