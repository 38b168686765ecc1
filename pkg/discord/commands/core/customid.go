package core

import (
	"fmt"
	"strings"

	"github.com/small-frappuccino/storeops/pkg/ops"
)

// Component custom ids are the wire protocol carrying state between a click
// and its handler: the platform does not otherwise persist component context.
// Short form: "feature:role:action:storeID" for panel and settings components.
// Long form appends "::threadID::messageID::status" for lifecycle buttons.
//
// Parsing happens exactly once, at the dispatch boundary; handlers receive the
// typed CustomID and never split strings themselves.

// Action identifies what a component click asks for.
type Action string

const (
	ActionSubmit      Action = "submit"      // panel button: open the submit modal
	ActionSubmitModal Action = "submitmodal" // modal submission carrying form fields
	ActionApprove     Action = "approve"
	ActionModify      Action = "modify" // lifecycle button: open the pre-filled modal
	ActionModifyModal Action = "modifymodal"
	ActionDelete      Action = "delete"
	ActionSettings    Action = "settings"     // open per-store settings
	ActionViewRoles   Action = "viewroles"    // role select menus on settings panels
	ActionReqRoles    Action = "reqroles"     //
	ActionApprRoles   Action = "apprroles"    //
	ActionItems       Action = "items"        // item-list edit button
	ActionItemsModal  Action = "itemsmodal"   // item-list modal submission
	ActionRefresh     Action = "refreshpanel" // settings button: reconcile the store panel
)

// Role tokens kept on the wire; they name which button row a component
// belongs to, not the actor's permission.
const (
	RoleRequester = "requester"
	RoleApprover  = "approver"
	RoleAdmin     = "admin"
)

// CustomID is the decoded form of a component identifier.
type CustomID struct {
	Feature ops.Feature
	Role    string
	Action  Action
	StoreID string

	// Long-form context for lifecycle actions.
	ThreadID  string
	MessageID string
	Status    ops.Status
}

// IsLifecycle reports whether the action operates on an existing record.
func (c CustomID) IsLifecycle() bool {
	switch c.Action {
	case ActionApprove, ActionModify, ActionModifyModal, ActionDelete:
		return true
	}
	return false
}

// Encode renders the wire form of the id.
func (c CustomID) Encode() string {
	head := fmt.Sprintf("%s:%s:%s:%s", c.Feature, c.Role, c.Action, c.StoreID)
	if c.ThreadID == "" && c.MessageID == "" {
		return head
	}
	return fmt.Sprintf("%s::%s::%s::%s", head, c.ThreadID, c.MessageID, c.Status)
}

// ParseCustomID decodes a component identifier. Identifiers produced by other
// bots or older panels fail here and the interaction is ignored upstream.
func ParseCustomID(raw string) (CustomID, error) {
	long := strings.Split(raw, "::")
	if len(long) != 1 && len(long) != 4 {
		return CustomID{}, fmt.Errorf("custom id %q: malformed context segments", raw)
	}

	head := strings.Split(long[0], ":")
	if len(head) != 4 {
		return CustomID{}, fmt.Errorf("custom id %q: want feature:role:action:storeID", raw)
	}

	feature, err := ops.ParseFeature(head[0])
	if err != nil {
		return CustomID{}, fmt.Errorf("custom id %q: %w", raw, err)
	}

	id := CustomID{
		Feature: feature,
		Role:    head[1],
		Action:  Action(head[2]),
		StoreID: head[3],
	}
	switch id.Action {
	case ActionSubmit, ActionSubmitModal, ActionApprove, ActionModify, ActionModifyModal,
		ActionDelete, ActionSettings, ActionViewRoles, ActionReqRoles, ActionApprRoles,
		ActionItems, ActionItemsModal, ActionRefresh:
	default:
		return CustomID{}, fmt.Errorf("custom id %q: unknown action %q", raw, head[2])
	}
	if id.StoreID == "" {
		return CustomID{}, fmt.Errorf("custom id %q: missing store id", raw)
	}

	if len(long) == 4 {
		id.ThreadID = long[1]
		id.MessageID = long[2]
		id.Status = ops.Status(long[3])
	}
	if id.IsLifecycle() && (id.ThreadID == "" || id.MessageID == "") {
		return CustomID{}, fmt.Errorf("custom id %q: lifecycle action missing thread/message context", raw)
	}
	return id, nil
}
