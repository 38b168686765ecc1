package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/small-frappuccino/storeops/pkg/storage"
)

// Status is the lifecycle state of a request record. Approved and deleted are
// terminal; records are never hard-deleted so the audit trail survives.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusModified  Status = "modified"
	StatusApproved  Status = "approved"
	StatusDeleted   Status = "deleted"
)

// CanTransition reports whether next is a legal successor of s.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusSubmitted:
		return next == StatusModified || next == StatusApproved || next == StatusDeleted
	case StatusModified:
		return next == StatusApproved || next == StatusDeleted
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDeleted
}

// Export returns the uppercase form used in CSV rows.
func (s Status) Export() string { return strings.ToUpper(string(s)) }

// Label returns the user-facing Japanese label for the status.
func (s Status) Label() string {
	switch s {
	case StatusSubmitted:
		return "申請中"
	case StatusModified:
		return "修正済"
	case StatusApproved:
		return "承認済"
	case StatusDeleted:
		return "削除済"
	}
	return string(s)
}

// RequestRecord is one submitted expense or sales entry. ID always equals the
// id of the thread message currently displaying the record, so an action
// button can resolve back to exactly one ledger entry.
type RequestRecord struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	Date   string `json:"date"` // YYYY-MM-DD, as entered

	// Expense fields.
	Amount     int    `json:"amount,omitempty"`
	Department string `json:"department,omitempty"`
	Item       string `json:"item,omitempty"`

	// Sales fields.
	Total int `json:"total,omitempty"`
	Card  int `json:"card,omitempty"`
	Cost  int `json:"cost,omitempty"`

	Note string `json:"note,omitempty"`

	RequesterID   string `json:"requester_id"`
	RequesterName string `json:"requester_name"`
	ApproverID    string `json:"approver_id,omitempty"`
	ApproverName  string `json:"approver_name,omitempty"`
	ApprovedAt    string `json:"approved_at,omitempty"`

	// Back-references to the three places the record is mirrored.
	ThreadID     string `json:"thread_id"`
	ChannelLogID string `json:"channel_log_id,omitempty"`
	AdminLogID   string `json:"admin_log_id,omitempty"`
}

// Remain is the cash remainder of a sales record: total minus card and cost.
func (r *RequestRecord) Remain() int { return r.Total - (r.Card + r.Cost) }

// Day parses the record's entered date.
func (r *RequestRecord) Day() (time.Time, error) {
	return time.Parse("2006-01-02", r.Date)
}

// DailyLedger is the ordered list of records for one (guild, feature, store,
// calendar day). Records are appended on submit and mutated in place by id.
type DailyLedger struct {
	Records []RequestRecord `json:"records"`
}

// Find returns the record with the given id, or nil.
func (l *DailyLedger) Find(id string) *RequestRecord {
	for i := range l.Records {
		if l.Records[i].ID == id {
			return &l.Records[i]
		}
	}
	return nil
}

// LedgerScope identifies one store's ledger stream.
type LedgerScope struct {
	GuildID string
	Feature Feature
	StoreID string
}

// LedgerStore reads and writes daily ledgers. Writes within this process are
// serialized per day; there is no cross-process locking.
type LedgerStore struct {
	objects storage.ObjectStore
	locks   *scopeLocks
}

// NewLedgerStore creates a LedgerStore over the given object store.
func NewLedgerStore(objects storage.ObjectStore) *LedgerStore {
	return &LedgerStore{objects: objects, locks: newScopeLocks()}
}

// Load returns the ledger for a day, empty when absent.
func (s *LedgerStore) Load(ctx context.Context, scope LedgerScope, day time.Time) (*DailyLedger, error) {
	ledger := &DailyLedger{}
	key := LedgerKey(scope.GuildID, scope.Feature, scope.StoreID, day)
	if _, err := s.objects.ReadJSON(ctx, key, ledger); err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", key, err)
	}
	return ledger, nil
}

// Append adds a new record to the day's ledger.
func (s *LedgerStore) Append(ctx context.Context, scope LedgerScope, day time.Time, record RequestRecord) error {
	key := LedgerKey(scope.GuildID, scope.Feature, scope.StoreID, day)
	release := s.locks.Acquire(key)
	defer release()

	ledger, err := s.Load(ctx, scope, day)
	if err != nil {
		return err
	}
	if ledger.Find(record.ID) != nil {
		return fmt.Errorf("append ledger %s: record %s already present", key, record.ID)
	}
	ledger.Records = append(ledger.Records, record)
	if err := s.objects.WriteJSON(ctx, key, ledger); err != nil {
		return fmt.Errorf("append ledger %s: %w", key, err)
	}
	return nil
}

// Transition moves the record with the given id to next, applying mutate to
// the record while the day's ledger is held. It rejects unknown ids and
// illegal transitions; terminal records never move again.
func (s *LedgerStore) Transition(ctx context.Context, scope LedgerScope, day time.Time, recordID string, next Status, mutate func(*RequestRecord)) (prev Status, updated RequestRecord, err error) {
	key := LedgerKey(scope.GuildID, scope.Feature, scope.StoreID, day)
	release := s.locks.Acquire(key)
	defer release()

	ledger, err := s.Load(ctx, scope, day)
	if err != nil {
		return "", RequestRecord{}, err
	}
	rec := ledger.Find(recordID)
	if rec == nil {
		return "", RequestRecord{}, fmt.Errorf("ledger %s: record %s not found", key, recordID)
	}
	if !rec.Status.CanTransition(next) {
		return rec.Status, *rec, fmt.Errorf("ledger %s: record %s cannot move from %s to %s", key, recordID, rec.Status, next)
	}

	prev = rec.Status
	rec.Status = next
	if mutate != nil {
		mutate(rec)
	}
	if err := s.objects.WriteJSON(ctx, key, ledger); err != nil {
		return prev, *rec, fmt.Errorf("write ledger %s: %w", key, err)
	}
	return prev, *rec, nil
}
