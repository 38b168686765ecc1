package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// AuditStore wraps an embedded SQLite database recording every applied
// lifecycle transition. It is a local trail for the audit command, not the
// source of truth; ledgers in object storage remain authoritative.
// modernc.org/sqlite keeps the build CGO-less.
type AuditStore struct {
	dbPath string
	db     *sql.DB
}

// Transition is one applied lifecycle state change.
type Transition struct {
	ID         string
	GuildID    string
	Feature    string
	StoreID    string
	RecordID   string
	Action     string
	PrevStatus string
	NextStatus string
	ActorID    string
	ActorName  string
	At         time.Time
}

// NewAuditStore creates a store pointing at dbPath. Call Init before use.
func NewAuditStore(dbPath string) *AuditStore {
	return &AuditStore{dbPath: dbPath}
}

// Init opens the database, configures pragmas, and ensures the schema exists.
func (s *AuditStore) Init() error {
	if s.db != nil {
		return nil
	}
	if s.dbPath == "" {
		return fmt.Errorf("audit store: db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("audit store: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("audit store: open sqlite: %w", err)
	}

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA synchronous=NORMAL;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("audit store: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS transitions (
	id          TEXT PRIMARY KEY,
	guild_id    TEXT NOT NULL,
	feature     TEXT NOT NULL,
	store_id    TEXT NOT NULL,
	record_id   TEXT NOT NULL,
	action      TEXT NOT NULL,
	prev_status TEXT NOT NULL,
	next_status TEXT NOT NULL,
	actor_id    TEXT NOT NULL,
	actor_name  TEXT NOT NULL,
	at          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_guild_at ON transitions(guild_id, at DESC);
`); err != nil {
		_ = db.Close()
		return fmt.Errorf("audit store: ensure schema: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *AuditStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Append records one applied transition. The id is assigned here.
func (s *AuditStore) Append(t Transition) error {
	if s.db == nil {
		return fmt.Errorf("audit store: not initialized")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.At.IsZero() {
		t.At = time.Now()
	}
	_, err := s.db.Exec(`
INSERT INTO transitions (id, guild_id, feature, store_id, record_id, action, prev_status, next_status, actor_id, actor_name, at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.GuildID, t.Feature, t.StoreID, t.RecordID, t.Action, t.PrevStatus, t.NextStatus, t.ActorID, t.ActorName, t.At.Unix(),
	)
	if err != nil {
		return fmt.Errorf("audit store: insert transition: %w", err)
	}
	return nil
}

// Recent returns the latest n transitions for a guild, newest first.
func (s *AuditStore) Recent(guildID string, n int) ([]Transition, error) {
	if s.db == nil {
		return nil, fmt.Errorf("audit store: not initialized")
	}
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.Query(`
SELECT id, guild_id, feature, store_id, record_id, action, prev_status, next_status, actor_id, actor_name, at
FROM transitions WHERE guild_id = ? ORDER BY at DESC, id LIMIT ?`, guildID, n)
	if err != nil {
		return nil, fmt.Errorf("audit store: query recent: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var at int64
		if err := rows.Scan(&t.ID, &t.GuildID, &t.Feature, &t.StoreID, &t.RecordID, &t.Action, &t.PrevStatus, &t.NextStatus, &t.ActorID, &t.ActorName, &at); err != nil {
			return nil, fmt.Errorf("audit store: scan transition: %w", err)
		}
		t.At = time.Unix(at, 0)
		out = append(out, t)
	}
	return out, rows.Err()
}
