package ops

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/small-frappuccino/storeops/pkg/log"
	"github.com/small-frappuccino/storeops/pkg/storage"
)

// PanelRef is a weak reference to a live Discord message. Either field may go
// stale when the message is deleted out-of-band; lookup failure means the
// panel gets recreated, never an error surfaced to the user.
type PanelRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// IsZero reports whether the reference has never been set.
func (r PanelRef) IsZero() bool { return r.ChannelID == "" && r.MessageID == "" }

// GuildFeatureConfig holds per-guild settings for one feature. It is never
// deleted, only overwritten.
type GuildFeatureConfig struct {
	GuildID             string              `json:"guild_id"`
	Feature             Feature             `json:"feature"`
	ApproverRoleIDs     []string            `json:"approver_role_ids,omitempty"`
	ApproverPositionIDs []string            `json:"approver_position_ids,omitempty"`
	Positions           map[string][]string `json:"positions,omitempty"` // position id -> role ids
	Stores              map[string]PanelRef `json:"stores,omitempty"`    // store id -> current panel
	AdminLogChannelID   string              `json:"admin_log_channel_id,omitempty"`
	SettingsPanel       PanelRef            `json:"settings_panel,omitempty"`
}

// StoreConfig holds settings for one business unit. Created on first panel
// placement and overwritten on every role or item edit.
type StoreConfig struct {
	StoreID            string    `json:"store_id"`
	Name               string    `json:"name"`
	ChannelID          string    `json:"channel_id"`
	MessageID          string    `json:"message_id"` // current panel message
	ViewRoleIDs        []string  `json:"view_role_ids,omitempty"`
	ViewPositionIDs    []string  `json:"view_position_ids,omitempty"`
	RequestRoleIDs     []string  `json:"request_role_ids,omitempty"`
	RequestPositionIDs []string  `json:"request_position_ids,omitempty"`
	Items              []string  `json:"items,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Panel returns the store's current panel as a PanelRef.
func (sc *StoreConfig) Panel() PanelRef {
	return PanelRef{ChannelID: sc.ChannelID, MessageID: sc.MessageID}
}

// scopeLocks serializes read-modify-write cycles per document key within this
// process. Cross-process writers still race; the ledgers are the record of
// truth and the last writer wins, matching the predecessor's guarantees.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the named scope and returns its release func.
func (s *scopeLocks) Acquire(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// ConfigStore loads and saves configuration documents. Absent documents load
// as schema defaults; unknown JSON fields in stored documents are ignored on
// read rather than rejected.
type ConfigStore struct {
	objects storage.ObjectStore
	locks   *scopeLocks
}

// NewConfigStore creates a ConfigStore over the given object store.
func NewConfigStore(objects storage.ObjectStore) *ConfigStore {
	return &ConfigStore{objects: objects, locks: newScopeLocks()}
}

// LoadGuildConfig returns the guild/feature document, defaulted when absent.
func (c *ConfigStore) LoadGuildConfig(ctx context.Context, guildID string, f Feature) (*GuildFeatureConfig, error) {
	cfg := &GuildFeatureConfig{GuildID: guildID, Feature: f}
	found, err := c.objects.ReadJSON(ctx, GuildConfigKey(guildID, f), cfg)
	if err != nil {
		return nil, fmt.Errorf("load guild config %s/%s: %w", guildID, f, err)
	}
	if !found {
		log.StorageLogger().Info("Guild config absent, using defaults", "guildID", guildID, "feature", f)
	}
	if cfg.Positions == nil {
		cfg.Positions = make(map[string][]string)
	}
	if cfg.Stores == nil {
		cfg.Stores = make(map[string]PanelRef)
	}
	cfg.GuildID = guildID
	cfg.Feature = f
	return cfg, nil
}

// SaveGuildConfig overwrites the guild/feature document.
func (c *ConfigStore) SaveGuildConfig(ctx context.Context, cfg *GuildFeatureConfig) error {
	if cfg.GuildID == "" || cfg.Feature == "" {
		return fmt.Errorf("save guild config: guild id and feature are required")
	}
	if err := c.objects.WriteJSON(ctx, GuildConfigKey(cfg.GuildID, cfg.Feature), cfg); err != nil {
		return fmt.Errorf("save guild config %s/%s: %w", cfg.GuildID, cfg.Feature, err)
	}
	return nil
}

// LoadStoreConfig returns the store document, defaulted when absent.
func (c *ConfigStore) LoadStoreConfig(ctx context.Context, guildID string, f Feature, storeID string) (*StoreConfig, error) {
	cfg := &StoreConfig{StoreID: storeID}
	found, err := c.objects.ReadJSON(ctx, StoreConfigKey(guildID, f, storeID), cfg)
	if err != nil {
		return nil, fmt.Errorf("load store config %s/%s/%s: %w", guildID, f, storeID, err)
	}
	if !found {
		log.StorageLogger().Info("Store config absent, using defaults", "guildID", guildID, "feature", f, "storeID", storeID)
	}
	cfg.StoreID = storeID
	if cfg.Name == "" {
		cfg.Name = storeID
	}
	return cfg, nil
}

// SaveStoreConfig overwrites the store document and stamps UpdatedAt.
func (c *ConfigStore) SaveStoreConfig(ctx context.Context, guildID string, f Feature, cfg *StoreConfig) error {
	if cfg.StoreID == "" {
		return fmt.Errorf("save store config: store id is required")
	}
	cfg.UpdatedAt = time.Now()
	if err := c.objects.WriteJSON(ctx, StoreConfigKey(guildID, f, cfg.StoreID), cfg); err != nil {
		return fmt.Errorf("save store config %s/%s/%s: %w", guildID, f, cfg.StoreID, err)
	}
	return nil
}

// UpdateGuildConfig runs mutate under the document's scope lock, persisting
// the result. The loaded document is passed to mutate; returning an error
// aborts without writing.
func (c *ConfigStore) UpdateGuildConfig(ctx context.Context, guildID string, f Feature, mutate func(*GuildFeatureConfig) error) (*GuildFeatureConfig, error) {
	release := c.locks.Acquire(GuildConfigKey(guildID, f))
	defer release()

	cfg, err := c.LoadGuildConfig(ctx, guildID, f)
	if err != nil {
		return nil, err
	}
	if err := mutate(cfg); err != nil {
		return nil, err
	}
	if err := c.SaveGuildConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateStoreConfig runs mutate under the document's scope lock, persisting
// the result.
func (c *ConfigStore) UpdateStoreConfig(ctx context.Context, guildID string, f Feature, storeID string, mutate func(*StoreConfig) error) (*StoreConfig, error) {
	release := c.locks.Acquire(StoreConfigKey(guildID, f, storeID))
	defer release()

	cfg, err := c.LoadStoreConfig(ctx, guildID, f, storeID)
	if err != nil {
		return nil, err
	}
	if err := mutate(cfg); err != nil {
		return nil, err
	}
	if err := c.SaveStoreConfig(ctx, guildID, f, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
