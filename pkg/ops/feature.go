package ops

import (
	"fmt"
	"time"
)

// Feature selects which of the two report pipelines a document or
// interaction belongs to.
type Feature string

const (
	FeatureExpense Feature = "expense"
	FeatureSales   Feature = "sales"
)

// ParseFeature validates a feature token from a custom id or command option.
func ParseFeature(s string) (Feature, error) {
	switch Feature(s) {
	case FeatureExpense, FeatureSales:
		return Feature(s), nil
	}
	return "", fmt.Errorf("unknown feature %q", s)
}

// Label returns the user-facing Japanese label for the feature.
func (f Feature) Label() string {
	switch f {
	case FeatureExpense:
		return "経費"
	case FeatureSales:
		return "売上"
	}
	return string(f)
}

// Object-storage key layout. Everything the bot persists lives under
// {guildID}/{feature}/..., one JSON document per key.

// GuildConfigKey is the per-guild, per-feature configuration document.
func GuildConfigKey(guildID string, f Feature) string {
	return fmt.Sprintf("%s/%s/config.json", guildID, f)
}

// StoreConfigKey is the per-store configuration document.
func StoreConfigKey(guildID string, f Feature, storeID string) string {
	return fmt.Sprintf("%s/%s/%s/config.json", guildID, f, storeID)
}

// LedgerKey is the daily ledger document for a store.
func LedgerKey(guildID string, f Feature, storeID string, day time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%04d/%02d/%02d.json", guildID, f, storeID, day.Year(), day.Month(), day.Day())
}

// CSVKey is a generated export artifact for a store.
func CSVKey(guildID string, f Feature, storeID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s/csv/%s", guildID, f, storeID, fileName)
}
