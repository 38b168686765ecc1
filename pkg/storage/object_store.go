package storage

import "context"

// ObjectStore is the boundary to the document/file store holding all bot
// state: JSON config documents, daily ledgers, and generated CSV artifacts.
// Keys are slash-separated paths such as
// "{guildID}/{feature}/{storeID}/2026/08/30.json".
type ObjectStore interface {
	// ReadJSON unmarshals the object at key into v. It reports found=false
	// (with a nil error) when the object does not exist.
	ReadJSON(ctx context.Context, key string, v any) (found bool, err error)

	// WriteJSON marshals v and writes it to key, overwriting any prior object.
	WriteJSON(ctx context.Context, key string, v any) error

	// List returns the keys under prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// SaveBuffer writes raw bytes (CSV exports) to key.
	SaveBuffer(ctx context.Context, key string, data []byte, contentType string) error

	// PublicURL returns a URL under which the object at key can be fetched.
	PublicURL(key string) string
}
