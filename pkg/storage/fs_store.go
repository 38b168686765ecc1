package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore keeps objects as files under a root directory. It backs local
// development and tests; production runs against S3Store.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed ObjectStore rooted at dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{root: dir}
}

func (f *FSStore) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f *FSStore) ReadJSON(_ context.Context, key string, v any) (bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("fs store: read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("fs store: unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (f *FSStore) WriteJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("fs store: marshal %s: %w", key, err)
	}
	return f.SaveBuffer(ctx, key, data, "application/json")
}

func (f *FSStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, relErr := filepath.Rel(f.root, path)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fs store: list %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FSStore) SaveBuffer(_ context.Context, key string, data []byte, _ string) error {
	path := f.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("fs store: mkdir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("fs store: write %s: %w", key, err)
	}
	return nil
}

func (f *FSStore) PublicURL(key string) string {
	return "file://" + f.path(key)
}
