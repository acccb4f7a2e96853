package store

import (
	"context"
	"path/filepath"
)

type metaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SetMetadata upserts a key-value pair in the metadata collection.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := load[metaEntry](ctx, s, Metadata)
	if err != nil {
		return err
	}
	if _, i := find(entries, func(e metaEntry) bool { return e.Key == key }); i >= 0 {
		entries[i].Value = value
	} else {
		entries = append(entries, metaEntry{Key: key, Value: value})
	}
	return save(ctx, s, Metadata, entries)
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	entries, err := readAll[metaEntry](ctx, s, Metadata)
	if err != nil {
		return "", err
	}
	e, _ := find(entries, func(e metaEntry) bool { return e.Key == key })
	return e.Value, nil
}

func importKey(path string) string {
	return "import_hash:" + filepath.Base(path)
}

// GetImportedFileHash returns the sha256 recorded for the last import of path.
func (s *Store) GetImportedFileHash(ctx context.Context, path string) (string, error) {
	return s.GetMetadata(ctx, importKey(path))
}

// SetImportedFileHash records the sha256 of an imported file.
func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string) error {
	return s.SetMetadata(ctx, importKey(path), hash)
}
