package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FileBackend keeps one <name>.json file per collection in a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend opens (and creates if needed) a data directory.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

// Load reads a collection file.
func (b *FileBackend) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrCollectionMissing)
	}
	return data, err
}

// Commit writes every changed collection to a temp file first and only then
// renames them over the originals, so a failed write leaves no file replaced.
func (b *FileBackend) Commit(ctx context.Context, changes map[string][]byte) error {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	temps := make(map[string]string, len(names))
	cleanup := func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		tmp, err := writeTemp(b.dir, name, changes[name])
		if err != nil {
			cleanup()
			return fmt.Errorf("write %s: %w", name, err)
		}
		temps[name] = tmp
	}

	for _, name := range names {
		if err := os.Rename(temps[name], b.path(name)); err != nil {
			cleanup()
			return fmt.Errorf("replace %s: %w", name, err)
		}
		delete(temps, name)
	}
	return nil
}

func writeTemp(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Ensure creates missing collection files holding an empty array.
func (b *FileBackend) Ensure(ctx context.Context, names []string) error {
	missing := make(map[string][]byte)
	for _, name := range names {
		_, err := os.Stat(b.path(name))
		if errors.Is(err, fs.ErrNotExist) {
			missing[name] = []byte("[]\n")
			continue
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", name, err)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	for name := range missing {
		slog.Info("initializing collection", "name", name, "dir", b.dir)
	}
	return b.Commit(ctx, missing)
}

// Close is a no-op for files.
func (b *FileBackend) Close() error { return nil }
