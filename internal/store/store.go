package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/solvefy/solvefy/internal/apperr"
)

// Store is the flat collection store. Mutations hold the write lock for the
// whole read-modify-write cycle, so ids are assigned and collections are
// replaced without interleaving. Reads hold the read lock.
type Store struct {
	backend Backend
	mu      sync.RWMutex
	now     func() time.Time
	millis  atomic.Int64
	sf      singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps a backend and makes sure every collection exists.
func New(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	if err := backend.Ensure(ctx, AllCollections); err != nil {
		return nil, fmt.Errorf("ensure collections: %w", err)
	}
	s := &Store{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open builds a store on the named backend kind: "file" uses dataDir,
// "sqlite" uses dbPath.
func Open(ctx context.Context, kind, dataDir, dbPath string) (*Store, error) {
	var (
		b   Backend
		err error
	)
	switch kind {
	case "", "file":
		b, err = NewFileBackend(dataDir)
	case "sqlite":
		b, err = NewSQLiteBackend(dbPath)
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, b)
	if err != nil {
		b.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// load decodes a collection. The caller must hold s.mu.
func load[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	data, err := s.backend.Load(ctx, name)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("load %s: %w", name, err))
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperr.Storage(fmt.Errorf("parse %s: %w", name, err))
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// readAll loads a collection under the read lock.
func readAll[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return load[T](ctx, s, name)
}

// changeset collects encoded collections to be committed together.
type changeset map[string][]byte

func stage[T any](cs changeset, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return apperr.Storage(fmt.Errorf("encode %s: %w", name, err))
	}
	cs[name] = buf.Bytes()
	return nil
}

// commit writes a changeset. The caller must hold the write lock.
func (s *Store) commit(ctx context.Context, cs changeset) error {
	if err := s.backend.Commit(ctx, cs); err != nil {
		return apperr.Storage(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// save replaces a single collection. The caller must hold the write lock.
func save[T any](ctx context.Context, s *Store, name string, items []T) error {
	cs := changeset{}
	if err := stage(cs, name, items); err != nil {
		return err
	}
	return s.commit(ctx, cs)
}

// nextSeqID returns prefix + (max numeric suffix + 1). Ids with another
// prefix or a non-numeric suffix are ignored.
func nextSeqID[T any](items []T, prefix string, id func(T) string) string {
	maxN := 0
	for _, it := range items {
		rest, ok := strings.CutPrefix(id(it), prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > maxN {
			maxN = n
		}
	}
	return prefix + strconv.Itoa(maxN+1)
}

// nextMillisID returns prefix + a millisecond timestamp that is strictly
// greater than every one this store handed out before.
func (s *Store) nextMillisID(prefix string) string {
	for {
		ms := s.now().UnixMilli()
		last := s.millis.Load()
		if ms <= last {
			ms = last + 1
		}
		if s.millis.CompareAndSwap(last, ms) {
			return prefix + strconv.FormatInt(ms, 10)
		}
	}
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func find[T any](items []T, match func(T) bool) (T, int) {
	i := slices.IndexFunc(items, match)
	if i < 0 {
		var zero T
		return zero, -1
	}
	return items[i], i
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
