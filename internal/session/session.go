// Package session persists auth sessions behind a small interface with a
// collection-store implementation and a Redis one.
package session

import (
	"context"

	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/store"
)

// Store keeps auth sessions until they expire or are deleted.
type Store interface {
	Create(ctx context.Context, sess model.AuthSession) error
	// Get returns nil and no error for unknown or expired sessions.
	Get(ctx context.Context, id string) (*model.AuthSession, error)
	Delete(ctx context.Context, id string) error
}

// CollectionStore keeps sessions in the auth_sessions collection.
type CollectionStore struct {
	st *store.Store
}

// NewCollectionStore wraps the collection store.
func NewCollectionStore(st *store.Store) *CollectionStore {
	return &CollectionStore{st: st}
}

func (c *CollectionStore) Create(ctx context.Context, sess model.AuthSession) error {
	return c.st.CreateAuthSession(ctx, sess)
}

func (c *CollectionStore) Get(ctx context.Context, id string) (*model.AuthSession, error) {
	return c.st.GetAuthSession(ctx, id)
}

func (c *CollectionStore) Delete(ctx context.Context, id string) error {
	return c.st.DeleteAuthSession(ctx, id)
}
