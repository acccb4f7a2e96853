package store

import (
	"context"
	"errors"
)

// Collection names. Each one is a JSON array persisted as a unit.
const (
	Subjects     = "subjects"
	Grades       = "grades"
	Books        = "books"
	Lessons      = "lessons"
	Questions    = "questions"
	Answers      = "answers"
	Users        = "users"
	Bookmarks    = "user_bookmarks"
	Progress     = "user_progress"
	AuthSessions = "auth_sessions"
	Metadata     = "metadata"
)

// AllCollections lists every collection the store manages.
var AllCollections = []string{
	Subjects, Grades, Books, Lessons, Questions, Answers,
	Users, Bookmarks, Progress, AuthSessions, Metadata,
}

// ErrCollectionMissing is returned by a Backend when a collection has no stored data.
var ErrCollectionMissing = errors.New("collection missing")

// Backend persists whole collections as encoded JSON arrays.
type Backend interface {
	// Load returns the stored bytes of a collection.
	Load(ctx context.Context, name string) ([]byte, error)
	// Commit replaces every named collection. Either all of them change or none do.
	Commit(ctx context.Context, changes map[string][]byte) error
	// Ensure creates the named collections as empty arrays when they do not exist.
	Ensure(ctx context.Context, names []string) error
	Close() error
}
