package store

import (
	"context"
	"log/slog"

	"github.com/solvefy/solvefy/internal/model"
)

// CreateAuthSession stores a new auth session.
func (s *Store) CreateAuthSession(ctx context.Context, sess model.AuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := load[model.AuthSession](ctx, s, AuthSessions)
	if err != nil {
		return err
	}
	now := s.now()
	sessions = filter(sessions, func(v model.AuthSession) bool { return !v.Expired(now) && v.ID != sess.ID })
	return save(ctx, s, AuthSessions, append(sessions, sess))
}

// GetAuthSession returns the auth session with the given id, or nil if it is
// unknown or expired.
func (s *Store) GetAuthSession(ctx context.Context, id string) (*model.AuthSession, error) {
	sessions, err := readAll[model.AuthSession](ctx, s, AuthSessions)
	if err != nil {
		return nil, err
	}
	sess, i := find(sessions, func(v model.AuthSession) bool { return v.ID == id })
	if i < 0 {
		return nil, nil
	}
	if sess.Expired(s.now()) {
		if err := s.DeleteAuthSession(ctx, id); err != nil {
			slog.Warn("failed to drop expired session", "id", id, "error", err)
		}
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession removes a session. Removing an unknown session is not an error.
func (s *Store) DeleteAuthSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := load[model.AuthSession](ctx, s, AuthSessions)
	if err != nil {
		return err
	}
	_, i := find(sessions, func(v model.AuthSession) bool { return v.ID == id })
	if i < 0 {
		return nil
	}
	return save(ctx, s, AuthSessions, append(sessions[:i:i], sessions[i+1:]...))
}

// CleanupExpiredSessions removes all expired auth sessions and reports how many went.
func (s *Store) CleanupExpiredSessions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := load[model.AuthSession](ctx, s, AuthSessions)
	if err != nil {
		return 0, err
	}
	now := s.now()
	live := filter(sessions, func(v model.AuthSession) bool { return !v.Expired(now) })
	removed := len(sessions) - len(live)
	if removed == 0 {
		return 0, nil
	}
	return removed, save(ctx, s, AuthSessions, live)
}
