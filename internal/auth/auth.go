package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/session"
)

// UserStore is the part of the store the authenticator needs.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id, hash string) error
}

// Authenticator logs users in and resolves bearer tokens to principals.
type Authenticator struct {
	users    UserStore
	sessions session.Store
	tokens   *TokenService
}

// NewAuthenticator wires a user store, a session store and a token service.
func NewAuthenticator(users UserStore, sessions session.Store, tokens *TokenService) *Authenticator {
	return &Authenticator{users: users, sessions: sessions, tokens: tokens}
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	User      model.Profile `json:"user"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

var errBadCredentials = apperr.Unauthorized("InvalidCredentials")

// Login checks the credentials and opens a session. An unknown username and
// a wrong password produce the same error.
func (a *Authenticator) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username == "" || password == "" {
		return LoginResult{}, errBadCredentials
	}
	u, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return LoginResult{}, errBadCredentials
		}
		return LoginResult{}, err
	}
	ok, upgrade := CheckPassword(*u, password)
	if !ok {
		slog.Info("failed login", "username", username)
		return LoginResult{}, errBadCredentials
	}
	if upgrade {
		hash, err := HashPassword(password)
		if err != nil {
			return LoginResult{}, err
		}
		if err := a.users.UpdateUserPassword(ctx, u.ID, hash); err != nil {
			slog.Error("failed to upgrade legacy password", "user", u.ID, "error", err)
		}
	}

	token, sess, err := a.tokens.Issue(*u)
	if err != nil {
		return LoginResult{}, err
	}
	if err := a.sessions.Create(ctx, sess); err != nil {
		return LoginResult{}, apperr.Storage(err)
	}
	slog.Info("user logged in", "user", u.ID)
	return LoginResult{User: u.Profile(), Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Logout ends the session.
func (a *Authenticator) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := a.sessions.Delete(ctx, sessionID); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// Resolve verifies a bearer token and returns its user and session id.
// The session must still exist and the user must still be present.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*model.User, string, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, "", apperr.Unauthorized("SessionExpired")
		}
		return nil, "", apperr.Unauthorized("Unauthorized")
	}
	sess, err := a.sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, "", apperr.Storage(err)
	}
	if sess == nil || sess.UserID != claims.Subject {
		return nil, "", apperr.Unauthorized("SessionExpired")
	}
	u, err := a.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, "", apperr.Unauthorized("Unauthorized")
		}
		return nil, "", err
	}
	return u, sess.ID, nil
}
