package store

import (
	"context"
	"log/slog"
	"slices"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
)

// UserInput is the payload for creating a user. PasswordHash is set by the
// caller after hashing the clear-text password.
type UserInput struct {
	Username     string         `json:"username" validate:"required"`
	Password     string         `json:"password" validate:"required"`
	FullName     string         `json:"fullName"`
	Role         model.UserRole `json:"role" validate:"omitempty,oneof=student teacher admin"`
	Avatar       string         `json:"avatar"`
	PasswordHash string         `json:"-"`
}

// CreateUser inserts a new user with id u<n>. Usernames are unique.
func (s *Store) CreateUser(ctx context.Context, in UserInput) (model.User, error) {
	trim(&in.Username, &in.FullName, &in.Avatar)
	if err := checkInput(in); err != nil {
		return model.User{}, err
	}
	if in.Role == "" {
		in.Role = model.UserRoleStudent
	}
	if in.FullName == "" {
		in.FullName = in.Username
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := load[model.User](ctx, s, Users)
	if err != nil {
		return model.User{}, err
	}
	if slices.ContainsFunc(users, func(u model.User) bool { return u.Username == in.Username }) {
		return model.User{}, apperr.Conflict("UsernameTaken")
	}

	u := model.User{
		ID:           nextSeqID(users, "u", func(u model.User) string { return u.ID }),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		FullName:     in.FullName,
		Role:         in.Role,
		Avatar:       in.Avatar,
		CreatedAt:    s.timestamp(),
	}
	if err := save(ctx, s, Users, append(users, u)); err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return model.User{}, err
	}
	slog.Info("created user", "id", u.ID, "username", u.Username, "role", u.Role)
	return u, nil
}

// GetUserByUsername returns a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return getByID(ctx, s, Users, "User", username, func(u model.User) string { return u.Username })
}

// GetUserByID returns a user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return getByID(ctx, s, Users, "User", id, func(u model.User) string { return u.ID })
}

// ListUsers returns all users in file order.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	return readAll[model.User](ctx, s, Users)
}

// ListProfiles returns all users without credentials.
func (s *Store) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return profiles(users), nil
}

func profiles(users []model.User) []model.Profile {
	out := make([]model.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out
}

// UpdateUserPassword stores a new password hash and drops any clear-text password.
func (s *Store) UpdateUserPassword(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := load[model.User](ctx, s, Users)
	if err != nil {
		return err
	}
	u, i := find(users, func(u model.User) bool { return u.ID == id })
	if i < 0 {
		return apperr.NotFound("User")
	}
	u.PasswordHash = hash
	u.LegacyPassword = ""
	users[i] = u
	if err := save(ctx, s, Users, users); err != nil {
		return err
	}
	slog.Info("updated user password", "id", id)
	return nil
}

// UserCount returns the total number of users.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}
