package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/session"
	"github.com/solvefy/solvefy/internal/store"
)

func newTokens(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(TokenConfig{Secret: "test-secret", TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func newTestAuth(t *testing.T) (*Authenticator, *store.Store) {
	t.Helper()
	b, err := store.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	st, err := store.New(context.Background(), b)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewAuthenticator(st, session.NewCollectionStore(st), newTokens(t)), st
}

func createUser(t *testing.T, st *store.Store, username, password string) model.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u, err := st.CreateUser(context.Background(), store.UserInput{
		Username: username, Password: password, PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestTokenRoundTrip(t *testing.T) {
	ts := newTokens(t)
	u := model.User{ID: "u1", Role: model.UserRoleTeacher}

	token, sess, err := ts.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if sess.UserID != "u1" || sess.ID == "" {
		t.Fatalf("session = %+v", sess)
	}
	if got := sess.ExpiresAt.Sub(sess.CreatedAt); got != time.Hour {
		t.Errorf("session lifetime = %v, want 1h", got)
	}

	claims, err := ts.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.ID != sess.ID {
		t.Errorf("jti = %q, want %q", claims.ID, sess.ID)
	}
	if claims.Subject != "u1" || claims.Role != model.UserRoleTeacher {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	ts := newTokens(t)
	token, _, err := ts.Issue(model.User{ID: "u1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, err := NewTokenService(TokenConfig{Secret: "other-secret"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: err = %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ID: "x", Issuer: defaultIssuer},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Parse(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg none: err = %v", err)
	}

	if _, err := ts.Parse(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty: err = %v", err)
	}

	ts.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := ts.Parse(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expired: err = %v", err)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer abc", "abc", false},
		{"  Bearer   abc  ", "abc", false},
		{"Basic abc", "", true},
		{"Bearer", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name        string
		user        model.User
		password    string
		wantOK      bool
		wantUpgrade bool
	}{
		{"hash match", model.User{PasswordHash: hash}, "secret", true, false},
		{"hash mismatch", model.User{PasswordHash: hash}, "nope", false, false},
		{"legacy match", model.User{LegacyPassword: "123456"}, "123456", true, true},
		{"legacy mismatch", model.User{LegacyPassword: "123456"}, "12345", false, false},
		{"no credential", model.User{}, "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, upgrade := CheckPassword(tt.user, tt.password)
			if ok != tt.wantOK || upgrade != tt.wantUpgrade {
				t.Errorf("CheckPassword = %v, %v; want %v, %v", ok, upgrade, tt.wantOK, tt.wantUpgrade)
			}
		})
	}
}

func TestLoginResolveLogout(t *testing.T) {
	a, st := newTestAuth(t)
	ctx := context.Background()
	u := createUser(t, st, "lan", "secret")

	res, err := a.Login(ctx, "lan", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != u.ID || res.Token == "" {
		t.Fatalf("Login = %+v", res)
	}

	got, sessID, err := a.Resolve(ctx, res.Token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != u.ID || sessID == "" {
		t.Errorf("Resolve = %+v, %q", got, sessID)
	}

	if err := a.Logout(ctx, sessID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, _, err := a.Resolve(ctx, res.Token); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("Resolve after logout: err = %v, want unauthorized", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	a, st := newTestAuth(t)
	createUser(t, st, "lan", "secret")

	_, errUnknown := a.Login(context.Background(), "nobody", "secret")
	_, errWrong := a.Login(context.Background(), "lan", "wrong")
	for _, err := range []error{errUnknown, errWrong} {
		e, ok := apperr.As(err)
		if !ok || e.Kind != apperr.KindUnauthorized || e.MessageID != "InvalidCredentials" {
			t.Errorf("err = %v, want InvalidCredentials", err)
		}
	}
}

type legacyUsers struct {
	user     model.User
	upgraded string
}

func (l *legacyUsers) GetUserByUsername(_ context.Context, name string) (*model.User, error) {
	if name != l.user.Username {
		return nil, apperr.NotFound("User")
	}
	u := l.user
	return &u, nil
}

func (l *legacyUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if id != l.user.ID {
		return nil, apperr.NotFound("User")
	}
	u := l.user
	return &u, nil
}

func (l *legacyUsers) UpdateUserPassword(_ context.Context, _, hash string) error {
	l.upgraded = hash
	return nil
}

func TestLoginUpgradesLegacyPassword(t *testing.T) {
	users := &legacyUsers{user: model.User{ID: "u1", Username: "old", LegacyPassword: "123456"}}
	a, st := newTestAuth(t)
	a.users = users
	a.sessions = session.NewCollectionStore(st)

	if _, err := a.Login(context.Background(), "old", "123456"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if users.upgraded == "" {
		t.Fatal("legacy password was not upgraded")
	}
	if ok, _ := CheckPassword(model.User{PasswordHash: users.upgraded}, "123456"); !ok {
		t.Error("upgraded hash does not match the password")
	}
}
