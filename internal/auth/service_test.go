package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/store"
)

type fakeUsers struct {
	users     map[string]model.User
	touched   []int64
	rehashed  map[int64]string
	events    []store.CreateEventParams
	lookupErr error
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{users: map[string]model.User{}, rehashed: map[int64]string{}}
	for _, u := range users {
		f.users[u.Email] = u
	}
	return f
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	if f.lookupErr != nil {
		return model.User{}, f.lookupErr
	}
	u, ok := f.users[email]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id int64) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	f.rehashed[id] = hash
	return nil
}

func (f *fakeUsers) CreateEvent(_ context.Context, p store.CreateEventParams) error {
	f.events = append(f.events, p)
	return nil
}

func newTestService(t *testing.T, users *fakeUsers) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(users, NewTokenManager(testSecret), logger)
}

func TestLogin_Success(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	users := newFakeUsers(model.User{ID: 7, Email: "ada@example.com", PasswordHash: hash, Role: model.RoleEditor, Name: "Ada"})
	svc := newTestService(t, users)

	res, err := svc.Login(context.Background(), LoginRequest{
		Email:     "  ADA@example.com ",
		Password:  "s3cret",
		IP:        "203.0.113.9",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	claims, err := svc.Tokens().Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, model.RoleEditor, claims.Role)
	assert.Equal(t, "Ada", claims.Name)

	assert.Equal(t, []int64{7}, users.touched)
	assert.Empty(t, users.rehashed)
	require.Len(t, users.events, 1)
	assert.Equal(t, model.EventCategoryAuth, users.events[0].Category)
	assert.Equal(t, "203.0.113.9", users.events[0].IPAddress)
	assert.Contains(t, users.events[0].Metadata, `"browser":"Chrome"`)
}

func TestLogin_Failures(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	users := newFakeUsers(model.User{ID: 7, Email: "ada@example.com", PasswordHash: hash, Role: model.RoleAdmin})
	svc := newTestService(t, users)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "ada@example.com", "nope"},
		{"unknown email", "nobody@example.com", "s3cret"},
		{"empty password", "ada@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(context.Background(), LoginRequest{Email: tt.email, Password: tt.password})
			assert.ErrorIs(t, err, ErrUnauthorized)
			assert.Empty(t, res.Token)
		})
	}
	assert.Empty(t, users.touched)
}

func TestLogin_StoreFailure(t *testing.T) {
	users := newFakeUsers()
	users.lookupErr = errors.New("db down")
	svc := newTestService(t, users)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestLogin_UpgradesLegacyHash(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	users := newFakeUsers(model.User{ID: 3, Email: "old@example.com", PasswordHash: string(legacy), Role: model.RoleAdmin})
	svc := newTestService(t, users)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "old@example.com", Password: "s3cret"})
	require.NoError(t, err)

	upgraded := users.rehashed[3]
	require.NotEmpty(t, upgraded)
	assert.False(t, NeedsRehash(upgraded))
	ok, err := CheckPassword("s3cret", upgraded)
	require.NoError(t, err)
	assert.True(t, ok)
}

type fixedCountry string

func (c fixedCountry) Country(string) string { return string(c) }

func TestLogin_AuditCountry(t *testing.T) {
	users := newFakeUsers()
	svc := newTestService(t, users)
	svc.SetCountryLookup(fixedCountry("NL"))

	_, err := svc.Login(context.Background(), LoginRequest{Email: "x@example.com", Password: "p", IP: "198.51.100.4"})
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Len(t, users.events, 1)
	assert.Contains(t, users.events[0].Metadata, `"country":"NL"`)
}
