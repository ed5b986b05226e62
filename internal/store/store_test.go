package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/wingsite/internal/model"
)

// testStore creates a migrated SQLite store in a temp directory.
func testStore(t *testing.T) *Store {
	t.Helper()
	return testStoreWithDriver(t, "sqlite")
}

func testStoreWithDriver(t *testing.T, driver string) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "wingsite-test.db")
	db, err := NewDB(driver, dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db, DialectSQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return New(db, DialectSQLite)
}

func createUser(t *testing.T, s *Store, email, role string) model.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), CreateUserParams{
		Email:        email,
		PasswordHash: "hash",
		Name:         "Test " + role,
		Role:         role,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

func TestMattnDriver(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cgo.db")
	db, err := NewDB("sqlite3", dbPath)
	if err != nil {
		t.Skipf("sqlite3 driver unavailable: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := Migrate(db, DialectSQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	s := New(db, DialectSQLite)
	u := createUser(t, s, "cgo@example.com", model.RoleAdmin)
	got, err := s.GetUserByEmail(context.Background(), "CGO@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("ID = %d, want %d", got.ID, u.ID)
	}
}

func TestDialectUpsert(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{DialectSQLite, "INSERT INTO t (k, a, b) VALUES (?, ?, ?) ON CONFLICT(k) DO UPDATE SET a = excluded.a, b = excluded.b"},
		{DialectMySQL, "INSERT INTO t (k, a, b) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE a = VALUES(a), b = VALUES(b)"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			if got := tt.dialect.Upsert("t", "k", "a", "b"); got != tt.want {
				t.Errorf("Upsert() = %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]Dialect{"sqlite": DialectSQLite, "sqlite3": DialectSQLite, "mysql": DialectMySQL} {
		got, err := DialectFor(driver)
		if err != nil || got != want {
			t.Errorf("DialectFor(%q) = %v, %v", driver, got, err)
		}
	}
	if _, err := DialectFor("postgres"); err == nil {
		t.Error("DialectFor(postgres) should fail")
	}
}

func TestPrepareDSN(t *testing.T) {
	got, err := prepareDSN("mysql", "user:pass@tcp(db:3306)/wings")
	if err != nil {
		t.Fatalf("prepareDSN: %v", err)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Errorf("mysql dsn %q missing parseTime", got)
	}

	got, _ = prepareDSN("sqlite", "./data/x.db")
	if !strings.Contains(got, "busy_timeout") {
		t.Errorf("sqlite dsn %q missing busy_timeout", got)
	}

	tests := []struct {
		driver, dsn, want string
	}{
		{"sqlite", "file:x.db?mode=memory",
			"file:x.db?mode=memory&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"},
		{"sqlite", "x.db?_pragma=busy_timeout(100)",
			"x.db?_pragma=busy_timeout(100)&_pragma=foreign_keys(1)&_time_format=sqlite"},
		{"sqlite", "x.db?_pragma=busy_timeout(1)&_pragma=foreign_keys(0)&_time_format=sqlite",
			"x.db?_pragma=busy_timeout(1)&_pragma=foreign_keys(0)&_time_format=sqlite"},
		{"sqlite3", "x.db?cache=shared", "x.db?cache=shared&_busy_timeout=5000&_foreign_keys=on"},
		{"sqlite3", "x.db?_fk=1", "x.db?_fk=1&_busy_timeout=5000"},
	}
	for _, tt := range tests {
		if got, _ := prepareDSN(tt.driver, tt.dsn); got != tt.want {
			t.Errorf("prepareDSN(%s, %q) = %q, want %q", tt.driver, tt.dsn, got, tt.want)
		}
	}
}

func TestDialectForUpdate(t *testing.T) {
	if got := DialectMySQL.ForUpdate(); got != " FOR UPDATE" {
		t.Errorf("mysql ForUpdate = %q", got)
	}
	if got := DialectSQLite.ForUpdate(); got != "" {
		t.Errorf("sqlite ForUpdate = %q", got)
	}
}

func TestCreateUser(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, CreateUserParams{
		Email:        "  Editor@Example.COM ",
		PasswordHash: "hashed-password",
		Name:         "Ed",
		Role:         model.RoleEditor,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 {
		t.Error("user.ID should not be 0")
	}
	if u.Email != "editor@example.com" {
		t.Errorf("Email = %q, want normalized", u.Email)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if u.LastLoginAt != nil {
		t.Error("LastLoginAt should be nil for a new user")
	}

	_, err = s.CreateUser(ctx, CreateUserParams{Email: "editor@example.com", PasswordHash: "x", Role: model.RoleEditor})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate CreateUser error = %v, want ErrConflict", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.GetUser(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByEmail error = %v, want ErrNotFound", err)
	}
}

func TestListUsersAndTouchLastLogin(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a := createUser(t, s, "a@example.com", model.RoleAdmin)
	createUser(t, s, "b@example.com", model.RoleEditor)

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0].ID != a.ID {
		t.Fatalf("ListUsers = %+v", users)
	}

	if err := s.TouchLastLogin(ctx, a.ID); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
	got, _ := s.GetUser(ctx, a.ID)
	if got.LastLoginAt == nil {
		t.Fatal("LastLoginAt not set")
	}
	if time.Since(*got.LastLoginAt) > time.Minute {
		t.Errorf("LastLoginAt = %v, want recent", got.LastLoginAt)
	}
}

func TestDeleteUser_LastAdmin(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	admin := createUser(t, s, "admin@example.com", model.RoleAdmin)
	editor := createUser(t, s, "editor@example.com", model.RoleEditor)

	if err := s.DeleteUser(ctx, admin.ID); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("DeleteUser(last admin) error = %v, want ErrLastAdmin", err)
	}

	second := createUser(t, s, "admin2@example.com", model.RoleAdmin)
	if err := s.DeleteUser(ctx, admin.ID); err != nil {
		t.Fatalf("DeleteUser(non-last admin): %v", err)
	}
	if err := s.DeleteUser(ctx, second.ID); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("DeleteUser(new last admin) error = %v, want ErrLastAdmin", err)
	}
	if err := s.DeleteUser(ctx, editor.ID); err != nil {
		t.Errorf("DeleteUser(editor): %v", err)
	}
	if err := s.DeleteUser(ctx, editor.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteUser(missing) error = %v, want ErrNotFound", err)
	}

	n, _ := s.CountAdmins(ctx)
	if n != 1 {
		t.Errorf("CountAdmins = %d, want 1", n)
	}
}

func TestUpdateUser(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	admin := createUser(t, s, "admin@example.com", model.RoleAdmin)
	editor := createUser(t, s, "editor@example.com", model.RoleEditor)

	demote := model.RoleEditor
	if _, err := s.UpdateUser(ctx, admin.ID, UpdateUserParams{Role: &demote}); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("demoting last admin error = %v, want ErrLastAdmin", err)
	}

	taken := "ADMIN@example.com"
	if _, err := s.UpdateUser(ctx, editor.ID, UpdateUserParams{Email: &taken}); !errors.Is(err, ErrConflict) {
		t.Errorf("taking an existing email error = %v, want ErrConflict", err)
	}

	name := "Renamed"
	promote := model.RoleAdmin
	got, err := s.UpdateUser(ctx, editor.ID, UpdateUserParams{Name: &name, Role: &promote})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.Name != "Renamed" || got.Role != model.RoleAdmin || got.Email != "editor@example.com" {
		t.Errorf("UpdateUser = %+v", got)
	}

	if _, err := s.UpdateUser(ctx, 999, UpdateUserParams{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateUser(missing) error = %v, want ErrNotFound", err)
	}
}

func TestContentRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.GetContent(ctx, "hero"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetContent(missing) error = %v, want ErrNotFound", err)
	}

	data := json.RawMessage(`{"title":"Hello","items":[1,2,3]}`)
	if err := s.UpsertContent(ctx, "hero", data); err != nil {
		t.Fatalf("UpsertContent: %v", err)
	}
	got, err := s.GetContent(ctx, "hero")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if string(got.Data) != string(data) {
		t.Errorf("Data = %s, want %s", got.Data, data)
	}

	updated := json.RawMessage(`{"title":"Bye"}`)
	if err := s.UpsertContent(ctx, "hero", updated); err != nil {
		t.Fatalf("UpsertContent(update): %v", err)
	}
	got, _ = s.GetContent(ctx, "hero")
	if string(got.Data) != string(updated) {
		t.Errorf("Data after update = %s", got.Data)
	}

	all, _ := s.ListContent(ctx)
	if len(all) != 1 {
		t.Errorf("ListContent len = %d, want 1", len(all))
	}

	if err := s.DeleteContent(ctx, "hero"); err != nil {
		t.Fatalf("DeleteContent: %v", err)
	}
	if _, err := s.GetContent(ctx, "hero"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetContent after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteContent(ctx, "hero"); err != nil {
		t.Errorf("DeleteContent(missing) error = %v, want nil", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	value := json.RawMessage(`{"email":"sales@example.com","formEnabled":true}`)
	if err := s.UpsertConfig(ctx, "contactConfig", value); err != nil {
		t.Fatalf("UpsertConfig: %v", err)
	}
	got, err := s.GetConfig(ctx, "contactConfig")
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if string(got.Data) != string(value) {
		t.Errorf("Data = %s, want %s", got.Data, value)
	}
	if _, err := s.GetConfig(ctx, "siteSettings"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetConfig(missing) error = %v, want ErrNotFound", err)
	}
}
