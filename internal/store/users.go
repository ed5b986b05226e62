package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/olegiv/wingsite/internal/model"
)

const userColumns = "id, email, password_hash, name, role, last_login_at, created_at, updated_at"

// CreateUserParams holds the fields of a new user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
	Role         string
}

// UpdateUserParams holds a partial user update; nil fields are unchanged.
type UpdateUserParams struct {
	Email        *string
	PasswordHash *string
	Name         *string
	Role         *string
}

func scanUser(row model.RowScanner) (model.User, error) {
	var u model.User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

// CreateUser inserts a user. The email is normalized; a taken email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, p CreateUserParams) (model.User, error) {
	email := model.NormalizeEmail(p.Email)
	ts := now()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		email, p.PasswordHash, p.Name, p.Role, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, ErrConflict
		}
		return model.User{}, fmt.Errorf("creating user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("reading user id: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return u, fmt.Errorf("getting user %d: %w", id, err)
	}
	return u, err
}

// GetUserByEmail returns a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, model.NormalizeEmail(email))
	u, err := scanUser(row)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return u, fmt.Errorf("getting user by email: %w", err)
	}
	return u, err
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// CountAdmins returns the number of users with the admin role.
func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	return countAdmins(ctx, s.db)
}

func countAdmins(ctx context.Context, q DBTX) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, model.RoleAdmin).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return n, nil
}

// lockAdmins counts admins inside tx, locking their rows where the dialect
// needs it so two concurrent demotions or deletes cannot both pass the check.
func (s *Store) lockAdmins(ctx context.Context, tx DBTX) (int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM users WHERE role = ?`+s.dialect.ForUpdate(), model.RoleAdmin)
	if err != nil {
		return 0, fmt.Errorf("locking admins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var n int64
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("locking admins: %w", err)
	}
	return n, nil
}

// UpdateUser applies a partial update. Demoting the only admin yields
// ErrLastAdmin; the check and the write share one transaction.
func (s *Store) UpdateUser(ctx context.Context, id int64, p UpdateUserParams) (model.User, error) {
	err := s.InTx(ctx, func(tx DBTX) error {
		current, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
		if err != nil {
			return err
		}

		if p.Role != nil && current.IsAdmin() && *p.Role != model.RoleAdmin {
			admins, err := s.lockAdmins(ctx, tx)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		if p.Email != nil {
			current.Email = model.NormalizeEmail(*p.Email)
		}
		if p.PasswordHash != nil {
			current.PasswordHash = *p.PasswordHash
		}
		if p.Name != nil {
			current.Name = *p.Name
		}
		if p.Role != nil {
			current.Role = *p.Role
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET email = ?, password_hash = ?, name = ?, role = ?, updated_at = ? WHERE id = ?`,
			current.Email, current.PasswordHash, current.Name, current.Role, now(), id)
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrLastAdmin) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("updating user %d: %w", id, err)
	}
	return s.GetUser(ctx, id)
}

// UpdatePasswordHash replaces a user's stored hash, used when upgrading legacy hashes.
func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, now(), id)
	if err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}
	return nil
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, now(), id)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// DeleteUser removes a user, refusing to remove the only admin.
// The admin count and the delete run in one transaction.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	err := s.InTx(ctx, func(tx DBTX) error {
		var role string
		err := tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id = ?`, id).Scan(&role)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if role == model.RoleAdmin {
			admins, err := s.lockAdmins(ctx, tx)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		return err
	})
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrLastAdmin) {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	return err
}
