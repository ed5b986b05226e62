package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/olegiv/wingsite/internal/auth"
	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/store"
)

// MinPasswordLength is the shortest password accepted on create or update.
const MinPasswordLength = 8

// UserInput is the body of a user create or update. On update, nil fields
// are left unchanged.
type UserInput struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
	Role     *string `json:"role"`
}

// UserService validates user input and hashes passwords before storage.
type UserService struct {
	store *store.Store
}

// NewUserService creates a UserService.
func NewUserService(s *store.Store) *UserService {
	return &UserService{store: s}
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.store.ListUsers(ctx)
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id int64) (model.User, error) {
	return s.store.GetUser(ctx, id)
}

// Create validates the input and inserts the user. A missing role defaults
// to editor. A taken email yields store.ErrConflict.
func (s *UserService) Create(ctx context.Context, in UserInput) (model.User, error) {
	if in.Role == nil || strings.TrimSpace(*in.Role) == "" {
		role := model.RoleEditor
		in.Role = &role
	}

	ve := &ValidationError{}
	if in.Email == nil {
		ve.add("email", "Email is required")
	}
	if in.Password == nil {
		ve.add("password", "Password is required")
	}
	if in.Name == nil {
		ve.add("name", "Name is required")
	}
	validateUser(ve, in)
	if err := ve.errOrNil(); err != nil {
		return model.User{}, err
	}

	hash, err := auth.HashPassword(*in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}
	return s.store.CreateUser(ctx, store.CreateUserParams{
		Email:        *in.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(*in.Name),
		Role:         strings.TrimSpace(*in.Role),
	})
}

// Update applies a partial update. Demoting the last admin yields
// store.ErrLastAdmin.
func (s *UserService) Update(ctx context.Context, id int64, in UserInput) (model.User, error) {
	ve := &ValidationError{}
	validateUser(ve, in)
	if err := ve.errOrNil(); err != nil {
		return model.User{}, err
	}

	p := store.UpdateUserParams{Email: in.Email}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		p.Name = &name
	}
	if in.Role != nil {
		role := strings.TrimSpace(*in.Role)
		p.Role = &role
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return model.User{}, fmt.Errorf("hashing password: %w", err)
		}
		p.PasswordHash = &hash
	}
	return s.store.UpdateUser(ctx, id, p)
}

// Delete removes a user. actorID is the caller; deleting yourself is a
// validation error and deleting the last admin yields store.ErrLastAdmin.
func (s *UserService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return NewValidationError("id", "You cannot delete your own account")
	}
	return s.store.DeleteUser(ctx, id)
}

// validateUser checks the fields that are present.
func validateUser(ve *ValidationError, in UserInput) {
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			ve.add("email", "Email is required")
		} else if _, err := mail.ParseAddress(email); err != nil {
			ve.add("email", "Invalid email format")
		}
	}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name == "" {
			ve.add("name", "Name is required")
		} else if len(name) < 2 {
			ve.add("name", "Name must be at least 2 characters")
		}
	}
	if in.Password != nil && len(*in.Password) < MinPasswordLength {
		ve.add("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if in.Role != nil && !model.IsValidRole(strings.TrimSpace(*in.Role)) {
		ve.add("role", "Invalid role")
	}
}
