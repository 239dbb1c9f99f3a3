package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/utils"
)

// UserRepo provides data access to the back-office users table.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a new UserRepo bound to the database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// ErrEmailExists is returned when creating an account whose email is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// Create inserts a back-office account and returns its ID.  The
// password is hashed with bcrypt at the configured cost.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an account by normalized email.  Returns
// ErrNotFound when no such account exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, is_active, created_at, updated_at
		 FROM users WHERE email = ?`, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}
