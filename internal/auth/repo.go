package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamecatalog/pkg/database"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// ErrUserNotFound is returned by updates that target a missing user.
var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	TokenVersion int
	CreatedAt    time.Time
}

type Repo struct {
	DB      *sql.DB
	Dialect database.Dialect
}

func NewRepo(db *sql.DB, dialect database.Dialect) *Repo {
	return &Repo{DB: db, Dialect: dialect}
}

const userColumns = `id, username, email, password_hash, role, token_version, created_at`

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		INSERT INTO users (id, username, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (*User, error) {
	row := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`
		SELECT `+userColumns+`
		FROM users
		WHERE `+where), arg)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.TokenVersion, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := r.getOne(ctx, "LOWER(email) = ?", email)
	if err != nil {
		return nil, fmt.Errorf("get by email: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := r.getOne(ctx, "username = ?", strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("get by username: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := r.getOne(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return u, nil
}

// GetTokenVersion returns found=false when the user no longer exists.
func (r *Repo) GetTokenVersion(ctx context.Context, id string) (version int, found bool, err error) {
	row := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`
		SELECT token_version
		FROM users
		WHERE id = ?
	`), id)

	if err := row.Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get token version: %w", err)
	}
	return version, true, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.Dialect.Rebind(`
			UPDATE users
			SET password_hash = ?, token_version = token_version + 1
			WHERE id = ?
		`), passwordHash, id)
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return expectOne(res, "update password")
	})
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = ?
	`), id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	return expectOne(res, "bump token version")
}

// SetRole changes a user's role and bumps the token version so tokens that
// carry the old role stop working.
func (r *Repo) SetRole(ctx context.Context, email string, role string) error {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE users
		SET role = ?, token_version = token_version + 1
		WHERE LOWER(email) = ?
	`), role, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return expectOne(res, "set role")
}

func expectOne(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}
