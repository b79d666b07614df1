package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/sign-vision/internal/database"
)

// UserRepository provides PostgreSQL-backed account storage
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, password_hash, full_name, role, school_name, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*database.User, error) {
	var u database.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.SchoolName, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*database.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*database.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*database.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]database.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []database.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *database.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, full_name, role, school_name, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		user.Username, user.PasswordHash, user.FullName, user.Role, user.SchoolName, user.IsActive).
		Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return database.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return expectOneRow(result)
}
