package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/sign-vision/internal/database"
)

// SignRepository provides PostgreSQL-backed reference sign storage
type SignRepository struct {
	pool *Pool
}

// NewSignRepository creates a new SignRepository
func NewSignRepository(pool *Pool) *SignRepository {
	return &SignRepository{pool: pool}
}

const signColumns = `id, name, description, video_path, created_at`

func scanSign(row interface{ Scan(...any) error }) (*database.StoredSign, error) {
	var s database.StoredSign
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.VideoPath, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SignRepository) getOne(ctx context.Context, query string, arg any) (*database.StoredSign, error) {
	s, err := scanSign(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sign: %w", err)
	}
	return s, nil
}

func (r *SignRepository) GetByName(ctx context.Context, name string) (*database.StoredSign, error) {
	return r.getOne(ctx, `SELECT `+signColumns+` FROM signs WHERE name = $1`, name)
}

func (r *SignRepository) GetByID(ctx context.Context, id int64) (*database.StoredSign, error) {
	return r.getOne(ctx, `SELECT `+signColumns+` FROM signs WHERE id = $1`, id)
}

// List returns every sign, newest first. Ties on created_at fall back to
// the higher ID so the order is stable.
func (r *SignRepository) List(ctx context.Context) ([]database.StoredSign, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+signColumns+` FROM signs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list signs: %w", err)
	}
	defer rows.Close()

	var signs []database.StoredSign
	for rows.Next() {
		s, err := scanSign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sign: %w", err)
		}
		signs = append(signs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signs: %w", err)
	}
	return signs, nil
}

func (r *SignRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM signs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count signs: %w", err)
	}
	return n, nil
}

func (r *SignRepository) Create(ctx context.Context, sign *database.StoredSign) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO signs (name, description, video_path) VALUES ($1, $2, $3) RETURNING id, created_at`,
		sign.Name, sign.Description, sign.VideoPath).
		Scan(&sign.ID, &sign.CreatedAt)
	if isUniqueViolation(err) {
		return database.ErrSignExists
	}
	if err != nil {
		return fmt.Errorf("create sign: %w", err)
	}
	return nil
}

func (r *SignRepository) Update(ctx context.Context, sign *database.StoredSign) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE signs SET description = $2, video_path = $3 WHERE id = $1`,
		sign.ID, sign.Description, sign.VideoPath)
	if err != nil {
		return fmt.Errorf("update sign: %w", err)
	}
	return expectOneRow(result)
}

func (r *SignRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM signs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sign: %w", err)
	}
	return expectOneRow(result)
}
