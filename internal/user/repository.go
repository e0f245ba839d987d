package user

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, name, email, password_hash, role, is_verified, hourly_rate, is_available, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	var u User
	err := r.db.GetContext(ctx, &u, query, name, email, passwordHash, role)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *repository) UpdateProfile(ctx context.Context, id int, hourlyRate *int64, isAvailable *bool) (*User, error) {
	query := `
		UPDATE users
		SET hourly_rate = COALESCE($1, hourly_rate),
		    is_available = COALESCE($2, is_available)
		WHERE id = $3
		RETURNING ` + userColumns

	var u User
	err := r.db.GetContext(ctx, &u, query, hourlyRate, isAvailable, id)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *repository) SetVerified(ctx context.Context, id int, verified bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET is_verified = $1 WHERE id = $2`, verified, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
