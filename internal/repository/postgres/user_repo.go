package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/courierhq/courier/internal/domain"
)

type UserRepo struct {
	db Querier
}

func NewUserRepo(db Querier) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, username, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.Username, user.DisplayName, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt,
	)
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username = $1", username)
}

func (r *UserRepo) getBy(ctx context.Context, cond string, arg any) (*domain.User, error) {
	query := `
		SELECT id, email, username, display_name, password_hash, created_at, updated_at
		FROM users
		WHERE ` + cond
	var user domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Username, &user.DisplayName,
		&user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &user, err
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return tag.RowsAffected(), err
}
