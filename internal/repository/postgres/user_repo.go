package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/repository"
)

// UserRepo reads the users table owned by the profile service.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	query := `SELECT id, username, profile_picture FROM users WHERE id = $1`
	var p domain.Profile
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Username, &p.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

var _ repository.UserRepository = (*UserRepo)(nil)
