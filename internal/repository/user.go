package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nardwin/platform/internal/domain"
)

const userColumns = `id, user_name, balance, wins, losses, total_score, rank, created_at, updated_at`

type userRepo struct{}

// NewUserRepository returns a pgx-backed UserRepository.
func NewUserRepository() UserRepository {
	return &userRepo{}
}

func (r *userRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error) {
	row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	return scanUser(row)
}

func (r *userRepo) Create(ctx context.Context, db DBTX, user *domain.User) error {
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, user_name, balance, wins, losses, total_score, rank, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`,
		user.ID, user.UserName, user.Balance, user.Wins, user.Losses, user.TotalScore, user.Rank)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (*domain.User, error) {
	row := tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING `+userColumns, delta, id)
	return scanUser(row)
}

func (r *userRepo) UpdateGameStats(ctx context.Context, tx pgx.Tx, id uuid.UUID, winsDelta, lossesDelta, totalScore, rank int) (*domain.User, error) {
	row := tx.QueryRow(ctx, `
		UPDATE users SET
		  wins = wins + $1,
		  losses = losses + $2,
		  total_score = $3,
		  rank = $4,
		  updated_at = now()
		WHERE id = $5
		RETURNING `+userColumns, winsDelta, lossesDelta, totalScore, rank, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.UserName, &u.Balance, &u.Wins, &u.Losses,
		&u.TotalScore, &u.Rank, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
