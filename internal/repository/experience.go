package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"daily-mission-tracker/internal/model"
)

// ErrNegativeExperience is returned when a completion reward is negative.
var ErrNegativeExperience = errors.New("experience delta must not be negative")

// ExperienceRepository handles experience balance persistence.
type ExperienceRepository struct {
	pool *pgxpool.Pool
}

// NewExperienceRepository creates a new ExperienceRepository instance.
func NewExperienceRepository(pool *pgxpool.Pool) *ExperienceRepository {
	return &ExperienceRepository{pool: pool}
}

// Get returns the user's experience balance.
// Returns ErrUserNotFound if the user has no balance row.
func (r *ExperienceRepository) Get(ctx context.Context, userID model.UserID) (*model.UserExp, error) {
	const query = `
		SELECT user_id, experience_points
		FROM user_exp
		WHERE user_id = $1
	`

	var exp model.UserExp
	err := r.pool.QueryRow(ctx, query, userID).Scan(&exp.UserID, &exp.ExperiencePoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get experience: %w", err)
	}

	return &exp, nil
}

// queryRower is satisfied by *pgxpool.Pool and pgx.Tx.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func addExperience(ctx context.Context, q queryRower, userID model.UserID, delta int64) (*model.UserExp, error) {
	const query = `
		UPDATE user_exp
		SET experience_points = experience_points + $2
		WHERE user_id = $1
		RETURNING user_id, experience_points
	`

	var exp model.UserExp
	err := q.QueryRow(ctx, query, userID, delta).Scan(&exp.UserID, &exp.ExperiencePoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to add experience: %w", err)
	}

	return &exp, nil
}
