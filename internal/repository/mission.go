package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"daily-mission-tracker/internal/model"
)

// Mission errors.
var (
	ErrMissionNotFound = errors.New("mission not found")
	ErrAlreadyComplete = errors.New("mission already complete")
	ErrMissionExists   = errors.New("mission already exists")
)

// MissionRepository handles daily mission persistence.
type MissionRepository struct {
	pool *pgxpool.Pool
}

// NewMissionRepository creates a new MissionRepository instance.
func NewMissionRepository(pool *pgxpool.Pool) *MissionRepository {
	return &MissionRepository{pool: pool}
}

const missionColumns = `mission_id, user_id, title, description, is_complete, created_at, updated_at`

func scanMission(row pgx.Row) (*model.DailyMission, error) {
	var m model.DailyMission
	err := row.Scan(
		&m.MissionID,
		&m.UserID,
		&m.Title,
		&m.Description,
		&m.IsComplete,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new, incomplete mission.
func (r *MissionRepository) Create(ctx context.Context, mission *model.DailyMission) (*model.DailyMission, error) {
	const query = `
		INSERT INTO daily_missions (mission_id, user_id, title, description, is_complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW(), NOW())
		RETURNING ` + missionColumns

	m, err := scanMission(r.pool.QueryRow(ctx, query,
		mission.MissionID, mission.UserID, mission.Title, mission.Description))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrMissionExists
		}
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}
	return m, nil
}

// GetByID retrieves a mission owned by userID.
// Returns ErrMissionNotFound if it does not exist or belongs to someone else.
func (r *MissionRepository) GetByID(ctx context.Context, userID model.UserID, missionID model.MissionID) (*model.DailyMission, error) {
	const query = `
		SELECT ` + missionColumns + `
		FROM daily_missions
		WHERE mission_id = $1 AND user_id = $2
	`

	m, err := scanMission(r.pool.QueryRow(ctx, query, missionID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMissionNotFound
		}
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	return m, nil
}

// ListByUser returns the user's missions, oldest first.
func (r *MissionRepository) ListByUser(ctx context.Context, userID model.UserID) ([]*model.DailyMission, error) {
	const query = `
		SELECT ` + missionColumns + `
		FROM daily_missions
		WHERE user_id = $1
		ORDER BY created_at, mission_id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	var missions []*model.DailyMission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mission: %w", err)
		}
		missions = append(missions, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating missions: %w", err)
	}

	return missions, nil
}

// Update replaces the title and description of a mission owned by userID.
func (r *MissionRepository) Update(ctx context.Context, userID model.UserID, missionID model.MissionID, input model.MissionInput) (*model.DailyMission, error) {
	const query = `
		UPDATE daily_missions
		SET title = $3, description = $4, updated_at = NOW()
		WHERE mission_id = $1 AND user_id = $2
		RETURNING ` + missionColumns

	m, err := scanMission(r.pool.QueryRow(ctx, query, missionID, userID, input.Title, input.Description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMissionNotFound
		}
		return nil, fmt.Errorf("failed to update mission: %w", err)
	}
	return m, nil
}

// Delete removes a mission owned by userID.
func (r *MissionRepository) Delete(ctx context.Context, userID model.UserID, missionID model.MissionID) error {
	const query = `DELETE FROM daily_missions WHERE mission_id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, query, missionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete mission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMissionNotFound
	}
	return nil
}

// CompleteWithExperience marks the mission complete and credits exp points to
// its owner in one transaction. The mission row is locked first, so a
// concurrent reset or completion waits for this one to finish.
//
// Returns ErrAlreadyComplete if the mission was already complete; nothing is
// credited in that case.
func (r *MissionRepository) CompleteWithExperience(ctx context.Context, userID model.UserID, missionID model.MissionID, exp int64) (*model.UserExp, error) {
	if exp < 0 {
		return nil, ErrNegativeExperience
	}

	const lockMission = `
		SELECT is_complete
		FROM daily_missions
		WHERE mission_id = $1 AND user_id = $2
		FOR UPDATE
	`
	const markComplete = `
		UPDATE daily_missions
		SET is_complete = TRUE, updated_at = NOW()
		WHERE mission_id = $1
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var complete bool
	if err := tx.QueryRow(ctx, lockMission, missionID, userID).Scan(&complete); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMissionNotFound
		}
		return nil, fmt.Errorf("failed to lock mission: %w", err)
	}
	if complete {
		return nil, ErrAlreadyComplete
	}

	if _, err := tx.Exec(ctx, markComplete, missionID); err != nil {
		return nil, fmt.Errorf("failed to complete mission: %w", err)
	}

	balance, err := addExperience(ctx, tx, userID, exp)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}
	return balance, nil
}

// ResetDailyMissions clears the completion flag of every mission the user
// owns. The rows are locked before the update and both statements run in one
// transaction, so the reset is all-or-nothing per user. Returns the number of
// missions that were complete.
func (r *MissionRepository) ResetDailyMissions(ctx context.Context, userID model.UserID) (int64, error) {
	const lockMissions = `
		SELECT mission_id
		FROM daily_missions
		WHERE user_id = $1
		FOR UPDATE
	`
	const clearFlags = `
		UPDATE daily_missions
		SET is_complete = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND is_complete
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, lockMissions, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock missions: %w", err)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to lock missions: %w", err)
	}

	tag, err := tx.Exec(ctx, clearFlags, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset missions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit reset: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ResetStore adapts the user and mission repositories to what the reset
// coordinator needs.
type ResetStore struct {
	Users    *UserRepository
	Missions *MissionRepository
}

// ListUserIDs returns a snapshot of every user id.
func (s ResetStore) ListUserIDs(ctx context.Context) ([]model.UserID, error) {
	return s.Users.ListIDs(ctx)
}

// ResetDailyMissions resets one user's missions.
func (s ResetStore) ResetDailyMissions(ctx context.Context, userID model.UserID) (int64, error) {
	return s.Missions.ResetDailyMissions(ctx, userID)
}
