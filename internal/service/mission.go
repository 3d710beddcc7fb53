package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"daily-mission-tracker/internal/metrics"
	"daily-mission-tracker/internal/model"
	"daily-mission-tracker/internal/pkg/lock"
	"daily-mission-tracker/internal/repository"
)

// ErrEmptyTitle is returned when a mission is saved without a title.
var ErrEmptyTitle = errors.New("mission title must not be empty")

// MissionStore persists daily missions.
type MissionStore interface {
	Create(ctx context.Context, mission *model.DailyMission) (*model.DailyMission, error)
	GetByID(ctx context.Context, userID model.UserID, missionID model.MissionID) (*model.DailyMission, error)
	ListByUser(ctx context.Context, userID model.UserID) ([]*model.DailyMission, error)
	Update(ctx context.Context, userID model.UserID, missionID model.MissionID, input model.MissionInput) (*model.DailyMission, error)
	Delete(ctx context.Context, userID model.UserID, missionID model.MissionID) error
	CompleteWithExperience(ctx context.Context, userID model.UserID, missionID model.MissionID, exp int64) (*model.UserExp, error)
}

// MissionService manages a user's daily missions.
type MissionService struct {
	missions    MissionStore
	userLock    *lock.UserLock
	completeExp int64
	lockTimeout time.Duration
}

// NewMissionService creates a new MissionService instance.
// completeExp is the experience credited per completed mission.
func NewMissionService(missions MissionStore, userLock *lock.UserLock, completeExp int64, lockTimeout time.Duration) *MissionService {
	return &MissionService{
		missions:    missions,
		userLock:    userLock,
		completeExp: completeExp,
		lockTimeout: lockTimeout,
	}
}

// Create adds a new incomplete mission for the user.
func (s *MissionService) Create(ctx context.Context, userID model.UserID, input model.MissionInput) (*model.DailyMission, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrEmptyTitle
	}

	var created *model.DailyMission
	err := s.userLock.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		var err error
		created, err = s.missions.Create(ctx, &model.DailyMission{
			MissionID:   model.MissionID(uuid.NewString()),
			UserID:      userID,
			Title:       input.Title,
			Description: input.Description,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}
	return created, nil
}

// Get returns one of the user's missions.
func (s *MissionService) Get(ctx context.Context, userID model.UserID, missionID model.MissionID) (*model.DailyMission, error) {
	return s.missions.GetByID(ctx, userID, missionID)
}

// List returns all of the user's missions.
func (s *MissionService) List(ctx context.Context, userID model.UserID) ([]*model.DailyMission, error) {
	return s.missions.ListByUser(ctx, userID)
}

// Update edits the title and description of one of the user's missions.
func (s *MissionService) Update(ctx context.Context, userID model.UserID, missionID model.MissionID, input model.MissionInput) (*model.DailyMission, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrEmptyTitle
	}

	var updated *model.DailyMission
	err := s.userLock.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		var err error
		updated, err = s.missions.Update(ctx, userID, missionID, input)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update mission: %w", err)
	}
	return updated, nil
}

// Delete removes one of the user's missions.
func (s *MissionService) Delete(ctx context.Context, userID model.UserID, missionID model.MissionID) error {
	err := s.userLock.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		return s.missions.Delete(ctx, userID, missionID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete mission: %w", err)
	}
	return nil
}

// Complete marks the mission done and credits the completion reward.
// Returns the user's new balance.
func (s *MissionService) Complete(ctx context.Context, userID model.UserID, missionID model.MissionID) (*model.UserExp, error) {
	var balance *model.UserExp
	err := s.userLock.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		var err error
		balance, err = s.missions.CompleteWithExperience(ctx, userID, missionID, s.completeExp)
		return err
	})

	switch {
	case err == nil:
		metrics.RecordCompletion(metrics.ResultSuccess)
	case errors.Is(err, repository.ErrAlreadyComplete), errors.Is(err, repository.ErrMissionNotFound):
		metrics.RecordCompletion(metrics.ResultRejected)
		return nil, err
	default:
		metrics.RecordCompletion(metrics.ResultFailure)
		log.Error().
			Err(err).
			Str("user_id", userID.String()).
			Str("mission_id", missionID.String()).
			Msg("Failed to complete mission")
		return nil, fmt.Errorf("failed to complete mission: %w", err)
	}

	log.Debug().
		Str("user_id", userID.String()).
		Str("mission_id", missionID.String()).
		Int64("experience_points", balance.ExperiencePoints).
		Msg("Mission completed")
	return balance, nil
}
