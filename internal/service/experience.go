// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"

	"daily-mission-tracker/internal/level"
	"daily-mission-tracker/internal/model"
)

// ExperienceReader reads experience balances.
type ExperienceReader interface {
	Get(ctx context.Context, userID model.UserID) (*model.UserExp, error)
}

// ExperienceService derives levels from experience balances.
type ExperienceService struct {
	exp       ExperienceReader
	converter *level.Converter
}

// NewExperienceService creates a new ExperienceService instance.
func NewExperienceService(exp ExperienceReader, converter *level.Converter) *ExperienceService {
	return &ExperienceService{exp: exp, converter: converter}
}

// FindWithLevel returns the user's balance together with the level it maps to.
func (s *ExperienceService) FindWithLevel(ctx context.Context, userID model.UserID) (*model.UserLevel, error) {
	exp, err := s.exp.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get experience: %w", err)
	}
	return s.LevelOf(exp), nil
}

// LevelOf converts a balance. A negative balance is treated as zero.
func (s *ExperienceService) LevelOf(exp *model.UserExp) *model.UserLevel {
	points := uint64(0)
	if exp.ExperiencePoints > 0 {
		points = uint64(exp.ExperiencePoints)
	}

	result := s.converter.Convert(points)
	return &model.UserLevel{
		UserID:           exp.UserID,
		ExperiencePoints: exp.ExperiencePoints,
		Level:            result.Level,
		Remaining:        result.Remaining,
	}
}
