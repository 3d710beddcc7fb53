package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"daily-mission-tracker/internal/model"
	"daily-mission-tracker/internal/pkg/lock"
)

// ErrEmptyName is returned when a user is renamed to a blank name.
var ErrEmptyName = errors.New("user name must not be empty")

// AccountStore reads and edits existing accounts.
type AccountStore interface {
	GetByID(ctx context.Context, userID model.UserID) (*model.User, error)
	UpdateName(ctx context.Context, userID model.UserID, name string) (*model.User, error)
	Delete(ctx context.Context, userID model.UserID) error
}

// UserService manages the caller's own account.
type UserService struct {
	users       AccountStore
	userLock    *lock.UserLock
	lockTimeout time.Duration
}

// NewUserService creates a new UserService instance. userLock should be the
// lock shared with MissionService so that deleting an account waits for
// in-flight mission changes.
func NewUserService(users AccountStore, userLock *lock.UserLock, lockTimeout time.Duration) *UserService {
	return &UserService{users: users, userLock: userLock, lockTimeout: lockTimeout}
}

// Info returns the public view of the user.
func (s *UserService) Info(ctx context.Context, userID model.UserID) (model.UserInfo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserInfo{}, err
	}
	return user.Info(), nil
}

// Rename changes the user's display name.
func (s *UserService) Rename(ctx context.Context, userID model.UserID, name string) (model.UserInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.UserInfo{}, ErrEmptyName
	}

	user, err := s.users.UpdateName(ctx, userID, name)
	if err != nil {
		return model.UserInfo{}, fmt.Errorf("failed to rename user: %w", err)
	}
	return user.Info(), nil
}

// Delete removes the account together with its missions and experience.
func (s *UserService) Delete(ctx context.Context, userID model.UserID) error {
	err := s.userLock.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		return s.users.Delete(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	log.Info().Str("user_id", userID.String()).Msg("User deleted")
	return nil
}
