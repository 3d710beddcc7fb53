// Package app wires configuration, storage and services into one graph shared
// by the binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"daily-mission-tracker/internal/config"
	"daily-mission-tracker/internal/level"
	"daily-mission-tracker/internal/pkg/db"
	"daily-mission-tracker/internal/pkg/lock"
	"daily-mission-tracker/internal/repository"
	"daily-mission-tracker/internal/service"
)

// App holds the long-lived dependencies.
type App struct {
	Config    *config.Config
	Pool      *db.Pool
	Converter *level.Converter

	Users      *repository.UserRepository
	Experience *repository.ExperienceRepository
	Missions   *repository.MissionRepository

	ExperienceService *service.ExperienceService
	MissionService    *service.MissionService
	UserService       *service.UserService
	// AuthService is nil when no JWT secret is configured.
	AuthService *service.AuthService
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(logLevel string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// New loads the level table, connects to the database, applies migrations and
// builds repositories and services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	table, err := level.LoadTable(cfg.Level.TablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load level table: %w", err)
	}
	converter := level.NewConverter(table, cfg.Level.MaxLevel)
	log.Info().
		Str("path", cfg.Level.TablePath).
		Int("entries", table.Len()).
		Int("max_level", converter.MaxLevel()).
		Msg("Level table loaded")

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Reset.Concurrency > cfg.Database.PoolSize {
		log.Warn().
			Int("concurrency", cfg.Reset.Concurrency).
			Int("pool_size", cfg.Database.PoolSize).
			Msg("Reset concurrency exceeds pool size, resets will queue for connections")
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	a := &App{
		Config:     cfg,
		Pool:       pool,
		Converter:  converter,
		Users:      repository.NewUserRepository(pool.Pool),
		Experience: repository.NewExperienceRepository(pool.Pool),
		Missions:   repository.NewMissionRepository(pool.Pool),
	}

	a.ExperienceService = service.NewExperienceService(a.Experience, converter)
	userLock := lock.NewUserLock()
	a.MissionService = service.NewMissionService(
		a.Missions,
		userLock,
		cfg.Mission.CompleteExp,
		cfg.Mission.LockTimeout,
	)
	a.UserService = service.NewUserService(a.Users, userLock, cfg.Mission.LockTimeout)

	if cfg.Auth.JWTSecret != "" {
		a.AuthService, err = service.NewAuthService(a.Users, cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
		if err != nil {
			pool.Close()
			return nil, err
		}
	} else {
		log.Warn().Msg("auth.jwt_secret is empty, token operations are disabled")
	}

	return a, nil
}

// ResetStore returns the storage view used by the reset coordinator.
func (a *App) ResetStore() repository.ResetStore {
	return repository.ResetStore{Users: a.Users, Missions: a.Missions}
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}
