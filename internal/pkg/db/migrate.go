package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				user_id VARCHAR(64) PRIMARY KEY,
				user_name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "user_exp table",
		sql: `
			CREATE TABLE IF NOT EXISTS user_exp (
				user_id VARCHAR(64) PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
				experience_points BIGINT NOT NULL DEFAULT 0 CHECK (experience_points >= 0)
			);
		`,
	},
	{
		name: "daily_missions table",
		sql: `
			CREATE TABLE IF NOT EXISTS daily_missions (
				mission_id VARCHAR(64) PRIMARY KEY,
				user_id VARCHAR(64) NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
				title VARCHAR(255) NOT NULL,
				description TEXT,
				is_complete BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_daily_missions_user ON daily_missions(user_id);
		`,
	},
}

// Migrate creates the schema. Every statement is idempotent, so it is safe to
// run on each start.
func Migrate(ctx context.Context, conn Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := conn.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
