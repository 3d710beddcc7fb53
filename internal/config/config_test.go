package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "20:00:00", cfg.Reset.Time)
	assert.Equal(t, 16, cfg.Reset.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Reset.TxTimeout)
	assert.Equal(t, 100, cfg.Level.MaxLevel)
	assert.Equal(t, int64(2), cfg.Mission.CompleteExp)
	assert.Equal(t, "configs/exp_table.csv", cfg.Level.TablePath)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := writeConfig(t, `
database:
  host: db.internal
  port: 6543
reset:
  time: "05:00"
  utc_offset: "+09:00"
  concurrency: 4
level:
  table_path: /srv/exp.csv
`)
	t.Setenv("DATABASE_HOST", "override.internal")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "05:00", cfg.Reset.Time)
	assert.Equal(t, 4, cfg.Reset.Concurrency)
	assert.Equal(t, "/srv/exp.csv", cfg.Level.TablePath)

	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, cfg.ResetLocation()).Zone()
	assert.Equal(t, 9*3600, offset)
}

func TestLoad_InvalidResetTime(t *testing.T) {
	dir := writeConfig(t, `
reset:
  time: "25:99"
`)
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate_MissingTablePath(t *testing.T) {
	cfg := &Config{
		Reset: ResetConfig{Time: "20:00", Concurrency: 1},
		Level: LevelConfig{MaxLevel: 100},
	}
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"18:00", 18 * time.Hour, false},
		{"20:00:00", 20 * time.Hour, false},
		{"00:00", 0, false},
		{"23:59:59", 23*time.Hour + 59*time.Minute + 59*time.Second, false},
		{"24:00", 0, true},
		{"noon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUTCOffset(t *testing.T) {
	loc, err := ParseUTCOffset("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = ParseUTCOffset("-05:30")
	require.NoError(t, err)
	_, offset := time.Date(2024, 6, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -(5*3600 + 30*60), offset)

	_, err = ParseUTCOffset("JST")
	assert.Error(t, err)
}
