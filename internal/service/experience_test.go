package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"daily-mission-tracker/internal/level"
	"daily-mission-tracker/internal/model"
	"daily-mission-tracker/internal/repository"
)

type fakeExperience map[model.UserID]int64

func (f fakeExperience) Get(ctx context.Context, userID model.UserID) (*model.UserExp, error) {
	points, ok := f[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &model.UserExp{UserID: userID, ExperiencePoints: points}, nil
}

func loadConverter(t testing.TB) *level.Converter {
	t.Helper()
	table, err := level.LoadTable("../level/testdata/exp_table.csv")
	require.NoError(t, err)
	return level.NewConverter(table, level.DefaultMaxLevel)
}

func TestExperienceService_FindWithLevel(t *testing.T) {
	svc := NewExperienceService(fakeExperience{
		"fresh":   0,
		"ten":     10,
		"veteran": 8396,
		"maxed":   10000,
	}, loadConverter(t))
	ctx := context.Background()

	tests := []struct {
		user      model.UserID
		level     int
		remaining *uint64
	}{
		{"fresh", 1, ptr(10)},
		{"ten", 2, ptr(18)},
		{"veteran", 90, ptr(142)},
		{"maxed", 100, nil},
	}

	for _, tt := range tests {
		t.Run(tt.user.String(), func(t *testing.T) {
			got, err := svc.FindWithLevel(ctx, tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.user, got.UserID)
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.remaining, got.Remaining)
		})
	}

	_, err := svc.FindWithLevel(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestExperienceService_NegativeBalanceIsZero(t *testing.T) {
	svc := NewExperienceService(fakeExperience{}, loadConverter(t))

	got := svc.LevelOf(&model.UserExp{UserID: "u", ExperiencePoints: -5})
	assert.Equal(t, 1, got.Level)
	assert.Equal(t, ptr(10), got.Remaining)
	assert.Equal(t, int64(-5), got.ExperiencePoints)
}

// TestLevelNeverDecreasesProperty: earning experience never lowers a level.
func TestLevelNeverDecreasesProperty(t *testing.T) {
	svc := NewExperienceService(fakeExperience{}, loadConverter(t))

	rapid.Check(t, func(t *rapid.T) {
		start := rapid.Int64Range(0, 12000).Draw(t, "start")
		gain := rapid.Int64Range(0, 500).Draw(t, "gain")

		before := svc.LevelOf(&model.UserExp{ExperiencePoints: start})
		after := svc.LevelOf(&model.UserExp{ExperiencePoints: start + gain})
		if after.Level < before.Level {
			t.Fatalf("level dropped from %d to %d after gaining %d at %d", before.Level, after.Level, gain, start)
		}
	})
}

func ptr(v uint64) *uint64 {
	return &v
}
