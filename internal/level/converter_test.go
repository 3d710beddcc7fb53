package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func fixtureConverter(t testing.TB) *Converter {
	t.Helper()
	table, err := LoadTable("testdata/exp_table.csv")
	require.NoError(t, err)
	return NewConverter(table, 100)
}

func ptr(v uint64) *uint64 {
	return &v
}

// TestConvert_ReferenceValues pins the boundary convention: reaching a
// threshold exactly moves the user to the next level.
func TestConvert_ReferenceValues(t *testing.T) {
	conv := fixtureConverter(t)

	tests := []struct {
		points    uint64
		level     int
		remaining *uint64
	}{
		{0, 1, ptr(10)},
		{2, 1, ptr(8)},
		{9, 1, ptr(1)},
		{10, 2, ptr(18)},
		{27, 2, ptr(1)},
		{28, 3, ptr(24)},
		{7623, 84, ptr(76)},
		{8396, 90, ptr(142)},
		{9999, 100, ptr(1)},
		{10000, 100, nil},
		{120000, 100, nil},
	}

	for _, tt := range tests {
		got := conv.Convert(tt.points)
		assert.Equal(t, tt.level, got.Level, "level for %d points", tt.points)
		if tt.remaining == nil {
			assert.Nil(t, got.Remaining, "remaining for %d points", tt.points)
			continue
		}
		require.NotNil(t, got.Remaining, "remaining for %d points", tt.points)
		assert.Equal(t, *tt.remaining, *got.Remaining, "remaining for %d points", tt.points)
	}
}

func TestConvert_LowerCap(t *testing.T) {
	table, err := NewTable([]Entry{
		{Level: 1, Threshold: 10},
		{Level: 2, Threshold: 20},
		{Level: 3, Threshold: 30},
		{Level: 4, Threshold: 40},
	})
	require.NoError(t, err)
	conv := NewConverter(table, 2)

	assert.Equal(t, Result{Level: 1, Remaining: ptr(5)}, conv.Convert(5))
	assert.Equal(t, Result{Level: 2, Remaining: ptr(5)}, conv.Convert(15))
	assert.Equal(t, Result{Level: 2}, conv.Convert(25))
	assert.Equal(t, Result{Level: 2}, conv.Convert(1000))
}

func TestNewConverter_DefaultCap(t *testing.T) {
	table, err := NewTable([]Entry{{Level: 1, Threshold: 10}})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxLevel, NewConverter(table, 0).MaxLevel())
}

// TestConvertMonotonicProperty checks that more experience never lowers the level.
func TestConvertMonotonicProperty(t *testing.T) {
	conv := fixtureConverter(t)

	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Uint64Range(0, 200000).Draw(rt, "a")
		b := rapid.Uint64Range(0, 200000).Draw(rt, "b")
		if a > b {
			a, b = b, a
		}

		la := conv.Convert(a).Level
		lb := conv.Convert(b).Level
		if la > lb {
			rt.Fatalf("convert(%d).level=%d > convert(%d).level=%d", a, la, b, lb)
		}
	})
}

// TestConvertClampProperty checks that anything at or past the last threshold
// is the cap with no remainder.
func TestConvertClampProperty(t *testing.T) {
	conv := fixtureConverter(t)

	rapid.Check(t, func(rt *rapid.T) {
		points := rapid.Uint64Min(10000).Draw(rt, "points")

		got := conv.Convert(points)
		if got.Level != 100 {
			rt.Fatalf("convert(%d).level=%d, want 100", points, got.Level)
		}
		if got.Remaining != nil {
			rt.Fatalf("convert(%d).remaining=%d, want none", points, *got.Remaining)
		}
	})
}

// TestConvertRemainderProperty checks that points plus remainder lands exactly
// on a threshold the user has not reached yet.
func TestConvertRemainderProperty(t *testing.T) {
	conv := fixtureConverter(t)
	thresholds := make(map[uint64]int)
	for _, e := range conv.table.Entries() {
		thresholds[e.Threshold] = e.Level
	}

	rapid.Check(t, func(rt *rapid.T) {
		points := rapid.Uint64Range(0, 9999).Draw(rt, "points")

		got := conv.Convert(points)
		if got.Remaining == nil {
			rt.Fatalf("convert(%d) has no remainder below the last threshold", points)
		}
		if *got.Remaining == 0 {
			rt.Fatalf("convert(%d) has zero remainder", points)
		}
		lvl, ok := thresholds[points+*got.Remaining]
		if !ok || lvl != got.Level {
			rt.Fatalf("convert(%d)=(%d,%d) does not end on level %d's threshold", points, got.Level, *got.Remaining, got.Level)
		}
	})
}
