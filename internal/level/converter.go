package level

import "sort"

// DefaultMaxLevel is the level cap used when none is configured.
const DefaultMaxLevel = 100

// Result is a level together with the experience still needed to reach the
// next one. Remaining is nil at the level cap.
type Result struct {
	Level     int
	Remaining *uint64
}

// Converter maps experience points to levels. It holds no mutable state.
type Converter struct {
	table    *Table
	maxLevel int
}

// NewConverter creates a Converter over table, capping results at maxLevel.
// A non-positive maxLevel falls back to DefaultMaxLevel.
func NewConverter(table *Table, maxLevel int) *Converter {
	if maxLevel <= 0 {
		maxLevel = DefaultMaxLevel
	}
	return &Converter{table: table, maxLevel: maxLevel}
}

// MaxLevel returns the level cap.
func (c *Converter) MaxLevel() int {
	return c.maxLevel
}

// Convert returns the level for points.
//
// The level is the one of the first entry whose threshold is strictly greater
// than points, so reaching a threshold exactly advances the level. Points at or
// above every threshold yield the cap with no remainder.
func (c *Converter) Convert(points uint64) Result {
	entries := c.table.entries
	idx := sort.Search(len(entries), func(i int) bool {
		return entries[i].Threshold > points
	})

	if idx == len(entries) {
		return Result{Level: min(entries[len(entries)-1].Level+1, c.maxLevel)}
	}

	next := entries[idx]
	if next.Level > c.maxLevel {
		return Result{Level: c.maxLevel}
	}

	remaining := next.Threshold - points
	return Result{Level: next.Level, Remaining: &remaining}
}
