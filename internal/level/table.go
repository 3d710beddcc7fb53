// Package level converts experience points into user levels using a
// staged lookup table loaded once at startup.
package level

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table errors.
var (
	ErrEmptyTable = errors.New("level table has no entries")
	ErrUnordered  = errors.New("level table is not strictly increasing")
)

// Entry maps a level to the cumulative experience required to leave it.
type Entry struct {
	Level     int
	Threshold uint64
}

// Table is an ordered, immutable level table.
// It is safe for concurrent reads once constructed.
type Table struct {
	entries []Entry
}

// NewTable validates entries and builds a Table from a private copy of them.
// Entries must be strictly increasing in both level and threshold.
func NewTable(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyTable
	}

	copied := make([]Entry, len(entries))
	copy(copied, entries)

	for i, e := range copied {
		if e.Level < 0 {
			return nil, fmt.Errorf("entry %d: negative level %d", i, e.Level)
		}
		if i == 0 {
			continue
		}
		prev := copied[i-1]
		if e.Level <= prev.Level || e.Threshold <= prev.Threshold {
			return nil, fmt.Errorf("%w: entry %d (level %d, exp %d) after (level %d, exp %d)",
				ErrUnordered, i, e.Level, e.Threshold, prev.Level, prev.Threshold)
		}
	}

	return &Table{entries: copied}, nil
}

// LoadTable reads a CSV level table with a "level,exp" header.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open level table: %w", err)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load level table %s: %w", path, err)
	}
	return t, nil
}

// ReadTable parses a CSV level table from r.
func ReadTable(r io.Reader) (*Table, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = 2
	rdr.TrimLeadingSpace = true

	header, err := rdr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if !strings.EqualFold(header[0], "level") || !strings.EqualFold(header[1], "exp") {
		return nil, fmt.Errorf("unexpected header %q, want level,exp", strings.Join(header, ","))
	}

	var entries []Entry
	for {
		record, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		lvl, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("invalid level %q: %w", record[0], err)
		}
		exp, err := strconv.ParseUint(record[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid exp %q: %w", record[1], err)
		}
		entries = append(entries, Entry{Level: lvl, Threshold: exp})
	}

	return NewTable(entries)
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the table entries in ascending order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// MaxThreshold returns the largest threshold in the table.
func (t *Table) MaxThreshold() uint64 {
	return t.entries[len(t.entries)-1].Threshold
}

// MaxLevel returns the highest level defined in the table.
func (t *Table) MaxLevel() int {
	return t.entries[len(t.entries)-1].Level
}
