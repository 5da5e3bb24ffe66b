// Copyright 2025, the spneumo-analysis contributors.

// Package store persists chunk completions across runs in a sqlite
// database, replacing the hand-edited offset constants previously
// used to resume truncated runs.
package store

import (
	"database/sql"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tgttunstall/spneumo-analysis/chunk"
)

type Cursor struct {
	db *sql.DB
}

// Open opens (creating if needed) the cursor database at path.
func Open(path string) (*Cursor, error) {

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	table := `
	CREATE TABLE IF NOT EXISTS chunk_runs (
		run TEXT NOT NULL,
		job_index INTEGER NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		line_offset INTEGER NOT NULL,
		completed_at DATETIME NOT NULL,
		PRIMARY KEY (run, job_index)
	);
	`
	if _, err := db.Exec(table); err != nil {
		db.Close()
		return nil, err
	}

	return &Cursor{db: db}, nil
}

func (c *Cursor) Close() error {
	return c.db.Close()
}

// MarkComplete records that the chunk for jobIndex finished.  Marking
// the same chunk twice is a no-op, so rerun jobs stay idempotent.
func (c *Cursor) MarkComplete(run string, jobIndex int, sp chunk.Spec) error {

	now := time.Now().UTC()
	_, err := c.db.Exec(
		`INSERT INTO chunk_runs (run, job_index, start_line, end_line, line_offset, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run, job_index) DO NOTHING`,
		run, jobIndex, sp.Start, sp.End, sp.Offset, now)
	return err
}

// NextOffset returns the resume offset for run: the end of the
// contiguous completed prefix of the work list.  A run with no
// completions (or an unknown run) resumes from its recorded offset,
// or from 0 when nothing was ever recorded.
func (c *Cursor) NextOffset(run string) (int, error) {

	rows, err := c.db.Query(
		`SELECT start_line, end_line, line_offset FROM chunk_runs WHERE run = ? ORDER BY start_line`, run)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	type span struct{ start, end, offset int }
	var spans []span
	for rows.Next() {
		var s span
		if err := rows.Scan(&s.start, &s.end, &s.offset); err != nil {
			return 0, err
		}
		spans = append(spans, s)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(spans) == 0 {
		return 0, nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	// The first chunk of the run starts at offset+1.  Walk the
	// completed spans while they stay contiguous; the resume offset
	// is the last line covered without a gap.
	next := spans[0].offset
	for _, s := range spans {
		if s.start != next+1 {
			break
		}
		next = s.end
	}

	return next, nil
}

// MissingIndices returns the planned job indices of run that have no
// completion record, in ascending order.  The planning parameters
// must match the ones the run was dispatched with.
func (c *Cursor) MissingIndices(run string, total, chunkSize, offset int) ([]int, error) {

	rows, err := c.db.Query(
		`SELECT job_index FROM chunk_runs WHERE run = ?`, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var ix int
		if err := rows.Scan(&ix); err != nil {
			return nil, err
		}
		done[ix] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int
	for _, ix := range chunk.StartIndices(total, chunkSize, offset) {
		if !done[ix] {
			missing = append(missing, ix)
		}
	}

	return missing, nil
}
