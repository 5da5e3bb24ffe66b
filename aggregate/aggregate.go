// Copyright 2025, the spneumo-analysis contributors.

package aggregate

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/willf/bloom"
)

// Table is the combined results of one aggregation pass: a stable
// header plus one row per discovered record.  Append-only while
// building, written once.
type Table struct {
	Header []string
	Rows   [][]string

	// Number of source files that were logged and skipped instead
	// of aborting the run, with one reason each.
	Skipped     int
	SkipReasons []string

	// Records whose sample key was already seen.  Duplicates are
	// kept in the table (chunks are disjoint by construction, so a
	// duplicate means an operator error worth surfacing, not data
	// to drop silently).
	Duplicates int
}

// Aggregate walks root recursively and folds every file matching the
// profile's pattern into a table.  A malformed source is logged and
// counted in Table.Skipped; it never aborts the remaining files.
// Discovery order is the lexical walk order, so repeated runs over an
// unchanged tree produce identical tables.
func Aggregate(root string, p *Profile, logger *log.Logger) (*Table, error) {

	// Profiles built by hand bypass LoadProfiles, so revalidate
	// before indexing into rows by key column.
	if err := p.validate(); err != nil {
		return nil, err
	}

	tbl := &Table{Header: append([]string(nil), p.Header...)}

	keyCol := -1
	for i, h := range p.Header {
		if h == p.Key {
			keyCol = i
		}
	}

	// The duplicate count is advisory (duplicate rows are kept), so
	// membership is tracked with a Bloom filter alone: no per-key
	// storage, and at work-list scale (thousands of keys against 8M
	// bits) false positives are negligible.
	bf := bloom.New(8*1024*1024, 5)

	walkErr := filepath.WalkDir(root, func(fname string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(p.Pattern, d.Name())
		if err != nil || !ok {
			return err
		}

		var rows [][]string
		switch p.Format {
		case "json":
			row, perr := p.parseJSON(fname)
			if perr != nil {
				tbl.skip(fname, perr, logger)
				return nil
			}
			rows = [][]string{row}
		case "tsv":
			var perr error
			rows, perr = p.parseTSV(fname)
			if perr != nil {
				tbl.skip(fname, perr, logger)
				return nil
			}
		}

		for _, row := range rows {
			key := row[keyCol]
			if bf.TestAndAdd([]byte(key)) {
				tbl.Duplicates++
				if logger != nil {
					logger.Printf("duplicate key %q in %s", key, fname)
				}
			}
			tbl.Rows = append(tbl.Rows, row)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return tbl, nil
}

func (t *Table) skip(fname string, err error, logger *log.Logger) {
	t.Skipped++
	reason := fmt.Sprintf("%s: %v", fname, err)
	t.SkipReasons = append(t.SkipReasons, reason)
	if logger != nil {
		logger.Printf("skipping source: %s", reason)
	}
}

// Complete reports whether a chunk output directory finished: the
// expected summary file is present.  A missing marker means "not yet
// processed", never an error, so killed jobs are simply re-run.
func Complete(dir, marker string) bool {
	info, err := os.Stat(filepath.Join(dir, marker))
	if err != nil {
		return false
	}
	return !info.IsDir()
}
