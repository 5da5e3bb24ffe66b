// Copyright 2025, the spneumo-analysis contributors.

package aggregate

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrTableLocked is returned when another process holds the combined
// table file.  Concurrent writers are never merged; the second writer
// fails outright.
var ErrTableLocked = errors.New("results table is locked by another writer")

// WriteTSV writes the table to fname: UTF-8, LF-terminated, header
// first, tab-separated, no quoting.  The file is held under an
// exclusive advisory lock for the duration of the write and truncated
// only after the lock is acquired, so a losing writer cannot leave a
// half-merged table behind.
func (t *Table) WriteTSV(fname string) error {

	fid, err := os.OpenFile(fname, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if err := unix.Flock(int(fid.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		fid.Close()
		if err == unix.EWOULDBLOCK {
			return fmt.Errorf("%s: %w", fname, ErrTableLocked)
		}
		return err
	}

	if err := fid.Truncate(0); err != nil {
		fid.Close()
		return err
	}

	wtr := bufio.NewWriter(fid)

	writeRow := func(fields []string) error {
		for _, f := range fields {
			if strings.ContainsAny(f, "\t\n\r") {
				return fmt.Errorf("%q: %w", f, ErrFieldHasTab)
			}
		}
		if _, err := wtr.WriteString(strings.Join(fields, "\t")); err != nil {
			return err
		}
		return wtr.WriteByte('\n')
	}

	if err := writeRow(t.Header); err != nil {
		fid.Close()
		return err
	}
	for _, row := range t.Rows {
		if err := writeRow(row); err != nil {
			fid.Close()
			return err
		}
	}

	if err := wtr.Flush(); err != nil {
		fid.Close()
		return err
	}

	// Closing releases the flock.
	return fid.Close()
}
