// Copyright 2025, the spneumo-analysis contributors.

// Package chunk assigns job-array indices to contiguous,
// non-overlapping line ranges of a work list.  Each scheduler array
// task derives its own range from its index alone, so no coordination
// between tasks is needed.
package chunk

import (
	"errors"
	"fmt"
)

// ErrStartBeyondList is returned when a chunk would begin past the
// end of the work list.  It is fatal to the single chunk job only;
// lower indices remain valid.
var ErrStartBeyondList = errors.New("chunk start exceeds work list length")

// Spec is the inclusive, 1-indexed line range assigned to one job
// index.  OpenEnded is set when the nominal end exceeded the work
// list and was truncated to the last available line.
type Spec struct {
	Start     int
	End       int
	Offset    int
	OpenEnded bool
}

// Size returns the number of work items covered by the spec.
func (s Spec) Size() int {
	return s.End - s.Start + 1
}

// Plan computes the line range for one job index.  jobIndex is the
// scheduler-assigned array index (>= 1), chunkSize the number of
// items per chunk (>= 1), offset a resume displacement added to every
// start (>= 0), and total the work list length.
//
// The range is [jobIndex+offset, jobIndex+offset+chunkSize-1].  An
// end beyond total truncates silently (open-ended chunk); a start
// beyond total is an error wrapping ErrStartBeyondList.
func Plan(jobIndex, chunkSize, offset, total int) (Spec, error) {

	if jobIndex < 1 {
		return Spec{}, fmt.Errorf("chunk: job index %d, must be >= 1", jobIndex)
	}
	if chunkSize < 1 {
		return Spec{}, fmt.Errorf("chunk: chunk size %d, must be >= 1", chunkSize)
	}
	if offset < 0 {
		return Spec{}, fmt.Errorf("chunk: offset %d, must be >= 0", offset)
	}
	if total < 0 {
		return Spec{}, fmt.Errorf("chunk: total %d, must be >= 0", total)
	}

	start := jobIndex + offset
	if start > total {
		return Spec{}, fmt.Errorf("chunk: job index %d with offset %d starts at line %d of a %d line list: %w",
			jobIndex, offset, start, total, ErrStartBeyondList)
	}

	sp := Spec{Start: start, Offset: offset}
	sp.End = start + chunkSize - 1
	if sp.End > total {
		sp.End = total
		sp.OpenEnded = true
	}

	return sp, nil
}

// StartIndices returns the job indices whose chunks exactly tile
// [1+offset, total] with no overlap and no gap: 1, 1+chunkSize,
// 1+2*chunkSize, ...  The scheduler array is submitted with exactly
// these indices (array step = chunkSize).
func StartIndices(total, chunkSize, offset int) []int {

	var ix []int
	for j := 1; j+offset <= total; j += chunkSize {
		ix = append(ix, j)
	}
	return ix
}
