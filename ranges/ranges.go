// Copyright 2025, the spneumo-analysis contributors.

// Package ranges compacts job index lists into the range strings
// accepted by scheduler array directives, e.g. 1,1001-3001,5001.
package ranges

import (
	"fmt"
	"sort"
	"strings"
)

// Group sorts and deduplicates nums, then compacts consecutive runs
// into "start-end" elements (single numbers stay bare).  An empty or
// nil input yields nil.
func Group(nums []int) []string {

	if len(nums) == 0 {
		return nil
	}

	u := make([]int, len(nums))
	copy(u, nums)
	sort.Ints(u)

	j := 0
	for i := 1; i < len(u); i++ {
		if u[i] != u[j] {
			j++
			u[j] = u[i]
		}
	}
	u = u[:j+1]

	var out []string
	start, end := u[0], u[0]
	flush := func() {
		if start == end {
			out = append(out, fmt.Sprintf("%d", start))
		} else {
			out = append(out, fmt.Sprintf("%d-%d", start, end))
		}
	}
	for _, n := range u[1:] {
		if n == end+1 {
			end = n
			continue
		}
		flush()
		start, end = n, n
	}
	flush()

	return out
}

// Format joins grouped ranges with commas, ready for a job-array
// resubmission directive.
func Format(groups []string) string {
	return strings.Join(groups, ",")
}
