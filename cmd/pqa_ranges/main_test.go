// Copyright 2025, the spneumo-analysis contributors.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stray non-numeric lines in a resubmission list are skipped, not
// fatal.
func TestReadNumsSkipsStrayText(t *testing.T) {

	fname := filepath.Join(t.TempDir(), "failed.txt")
	content := "# failed chunks\n1001\n\nchunk list:\n1\n2001\nn/a\n"
	require.NoError(t, os.WriteFile(fname, []byte(content), 0644))

	nums, err := readNums(fname)
	require.NoError(t, err)
	assert.Equal(t, []int{1001, 1, 2001}, nums)
}

func TestReadNumsMissingFile(t *testing.T) {
	_, err := readNums(filepath.Join(t.TempDir(), "no_such_file.txt"))
	assert.Error(t, err)
}
