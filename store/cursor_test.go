// Copyright 2025, the spneumo-analysis contributors.

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgttunstall/spneumo-analysis/chunk"
)

func openCursor(t *testing.T) *Cursor {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cursor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func mark(t *testing.T, c *Cursor, run string, jobIndex, chunkSize, offset, total int) {
	t.Helper()
	sp, err := chunk.Plan(jobIndex, chunkSize, offset, total)
	require.NoError(t, err)
	require.NoError(t, c.MarkComplete(run, jobIndex, sp))
}

func TestNextOffsetEmpty(t *testing.T) {

	c := openCursor(t)

	next, err := c.NextOffset("checkm2")
	require.NoError(t, err)
	assert.Equal(t, 0, next)
}

func TestNextOffsetContiguous(t *testing.T) {

	c := openCursor(t)

	mark(t, c, "checkm2", 1, 1000, 0, 2700)
	mark(t, c, "checkm2", 1001, 1000, 0, 2700)

	next, err := c.NextOffset("checkm2")
	require.NoError(t, err)
	assert.Equal(t, 2000, next)

	// Other runs are unaffected.
	next, err = c.NextOffset("busco")
	require.NoError(t, err)
	assert.Equal(t, 0, next)
}

// A hole in the completed chunks stops the resume offset at the hole.
func TestNextOffsetGap(t *testing.T) {

	c := openCursor(t)

	mark(t, c, "checkm2", 1, 1000, 0, 5000)
	mark(t, c, "checkm2", 3001, 1000, 0, 5000)

	next, err := c.NextOffset("checkm2")
	require.NoError(t, err)
	assert.Equal(t, 1000, next)
}

func TestNextOffsetResumedRun(t *testing.T) {

	c := openCursor(t)

	// The run itself started at offset 2000, so the first chunk
	// covers 2001-3000.
	mark(t, c, "checkm2", 1, 1000, 2000, 5000)

	next, err := c.NextOffset("checkm2")
	require.NoError(t, err)
	assert.Equal(t, 3000, next)
}

func TestMarkCompleteIdempotent(t *testing.T) {

	c := openCursor(t)

	sp, err := chunk.Plan(1, 1000, 0, 2700)
	require.NoError(t, err)
	require.NoError(t, c.MarkComplete("checkm2", 1, sp))
	require.NoError(t, c.MarkComplete("checkm2", 1, sp))

	next, err := c.NextOffset("checkm2")
	require.NoError(t, err)
	assert.Equal(t, 1000, next)
}

func TestMissingIndices(t *testing.T) {

	c := openCursor(t)

	mark(t, c, "checkm2", 1, 1000, 0, 2700)
	mark(t, c, "checkm2", 2001, 1000, 0, 2700)

	missing, err := c.MissingIndices("checkm2", 2700, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1001}, missing)

	missing, err = c.MissingIndices("busco", 2700, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1001, 2001}, missing)
}
