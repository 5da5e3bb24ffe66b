// Copyright 2025, the spneumo-analysis contributors.

package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, fname string, lines []string) []string {
	t.Helper()

	wtr, wclose, err := CreateWriter(fname)
	require.NoError(t, err)
	for _, line := range lines {
		_, err := wtr.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, CloseAll(wclose))

	scanner, toclose, err := OpenScanner(fname)
	require.NoError(t, err)
	defer CloseAll(toclose)

	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return got
}

func TestPlainRoundTrip(t *testing.T) {
	lines := []string{"proteome_1.fa", "proteome_2.fa", "proteome_3.fa"}
	got := roundTrip(t, filepath.Join(t.TempDir(), "work.txt"), lines)
	assert.Equal(t, lines, got)
}

// Files with an .sz suffix are snappy-compressed transparently on both
// ends.
func TestSnappyRoundTrip(t *testing.T) {
	lines := []string{"proteome_1.fa", "proteome_2.fa", "proteome_3.fa"}
	got := roundTrip(t, filepath.Join(t.TempDir(), "work.txt.sz"), lines)
	assert.Equal(t, lines, got)
}

func TestOpenScannerMissing(t *testing.T) {
	_, _, err := OpenScanner(filepath.Join(t.TempDir(), "no_such_file.txt"))
	assert.Error(t, err)
}
