// Copyright 2025, the spneumo-analysis contributors.

package unifire

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const predHeader = "protein_id\tannotation\tevidence"

func writeFile(t *testing.T, fname, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(fname), 0755))
	require.NoError(t, os.WriteFile(fname, []byte(content), 0644))
}

func readFile(t *testing.T, fname string) string {
	t.Helper()
	b, err := os.ReadFile(fname)
	require.NoError(t, err)
	return string(b)
}

// Two of the three prediction files present: both merged, the third
// recorded as missing, never fatal.
func TestMergeDirPartial(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "UP100")
	writeFile(t, filepath.Join(dir, "predictions_arba.out"),
		predHeader+"\np1\tkinase\tARBA001\n")
	writeFile(t, filepath.Join(dir, "predictions_unirule.out"),
		predHeader+"\np2\tligase\tUR0002\n")

	res, err := MergeDir(dir, false, nil)
	require.NoError(t, err)

	assert.False(t, res.SkippedDir)
	assert.Equal(t, []string{"arba", "unirule"}, res.Sources)
	assert.Equal(t, []string{"predictions_unirule-pirsr.out"}, res.Missing)
	assert.Equal(t, 2, res.Rows)

	want := predHeader + "\tsource\tproteome_id\n" +
		"p1\tkinase\tARBA001\tarba\tUP100\n" +
		"p2\tligase\tUR0002\tunirule\tUP100\n"
	assert.Equal(t, want, readFile(t, filepath.Join(dir, "all_predictions_UP100.out")))
}

func TestMergeDirEmpty(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "UP100")
	require.NoError(t, os.MkdirAll(dir, 0755))

	res, err := MergeDir(dir, false, nil)
	require.NoError(t, err)
	assert.True(t, res.SkippedDir)
	assert.NoFileExists(t, res.OutFile)
}

func TestMergeDirExistingOutput(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "UP100")
	writeFile(t, filepath.Join(dir, "predictions_arba.out"),
		predHeader+"\np1\tkinase\tARBA001\n")
	writeFile(t, filepath.Join(dir, "all_predictions_UP100.out"), "stale\n")

	_, err := MergeDir(dir, false, nil)
	assert.ErrorIs(t, err, ErrOutputExists)

	// Force overwrites.
	res, err := MergeDir(dir, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.NotContains(t, readFile(t, res.OutFile), "stale")
}

func TestMergeDirHeaderMismatch(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "UP100")
	writeFile(t, filepath.Join(dir, "predictions_arba.out"),
		predHeader+"\np1\tkinase\tARBA001\n")
	writeFile(t, filepath.Join(dir, "predictions_unirule.out"),
		"some\tother\theader\np2\tligase\tUR0002\n")

	res, err := MergeDir(dir, false, nil)
	assert.Error(t, err)
	assert.NoFileExists(t, res.OutFile)
}

func TestMergeTreeSubdirs(t *testing.T) {

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "UP100", "predictions_arba.out"),
		predHeader+"\np1\tkinase\tARBA001\n")
	writeFile(t, filepath.Join(root, "UP200", "predictions_unirule.out"),
		predHeader+"\np2\tligase\tUR0002\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "UP300"), 0755))

	processed, skipped, err := MergeTree(root, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, 1, skipped)
	assert.FileExists(t, filepath.Join(root, "UP100", "all_predictions_UP100.out"))
	assert.FileExists(t, filepath.Join(root, "UP200", "all_predictions_UP200.out"))
}

func TestMergeTreeSingleDir(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "UP100")
	writeFile(t, filepath.Join(dir, "predictions_arba.out"),
		predHeader+"\np1\tkinase\tARBA001\n")

	processed, skipped, err := MergeTree(dir, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 0, skipped)
}

func TestMergeTreeListFile(t *testing.T) {

	root := t.TempDir()
	d1 := filepath.Join(root, "UP100")
	writeFile(t, filepath.Join(d1, "predictions_arba.out"),
		predHeader+"\np1\tkinase\tARBA001\n")

	list := filepath.Join(root, "dirs.txt")
	writeFile(t, list, d1+"\n"+filepath.Join(root, "no_such_dir")+"\n\n")

	processed, skipped, err := MergeTree(list, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, skipped)
}
