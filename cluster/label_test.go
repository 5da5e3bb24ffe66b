// Copyright 2025, the spneumo-analysis contributors.

package cluster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fname, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(fname, []byte(content), 0644))
}

func readFile(t *testing.T, fname string) string {
	t.Helper()
	b, err := os.ReadFile(fname)
	require.NoError(t, err)
	return string(b)
}

func testProteomeMap(t *testing.T) map[string]string {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "UP100.fa"), ">p1 desc\nMKV\n>p2\nMAL\n")
	writeFile(t, filepath.Join(dir, "UP200.fa"), ">p2\nMAL\n>p3\nMQT\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored\n")

	pmap, nfiles, err := ProteomeMap(dir, "UP", ".fa")
	require.NoError(t, err)
	assert.Equal(t, 2, nfiles)
	return pmap
}

func TestProteomeMap(t *testing.T) {

	pmap := testProteomeMap(t)

	assert.Equal(t, "100", pmap["p1"])
	assert.Equal(t, "100,200", pmap["p2"])
	assert.Equal(t, "200", pmap["p3"])
}

func TestProteomeMapNoFiles(t *testing.T) {
	_, _, err := ProteomeMap(t.TempDir(), "UP", ".fa")
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {

	pmap := testProteomeMap(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "clusters.tsv")
	out := filepath.Join(dir, "labelled.tsv")

	// mmseqs2 emits (representative, member) pairs; the first member
	// of each cluster is the representative itself.
	writeFile(t, in, "p1\tp1\np1\tp2\np3\tp3\np3\tp9\n")

	n, err := Label(in, out, pmap, Options{NoLabel: "unmapped"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := Header + "\n" +
		"0\tp1\t100\t*\n" +
		"0\tp2\t100,200\t\n" +
		"1\tp3\t200\t*\n" +
		"1\tp9\tunmapped\t\n"
	assert.Equal(t, want, readFile(t, out))
}

func TestLabelUniq(t *testing.T) {

	pmap := testProteomeMap(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "clusters.tsv")
	out := filepath.Join(dir, "labelled.tsv")
	writeFile(t, in, "p1\tp1\np1\tp1\np1\tp2\n")

	_, err := Label(in, out, pmap, Options{Uniq: true})
	require.NoError(t, err)

	want := Header + "\n" +
		"0\tp1\t100\t*\n" +
		"0\tp2\t100,200\t\n"
	assert.Equal(t, want, readFile(t, out))
}

func TestLabelBadColumns(t *testing.T) {

	dir := t.TempDir()
	in := filepath.Join(dir, "clusters.tsv")
	writeFile(t, in, "p1\tp1\textra\n")

	_, err := Label(in, filepath.Join(dir, "out.tsv"), map[string]string{}, Options{})
	assert.Error(t, err)
}

func TestSortUniq(t *testing.T) {

	cases := []struct{ in, want string }{
		{"", ""},
		{"100", "100"},
		{"200,100", "100,200"},
		{"100,200,100", "100,200"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, sortUniq(c.in), "sortUniq(%q)", c.in)
	}
}

func TestRelabelChunkTwoColumns(t *testing.T) {

	pmap := testProteomeMap(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk.tsv")
	writeFile(t, path, "p1\tp1\np1\tp2\n")

	require.NoError(t, RelabelChunk(path, pmap, Options{}))

	assert.Equal(t, "p1\tp1\t100\np1\tp2\t100,200\n", readFile(t, path))
}

// A chunk already labelled by an earlier batch gains the new labels
// appended to the existing column.
func TestRelabelChunkThreeColumns(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "chunk.tsv")
	writeFile(t, path, "p1\tp1\t300\np1\tp9\t\n")

	pmap := map[string]string{"p1": "100"}
	require.NoError(t, RelabelChunk(path, pmap, Options{}))

	assert.Equal(t, "p1\tp1\t300,100\np1\tp9\t\n", readFile(t, path))
}

func TestCombineChunks(t *testing.T) {

	dir := t.TempDir()
	c1 := filepath.Join(dir, "chunk_1.tsv")
	c2 := filepath.Join(dir, "chunk_2.tsv")
	out := filepath.Join(dir, "combined.tsv")

	// The p3 cluster is split across the chunk boundary and must keep
	// a single renumbered id.
	writeFile(t, c1, "p1\tp1\t100\np3\tp3\t200\n")
	writeFile(t, c2, "p3\tp9\t200\np7\tp7\t100\n")

	n, err := CombineChunks([]string{c1, c2}, out, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := Header + "\n" +
		"0\tp1\t100\t*\n" +
		"1\tp3\t200\t*\n" +
		"1\tp9\t200\t\n" +
		"2\tp7\t100\t*\n"
	assert.Equal(t, want, readFile(t, out))
}

func TestCombineChunksSortLabels(t *testing.T) {

	dir := t.TempDir()
	c1 := filepath.Join(dir, "chunk_1.tsv")
	out := filepath.Join(dir, "combined.tsv")
	writeFile(t, c1, "p1\tp1\t300,100,300\n")

	_, err := CombineChunks([]string{c1}, out, Options{SortLabels: true})
	require.NoError(t, err)

	assert.Equal(t, Header+"\n0\tp1\t100,300\t*\n", readFile(t, out))
}
