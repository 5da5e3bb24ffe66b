// Copyright 2025, the spneumo-analysis contributors.

package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandExpansion(t *testing.T) {

	tool := Tool{
		Exec:    "checkm2",
		Args:    []string{"predict", "--input", "{list}", "--output-directory", "{out}", "--threads", "{threads}"},
		Threads: 8,
	}

	cmd := tool.Command("work/chunk_1.txt", "out/chunk_1")
	assert.Equal(t, []string{"checkm2", "predict", "--input", "work/chunk_1.txt",
		"--output-directory", "out/chunk_1", "--threads", "8"}, cmd.Args)
}

func touchJob(t *testing.T, root string, ix int) Job {
	t.Helper()
	outDir := filepath.Join(root, "chunk", "out")
	return Job{
		Index:    ix,
		ListFile: filepath.Join(root, "chunk.txt"),
		OutDir:   outDir,
		Tool: Tool{
			Exec:   "touch",
			Args:   []string{"{out}/done.tsv"},
			Marker: "done.tsv",
		},
	}
}

func TestRunRounds(t *testing.T) {

	var jobs []Job
	for ix := 1; ix <= 5; ix++ {
		job := touchJob(t, t.TempDir(), ix)
		jobs = append(jobs, job)
	}

	failed, err := RunRounds(jobs, 2, nil)
	require.NoError(t, err)
	assert.Empty(t, failed)
	for _, job := range jobs {
		assert.True(t, job.Complete())
	}
}

func TestRunRoundsFailures(t *testing.T) {

	ok := touchJob(t, t.TempDir(), 1)

	// Exits nonzero.
	bad := Job{
		Index:  1001,
		OutDir: filepath.Join(t.TempDir(), "out"),
		Tool:   Tool{Exec: "false", Marker: "done.tsv"},
	}

	// Exits cleanly but never writes its marker.
	silent := Job{
		Index:  2001,
		OutDir: filepath.Join(t.TempDir(), "out"),
		Tool:   Tool{Exec: "true", Marker: "done.tsv"},
	}

	failed, err := RunRounds([]Job{ok, bad, silent}, 2, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1001, 2001}, failed)
	assert.True(t, ok.Complete())
}

// With TouchMarker, a clean exit is the completion signal and dispatch
// writes the marker itself.
func TestRunRoundsTouchMarker(t *testing.T) {

	job := Job{
		Index:  1,
		OutDir: filepath.Join(t.TempDir(), "out"),
		Tool:   Tool{Exec: "true", Marker: "chunk_done", TouchMarker: true},
	}

	failed, err := RunRounds([]Job{job}, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.True(t, job.Complete())
}

func TestRunRoundsBadMaxProcs(t *testing.T) {
	_, err := RunRounds(nil, 0, nil)
	assert.Error(t, err)
}

// The workflow must leave the marker behind as a regular file, not a
// stream.
func TestRunChunkWorkflow(t *testing.T) {

	root := t.TempDir()
	outDir := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(outDir, 0755))

	listFile := filepath.Join(root, "chunk.txt")
	require.NoError(t, os.WriteFile(listFile, []byte("proteome_1.fa\n"), 0644))

	job := Job{
		Index:    1,
		ListFile: listFile,
		OutDir:   outDir,
		Tool: Tool{
			Exec:   "cp",
			Args:   []string{"{list}", "{out}/copied.txt"},
			Marker: "chunk_done",
		},
	}

	require.NoError(t, RunChunkWorkflow(job, root))

	assert.FileExists(t, filepath.Join(outDir, "copied.txt"))
	info, err := os.Stat(filepath.Join(outDir, "chunk_done"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
	assert.True(t, job.Complete())
}
