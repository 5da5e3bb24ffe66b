// Copyright 2025, the spneumo-analysis contributors.

package utils

import (
	"encoding/json"
	"os"
)

type Config struct {

	// The name of the file containing the work list: one proteome
	// FASTA path per line, 1-indexed.  A .sz suffix indicates
	// snappy compression.
	WorkListFileName string

	// Work list paths are resolved relative to this directory.
	// Absolute paths in the work list are used as-is.
	BaseDir string

	// The root directory holding one subdirectory per chunk, named
	// chunk_<job_index>.  Each external tool writes its native
	// output plus a summary file there.
	OutDir string

	// The file path where the combined results table is written.
	ResultsFileName string

	// The TOML file declaring the aggregation profiles (header
	// fields, JSON paths, file patterns) for each pipeline.
	ProfileFileName string

	// The aggregation profile to use for this run, e.g. "checkm2"
	// or "busco".
	ProfileName string

	// The number of work items assigned to each chunk.
	ChunkSize int

	// Line offset added to every chunk start, used when resuming a
	// truncated run.
	Offset int

	// Thread count handed to each external tool invocation.
	Threads int

	// The maximum number of chunk processes that are run
	// simultaneously on one node.
	MaxChunkProcs int

	// Use this location to place temporary files.  If blank, a
	// run-scoped directory of the form pqa_tmp/###### is generated
	// in the local directory.
	TempDir string

	// The directory where log files are written.  By default the
	// logs are placed into pqa_logs/###### in the local directory,
	// where the number matches the temporary directory.
	LogDir string

	// Path of the sqlite database recording chunk completions.  If
	// blank, completion tracking relies on marker files only.
	CursorFileName string

	// Name identifying this run in the cursor database.
	RunName string

	// The summary file whose presence inside a chunk directory
	// marks that chunk as complete.
	MarkerFileName string

	// If true, temporary files are not removed upon program
	// completion.
	NoCleanTemp bool
}

func ReadConfig(filename string) (*Config, error) {
	fid, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fid.Close()
	dec := json.NewDecoder(fid)
	config := new(Config)
	if err := dec.Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}
