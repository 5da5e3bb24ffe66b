// Copyright 2025, the spneumo-analysis contributors.

// pqa_plan prepares and optionally runs one chunk of a job array.  It
// maps a 1-indexed array task id to a contiguous slice of the work
// list, writes that slice as the chunk's work-list file, and with
// --Run executes the tool for the chunk as a workflow.  It is
// intended to be the single command in a SLURM array script:
//
// pqa_plan --WorkListFileName=proteomes.txt --OutDirName=checkm2_out --ProfileName=checkm2
//    --ChunkSize=1000 --Run
//
// When --JobIndex is not given, the task id is taken from
// SLURM_ARRAY_TASK_ID.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tgttunstall/spneumo-analysis/chunk"
	"github.com/tgttunstall/spneumo-analysis/dispatch"
	"github.com/tgttunstall/spneumo-analysis/store"
	"github.com/tgttunstall/spneumo-analysis/utils"
)

var (
	config *utils.Config
	logger *log.Logger

	jobIndex int
	toolExec string
	toolArgs string
	run      bool
)

func handleArgs() {

	ConfigFileName := flag.String("ConfigFileName", "", "JSON file containing configuration parameters")
	WorkListFileName := flag.String("WorkListFileName", "", "File listing one proteome FASTA path per line")
	OutDirName := flag.String("OutDirName", "", "Root directory for per-chunk output")
	ChunkSize := flag.Int("ChunkSize", 0, "Number of work items per chunk")
	Offset := flag.Int("Offset", 0, "Line offset added to the chunk start")
	Threads := flag.Int("Threads", 0, "Thread count handed to the tool invocation")
	CursorFileName := flag.String("CursorFileName", "", "sqlite database recording chunk completions")
	RunName := flag.String("RunName", "", "Name identifying this run in the cursor database")
	MarkerFileName := flag.String("MarkerFileName", "", "Summary file marking the chunk directory complete")
	LogDir := flag.String("LogDir", "", "Directory for log files")
	JobIndex := flag.Int("JobIndex", 0, "1-indexed array task id (default SLURM_ARRAY_TASK_ID)")
	ToolExec := flag.String("ToolExec", "", "Tool executable to run for the chunk")
	ToolArgs := flag.String("ToolArgs", "", "Tool arguments, may contain {list}, {out} and {threads}")
	Run := flag.Bool("Run", false, "Run the tool for the chunk after materializing it")

	flag.Parse()

	if *ConfigFileName != "" {
		var err error
		config, err = utils.ReadConfig(*ConfigFileName)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		config = new(utils.Config)
	}

	if *WorkListFileName != "" {
		config.WorkListFileName = *WorkListFileName
	}
	if *OutDirName != "" {
		config.OutDir = *OutDirName
	}
	if *ChunkSize != 0 {
		config.ChunkSize = *ChunkSize
	}
	if *Offset != 0 {
		config.Offset = *Offset
	}
	if *Threads != 0 {
		config.Threads = *Threads
	}
	if *CursorFileName != "" {
		config.CursorFileName = *CursorFileName
	}
	if *RunName != "" {
		config.RunName = *RunName
	}
	if *MarkerFileName != "" {
		config.MarkerFileName = *MarkerFileName
	}
	if *LogDir != "" {
		config.LogDir = *LogDir
	}

	jobIndex = *JobIndex
	toolExec = *ToolExec
	toolArgs = *ToolArgs
	run = *Run
}

func checkArgs() {

	if config.WorkListFileName == "" {
		os.Stderr.WriteString("WorkListFileName not provided, run 'pqa_plan --help' for more information.\n\n")
		os.Exit(1)
	}
	if config.OutDir == "" {
		os.Stderr.WriteString("OutDirName not provided, run 'pqa_plan --help' for more information.\n\n")
		os.Exit(1)
	}
	if config.ChunkSize == 0 {
		os.Stderr.WriteString("ChunkSize not provided, defaulting to 1000\n\n")
		config.ChunkSize = 1000
	}
	if config.Threads == 0 {
		config.Threads = 8
	}
	if config.MarkerFileName == "" {
		config.MarkerFileName = "chunk_done"
	}

	if jobIndex == 0 {
		v := os.Getenv("SLURM_ARRAY_TASK_ID")
		if v == "" {
			os.Stderr.WriteString("JobIndex not provided and SLURM_ARRAY_TASK_ID is not set.\n\n")
			os.Exit(1)
		}
		var err error
		jobIndex, err = strconv.Atoi(v)
		if err != nil {
			os.Stderr.WriteString("SLURM_ARRAY_TASK_ID is not a number.\n\n")
			os.Exit(1)
		}
	}

	if run && toolExec == "" {
		os.Stderr.WriteString("Run requires ToolExec, run 'pqa_plan --help' for more information.\n\n")
		os.Exit(1)
	}
}

func setupLog() {
	if config.LogDir == "" {
		config.LogDir = "pqa_logs"
	}
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		panic(err)
	}
	logname := path.Join(config.LogDir, fmt.Sprintf("pqa_plan_%d.log", jobIndex))
	fid, err := os.Create(logname)
	if err != nil {
		panic(err)
	}
	logger = log.New(fid, "", log.Ltime)
}

func main() {

	handleArgs()
	checkArgs()
	setupLog()

	total, err := chunk.CountLines(config.WorkListFileName)
	if err != nil {
		log.Fatal(err)
	}

	sp, err := chunk.Plan(jobIndex, config.ChunkSize, config.Offset, total)
	if errors.Is(err, chunk.ErrStartBeyondList) {
		// Oversized arrays are routine; the spare tasks have nothing
		// to do.
		logger.Printf("task %d starts beyond the %d-item work list, nothing to do", jobIndex, total)
		os.Exit(0)
	} else if err != nil {
		log.Fatal(err)
	}
	if sp.OpenEnded {
		logger.Printf("task %d chunk truncated to the end of the work list", jobIndex)
	}
	logger.Printf("task %d covers lines %d-%d of %s", jobIndex, sp.Start, sp.End, config.WorkListFileName)

	outDir := filepath.Join(config.OutDir, fmt.Sprintf("chunk_%d", jobIndex))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		log.Fatal(err)
	}

	listFile := filepath.Join(outDir, fmt.Sprintf("chunk_%d.txt", jobIndex))
	if err := chunk.Materialize(config.WorkListFileName, sp, listFile); err != nil {
		log.Fatal(err)
	}
	fmt.Println(listFile)

	if run {
		job := dispatch.Job{
			Index:    jobIndex,
			ListFile: listFile,
			OutDir:   outDir,
			Tool: dispatch.Tool{
				Exec:    toolExec,
				Args:    parseToolArgs(toolArgs),
				Threads: config.Threads,
				Marker:  config.MarkerFileName,
			},
		}
		pipedir, err := os.MkdirTemp("", "pqa_pipe")
		if err != nil {
			log.Fatal(err)
		}
		defer os.RemoveAll(pipedir)
		if err := dispatch.RunChunkWorkflow(job, pipedir); err != nil {
			log.Fatal(err)
		}
	}

	if config.CursorFileName != "" {
		cursor, err := store.Open(config.CursorFileName)
		if err != nil {
			log.Fatal(err)
		}
		defer cursor.Close()
		runName := config.RunName
		if runName == "" {
			runName = uuid.NewSHA1(uuid.NameSpaceURL, []byte(config.WorkListFileName)).String()
		}
		if err := cursor.MarkComplete(runName, jobIndex, sp); err != nil {
			log.Fatal(err)
		}
	}
}

func parseToolArgs(s string) []string {
	return strings.Fields(s)
}
