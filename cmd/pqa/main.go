// Copyright 2025, the spneumo-analysis contributors.

// pqa drives a proteome quality-assessment batch over a large work
// list.  It partitions the list into fixed-size chunks, runs one
// external assessment tool (CheckM2, BUSCO, mmseqs2 or UniFIRE) per
// chunk with a bounded number of concurrent processes, and folds the
// per-chunk summaries into one combined TSV.
//
// pqa can be invoked either using a configuration file in JSON
// format, or using command-line flags.  A typical invocation using
// flags is:
//
// pqa --WorkListFileName=proteomes.txt --OutDirName=checkm2_out --ResultsFileName=results.tsv
//    --ProfileFileName=profiles.toml --ProfileName=checkm2 --ChunkSize=1000 --Threads=8 --MaxChunkProcs=3
//
// Tool executable locations are read from a pqa.yaml file in the
// working directory or in ~/.config, with cluster-wide defaults used
// when the file has no entry.
//
// Chunk completions are recorded in a sqlite cursor database when
// --CursorFileName is given; a later run with --Resume picks up after
// the last contiguous completed chunk instead of relying on manually
// edited offsets.  Chunks whose output directory already carries the
// completion marker are never re-dispatched.
//
// pqa generates intermediate work-list files in a directory of the
// form pqa_tmp/#####, where ##### is a generated run id, and writes
// its log to pqa_logs/##### unless configured otherwise.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/tgttunstall/spneumo-analysis/aggregate"
	"github.com/tgttunstall/spneumo-analysis/chunk"
	"github.com/tgttunstall/spneumo-analysis/dispatch"
	"github.com/tgttunstall/spneumo-analysis/ranges"
	"github.com/tgttunstall/spneumo-analysis/store"
	"github.com/tgttunstall/spneumo-analysis/utils"
)

var (
	config *utils.Config
	logger *log.Logger

	resume bool
)

func handleArgs() {

	ConfigFileName := flag.String("ConfigFileName", "", "JSON file containing configuration parameters")
	WorkListFileName := flag.String("WorkListFileName", "", "File listing one proteome FASTA path per line")
	BaseDir := flag.String("BaseDir", "", "Directory against which work list paths resolve")
	OutDirName := flag.String("OutDirName", "", "Root directory for per-chunk output")
	ResultsFileName := flag.String("ResultsFileName", "", "File name for the combined results table")
	ProfileFileName := flag.String("ProfileFileName", "", "TOML file declaring the aggregation profiles")
	ProfileName := flag.String("ProfileName", "", "Aggregation profile to use, e.g. checkm2 or busco")
	ChunkSize := flag.Int("ChunkSize", 0, "Number of work items per chunk")
	Offset := flag.Int("Offset", 0, "Line offset added to every chunk start when resuming")
	Threads := flag.Int("Threads", 0, "Thread count handed to each tool invocation")
	MaxChunkProcs := flag.Int("MaxChunkProcs", 0, "Run this number of chunk processes concurrently")
	TempDir := flag.String("TempDir", "", "Workspace for temporary files")
	LogDir := flag.String("LogDir", "", "Directory for log files")
	CursorFileName := flag.String("CursorFileName", "", "sqlite database recording chunk completions")
	RunName := flag.String("RunName", "", "Name identifying this run in the cursor database")
	MarkerFileName := flag.String("MarkerFileName", "", "Summary file marking a chunk directory complete")
	NoCleanTemp := flag.Bool("NoCleanTemp", false, "Do not delete temporary files on completion")
	Resume := flag.Bool("Resume", false, "Derive the offset from the cursor database")

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
	if *BaseDir != "" {
		config.BaseDir = *BaseDir
	}
	if *OutDirName != "" {
		config.OutDir = *OutDirName
	}
	if *ResultsFileName != "" {
		config.ResultsFileName = *ResultsFileName
	}
	if *ProfileFileName != "" {
		config.ProfileFileName = *ProfileFileName
	}
	if *ProfileName != "" {
		config.ProfileName = *ProfileName
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
	if *MaxChunkProcs != 0 {
		config.MaxChunkProcs = *MaxChunkProcs
	}
	if *TempDir != "" {
		config.TempDir = *TempDir
	}
	if *LogDir != "" {
		config.LogDir = *LogDir
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
	if *NoCleanTemp {
		config.NoCleanTemp = true
	}
	resume = *Resume
}

func checkArgs() {

	if config.WorkListFileName == "" {
		os.Stderr.WriteString("WorkListFileName not provided, run 'pqa --help' for more information.\n\n")
		os.Exit(1)
	}
	if config.OutDir == "" {
		os.Stderr.WriteString("OutDirName not provided, run 'pqa --help' for more information.\n\n")
		os.Exit(1)
	}
	if config.ResultsFileName == "" {
		os.Stderr.WriteString("ResultsFileName not provided, defaulting to 'results.tsv'\n\n")
		config.ResultsFileName = "results.tsv"
	}
	if config.ProfileFileName == "" {
		os.Stderr.WriteString("ProfileFileName not provided, run 'pqa --help' for more information.\n\n")
		os.Exit(1)
	}
	if config.ProfileName == "" {
		os.Stderr.WriteString("ProfileName not provided, run 'pqa --help' for more information.\n\n")
		os.Exit(1)
	}
	if config.ChunkSize == 0 {
		os.Stderr.WriteString("ChunkSize not provided, defaulting to 1000\n\n")
		config.ChunkSize = 1000
	}
	if config.Threads == 0 {
		os.Stderr.WriteString("Threads not provided, defaulting to 8\n\n")
		config.Threads = 8
	}
	if config.MaxChunkProcs == 0 {
		os.Stderr.WriteString("MaxChunkProcs not provided, defaulting to 3\n\n")
		config.MaxChunkProcs = 3
	}
	if config.RunName == "" {
		config.RunName = config.ProfileName
	}
	if resume && config.CursorFileName == "" {
		os.Stderr.WriteString("Resume requires CursorFileName, run 'pqa --help' for more information.\n\n")
		os.Exit(1)
	}
}

// toolFor builds the invocation template for the configured profile.
// Executable paths come from pqa.yaml (working directory or
// ~/.config), scVarCall-style, so clusters with module systems can
// point at versioned installs without touching the run config.
func toolFor() dispatch.Tool {

	viper.SetConfigName("pqa")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/")

	viper.SetDefault("checkm2_exec", "checkm2")
	viper.SetDefault("busco_exec", "busco")
	viper.SetDefault("mmseqs_exec", "mmseqs")
	viper.SetDefault("unifire_exec", "unifire-workflow.sh")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalln("Unable to read pqa.yaml:", err)
		}
	}

	tool := dispatch.Tool{Threads: config.Threads, Dir: config.BaseDir}

	switch config.ProfileName {
	case "checkm2":
		tool.Exec = viper.GetString("checkm2_exec")
		tool.Args = []string{"predict", "--input", "{list}", "--output-directory", "{out}",
			"--threads", "{threads}", "--force"}
		tool.Marker = "quality_report.tsv"
	case "busco":
		tool.Exec = viper.GetString("busco_exec")
		tool.Args = []string{"-i", "{list}", "-o", "{out}", "-m", "proteins",
			"-c", "{threads}", "-f"}
		// The summary file name encodes the lineage, so completion
		// is tracked with a plain done file.
		tool.Marker = "chunk_done"
		tool.TouchMarker = true
	case "mmseqs":
		tool.Exec = viper.GetString("mmseqs_exec")
		tool.Args = []string{"easy-cluster", "{list}", "{out}/clusters", "{out}/tmp",
			"--threads", "{threads}"}
		tool.Marker = "clusters_cluster.tsv"
	case "unifire":
		tool.Exec = viper.GetString("unifire_exec")
		tool.Args = []string{"-i", "{list}", "-o", "{out}"}
		tool.Marker = "predictions_arba.out"
	default:
		log.Fatalf("no tool invocation known for profile %q", config.ProfileName)
	}

	if config.MarkerFileName != "" {
		tool.Marker = config.MarkerFileName
		tool.TouchMarker = false
	}

	return tool
}

// makeTemp creates the run-scoped temporary and log directories.
func makeTemp() {

	xuid, err := uuid.NewUUID()
	if err != nil {
		panic(err)
	}
	uid := xuid.String()

	if config.TempDir == "" {
		config.TempDir = path.Join("pqa_tmp", uid)
	} else {
		config.TempDir = path.Join(config.TempDir, uid)
	}
	if err := os.MkdirAll(config.TempDir, 0755); err != nil {
		panic(err)
	}

	if config.LogDir == "" {
		config.LogDir = "pqa_logs"
	}
	config.LogDir = path.Join(config.LogDir, uid)
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		panic(err)
	}
}

func setupLog() {
	logname := path.Join(config.LogDir, "pqa.log")
	fid, err := os.Create(logname)
	if err != nil {
		panic(err)
	}
	logger = log.New(fid, "", log.Ltime)
}

func cleanTmp() {
	if !config.NoCleanTemp {
		if err := os.RemoveAll(config.TempDir); err != nil {
			logger.Printf("can't remove temporary files: %v", err)
		}
	}
}

func chunkDir(ix int) string {
	return filepath.Join(config.OutDir, fmt.Sprintf("chunk_%d", ix))
}

func run() {

	var cursor *store.Cursor
	if config.CursorFileName != "" {
		var err error
		cursor, err = store.Open(config.CursorFileName)
		if err != nil {
			log.Fatal(err)
		}
		defer cursor.Close()
	}

	offset := config.Offset
	if resume {
		next, err := cursor.NextOffset(config.RunName)
		if err != nil {
			log.Fatal(err)
		}
		offset = next
		logger.Printf("resuming run %s from offset %d", config.RunName, offset)
	}

	total, err := chunk.CountLines(config.WorkListFileName)
	if err != nil {
		log.Fatal(err)
	}
	logger.Printf("work list %s has %d items", config.WorkListFileName, total)

	indices := chunk.StartIndices(total, config.ChunkSize, offset)
	tool := toolFor()

	var jobs []dispatch.Job
	planned := 0
	for _, ix := range indices {
		sp, err := chunk.Plan(ix, config.ChunkSize, offset, total)
		if err != nil {
			log.Fatal(err)
		}
		planned += sp.Size()

		outDir := chunkDir(ix)
		if aggregate.Complete(outDir, tool.Marker) {
			logger.Printf("chunk %d already complete, skipping", ix)
			continue
		}

		listFile := filepath.Join(config.TempDir, fmt.Sprintf("chunk_%d.txt", ix))
		if err := chunk.Materialize(config.WorkListFileName, sp, listFile); err != nil {
			log.Fatal(err)
		}

		jobs = append(jobs, dispatch.Job{
			Index:    ix,
			ListFile: listFile,
			OutDir:   outDir,
			Tool:     tool,
		})
	}

	logger.Printf("dispatching %d chunks (%d already complete)", len(jobs), len(indices)-len(jobs))
	failed, err := dispatch.RunRounds(jobs, config.MaxChunkProcs, logger)
	if err != nil {
		log.Fatal(err)
	}

	if cursor != nil {
		failedSet := make(map[int]bool, len(failed))
		for _, ix := range failed {
			failedSet[ix] = true
		}
		for _, job := range jobs {
			if failedSet[job.Index] {
				continue
			}
			sp, err := chunk.Plan(job.Index, config.ChunkSize, offset, total)
			if err != nil {
				log.Fatal(err)
			}
			if err := cursor.MarkComplete(config.RunName, job.Index, sp); err != nil {
				log.Fatal(err)
			}
		}
	}

	profile, err := aggregate.LoadProfile(config.ProfileFileName, config.ProfileName)
	if err != nil {
		log.Fatal(err)
	}
	tbl, err := aggregate.Aggregate(config.OutDir, profile, logger)
	if err != nil {
		log.Fatal(err)
	}
	if err := tbl.WriteTSV(config.ResultsFileName); err != nil {
		log.Fatal(err)
	}

	report(planned, len(indices), tbl, failed)
}

// report prints the single final run summary.
func report(planned, dispatched int, tbl *aggregate.Table, failed []int) {

	fmt.Printf("items planned:      %d\n", planned)
	fmt.Printf("chunks dispatched:  %d\n", dispatched)
	fmt.Printf("records aggregated: %d\n", len(tbl.Rows))
	fmt.Printf("records skipped:    %d\n", tbl.Skipped)
	for _, reason := range tbl.SkipReasons {
		fmt.Printf("  skipped: %s\n", reason)
	}
	if tbl.Duplicates > 0 {
		fmt.Printf("duplicate keys:     %d\n", tbl.Duplicates)
	}
	if len(failed) > 0 {
		fmt.Printf("failed chunks:      %s\n", ranges.Format(ranges.Group(failed)))
		os.Exit(1)
	}
}

func main() {

	handleArgs()
	checkArgs()
	makeTemp()
	setupLog()

	defer cleanTmp()

	logger.Printf("storing temporary files in %s", config.TempDir)
	logger.Printf("storing log files in %s", config.LogDir)

	run()
}
