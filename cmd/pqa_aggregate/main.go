// Copyright 2025, the spneumo-analysis contributors.

// pqa_aggregate walks a tree of per-chunk tool output and folds the
// per-proteome summaries into one combined TSV.  The file layout,
// format and field mapping for each tool come from a named profile in
// a TOML file:
//
// pqa_aggregate --InputDirName=checkm2_out --ResultsFileName=results.tsv
//    --ProfileFileName=profiles.toml --ProfileName=checkm2
//
// Malformed or unreadable summary files are skipped and reported in
// the final summary; with --FailOnSkip the exit status is nonzero
// when anything was skipped.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"

	"github.com/tgttunstall/spneumo-analysis/aggregate"
	"github.com/tgttunstall/spneumo-analysis/utils"
)

var (
	config *utils.Config
	logger *log.Logger

	inputDir   string
	failOnSkip bool
)

func handleArgs() {

	ConfigFileName := flag.String("ConfigFileName", "", "JSON file containing configuration parameters")
	InputDirName := flag.String("InputDirName", "", "Root directory of the per-chunk tool output")
	ResultsFileName := flag.String("ResultsFileName", "", "File name for the combined results table")
	ProfileFileName := flag.String("ProfileFileName", "", "TOML file declaring the aggregation profiles")
	ProfileName := flag.String("ProfileName", "", "Aggregation profile to use, e.g. checkm2 or busco")
	LogDir := flag.String("LogDir", "", "Directory for log files")
	FailOnSkip := flag.Bool("FailOnSkip", false, "Exit nonzero when any file was skipped")

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

	if *ResultsFileName != "" {
		config.ResultsFileName = *ResultsFileName
	}
	if *ProfileFileName != "" {
		config.ProfileFileName = *ProfileFileName
	}
	if *ProfileName != "" {
		config.ProfileName = *ProfileName
	}
	if *LogDir != "" {
		config.LogDir = *LogDir
	}

	inputDir = *InputDirName
	if inputDir == "" {
		inputDir = config.OutDir
	}
	failOnSkip = *FailOnSkip
}

func checkArgs() {

	if inputDir == "" {
		os.Stderr.WriteString("InputDirName not provided, run 'pqa_aggregate --help' for more information.\n\n")
		os.Exit(1)
	}
	if config.ResultsFileName == "" {
		os.Stderr.WriteString("ResultsFileName not provided, defaulting to 'results.tsv'\n\n")
		config.ResultsFileName = "results.tsv"
	}
	if config.ProfileFileName == "" {
		os.Stderr.WriteString("ProfileFileName not provided, run 'pqa_aggregate --help' for more information.\n\n")
		os.Exit(1)
	}
	if config.ProfileName == "" {
		os.Stderr.WriteString("ProfileName not provided, run 'pqa_aggregate --help' for more information.\n\n")
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
	fid, err := os.Create(path.Join(config.LogDir, "pqa_aggregate.log"))
	if err != nil {
		panic(err)
	}
	logger = log.New(fid, "", log.Ltime)
}

func main() {

	handleArgs()
	checkArgs()
	setupLog()

	profile, err := aggregate.LoadProfile(config.ProfileFileName, config.ProfileName)
	if err != nil {
		log.Fatal(err)
	}

	tbl, err := aggregate.Aggregate(inputDir, profile, logger)
	if err != nil {
		log.Fatal(err)
	}

	if err := tbl.WriteTSV(config.ResultsFileName); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("records aggregated: %d\n", len(tbl.Rows))
	fmt.Printf("records skipped:    %d\n", tbl.Skipped)
	for _, reason := range tbl.SkipReasons {
		fmt.Printf("  skipped: %s\n", reason)
	}
	if tbl.Duplicates > 0 {
		fmt.Printf("duplicate keys:     %d\n", tbl.Duplicates)
	}
	fmt.Printf("written: %s\n", config.ResultsFileName)

	if failOnSkip && tbl.Skipped > 0 {
		os.Exit(1)
	}
}
