// Copyright 2025, the spneumo-analysis contributors.

// pqa_unifire merges the per-proteome UniFIRE prediction tables
// (ARBA, UniRule, UniRule-PIRSR) into one all_predictions file per
// proteome directory, tagged with the prediction source and the
// proteome id:
//
// pqa_unifire --Input=unifire_out
//
// Input may be a single proteome directory, a directory of proteome
// subdirectories, or a file listing directory paths one per line.
// Existing merged files are an error unless --Force is given.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"

	"github.com/tgttunstall/spneumo-analysis/unifire"
	"github.com/tgttunstall/spneumo-analysis/utils"
)

var (
	config *utils.Config
	logger *log.Logger

	input string
	force bool
)

func handleArgs() {

	ConfigFileName := flag.String("ConfigFileName", "", "JSON file containing configuration parameters")
	Input := flag.String("Input", "", "Proteome directory, directory of proteome subdirectories, or list file")
	Force := flag.Bool("Force", false, "Overwrite existing merged files")
	LogDir := flag.String("LogDir", "", "Directory for log files")

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
	if *LogDir != "" {
		config.LogDir = *LogDir
	}

	input = *Input
	force = *Force
}

func checkArgs() {
	if input == "" {
		os.Stderr.WriteString("Input not provided, run 'pqa_unifire --help' for more information.\n\n")
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
	fid, err := os.Create(path.Join(config.LogDir, "pqa_unifire.log"))
	if err != nil {
		panic(err)
	}
	logger = log.New(fid, "", log.Ltime)
}

func main() {

	handleArgs()
	checkArgs()
	setupLog()

	processed, skipped, err := unifire.MergeTree(input, force, logger)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("directories processed: %d\n", processed)
	fmt.Printf("directories skipped:   %d\n", skipped)
}
