// Copyright 2025, the spneumo-analysis contributors.

// pqa_label annotates mmseqs2 cluster tables with the proteomes each
// protein occurs in.  The protein-to-proteome map is built by reading
// the headers of the proteome FASTA files:
//
// pqa_label --ClusterFileName=clusters_cluster.tsv --OutFileName=clusters_labelled.tsv
//    --FastaDirName=proteomes --FastaPrefix=UP
//
// With --Relabel, a single already-chunked table is rewritten in place
// with a label column added.  With --CombineChunks, a comma-separated
// list of labelled chunk tables is merged into one table with cluster
// ids renumbered across chunk boundaries.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"strings"

	"github.com/tgttunstall/spneumo-analysis/cluster"
	"github.com/tgttunstall/spneumo-analysis/utils"
)

var (
	config *utils.Config
	logger *log.Logger

	clusterFile   string
	outFile       string
	fastaDir      string
	fastaPrefix   string
	fastaExt      string
	noLabel       string
	sortLabels    bool
	uniqLabels    bool
	relabel       string
	combineChunks string
)

func handleArgs() {

	ConfigFileName := flag.String("ConfigFileName", "", "JSON file containing configuration parameters")
	ClusterFileName := flag.String("ClusterFileName", "", "Two-column mmseqs2 cluster table to label")
	OutFileName := flag.String("OutFileName", "", "File name for the labelled cluster table")
	FastaDirName := flag.String("FastaDirName", "", "Directory holding the proteome FASTA files")
	FastaPrefix := flag.String("FastaPrefix", "", "Proteome FASTA file name prefix, e.g. UP")
	FastaExt := flag.String("FastaExt", ".fa", "Proteome FASTA file extension")
	NoLabel := flag.String("NoLabel", "unmapped", "Label for proteins absent from every FASTA file")
	SortLabels := flag.Bool("SortLabels", false, "Sort the proteome labels of each protein")
	UniqLabels := flag.Bool("UniqLabels", false, "Drop duplicate proteome labels of each protein")
	Relabel := flag.String("Relabel", "", "Rewrite this chunked cluster table in place, adding labels")
	CombineChunks := flag.String("CombineChunks", "", "Comma-separated labelled chunk tables to merge")
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

	clusterFile = *ClusterFileName
	outFile = *OutFileName
	fastaDir = *FastaDirName
	fastaPrefix = *FastaPrefix
	fastaExt = *FastaExt
	noLabel = *NoLabel
	sortLabels = *SortLabels
	uniqLabels = *UniqLabels
	relabel = *Relabel
	combineChunks = *CombineChunks
}

func checkArgs() {

	if combineChunks == "" && fastaDir == "" {
		os.Stderr.WriteString("FastaDirName not provided, run 'pqa_label --help' for more information.\n\n")
		os.Exit(1)
	}
	if clusterFile == "" && relabel == "" && combineChunks == "" {
		os.Stderr.WriteString("ClusterFileName not provided, run 'pqa_label --help' for more information.\n\n")
		os.Exit(1)
	}
	if clusterFile != "" && outFile == "" {
		os.Stderr.WriteString("OutFileName not provided, run 'pqa_label --help' for more information.\n\n")
		os.Exit(1)
	}
	if combineChunks != "" && outFile == "" {
		os.Stderr.WriteString("OutFileName not provided, run 'pqa_label --help' for more information.\n\n")
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
	fid, err := os.Create(path.Join(config.LogDir, "pqa_label.log"))
	if err != nil {
		panic(err)
	}
	logger = log.New(fid, "", log.Ltime)
}

func main() {

	handleArgs()
	checkArgs()
	setupLog()

	opts := cluster.Options{
		NoLabel:    noLabel,
		SortLabels: sortLabels,
		Uniq:       uniqLabels,
	}

	if combineChunks != "" {
		chunks := strings.Split(combineChunks, ",")
		n, err := cluster.CombineChunks(chunks, outFile, opts)
		if err != nil {
			log.Fatal(err)
		}
		logger.Printf("combined %d chunks into %s (%d clusters)", len(chunks), outFile, n)
		fmt.Printf("clusters: %d\n", n)
		return
	}

	pmap, nfiles, err := cluster.ProteomeMap(fastaDir, fastaPrefix, fastaExt)
	if err != nil {
		log.Fatal(err)
	}
	logger.Printf("mapped %d proteins from %d FASTA files", len(pmap), nfiles)

	if relabel != "" {
		if err := cluster.RelabelChunk(relabel, pmap, opts); err != nil {
			log.Fatal(err)
		}
		logger.Printf("relabelled %s in place", relabel)
		return
	}

	n, err := cluster.Label(clusterFile, outFile, pmap, opts)
	if err != nil {
		log.Fatal(err)
	}
	logger.Printf("labelled %s into %s (%d clusters)", clusterFile, outFile, n)
	fmt.Printf("clusters: %d\n", n)
}
