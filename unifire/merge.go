// Copyright 2025, the spneumo-analysis contributors.

// Package unifire merges the per-proteome prediction tables written
// by the UniFIRE annotation pipeline (ARBA, UniRule, UniRule-PIRSR)
// into one table per proteome, tagged with the prediction source and
// the proteome id.
package unifire

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tgttunstall/spneumo-analysis/utils"
)

// PredictionFile pairs a source tag with the file UniFIRE writes for it.
type PredictionFile struct {
	Source string
	Name   string
}

// PredictionFiles lists the tables expected in every proteome
// directory, in merge order.
var PredictionFiles = []PredictionFile{
	{"arba", "predictions_arba.out"},
	{"unirule", "predictions_unirule.out"},
	{"pirsr", "predictions_unirule-pirsr.out"},
}

// ErrOutputExists is returned when the merged output file is already
// present and force was not given.
var ErrOutputExists = errors.New("merged output already exists")

// MergeResult summarizes one proteome directory merge.
type MergeResult struct {
	OutFile string
	Sources []string
	Missing []string
	Rows    int

	// True when no prediction file was present at all and the
	// directory was skipped.
	SkippedDir bool
}

// MergeDir merges the prediction files present in dir into
// all_predictions_<dirname>.out inside dir, appending source and
// proteome_id columns.  Missing prediction files are logged and
// recorded in the result, never fatal; a directory with no prediction
// files at all is skipped.  An existing output file is an error
// unless force is set.
func MergeDir(dir string, force bool, logger *log.Logger) (MergeResult, error) {

	proteome := filepath.Base(filepath.Clean(dir))
	res := MergeResult{
		OutFile: filepath.Join(dir, fmt.Sprintf("all_predictions_%s.out", proteome)),
	}

	var present []PredictionFile
	for _, pf := range PredictionFiles {
		if _, err := os.Stat(filepath.Join(dir, pf.Name)); err != nil {
			res.Missing = append(res.Missing, pf.Name)
			if logger != nil {
				logger.Printf("%s: %s not found", dir, pf.Name)
			}
			continue
		}
		present = append(present, pf)
		res.Sources = append(res.Sources, pf.Source)
	}
	if len(res.Missing) > 0 && logger != nil {
		logger.Printf("%s: missing files: %s", dir, strings.Join(res.Missing, " "))
	}
	if len(present) == 0 {
		res.SkippedDir = true
		if logger != nil {
			logger.Printf("%s: no prediction files found, skipping", dir)
		}
		return res, nil
	}

	if _, err := os.Stat(res.OutFile); err == nil {
		if !force {
			return res, fmt.Errorf("%s: %w", res.OutFile, ErrOutputExists)
		}
		if logger != nil {
			logger.Printf("overwriting existing file %s", res.OutFile)
		}
	}

	wtr, wclose, err := utils.CreateWriter(res.OutFile)
	if err != nil {
		return res, err
	}

	fail := func(err error) (MergeResult, error) {
		utils.CloseAll(wclose)
		os.Remove(res.OutFile)
		return res, err
	}

	var header string
	for _, pf := range present {
		fname := filepath.Join(dir, pf.Name)
		scanner, toclose, err := utils.OpenScanner(fname)
		if err != nil {
			return fail(err)
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				utils.CloseAll(toclose)
				return fail(err)
			}
			// An empty prediction table contributes nothing.
			utils.CloseAll(toclose)
			continue
		}
		h := scanner.Text()
		if header == "" {
			header = h
			line := header + "\tsource\tproteome_id\n"
			if _, err := wtr.Write([]byte(line)); err != nil {
				utils.CloseAll(toclose)
				return fail(err)
			}
		} else if h != header {
			utils.CloseAll(toclose)
			return fail(fmt.Errorf("%s: header differs from %s", fname, present[0].Name))
		}

		for scanner.Scan() {
			line := fmt.Sprintf("%s\t%s\t%s\n", scanner.Text(), pf.Source, proteome)
			if _, err := wtr.Write([]byte(line)); err != nil {
				utils.CloseAll(toclose)
				return fail(err)
			}
			res.Rows++
		}
		if err := scanner.Err(); err != nil {
			utils.CloseAll(toclose)
			return fail(err)
		}
		utils.CloseAll(toclose)
	}

	if err := utils.CloseAll(wclose); err != nil {
		return res, err
	}

	return res, nil
}

// MergeTree detects what input points at and merges accordingly:
// a proteome directory with prediction files, a directory of proteome
// subdirectories, or a list file of directory paths (one per line).
// Returns processed and skipped counts; per-directory failures are
// logged and counted as skipped, never fatal to the remaining
// directories.
func MergeTree(input string, force bool, logger *log.Logger) (processed, skipped int, err error) {

	info, err := os.Stat(input)
	if err != nil {
		return 0, 0, err
	}

	mergeOne := func(dir string) {
		res, err := MergeDir(dir, force, logger)
		if err != nil || res.SkippedDir {
			skipped++
			if err != nil && logger != nil {
				logger.Printf("%s: %v", dir, err)
			}
			return
		}
		processed++
		if logger != nil {
			logger.Printf("written: %s (%d rows)", res.OutFile, res.Rows)
		}
	}

	if !info.IsDir() {
		// A list file of proteome directory paths.
		scanner, toclose, err := utils.OpenScanner(input)
		if err != nil {
			return 0, 0, err
		}
		defer utils.CloseAll(toclose)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if fi, err := os.Stat(line); err != nil || !fi.IsDir() {
				skipped++
				if logger != nil {
					logger.Printf("%s is not a valid directory, skipping", line)
				}
				continue
			}
			mergeOne(line)
		}
		if err := scanner.Err(); err != nil {
			return processed, skipped, err
		}
		return processed, skipped, nil
	}

	// A directory holding prediction files directly is a single
	// proteome; otherwise its subdirectories are the proteomes.
	for _, pf := range PredictionFiles {
		if _, err := os.Stat(filepath.Join(input, pf.Name)); err == nil {
			mergeOne(input)
			return processed, skipped, nil
		}
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return 0, 0, err
	}
	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, filepath.Join(input, e.Name()))
		}
	}
	if len(subdirs) == 0 {
		return 0, 1, fmt.Errorf("unifire: no prediction files or subdirectories in %s", input)
	}
	sort.Strings(subdirs)
	for _, d := range subdirs {
		mergeOne(d)
	}

	return processed, skipped, nil
}
