// Copyright 2025, the spneumo-analysis contributors.

// pqa_ranges compacts a file of integers, one per line, into sbatch
// array syntax (e.g. "1-3,7,9-12") for resubmitting failed chunk
// indices:
//
// pqa_ranges -i failed.txt
//
// The result goes to stdout, or to a file with -o.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/tgttunstall/spneumo-analysis/ranges"
	"github.com/tgttunstall/spneumo-analysis/utils"
)

var (
	inFile  string
	outFile string
)

func handleArgs() {
	flag.StringVar(&inFile, "i", "", "File of integers, one per line")
	flag.StringVar(&outFile, "o", "", "Output file (default stdout)")
	flag.Parse()

	if inFile == "" {
		os.Stderr.WriteString("input file not provided, run 'pqa_ranges --help' for more information.\n\n")
		os.Exit(1)
	}
}

// readNums collects the integers in fname, one per line.  Blank lines
// and stray non-numeric text (comments, headers pasted into
// resubmission lists) are skipped.
func readNums(fname string) ([]int, error) {

	scanner, toclose, err := utils.OpenScanner(fname)
	if err != nil {
		return nil, err
	}
	defer utils.CloseAll(toclose)

	var nums []int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return nums, nil
}

func main() {

	handleArgs()

	nums, err := readNums(inFile)
	if err != nil {
		log.Fatal(err)
	}

	out := ranges.Format(ranges.Group(nums))

	if outFile == "" {
		fmt.Println(out)
		return
	}
	wtr, wclose, err := utils.CreateWriter(outFile)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := wtr.Write([]byte(out + "\n")); err != nil {
		log.Fatal(err)
	}
	if err := utils.CloseAll(wclose); err != nil {
		log.Fatal(err)
	}
}
