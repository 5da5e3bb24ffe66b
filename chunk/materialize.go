// Copyright 2025, the spneumo-analysis contributors.

package chunk

import (
	"fmt"

	"github.com/tgttunstall/spneumo-analysis/utils"
)

// CountLines returns the number of lines in the work list.  Snappy
// compression is handled automatically.
func CountLines(workList string) (int, error) {

	scanner, toclose, err := utils.OpenScanner(workList)
	if err != nil {
		return 0, err
	}
	defer utils.CloseAll(toclose)

	n := 0
	for scanner.Scan() {
		n++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	return n, nil
}

// Materialize copies the inclusive line range [sp.Start, sp.End] of
// the work list into dst.  The result depends only on the work list
// contents and the range, so a rerun of the same chunk reproduces the
// file byte for byte.  Both ends are snappy-transparent based on the
// .sz suffix; every line is LF-terminated.
func Materialize(workList string, sp Spec, dst string) error {

	scanner, toclose, err := utils.OpenScanner(workList)
	if err != nil {
		return err
	}
	defer utils.CloseAll(toclose)

	wtr, wclose, err := utils.CreateWriter(dst)
	if err != nil {
		return err
	}

	line := 0
	written := 0
	for scanner.Scan() {
		line++
		if line < sp.Start {
			continue
		}
		if line > sp.End {
			break
		}
		if _, err := wtr.Write(scanner.Bytes()); err != nil {
			utils.CloseAll(wclose)
			return err
		}
		if _, err := wtr.Write([]byte("\n")); err != nil {
			utils.CloseAll(wclose)
			return err
		}
		written++
	}
	if err := scanner.Err(); err != nil {
		utils.CloseAll(wclose)
		return err
	}

	if err := utils.CloseAll(wclose); err != nil {
		return err
	}

	if written != sp.Size() {
		return fmt.Errorf("chunk: work list %s has %d lines, expected at least %d", workList, line, sp.End)
	}

	return nil
}
