// Copyright 2025, the spneumo-analysis contributors.

// Package dispatch runs one external assessment tool per chunk.  Each
// chunk job is independent and writes only into its own output
// directory; the presence of the tool's summary file is the
// completion marker, so a killed job is indistinguishable from one
// that never ran and can simply be dispatched again.
package dispatch

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tgttunstall/spneumo-analysis/aggregate"
)

// Tool describes one external binary invocation template.  Args may
// contain the placeholders {list} (chunk work-list file), {out}
// (chunk output directory) and {threads}.
type Tool struct {
	Exec    string
	Args    []string
	Threads int

	// Base name of the summary file the tool leaves in the chunk
	// output directory on success.
	Marker string

	// When set, dispatch writes the marker itself after a clean
	// exit.  For tools whose summary file name is not fixed (BUSCO
	// encodes the lineage in it), the marker becomes a plain done
	// file.
	TouchMarker bool

	// Working directory for the tool process.  Relative paths in
	// the chunk work list resolve against it.
	Dir string
}

// Job binds a tool to one chunk.
type Job struct {
	Index    int
	ListFile string
	OutDir   string
	Tool     Tool
}

func (t Tool) expand(arg, listFile, outDir string) string {
	arg = strings.ReplaceAll(arg, "{list}", listFile)
	arg = strings.ReplaceAll(arg, "{out}", outDir)
	arg = strings.ReplaceAll(arg, "{threads}", strconv.Itoa(t.Threads))
	return arg
}

// Command builds the exec.Cmd for one chunk invocation.
func (t Tool) Command(listFile, outDir string) *exec.Cmd {

	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = t.expand(a, listFile, outDir)
	}
	cmd := exec.Command(t.Exec, args...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr
	cmd.Dir = t.Dir
	return cmd
}

// Complete reports whether the job's output directory carries the
// completion marker.
func (j Job) Complete() bool {
	return aggregate.Complete(j.OutDir, j.Tool.Marker)
}

// RunRounds dispatches the jobs in rounds of at most maxProcs
// concurrent processes, waiting for each round to drain before
// starting the next.  A job fails when its process exits non-zero or
// its marker is absent afterwards; failures are logged and returned
// as job indices so the caller can build a resubmission range, and
// never stop the remaining rounds.
func RunRounds(jobs []Job, maxProcs int, logger *log.Logger) ([]int, error) {

	if maxProcs < 1 {
		return nil, fmt.Errorf("dispatch: max procs %d, must be >= 1", maxProcs)
	}

	var failed []int
	fp := 0
	for {
		nproc := maxProcs
		if nproc > len(jobs)-fp {
			nproc = len(jobs) - fp
		}
		if nproc == 0 {
			break
		}

		type running struct {
			job Job
			cmd *exec.Cmd
		}
		var started []running
		for _, job := range jobs[fp : fp+nproc] {
			if err := os.MkdirAll(job.OutDir, 0755); err != nil {
				return nil, err
			}
			cmd := job.Tool.Command(job.ListFile, job.OutDir)
			if logger != nil {
				logger.Printf("chunk %d: running %s", job.Index, strings.Join(cmd.Args, " "))
			}
			if err := cmd.Start(); err != nil {
				if logger != nil {
					logger.Printf("chunk %d: start failed: %v", job.Index, err)
				}
				failed = append(failed, job.Index)
				continue
			}
			started = append(started, running{job, cmd})
		}

		for _, r := range started {
			if err := r.cmd.Wait(); err != nil {
				if logger != nil {
					logger.Printf("chunk %d: %v", r.job.Index, err)
				}
				failed = append(failed, r.job.Index)
				continue
			}
			if r.job.Tool.TouchMarker && !r.job.Complete() {
				fid, err := os.Create(filepath.Join(r.job.OutDir, r.job.Tool.Marker))
				if err != nil {
					return nil, err
				}
				fid.Close()
			}
			if !r.job.Complete() {
				if logger != nil {
					logger.Printf("chunk %d: exited cleanly but %s is missing", r.job.Index, r.job.Tool.Marker)
				}
				failed = append(failed, r.job.Index)
			}
		}
		fp += nproc
	}

	return failed, nil
}
