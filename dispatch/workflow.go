// Copyright 2025, the spneumo-analysis contributors.

package dispatch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/scipipe/scipipe"
)

// RunChunkWorkflow runs one chunk job as a shell workflow: the tool
// command followed by the completion marker, tracked as the
// workflow's output file so an interrupted run never leaves a marker
// behind.  A snappy-compressed work list is fed through a FIFO in
// pipedir instead of being decompressed to disk.
func RunChunkWorkflow(job Job, pipedir string) error {

	listFile := job.ListFile
	if strings.HasSuffix(listFile, ".sz") {
		fifo, err := PipeFromSz(pipedir, listFile)
		if err != nil {
			return err
		}
		listFile = fifo
	}

	parts := []string{job.Tool.Exec}
	for _, a := range job.Tool.Args {
		parts = append(parts, job.Tool.expand(a, listFile, job.OutDir))
	}
	cmd := fmt.Sprintf("%s && touch {o:done}", strings.Join(parts, " "))

	wf := scipipe.NewWorkflow(fmt.Sprintf("chunk_%d", job.Index), 4)
	tl := wf.NewProc("tool", cmd)
	tl.SetOut("done", filepath.Join(job.OutDir, job.Tool.Marker))
	wf.Run()

	if !job.Complete() {
		return fmt.Errorf("dispatch: chunk %d workflow finished without marker %s", job.Index, job.Tool.Marker)
	}

	return nil
}
