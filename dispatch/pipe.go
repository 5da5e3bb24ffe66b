// Copyright 2025, the spneumo-analysis contributors.

package dispatch

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path"

	"github.com/golang/snappy"
	"golang.org/x/sys/unix"
)

func pipename(pipedir string) string {
	f := fmt.Sprintf("%09d", rand.Int63()%1e9)
	return path.Join(pipedir, f)
}

// PipeFromSz creates a FIFO and starts decompressing the given snappy
// file into it, returning the FIFO path.  Tools that expect a plain
// work-list path can read the FIFO directly without a decompressed
// copy on disk.  The feeding goroutine exits when the reader closes
// its end.
func PipeFromSz(pipedir, fname string) (string, error) {

	var name string
	var err error
	for k := 0; k < 10; k++ {
		name = pipename(pipedir)
		err = unix.Mkfifo(name, 0755)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("dispatch: unable to create pipe in %s: %v", pipedir, err)
	}

	go func() {
		fid, err := os.Open(fname)
		if err != nil {
			panic(err)
		}
		defer fid.Close()

		// Blocks until the tool opens the other end.
		out, err := os.OpenFile(name, os.O_WRONLY, 0)
		if err != nil {
			panic(err)
		}
		defer out.Close()

		if _, err := io.Copy(out, snappy.NewReader(fid)); err != nil {
			panic(err)
		}
	}()

	return name, nil
}
