// Copyright 2025, the spneumo-analysis contributors.

package utils

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
)

// Line-oriented files in this project can be large; one proteome path
// or one TSV row never exceeds this.
const maxLineBytes = 1024 * 1024

// OpenScanner returns a scanner for reading the contents of a file
// line by line.  Snappy compression is handled automatically based on
// the .sz suffix.  The returned closers must be closed when the
// scanner is no longer needed.
func OpenScanner(fname string) (*bufio.Scanner, []io.Closer, error) {

	var toclose []io.Closer
	var g io.Reader

	h, err := os.Open(fname)
	if err != nil {
		return nil, nil, err
	}
	toclose = append(toclose, h)
	g = h

	if strings.HasSuffix(fname, ".sz") {
		g = snappy.NewReader(g)
	}

	s := bufio.NewScanner(g)
	s.Buffer(make([]byte, maxLineBytes), maxLineBytes)
	return s, toclose, nil
}

// CreateWriter creates fname for writing, compressing with snappy
// when the name ends in .sz.  The returned closers flush and close
// the file and must be closed in order.
func CreateWriter(fname string) (io.Writer, []io.Closer, error) {

	fid, err := os.Create(fname)
	if err != nil {
		return nil, nil, err
	}

	if strings.HasSuffix(fname, ".sz") {
		w := snappy.NewBufferedWriter(fid)
		return w, []io.Closer{w, fid}, nil
	}

	w := bufio.NewWriter(fid)
	return w, []io.Closer{flushCloser{w}, fid}, nil
}

type flushCloser struct {
	w *bufio.Writer
}

func (f flushCloser) Close() error {
	return f.w.Flush()
}

// CloseAll closes the given closers in order, returning the first
// error encountered.
func CloseAll(cs []io.Closer) error {
	var first error
	for _, c := range cs {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
