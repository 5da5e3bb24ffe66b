// Copyright 2025, the spneumo-analysis contributors.

package aggregate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tgttunstall/spneumo-analysis/utils"
)

// ErrFieldHasTab is returned when a source value contains a raw tab
// or newline, which cannot be represented in the unquoted TSV output.
var ErrFieldHasTab = errors.New("field value contains tab or newline")

// lookupPath resolves a dotted path ("results.Complete") in a decoded
// JSON document.  The second return is false when any path element is
// absent or a non-leaf element is not an object.
func lookupPath(doc map[string]interface{}, path string) (interface{}, bool) {

	cur := interface{}(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// formatScalar renders a JSON leaf value for a TSV cell.  Numbers use
// the shortest representation that round-trips; nulls become the
// empty string.  Values with embedded tabs or newlines are rejected
// rather than silently corrupting the table.
func formatScalar(v interface{}) (string, error) {

	var s string
	switch x := v.(type) {
	case nil:
		s = ""
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	default:
		return "", fmt.Errorf("non-scalar value %T", v)
	}

	if strings.ContainsAny(s, "\t\n\r") {
		return "", fmt.Errorf("%q: %w", s, ErrFieldHasTab)
	}

	return s, nil
}

// trimKey applies the profile's prefix/suffix trims to a derived key.
// Path-shaped payload values are reduced to their base name first, so
// a declared output parameter like "out/foo_out.faa" keys as "foo".
func (p *Profile) trimKey(raw string) string {

	k := filepath.Base(raw)
	k = strings.TrimPrefix(k, p.KeyTrimPrefix)
	if p.KeyTrimSuffix != "" {
		k = strings.TrimSuffix(k, p.KeyTrimSuffix)
	} else {
		k = strings.TrimSuffix(k, filepath.Ext(k))
	}
	return k
}

// parseJSON extracts one table row from a JSON source file.
func (p *Profile) parseJSON(fname string) ([]string, error) {

	fid, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fid.Close()

	var doc map[string]interface{}
	dec := json.NewDecoder(fid)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed json: %v", err)
	}

	var key string
	switch p.KeyStrategy {
	case "payload":
		v, ok := lookupPath(doc, p.KeyPath)
		if !ok {
			return nil, fmt.Errorf("key path %q not found", p.KeyPath)
		}
		s, err := formatScalar(v)
		if err != nil {
			return nil, fmt.Errorf("key path %q: %v", p.KeyPath, err)
		}
		key = p.trimKey(s)
	case "filename":
		key = p.trimKey(filepath.Base(fname))
	}

	row := make([]string, len(p.Header))
	for i, field := range p.Header {
		if field == p.Key {
			row[i] = key
			continue
		}
		path, declared := p.Fields[field]
		if !declared {
			if p.Strict {
				return nil, fmt.Errorf("field %q has no declared path", field)
			}
			row[i] = p.Sentinel
			continue
		}
		v, ok := lookupPath(doc, path)
		if !ok {
			if p.Strict {
				return nil, fmt.Errorf("field %q: path %q not found", field, path)
			}
			row[i] = p.Sentinel
			continue
		}
		s, err := formatScalar(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %v", field, err)
		}
		row[i] = s
	}

	return row, nil
}

// parseTSV extracts table rows from a delimited source file.  The
// first line is a header; columns are remapped to the profile's
// canonical order by name, never assumed to match input order.
func (p *Profile) parseTSV(fname string) ([][]string, error) {

	scanner, toclose, err := utils.OpenScanner(fname)
	if err != nil {
		return nil, err
	}
	defer utils.CloseAll(toclose)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty source")
	}
	cols := strings.Split(scanner.Text(), "\t")
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c] = i
	}

	// Fields maps header names to source column names when a tool
	// labels a column differently (e.g. CheckM2's "Name" column is
	// our key field).
	srcName := func(field string) string {
		if s, ok := p.Fields[field]; ok {
			return s
		}
		return field
	}

	if p.Strict {
		for _, field := range p.Header {
			if _, ok := pos[srcName(field)]; !ok {
				return nil, fmt.Errorf("field %q missing from source header", field)
			}
		}
	}

	var rows [][]string
	lineno := 1
	for scanner.Scan() {
		lineno++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != len(cols) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", lineno, len(fields), len(cols))
		}

		row := make([]string, len(p.Header))
		for i, field := range p.Header {
			j, ok := pos[srcName(field)]
			if !ok {
				row[i] = p.Sentinel
				continue
			}
			v := fields[j]
			// Delimited sources carry the key in a column; trims
			// apply only when configured (no extension stripping
			// on plain sample names).
			if field == p.Key {
				v = strings.TrimPrefix(v, p.KeyTrimPrefix)
				if p.KeyTrimSuffix != "" {
					v = strings.TrimSuffix(v, p.KeyTrimSuffix)
				}
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return rows, nil
}
