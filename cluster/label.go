// Copyright 2025, the spneumo-analysis contributors.

// Package cluster labels mmseqs2 protein-cluster tables with the
// proteomes each protein came from, renumbering cluster identifiers
// into sequential integers and marking each cluster's representative
// member.
package cluster

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tgttunstall/spneumo-analysis/utils"
)

// Header of every labelled output table.
const Header = "cluster_id\tprotein_id\tproteomes\tis_rep"

// Options control labelling behavior.
type Options struct {
	// Written in the proteomes column when a protein id has no
	// mapping.  Default is the empty string.
	NoLabel string

	// Sort and deduplicate comma-separated proteome labels instead
	// of keeping encounter order.
	SortLabels bool

	// Skip consecutive duplicate input lines.
	Uniq bool
}

// ProteomeMap scans the FASTA files in fastaDir and maps each protein
// id (first token of a header line, without the leading >) to the
// proteome ids derived from the file names.  A protein found in
// several proteomes accumulates comma-separated labels in encounter
// order.  prefix and ext are stripped from file names to obtain the
// proteome id; ext also restricts which files are read (all files
// when empty).  The FASTA file count is returned alongside the map.
func ProteomeMap(fastaDir, prefix, ext string) (map[string]string, int, error) {

	pattern := filepath.Join(fastaDir, prefix+"*"+ext)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, 0, err
	}
	if len(files) == 0 {
		return nil, 0, fmt.Errorf("cluster: no files matching %s", pattern)
	}
	sort.Strings(files)

	pmap := make(map[string]string)
	for _, fname := range files {
		proteome := filepath.Base(fname)
		if ext != "" {
			proteome = strings.TrimSuffix(proteome, ext)
		} else {
			proteome = strings.TrimSuffix(proteome, filepath.Ext(proteome))
		}
		proteome = strings.TrimPrefix(proteome, prefix)

		scanner, toclose, err := utils.OpenScanner(fname)
		if err != nil {
			return nil, 0, err
		}
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, ">") {
				continue
			}
			pid := strings.SplitN(line[1:], " ", 2)[0]
			if old, ok := pmap[pid]; ok {
				pmap[pid] = old + "," + proteome
			} else {
				pmap[pid] = proteome
			}
		}
		if err := scanner.Err(); err != nil {
			utils.CloseAll(toclose)
			return nil, 0, err
		}
		utils.CloseAll(toclose)
	}

	return pmap, len(files), nil
}

// sortUniq sorts and deduplicates a comma-separated label list.
func sortUniq(ids string) string {
	if !strings.Contains(ids, ",") {
		return ids
	}
	parts := strings.Split(ids, ",")
	sort.Strings(parts)
	j := 0
	for i := 1; i < len(parts); i++ {
		if parts[i] != parts[j] {
			j++
			parts[j] = parts[i]
		}
	}
	return strings.Join(parts[:j+1], ",")
}

func labels(pmap map[string]string, pid string, opts Options) string {
	ids, ok := pmap[pid]
	if !ok {
		return opts.NoLabel
	}
	if opts.SortLabels {
		ids = sortUniq(ids)
	}
	return ids
}

// Label reads a two-column cluster table (cluster_id, protein_id) and
// writes the four-column labelled table, replacing cluster ids with
// sequential integers starting at 0.  The first protein of each
// cluster is marked as the representative.  Input order is preserved.
// Returns the number of clusters written.
func Label(in, out string, pmap map[string]string, opts Options) (int, error) {

	scanner, toclose, err := utils.OpenScanner(in)
	if err != nil {
		return 0, err
	}
	defer utils.CloseAll(toclose)

	wtr, wclose, err := utils.CreateWriter(out)
	if err != nil {
		return 0, err
	}

	write := func(s string) error {
		_, err := wtr.Write([]byte(s))
		return err
	}

	if err := write(Header + "\n"); err != nil {
		utils.CloseAll(wclose)
		return 0, err
	}

	counter := -1
	prevCluster := ""
	prevLine := ""
	first := true
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if opts.Uniq && line == prevLine {
			continue
		}
		prevLine = line

		toks := strings.Split(line, "\t")
		if len(toks) != 2 {
			utils.CloseAll(wclose)
			return 0, fmt.Errorf("cluster: %s line %d: %d columns, want 2", in, lineno, len(toks))
		}
		clusterID, pid := toks[0], toks[1]

		rep := ""
		if first || clusterID != prevCluster {
			prevCluster = clusterID
			counter++
			rep = "*"
			first = false
		}
		if err := write(fmt.Sprintf("%d\t%s\t%s\t%s\n", counter, pid, labels(pmap, pid, opts), rep)); err != nil {
			utils.CloseAll(wclose)
			return 0, err
		}
	}
	if err := scanner.Err(); err != nil {
		utils.CloseAll(wclose)
		return 0, err
	}

	if err := utils.CloseAll(wclose); err != nil {
		return 0, err
	}

	return counter + 1, nil
}

// RelabelChunk applies a (possibly partial) proteome map to one chunk
// of the cluster table, in place.  A two-column chunk gains a
// proteomes column; a three-column chunk (labelled by an earlier
// batch) has new labels appended to the existing ones.  Cluster ids
// are left untouched; CombineChunks renumbers them at the end.  The
// chunk is rewritten via a temp file and renamed, so a killed run
// leaves the original intact.
func RelabelChunk(path string, pmap map[string]string, opts Options) error {

	scanner, toclose, err := utils.OpenScanner(path)
	if err != nil {
		return err
	}

	tmp := path + "_tmp"
	wtr, wclose, err := utils.CreateWriter(tmp)
	if err != nil {
		utils.CloseAll(toclose)
		return err
	}

	fail := func(err error) error {
		utils.CloseAll(toclose)
		utils.CloseAll(wclose)
		os.Remove(tmp)
		return err
	}

	prevLine := ""
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if opts.Uniq && line == prevLine {
			continue
		}
		prevLine = line

		toks := strings.Split(line, "\t")
		var out string
		switch len(toks) {
		case 2:
			out = fmt.Sprintf("%s\t%s\t%s\n", toks[0], toks[1], labels(pmap, toks[1], opts))
		case 3:
			combined := toks[2]
			if more, ok := pmap[toks[1]]; ok && more != "" {
				if combined != "" {
					combined += "," + more
				} else {
					combined = more
				}
			}
			out = fmt.Sprintf("%s\t%s\t%s\n", toks[0], toks[1], combined)
		default:
			return fail(fmt.Errorf("cluster: %s line %d: %d columns, want 2 or 3", path, lineno, len(toks)))
		}
		if _, err := wtr.Write([]byte(out)); err != nil {
			return fail(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fail(err)
	}

	utils.CloseAll(toclose)
	if err := utils.CloseAll(wclose); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}

// CombineChunks concatenates labelled three-column chunk files
// (cluster_id, protein_id, proteomes) into the final four-column
// table, reassigning sequential cluster ids across chunk boundaries.
// Chunks must be given in work-list order; a cluster split across two
// adjacent chunks keeps a single id because the original cluster_id
// column is compared across the boundary.
func CombineChunks(chunkPaths []string, out string, opts Options) (int, error) {

	wtr, wclose, err := utils.CreateWriter(out)
	if err != nil {
		return 0, err
	}

	write := func(s string) error {
		_, err := wtr.Write([]byte(s))
		return err
	}

	if err := write(Header + "\n"); err != nil {
		utils.CloseAll(wclose)
		return 0, err
	}

	counter := -1
	prevCluster := ""
	prevLine := ""
	first := true
	for _, chunkPath := range chunkPaths {
		scanner, toclose, err := utils.OpenScanner(chunkPath)
		if err != nil {
			utils.CloseAll(wclose)
			return 0, err
		}

		lineno := 0
		for scanner.Scan() {
			lineno++
			line := scanner.Text()
			if opts.Uniq && line == prevLine {
				continue
			}
			prevLine = line

			toks := strings.Split(line, "\t")
			if len(toks) != 3 {
				utils.CloseAll(toclose)
				utils.CloseAll(wclose)
				return 0, fmt.Errorf("cluster: %s line %d: %d columns, want 3", chunkPath, lineno, len(toks))
			}
			clusterID, pid, ids := toks[0], toks[1], toks[2]
			if opts.SortLabels {
				ids = sortUniq(ids)
			}

			rep := ""
			if first || clusterID != prevCluster {
				prevCluster = clusterID
				counter++
				rep = "*"
				first = false
			}
			if err := write(fmt.Sprintf("%d\t%s\t%s\t%s\n", counter, pid, ids, rep)); err != nil {
				utils.CloseAll(toclose)
				utils.CloseAll(wclose)
				return 0, err
			}
		}
		if err := scanner.Err(); err != nil {
			utils.CloseAll(toclose)
			utils.CloseAll(wclose)
			return 0, err
		}
		utils.CloseAll(toclose)
	}

	if err := utils.CloseAll(wclose); err != nil {
		return 0, err
	}

	return counter + 1, nil
}
