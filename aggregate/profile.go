// Copyright 2025, the spneumo-analysis contributors.

// Package aggregate scans a tree of per-chunk tool outputs (JSON or
// TSV) and folds them into a single results table with a stable
// header.
package aggregate

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// A Profile declares, for one pipeline, which files under the output
// root carry results and how their fields map onto the combined
// table.  Profiles are loaded from a TOML file so a new pipeline
// needs no code change.
type Profile struct {
	// Profile name, e.g. "checkm2", "busco".
	Name string `toml:"name"`

	// Glob matched against file base names, e.g. "chunk_*.tsv" or
	// "short_summary.specific.*.json".
	Pattern string `toml:"pattern"`

	// Source format: "json" or "tsv".
	Format string `toml:"format"`

	// The header field identifying the sample.
	Key string `toml:"key"`

	// How the sample key is derived for JSON sources: "payload"
	// reads KeyPath from inside the record (the tool's declared run
	// parameter, used when filenames are not reliable keys),
	// "filename" uses the source base name.  Delimited sources
	// always take the key from its own column.
	KeyStrategy string `toml:"key_strategy"`

	// Dotted path of the key inside a JSON payload, e.g.
	// "parameters.out".  Payload strategy only.
	KeyPath string `toml:"key_path"`

	// Trimmed from the ends of the derived key, e.g. "_out.faa".
	KeyTrimPrefix string `toml:"key_trim_prefix"`
	KeyTrimSuffix string `toml:"key_trim_suffix"`

	// Written for fields with no value in the source.  Defaults to
	// the empty string.
	Sentinel string `toml:"sentinel"`

	// When true, a record missing a declared field is an error and
	// the source file is skipped instead of receiving sentinels.
	Strict bool `toml:"strict"`

	// Canonical column order of the combined table.
	Header []string `toml:"header"`

	// Field name -> dotted JSON path for json sources, or source
	// column name for tsv sources whose tools label columns
	// differently.  TSV fields not listed here match by name.
	Fields map[string]string `toml:"fields"`
}

type profileFile struct {
	Profile []*Profile `toml:"profile"`
}

// LoadProfiles reads all profiles from a TOML file, keyed by name.
func LoadProfiles(filename string) (map[string]*Profile, error) {

	var pf profileFile
	if _, err := toml.DecodeFile(filename, &pf); err != nil {
		return nil, err
	}

	profiles := make(map[string]*Profile, len(pf.Profile))
	for _, p := range pf.Profile {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := profiles[p.Name]; dup {
			return nil, fmt.Errorf("aggregate: duplicate profile %q in %s", p.Name, filename)
		}
		profiles[p.Name] = p
	}

	return profiles, nil
}

// LoadProfile reads one named profile from a TOML file.
func LoadProfile(filename, name string) (*Profile, error) {

	profiles, err := LoadProfiles(filename)
	if err != nil {
		return nil, err
	}
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("aggregate: no profile %q in %s", name, filename)
	}
	return p, nil
}

func (p *Profile) validate() error {

	if p.Name == "" {
		return fmt.Errorf("aggregate: profile with no name")
	}
	if p.Pattern == "" {
		return fmt.Errorf("aggregate: profile %q has no file pattern", p.Name)
	}
	if _, err := filepath.Match(p.Pattern, "x"); err != nil {
		return fmt.Errorf("aggregate: profile %q pattern: %v", p.Name, err)
	}
	if p.Format != "json" && p.Format != "tsv" {
		return fmt.Errorf("aggregate: profile %q format %q, want json or tsv", p.Name, p.Format)
	}
	if len(p.Header) == 0 {
		return fmt.Errorf("aggregate: profile %q has no header", p.Name)
	}
	if p.Key == "" {
		return fmt.Errorf("aggregate: profile %q has no key field", p.Name)
	}
	found := false
	for _, h := range p.Header {
		if h == p.Key {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("aggregate: profile %q key %q not in header", p.Name, p.Key)
	}

	switch p.KeyStrategy {
	case "payload":
		if p.Format != "json" {
			return fmt.Errorf("aggregate: profile %q payload key strategy requires json format", p.Name)
		}
		if p.KeyPath == "" {
			return fmt.Errorf("aggregate: profile %q payload key strategy requires key_path", p.Name)
		}
	case "filename":
		// no extra parameters
	default:
		return fmt.Errorf("aggregate: profile %q key strategy %q, want payload or filename",
			p.Name, p.KeyStrategy)
	}

	return nil
}
