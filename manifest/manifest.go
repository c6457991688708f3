// Package manifest handles minitalk.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chazu/minitalk/lib/runtime"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "minitalk.toml"

// DefaultMain is the script run when the manifest names none.
const DefaultMain = "Main.st"

// Manifest represents a minitalk.toml project configuration.
type Manifest struct {
	Project     Project             `toml:"project"`
	Source      Source              `toml:"source"`
	Conventions runtime.Conventions `toml:"conventions"`
	Transcript  TranscriptConfig    `toml:"transcript"`

	// Dir is the directory containing the minitalk.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source names the class files, loaded in order, and the main script.
type Source struct {
	Classes []string `toml:"classes"`
	Main    string   `toml:"main"`
}

// TranscriptConfig configures output recording.
type TranscriptConfig struct {
	// Record is a path for the CBOR event log of the run; empty disables
	// recording.
	Record string `toml:"record"`
}

// Load parses a minitalk.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Source.Main == "" {
		m.Source.Main = DefaultMain
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a minitalk.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ClassPaths returns absolute paths of the class files. Without an explicit
// list every .st file in the project directory except the main script is
// used, in name order.
func (m *Manifest) ClassPaths() ([]string, error) {
	if len(m.Source.Classes) > 0 {
		paths := make([]string, len(m.Source.Classes))
		for i, c := range m.Source.Classes {
			paths[i] = m.resolve(c)
		}
		return paths, nil
	}

	matches, err := filepath.Glob(filepath.Join(m.Dir, "*.st"))
	if err != nil {
		return nil, err
	}
	main := m.MainPath()
	var paths []string
	for _, p := range matches {
		if p != main {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// MainPath returns the absolute path of the main script.
func (m *Manifest) MainPath() string {
	return m.resolve(m.Source.Main)
}

// RecordPath returns the absolute path for the transcript log, or "" when
// recording is off.
func (m *Manifest) RecordPath() string {
	if m.Transcript.Record == "" {
		return ""
	}
	return m.resolve(m.Transcript.Record)
}

// ResolvedConventions returns the default conventions overridden by the
// manifest's [conventions] table.
func (m *Manifest) ResolvedConventions() runtime.Conventions {
	return runtime.DefaultConventions().Merge(m.Conventions)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.Dir, p)
}
