// SPDX-License-Identifier: MPL-2.0

// Package sourcepack loads source packs: directories of shell function
// libraries that the resolver may pull missing definitions from.
//
// A source pack is a directory named "<name>.shpack" containing:
//   - sourcepack.cue: a manifest validated against an embedded CUE schema
//   - *.sh files: function libraries parsed with mvdan/sh
//
// Functions whose name starts with "_" are private: they are invisible to
// the general registry and can only be found through a source-scoped lookup
// that names the pack explicitly.
package sourcepack

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"shdeps-cli/pkg/cueutil"
)

//go:embed sourcepack_schema.cue
var sourcepackSchema string

const (
	// PackSuffix is the filesystem suffix for source pack directories.
	PackSuffix = ".shpack"

	// ManifestName is the manifest file name within a pack.
	ManifestName = "sourcepack.cue"

	// PrivatePrefix marks a function as private to its pack.
	PrivatePrefix = "_"
)

// Manifest is the parsed sourcepack.cue content.
type Manifest struct {
	// Name is the pack identifier; it must match the directory name.
	Name string `json:"name"`

	// Description is free-form text shown in listings.
	Description string `json:"description,omitempty"`
}

// Function is one shell function definition found in a pack.
type Function struct {
	// Name is the function name as declared.
	Name string

	// Body is the function body text (without the surrounding braces),
	// suitable for re-rendering as an inlineable definition.
	Body string

	// File is the path of the defining *.sh file, relative to the pack root.
	File string

	// Private reports whether the name carries the private prefix.
	Private bool
}

// Pack is a loaded source pack, ready for lookups.
type Pack struct {
	// Path is the absolute filesystem path to the pack directory.
	Path string

	// Manifest is the parsed sourcepack.cue content.
	Manifest *Manifest

	functions []*Function
	byName    map[string]*Function
}

// IsPack reports whether dir looks like a source pack: the directory name
// carries the pack suffix and a manifest file exists.
func IsPack(dir string) bool {
	if !strings.HasSuffix(filepath.Base(dir), PackSuffix) {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, ManifestName))
	return err == nil && !info.IsDir()
}

// Load reads and validates a source pack from dir.
//
// The manifest is validated against the embedded schema and its name must
// match the directory name. Every *.sh file in the pack root is parsed;
// a file that fails to parse fails the whole load, since a pack with
// unreadable definitions cannot answer lookups reliably.
func Load(dir string) (*Pack, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pack path %q: %w", dir, err)
	}

	base := filepath.Base(absDir)
	if !strings.HasSuffix(base, PackSuffix) {
		return nil, fmt.Errorf("%s: not a source pack: directory name must end with %q", absDir, PackSuffix)
	}

	manifestPath := filepath.Join(absDir, ManifestName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pack manifest: %w", err)
	}

	parsed, err := cueutil.ParseAndDecodeString[Manifest](
		sourcepackSchema, data, "#SourcePack",
		cueutil.WithFilename(manifestPath),
	)
	if err != nil {
		return nil, err
	}
	manifest := parsed.Value

	if want := strings.TrimSuffix(base, PackSuffix); manifest.Name != want {
		return nil, fmt.Errorf("%s: manifest name %q does not match directory name %q",
			manifestPath, manifest.Name, want)
	}

	p := &Pack{
		Path:     absDir,
		Manifest: manifest,
		byName:   make(map[string]*Function),
	}

	if err := p.scanFunctions(); err != nil {
		return nil, err
	}

	return p, nil
}

// Name returns the pack identifier from the manifest.
func (p *Pack) Name() string {
	if p.Manifest == nil {
		return ""
	}
	return p.Manifest.Name
}

// ManifestPath returns the absolute path to the pack's sourcepack.cue.
func (p *Pack) ManifestPath() string {
	return filepath.Join(p.Path, ManifestName)
}

// Functions returns every function defined in the pack, in file order
// (files sorted by name, declarations in source order within a file).
func (p *Pack) Functions() []*Function {
	out := make([]*Function, len(p.functions))
	copy(out, p.functions)
	return out
}

// Function looks up a function by name, case-insensitively. Private
// functions are only returned when includePrivate is true.
func (p *Pack) Function(name string, includePrivate bool) (*Function, bool) {
	fn, ok := p.byName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	if fn.Private && !includePrivate {
		return nil, false
	}
	return fn, true
}

// scanFunctions parses every *.sh file in the pack root and indexes the
// top-level function declarations. The first definition of a name wins;
// later duplicates are reported by Validate but tolerated here.
func (p *Pack) scanFunctions() error {
	files, err := libraryFiles(p.Path)
	if err != nil {
		return err
	}

	for _, rel := range files {
		fns, err := scanFile(p.Path, rel)
		if err != nil {
			return err
		}
		for _, fn := range fns {
			p.functions = append(p.functions, fn)
			key := strings.ToLower(fn.Name)
			if _, exists := p.byName[key]; !exists {
				p.byName[key] = fn
			}
		}
	}

	return nil
}

// libraryFiles returns the sorted relative names of the *.sh files in the
// pack root. Packs are flat: subdirectories are not descended into.
func libraryFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pack directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".sh") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
