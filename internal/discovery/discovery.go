// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shdeps-cli/internal/config"
	"shdeps-cli/pkg/sourcepack"
)

// PackCollisionError is returned when two packs resolve to the same
// effective source name.
type PackCollisionError struct {
	Name       string
	FirstPath  string
	SecondPath string
}

// Error implements the error interface.
func (e *PackCollisionError) Error() string {
	return fmt.Sprintf(
		"source pack name collision: %q provided by both:\n"+
			"  - %s\n"+
			"  - %s\n\n"+
			"Give the entries unique aliases in your config includes to disambiguate",
		e.Name, e.FirstPath, e.SecondPath)
}

// Source represents where a pack was found.
type Source int

const (
	// SourceCurrentDir indicates the pack was found in the current directory
	SourceCurrentDir Source = iota
	// SourceUserDir indicates the pack was found in ~/.shdeps/sources
	SourceUserDir
	// SourceConfigInclude indicates the pack came from a config includes entry
	SourceConfigInclude
)

// String returns a human-readable source name
func (s Source) String() string {
	switch s {
	case SourceCurrentDir:
		return "current directory"
	case SourceUserDir:
		return "user sources (~/.shdeps/sources)"
	case SourceConfigInclude:
		return "config includes"
	default:
		return "unknown"
	}
}

// DiscoveredPack represents a found source pack with its origin.
type DiscoveredPack struct {
	// Path is the absolute path to the pack directory
	Path string
	// Source indicates where the pack was found
	Source Source
	// Alias is the configured identifier override, if any
	Alias string
	// Pack is the loaded content (nil when loading failed)
	Pack *sourcepack.Pack
	// Error contains any error that occurred during loading
	Error error
}

// EffectiveName returns the name the pack answers to in the registry:
// the configured alias when present, otherwise the pack's own name.
func (p *DiscoveredPack) EffectiveName() string {
	if p.Alias != "" {
		return p.Alias
	}
	if p.Pack != nil {
		return p.Pack.Name()
	}
	return strings.TrimSuffix(filepath.Base(p.Path), sourcepack.PackSuffix)
}

// Discovery handles finding source packs
type Discovery struct {
	cfg *config.Config
}

// New creates a new Discovery instance
func New(cfg *config.Config) *Discovery {
	return &Discovery{cfg: cfg}
}

// DiscoverAll finds all packs from all sources in order of precedence.
// Scanned locations contribute diagnostics for packs that fail to load;
// explicitly included paths contribute error diagnostics when missing or
// unloadable.
func (d *Discovery) DiscoverAll() *PackSetResult {
	result := &PackSetResult{}

	// 1. Current directory (highest precedence)
	d.discoverPacksInDir(".", SourceCurrentDir, result)

	// 2. User sources directory (~/.shdeps/sources)
	if userDir, err := config.SourcesDir(); err == nil {
		d.discoverPacksInDir(userDir, SourceUserDir, result)
	}

	// 3. Configured includes
	if d.cfg != nil {
		for _, entry := range d.cfg.Includes {
			d.loadIncludedPack(entry, result)
		}
	}

	return result
}

// discoverPacksInDir finds all valid packs in a directory.
// It only looks at immediate subdirectories (packs are not nested).
func (d *Discovery) discoverPacksInDir(dir string, source Source, result *PackSetResult) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return
	}

	// Check if directory exists
	if _, err := os.Stat(absDir); os.IsNotExist(err) {
		return
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		entryPath := filepath.Join(absDir, entry.Name())
		if !sourcepack.IsPack(entryPath) {
			continue
		}

		p, err := sourcepack.Load(entryPath)
		if err != nil {
			// Invalid pack in a scanned location: skip with a diagnostic.
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityWarning,
				Code:     "pack_load_skipped",
				Message:  fmt.Sprintf("skipping unloadable pack: %v", err),
				Path:     entryPath,
				Cause:    err,
			})
			continue
		}

		result.Packs = append(result.Packs, &DiscoveredPack{
			Path:   p.Path,
			Source: source,
			Pack:   p,
		})
	}
}

// loadIncludedPack loads a pack named by a config includes entry. Unlike
// scanned locations, failures here are surfaced: the user asked for this
// path explicitly.
func (d *Discovery) loadIncludedPack(entry config.SourceEntry, result *PackSetResult) {
	absPath, err := filepath.Abs(string(entry.Path))
	if err != nil {
		absPath = string(entry.Path)
	}

	p, err := sourcepack.Load(absPath)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityError,
			Code:     "include_load_failed",
			Message:  fmt.Sprintf("configured pack failed to load: %v", err),
			Path:     absPath,
			Cause:    err,
		})
		result.Packs = append(result.Packs, &DiscoveredPack{
			Path:   absPath,
			Source: SourceConfigInclude,
			Alias:  entry.Alias,
			Error:  err,
		})
		return
	}

	result.Packs = append(result.Packs, &DiscoveredPack{
		Path:   p.Path,
		Source: SourceConfigInclude,
		Alias:  entry.Alias,
		Pack:   p,
	})
}

// CheckCollisions checks for effective-name collisions among discovered
// packs. Names are compared case-insensitively, matching registry lookups.
// Packs that failed to load or that point at the same directory twice do
// not count.
func (d *Discovery) CheckCollisions(packs []*DiscoveredPack) error {
	seen := make(map[string]*DiscoveredPack)

	for _, p := range packs {
		if p.Pack == nil {
			continue
		}

		key := strings.ToLower(p.EffectiveName())
		first, exists := seen[key]
		if !exists {
			seen[key] = p
			continue
		}
		if first.Path == p.Path {
			continue
		}
		return &PackCollisionError{
			Name:       p.EffectiveName(),
			FirstPath:  first.Path,
			SecondPath: p.Path,
		}
	}

	return nil
}

// Packs returns the loaded packs in precedence order, deduplicated by
// directory, after collision checking. This is what the registry consumes.
func (d *Discovery) Packs() ([]*DiscoveredPack, []Diagnostic, error) {
	result := d.DiscoverAll()

	if err := d.CheckCollisions(result.Packs); err != nil {
		return nil, result.Diagnostics, err
	}

	var packs []*DiscoveredPack
	seenPaths := make(map[string]bool)
	for _, p := range result.Packs {
		if p.Pack == nil {
			continue
		}
		if seenPaths[p.Path] {
			continue
		}
		seenPaths[p.Path] = true
		packs = append(packs, p)
	}

	return packs, result.Diagnostics, nil
}

// Get finds a loaded pack by effective name (case-insensitive).
func (d *Discovery) Get(name string) (*DiscoveredPack, error) {
	packs, _, err := d.Packs()
	if err != nil {
		return nil, err
	}

	for _, p := range packs {
		if strings.EqualFold(p.EffectiveName(), name) {
			return p, nil
		}
	}

	return nil, fmt.Errorf("source pack %q not found", name)
}

// RegistryInputs converts discovered packs into the pack list and name
// override map the registry constructor expects.
func RegistryInputs(packs []*DiscoveredPack) ([]*sourcepack.Pack, map[string]string) {
	loaded := make([]*sourcepack.Pack, 0, len(packs))
	names := make(map[string]string)

	for _, p := range packs {
		if p.Pack == nil {
			continue
		}
		loaded = append(loaded, p.Pack)
		if p.Alias != "" {
			names[p.Path] = p.Alias
		}
	}

	return loaded, names
}
