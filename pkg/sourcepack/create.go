// SPDX-License-Identifier: MPL-2.0

package sourcepack

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// packNameRegex matches the name constraint of the manifest schema.
var packNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)

// CreateOptions configures Create.
type CreateOptions struct {
	// Name is the pack identifier (without the .shpack suffix).
	Name string

	// ParentDir is the directory the pack is created in. Empty means the
	// current working directory.
	ParentDir string

	// Description is free-form text for the manifest.
	Description string
}

// ValidateName checks if a pack name is valid.
// Returns nil if valid, or an error describing the problem.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("pack name cannot be empty")
	}
	if !packNameRegex.MatchString(name) {
		return fmt.Errorf("pack name %q is invalid: must start with a letter and contain only alphanumeric characters, dots, underscores, or hyphens", name)
	}
	return nil
}

// Create scaffolds a new source pack: the <name>.shpack directory, a
// manifest, and a starter library file. Returns the path to the created
// pack or an error.
func Create(opts CreateOptions) (string, error) {
	if err := ValidateName(opts.Name); err != nil {
		return "", err
	}

	parentDir := opts.ParentDir
	if parentDir == "" {
		var err error
		parentDir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	absParentDir, err := filepath.Abs(parentDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve parent directory: %w", err)
	}

	packPath := filepath.Join(absParentDir, opts.Name+PackSuffix)
	if _, err := os.Stat(packPath); err == nil {
		return "", fmt.Errorf("pack already exists at %s", packPath)
	}

	if err := os.MkdirAll(packPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create pack directory: %w", err)
	}

	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("Shell functions from the %s pack", opts.Name)
	}

	manifestContent := fmt.Sprintf(`// Source pack manifest for %s.

name:        %q
description: %q
`, opts.Name, opts.Name, description)

	if err := os.WriteFile(filepath.Join(packPath, ManifestName), []byte(manifestContent), 0o644); err != nil {
		_ = os.RemoveAll(packPath) // Best-effort cleanup on error path
		return "", fmt.Errorf("failed to create %s: %w", ManifestName, err)
	}

	libraryContent := fmt.Sprintf(`# Function library for the %s pack.
# Every *.sh file in this directory is scanned for function definitions.
# Names starting with "_" are private to the pack.

hello_%s() {
  echo "Hello from %s!"
}
`, opts.Name, opts.Name, opts.Name)

	if err := os.WriteFile(filepath.Join(packPath, "lib.sh"), []byte(libraryContent), 0o644); err != nil {
		_ = os.RemoveAll(packPath)
		return "", fmt.Errorf("failed to create lib.sh: %w", err)
	}

	return packPath, nil
}
