// SPDX-License-Identifier: MPL-2.0

package sourcepack

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"shdeps-cli/pkg/cueutil"
	"shdeps-cli/pkg/platform"
)

// ValidationIssue represents a single validation problem in a source pack.
type ValidationIssue struct {
	// Type categorizes the issue (e.g., "structure", "manifest", "library")
	Type string
	// Message describes the specific problem
	Message string
	// Path is the relative path within the pack where the issue was found (optional)
	Path string
}

// Error implements the error interface for ValidationIssue.
func (v ValidationIssue) Error() string {
	if v.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", v.Type, v.Path, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.Type, v.Message)
}

// ValidationResult contains the result of source pack validation.
type ValidationResult struct {
	// Valid is true if the pack passed all validation checks
	Valid bool
	// PackPath is the absolute path to the validated pack
	PackPath string
	// PackName is the name extracted from the folder (without the .shpack suffix)
	PackName string
	// FunctionCount is the number of function definitions found
	FunctionCount int
	// Issues contains all validation problems found
	Issues []ValidationIssue
}

// AddIssue adds a validation issue to the result.
func (r *ValidationResult) AddIssue(issueType, message, path string) {
	r.Issues = append(r.Issues, ValidationIssue{
		Type:    issueType,
		Message: message,
		Path:    path,
	})
	r.Valid = false
}

// Validate checks a directory for source pack conformance without failing
// fast: all problems found are collected into the result. This backs the
// `shdeps source validate` command.
func Validate(dir string) (*ValidationResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pack path %q: %w", dir, err)
	}

	result := &ValidationResult{
		Valid:    true,
		PackPath: absDir,
	}

	info, err := os.Stat(absDir)
	if err != nil || !info.IsDir() {
		result.AddIssue("structure", "path is not a directory", "")
		return result, nil
	}

	base := filepath.Base(absDir)
	if !strings.HasSuffix(base, PackSuffix) {
		result.AddIssue("naming", fmt.Sprintf("directory name must end with %q", PackSuffix), "")
	} else {
		result.PackName = strings.TrimSuffix(base, PackSuffix)
	}

	validateManifest(absDir, result)
	validateLibraries(absDir, result)

	return result, nil
}

func validateManifest(absDir string, result *ValidationResult) {
	manifestPath := filepath.Join(absDir, ManifestName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		result.AddIssue("manifest", fmt.Sprintf("missing %s", ManifestName), ManifestName)
		return
	}

	parsed, err := cueutil.ParseAndDecodeString[Manifest](
		sourcepackSchema, data, "#SourcePack",
		cueutil.WithFilename(manifestPath),
	)
	if err != nil {
		result.AddIssue("manifest", err.Error(), ManifestName)
		return
	}

	if result.PackName != "" && parsed.Value.Name != result.PackName {
		result.AddIssue("manifest",
			fmt.Sprintf("manifest name %q does not match directory name %q", parsed.Value.Name, result.PackName),
			ManifestName)
	}
}

func validateLibraries(absDir string, result *ValidationResult) {
	files, err := libraryFiles(absDir)
	if err != nil {
		result.AddIssue("structure", err.Error(), "")
		return
	}

	if len(files) == 0 {
		result.AddIssue("library", "pack contains no *.sh library files", "")
		return
	}

	seen := make(map[string]string) // folded function name -> defining file
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(absDir, rel))
		if err != nil {
			result.AddIssue("library", err.Error(), rel)
			continue
		}

		file, err := syntax.NewParser().Parse(bytes.NewReader(data), rel)
		if err != nil {
			result.AddIssue("library", fmt.Sprintf("parse error: %v", err), rel)
			continue
		}

		for _, stmt := range file.Stmts {
			decl, ok := stmt.Cmd.(*syntax.FuncDecl)
			if !ok {
				continue
			}
			key := strings.ToLower(decl.Name.Value)
			if first, dup := seen[key]; dup {
				result.AddIssue("library",
					fmt.Sprintf("function %q already defined in %s", decl.Name.Value, first), rel)
				continue
			}
			seen[key] = rel
			result.FunctionCount++

			// Functions become command names; a name Windows reserves can
			// never be invoked there.
			if platform.IsWindowsReservedName(decl.Name.Value) {
				result.AddIssue("naming",
					fmt.Sprintf("function name %q is a reserved filename on Windows", decl.Name.Value), rel)
			}
		}
	}
}
