// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// packSuffix is the filesystem suffix for source pack directories.
	// Defined locally to avoid coupling config to pkg/sourcepack.
	packSuffix = ".shpack"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidPackIncludePath is the sentinel error wrapped by InvalidPackIncludePathError.
	ErrInvalidPackIncludePath = errors.New("invalid pack include path")
	// ErrInvalidAliasFilePath is returned when an AliasFilePath value is whitespace-only.
	ErrInvalidAliasFilePath = errors.New("invalid alias file path")
	// ErrInvalidSourceName is returned when an approved source name is empty or whitespace-only.
	ErrInvalidSourceName = errors.New("invalid source name")
	// ErrInvalidSourceEntry is the sentinel error wrapped by InvalidSourceEntryError.
	ErrInvalidSourceEntry = errors.New("invalid source entry")
	// ErrInvalidAnalysisConfig is the sentinel error wrapped by InvalidAnalysisConfigError.
	ErrInvalidAnalysisConfig = errors.New("invalid analysis config")
	// ErrInvalidRegistryConfig is the sentinel error wrapped by InvalidRegistryConfigError.
	ErrInvalidRegistryConfig = errors.New("invalid registry config")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// PackIncludePath represents an absolute filesystem path to a *.shpack directory.
	// A valid path must be non-empty and not whitespace-only.
	PackIncludePath string

	// InvalidPackIncludePathError is returned when a PackIncludePath value is
	// empty or whitespace-only. It wraps ErrInvalidPackIncludePath for errors.Is().
	InvalidPackIncludePathError struct {
		Value PackIncludePath
	}

	// AliasFilePath represents a filesystem path to an alias definitions file.
	// The zero value ("") is valid and means "use the platform default".
	// Non-zero values must not be whitespace-only.
	AliasFilePath string

	// InvalidAliasFilePathError is returned when an AliasFilePath value is
	// non-empty but whitespace-only.
	InvalidAliasFilePathError struct {
		Value AliasFilePath
	}

	// SourceName represents a source pack name granted inline approval.
	// A valid name must be non-empty and not whitespace-only.
	SourceName string

	// InvalidSourceNameError is returned when a SourceName value is empty
	// or whitespace-only. It wraps ErrInvalidSourceName for errors.Is().
	InvalidSourceNameError struct {
		Value SourceName
	}

	// InvalidSourceEntryError is returned when a SourceEntry has invalid fields.
	// It wraps ErrInvalidSourceEntry for errors.Is() compatibility and collects
	// field-level validation errors from Path and Alias.
	InvalidSourceEntryError struct {
		FieldErrors []error
	}

	// InvalidAnalysisConfigError is returned when an AnalysisConfig has invalid fields.
	// It wraps ErrInvalidAnalysisConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidAnalysisConfigError struct {
		FieldErrors []error
	}

	// InvalidRegistryConfigError is returned when a RegistryConfig has invalid fields.
	// It wraps ErrInvalidRegistryConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidRegistryConfigError struct {
		FieldErrors []error
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	// It wraps ErrInvalidUIConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// SourceEntry specifies a source pack to include in command resolution.
	// Each entry must point to a *.shpack directory via an absolute filesystem path.
	SourceEntry struct {
		// Path is the absolute filesystem path to a *.shpack directory.
		Path PackIncludePath `json:"path" mapstructure:"path"`
		// Alias optionally overrides the pack identifier for collision disambiguation.
		Alias string `json:"alias,omitempty" mapstructure:"alias"`
	}

	// Config holds the application configuration.
	Config struct {
		// Includes specifies source packs to include in command resolution.
		Includes []SourceEntry `json:"includes" mapstructure:"includes"`
		// ApprovedSources lists pack names whose definitions may be inlined.
		ApprovedSources []SourceName `json:"approved_sources" mapstructure:"approved_sources"`
		// Registry configures where command definitions are looked up.
		Registry RegistryConfig `json:"registry" mapstructure:"registry"`
		// Analysis configures the recursive resolution behavior.
		Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// RegistryConfig configures command lookup origins.
	RegistryConfig struct {
		// ScanPath controls whether $PATH executables participate in
		// resolution (default: true).
		ScanPath bool `json:"scan_path" mapstructure:"scan_path"`
		// AliasFile overrides the path to the alias definitions file.
		AliasFile AliasFilePath `json:"alias_file" mapstructure:"alias_file"`
	}

	// AnalysisConfig configures the resolution engine.
	AnalysisConfig struct {
		// MaxDepth caps recursive analysis levels; 0 derives a bound from
		// the names discovered.
		MaxDepth int `json:"max_depth" mapstructure:"max_depth"`
		// Recursive includes nested definitions in inlineable output.
		Recursive bool `json:"recursive" mapstructure:"recursive"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// IsPack reports whether this entry points to a pack directory (.shpack).
func (e SourceEntry) IsPack() bool {
	return strings.HasSuffix(string(e.Path), packSuffix)
}

// IsValid returns whether the SourceEntry has valid fields.
// It delegates to Path.IsValid() unconditionally; the zero-value alias is
// always valid and non-empty aliases must not be whitespace-only.
func (e SourceEntry) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := e.Path.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if e.Alias != "" && strings.TrimSpace(e.Alias) == "" {
		errs = append(errs, fmt.Errorf("alias must not be whitespace-only"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidSourceEntryError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidSourceEntryError.
func (e *InvalidSourceEntryError) Error() string {
	return fmt.Sprintf("invalid source entry: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidSourceEntry for errors.Is() compatibility.
func (e *InvalidSourceEntryError) Unwrap() error { return ErrInvalidSourceEntry }

// IsValid returns whether the AnalysisConfig has valid fields.
// MaxDepth must be non-negative; the bool field needs no validation.
func (c AnalysisConfig) IsValid() (bool, []error) {
	var errs []error
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidAnalysisConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidAnalysisConfigError.
func (e *InvalidAnalysisConfigError) Error() string {
	return fmt.Sprintf("invalid analysis config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidAnalysisConfig for errors.Is() compatibility.
func (e *InvalidAnalysisConfigError) Unwrap() error { return ErrInvalidAnalysisConfig }

// IsValid returns whether the RegistryConfig has valid fields.
// It delegates to AliasFile.IsValid(); the bool field needs no validation.
func (c RegistryConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.AliasFile.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidRegistryConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidRegistryConfigError.
func (e *InvalidRegistryConfigError) Error() string {
	return fmt.Sprintf("invalid registry config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidRegistryConfig for errors.Is() compatibility.
func (e *InvalidRegistryConfigError) Unwrap() error { return ErrInvalidRegistryConfig }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to each Includes entry's IsValid(), each ApprovedSources
// name's IsValid(), Registry.IsValid(), Analysis.IsValid(), and UI.IsValid().
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, entry := range c.Includes {
		if valid, fieldErrs := entry.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	for _, name := range c.ApprovedSources {
		if valid, fieldErrs := name.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if valid, fieldErrs := c.Registry.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Analysis.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// ApprovedSourceNames returns the approved sources as plain strings in
// configuration order, for handing to the resolution engine.
func (c Config) ApprovedSourceNames() []string {
	if len(c.ApprovedSources) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.ApprovedSources))
	for _, name := range c.ApprovedSources {
		names = append(names, string(name))
	}
	return names
}

// String returns the string representation of the PackIncludePath.
func (p PackIncludePath) String() string { return string(p) }

// IsValid returns whether the PackIncludePath is valid.
// A valid path must be non-empty and not whitespace-only.
func (p PackIncludePath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidPackIncludePathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidPackIncludePathError.
func (e *InvalidPackIncludePathError) Error() string {
	return fmt.Sprintf("invalid pack include path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidPackIncludePath for errors.Is() compatibility.
func (e *InvalidPackIncludePathError) Unwrap() error { return ErrInvalidPackIncludePath }

// String returns the string representation of the AliasFilePath.
func (p AliasFilePath) String() string { return string(p) }

// IsValid returns whether the AliasFilePath is valid.
// The zero value ("") is valid (means "use the platform default").
// Non-zero values must not be whitespace-only.
func (p AliasFilePath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidAliasFilePathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidAliasFilePathError.
func (e *InvalidAliasFilePathError) Error() string {
	return fmt.Sprintf("invalid alias file path %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidAliasFilePath for errors.Is() compatibility.
func (e *InvalidAliasFilePathError) Unwrap() error { return ErrInvalidAliasFilePath }

// String returns the string representation of the SourceName.
func (n SourceName) String() string { return string(n) }

// IsValid returns whether the SourceName is valid.
// A valid name must be non-empty and not whitespace-only.
func (n SourceName) IsValid() (bool, []error) {
	if strings.TrimSpace(string(n)) == "" {
		return false, []error{&InvalidSourceNameError{Value: n}}
	}
	return true, nil
}

// Error implements the error interface for InvalidSourceNameError.
func (e *InvalidSourceNameError) Error() string {
	return fmt.Sprintf("invalid source name %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidSourceName for errors.Is() compatibility.
func (e *InvalidSourceNameError) Unwrap() error { return ErrInvalidSourceName }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Includes:        []SourceEntry{},
		ApprovedSources: []SourceName{},
		Registry: RegistryConfig{
			ScanPath:  true,
			AliasFile: "", // Will use the platform default if empty
		},
		Analysis: AnalysisConfig{
			MaxDepth:  0,
			Recursive: false,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
