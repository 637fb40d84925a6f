// SPDX-License-Identifier: MPL-2.0

// Package registry answers "does a command with this name exist, and where
// does its definition live". The resolver depends on the Registry interface
// only; the Host implementation backs it with shell builtins, a user alias
// table, loaded source packs, and $PATH.
package registry

import (
	"context"
	"errors"
	"fmt"
)

// CoreSource is the origin reported for shell builtins. Commands resolved
// here are never "missing": the host provides them without any dependency.
const CoreSource = "shell"

// AliasSource is the origin reported for entries of the user alias table.
const AliasSource = "alias"

// ErrNotFound is the sentinel error wrapped by NotFoundError.
var ErrNotFound = errors.New("command not found")

// Kind classifies what a resolved name refers to.
type Kind int

const (
	// KindUnknown means the name could not be classified.
	KindUnknown Kind = iota
	// KindCommand is an ordinary command (builtin or external binary).
	KindCommand
	// KindAlias is an alias for another command.
	KindAlias
	// KindFunction is a shell function with retrievable source text.
	KindFunction
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindAlias:
		return "alias"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize as their
// names in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting the names
// produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "command":
		*k = KindCommand
	case "alias":
		*k = KindAlias
	case "function":
		*k = KindFunction
	case "unknown":
		*k = KindUnknown
	default:
		return fmt.Errorf("unrecognized command kind %q", text)
	}
	return nil
}

// Command is one registry entry.
type Command struct {
	// Name is the canonical command name.
	Name string

	// Source identifies where the definition lives: CoreSource for shell
	// builtins, a pack name for source pack functions, AliasSource for
	// alias entries, or the containing directory for $PATH binaries.
	Source string

	// Kind classifies the entry.
	Kind Kind

	// Body is the function source text, present only for functions.
	Body string

	// AliasTarget is the name the alias expands to, present only for aliases.
	AliasTarget string
}

// NotFoundError is returned when a lookup cannot locate a command.
type NotFoundError struct {
	// Name is the command name that was looked up.
	Name string
	// Source is set when the lookup was scoped to a single source.
	Source string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("command %q not found in source %q", e.Name, e.Source)
	}
	return fmt.Sprintf("command %q not found", e.Name)
}

// Unwrap returns ErrNotFound so callers can use errors.Is for detection.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Registry is the lookup capability the resolver depends on. Implementations
// must be safe for sequential reuse across recursive analysis levels; the
// resolver never mutates returned Commands.
type Registry interface {
	// Lookup finds a command by name across all generally visible origins.
	// A miss is reported as a NotFoundError.
	Lookup(ctx context.Context, name string) (*Command, error)

	// ResolveAlias follows an alias entry to its effective target command.
	ResolveAlias(ctx context.Context, alias *Command) (*Command, error)

	// LookupInSource finds a command inside one named source only. Unlike
	// Lookup, this sees definitions not exported to the general registry
	// (private pack functions).
	LookupInSource(ctx context.Context, source, name string) (*Command, error)

	// OwnSource returns the name under which this tool's own definitions
	// appear in the registry. The resolver refuses to report the tool as a
	// dependency of the scripts it analyzes unless explicitly approved.
	OwnSource() string
}
