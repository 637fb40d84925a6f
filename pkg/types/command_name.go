// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCommandName is the sentinel error wrapped by InvalidCommandNameError.
var ErrInvalidCommandName = errors.New("invalid command name")

type (
	// CommandName represents the name of an invoked shell command or function.
	// Command names compare case-insensitively: "Mkdir" and "mkdir" identify
	// the same command. A valid name must be non-empty and not whitespace-only.
	CommandName string

	// InvalidCommandNameError is returned when a CommandName value is empty
	// or whitespace-only.
	InvalidCommandNameError struct {
		Value CommandName
	}
)

// String returns the string representation of the CommandName.
func (n CommandName) String() string { return string(n) }

// Fold returns the canonical lower-cased form used for case-insensitive
// identity (map keys, set membership).
func (n CommandName) Fold() string { return strings.ToLower(string(n)) }

// Equals reports whether two command names identify the same command,
// ignoring case.
func (n CommandName) Equals(other CommandName) bool {
	return strings.EqualFold(string(n), string(other))
}

// IsValid returns whether the CommandName is valid.
// A valid name must be non-empty and not whitespace-only.
func (n CommandName) IsValid() (bool, []error) {
	if strings.TrimSpace(string(n)) == "" {
		return false, []error{&InvalidCommandNameError{Value: n}}
	}
	return true, nil
}

// Error implements the error interface for InvalidCommandNameError.
func (e *InvalidCommandNameError) Error() string {
	return fmt.Sprintf("invalid command name %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidCommandName for errors.Is() compatibility.
func (e *InvalidCommandNameError) Unwrap() error { return ErrInvalidCommandName }
