// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for shdeps.
//
// This package implements the Cobra command hierarchy for the shdeps CLI:
// the root command, script analysis (including watch mode), source pack
// management, configuration, and shell completions.
package cmd
