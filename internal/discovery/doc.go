// SPDX-License-Identifier: MPL-2.0

// Package discovery handles locating and loading source packs.
//
// Packs are found in three places, in order of precedence: the current
// directory, the user sources directory (~/.shdeps/sources), and the
// entries configured under includes in the config file. Scanned locations
// skip unloadable packs with a diagnostic; explicitly included paths
// surface their failures, since the user asked for them by name.
//
// Discovery also applies configured aliases and detects effective-name
// collisions, so the registry never sees two packs answering to the same
// source name.
package discovery
