// SPDX-License-Identifier: MPL-2.0

// Package resolve implements the missing-command analysis: it classifies
// every command a script invokes against the registry, filters out names the
// caller already has, and can recursively pull in function definitions from
// approved source packs until the dependency closure is complete.
package resolve

import (
	"strings"

	"shdeps-cli/internal/registry"
)

// Request carries the inputs of a single analysis call.
type Request struct {
	// Script is the shell source text to analyze.
	Script string

	// Name labels the script in diagnostics (file path, "stdin", ...).
	Name string

	// KnownFunctions are names the caller treats as already satisfied.
	// They are excluded before any lookup. Nested analysis levels start
	// with an empty known set; see the package documentation of the
	// expander for why.
	KnownFunctions []string

	// ApprovedSources are the source pack names permitted to supply
	// fallback definitions, in caller precedence order.
	ApprovedSources []string

	// IgnoreNames are excluded from the analysis entirely. The expander
	// grows this set across recursion levels to guarantee termination.
	IgnoreNames []string

	// ExpandRecursively controls whether definitions discovered at nested
	// levels are included in Result.Inlineable. Nested levels are always
	// analyzed for the summaries; this flag only affects the inlineable
	// text view.
	ExpandRecursively bool

	// MaxDepth caps the number of analysis levels. Zero means "derive from
	// the number of distinct names seen", which is always sufficient for a
	// consistent registry.
	MaxDepth int
}

// Resolution is the classification of one candidate command name.
type Resolution struct {
	// Name is the canonical command name; for aliases this is the target,
	// not the alias the script used.
	Name string `json:"name"`

	// Source is the origin of the definition; empty when unresolved.
	Source string `json:"source"`

	// Kind classifies the resolved command.
	Kind registry.Kind `json:"kind"`

	// IsAlias reports that the script invoked this command through an alias.
	IsAlias bool `json:"isAlias"`

	// IsPrivate reports that the definition was only found through the
	// source-scoped fallback lookup.
	IsPrivate bool `json:"isPrivate"`

	// Err records the lookup failure for unresolved names. Unresolved
	// candidates are retained, not dropped: they are exactly what is
	// missing.
	Err string `json:"error,omitempty"`

	// Body is the function source text, when retrievable.
	Body string `json:"body,omitempty"`
}

// Result is the aggregated output of an analysis call, covering the
// top-level script and every recursively analyzed definition.
type Result struct {
	// All contains every resolution from every level.
	All []Resolution `json:"all"`

	// NonCore is All without commands originating from the shell's builtin
	// namespace. Builtins are never missing, so this is the missing-set view.
	NonCore []Resolution `json:"nonCore"`

	// Inlineable is the rendered function definitions from the top level
	// and, when the request asked for recursive expansion, from all nested
	// levels.
	Inlineable []string `json:"inlineable"`

	// TopLevelInlineable is the rendered definitions from the top-level
	// script only. This is the default "paste these" output.
	TopLevelInlineable []string `json:"topLevelInlineable"`
}

// RenderFunction renders a resolved definition as an inlineable shell
// function declaration.
func RenderFunction(name, body string) string {
	return "function " + name + " {\n" + body + "\n}"
}

// nameSet is a case-insensitive string set.
type nameSet map[string]struct{}

func newNameSet(names ...string) nameSet {
	s := make(nameSet, len(names))
	for _, name := range names {
		s.add(name)
	}
	return s
}

func (s nameSet) add(name string) {
	if name != "" {
		s[strings.ToLower(name)] = struct{}{}
	}
}

func (s nameSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

// containsFold reports whether names contains target, ignoring case.
func containsFold(names []string, target string) bool {
	for _, name := range names {
		if strings.EqualFold(name, target) {
			return true
		}
	}
	return false
}
