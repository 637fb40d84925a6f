// SPDX-License-Identifier: MPL-2.0

// Package script extracts command-invocation candidates from shell scripts.
//
// It wraps the mvdan/sh parser and walks the resulting tree to produce, for
// one script unit, the set of top-level function declarations and the
// ordered, de-duplicated list of every command name invoked anywhere in the
// unit. This is the front half of the missing-command analysis; the resolver
// classifies the candidates afterwards.
package script

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// DefaultUnitName is the unit name used for inline snippets when the caller
// does not provide one.
const DefaultUnitName = "script"

// ParseError is returned when a script cannot be parsed. Analysis of the
// unit is impossible without a tree, so callers must treat this as fatal
// for the unit.
type ParseError struct {
	// Name is the unit name (file path or snippet label).
	Name string
	// Err is the underlying parser error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying parser error.
func (e *ParseError) Unwrap() error { return e.Err }

// Unit is the analyzed form of one script source (file or inline snippet).
// It is immutable after construction.
type Unit struct {
	// Name is the unit name used in diagnostics.
	Name string

	// DeclaredFunctions are the function names defined at the top level of
	// the unit. Functions declared inside nested blocks do not count: only
	// top-level helpers are treated as locally satisfied definitions.
	DeclaredFunctions []string

	// Candidates is every command name invoked anywhere in the unit
	// (including nested blocks and substitutions), case-insensitively
	// de-duplicated and sorted for stable downstream output.
	Candidates []string
}

// DeclaresFunction reports whether the unit declares a top-level function
// with the given name, ignoring case.
func (u *Unit) DeclaresFunction(name string) bool {
	for _, fn := range u.DeclaredFunctions {
		if strings.EqualFold(fn, name) {
			return true
		}
	}
	return false
}

// Parse parses src as a bash script and extracts its declarations and
// invocation candidates. name labels the unit in diagnostics; an empty name
// falls back to DefaultUnitName.
func Parse(src, name string) (*Unit, error) {
	if name == "" {
		name = DefaultUnitName
	}

	file, err := syntax.NewParser().Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}

	u := &Unit{Name: name}

	seenDecl := make(map[string]struct{})
	for _, stmt := range file.Stmts {
		decl, ok := stmt.Cmd.(*syntax.FuncDecl)
		if !ok || decl.Name.Value == "" {
			continue
		}
		key := strings.ToLower(decl.Name.Value)
		if _, dup := seenDecl[key]; dup {
			continue
		}
		seenDecl[key] = struct{}{}
		u.DeclaredFunctions = append(u.DeclaredFunctions, decl.Name.Value)
	}

	u.Candidates = extractCandidates(file)

	return u, nil
}

// ParseFile reads and parses a script file.
func ParseFile(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(string(data), path)
}

// span is a half-open byte-offset range within the source.
type span struct {
	start, end uint
}

// extractCandidates walks every command invocation in the tree and collects
// the invoked names. Invocations nested beneath a filter-bearing command are
// argument expressions, not dependencies, and are skipped.
func extractCandidates(file *syntax.File) []string {
	printer := syntax.NewPrinter()

	// First pass: record the source ranges of filter-bearing invocations.
	var filterSpans []span
	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok {
			return true
		}
		if isFilterBearing(callName(printer, call)) {
			filterSpans = append(filterSpans, span{
				start: call.Pos().Offset(),
				end:   call.End().Offset(),
			})
		}
		return true
	})

	// Second pass: collect candidate names, first occurrence wins.
	var ordered []string
	seen := make(map[string]struct{})
	record := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || isReservedWord(name) || isOperatorToken(name) {
			return
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			ordered = append(ordered, name)
		}
	}
	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok {
			return true
		}
		if insideFilterSpan(call, filterSpans) {
			return true
		}

		name := strings.TrimSpace(callName(printer, call))
		record(name)

		// Wrappers like sudo and env invoke the command named by their
		// operand; that name is a dependency of the script too.
		if isWrapperCommand(name) {
			for _, wrapped := range wrappedNames(call) {
				record(wrapped)
			}
		}
		return true
	})

	slices.SortStableFunc(ordered, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	return ordered
}

// callName extracts the invoked name from a command node. When the command
// word is not a plain literal (dynamic invocation), it falls back to the
// quoted literal value if there is one, and finally to the raw source text
// of the command word.
func callName(printer *syntax.Printer, call *syntax.CallExpr) string {
	if len(call.Args) == 0 {
		// Bare assignments (FOO=bar) parse as calls without arguments.
		return ""
	}

	word := call.Args[0]
	if lit := word.Lit(); lit != "" {
		return lit
	}
	if lit := quotedLiteral(word); lit != "" {
		return lit
	}
	return rawText(printer, word)
}

// wrappedNames walks the argument list of a wrapper invocation and returns
// the command names it runs. Flag words and VAR=value assignments are
// skipped; a chained wrapper (sudo env ... cmd) contributes its own name and
// the scan continues to its operand. The scan stops at the first
// non-wrapper name, or early when a word has no static literal value — a
// dynamic operand cannot be resolved by name.
func wrappedNames(call *syntax.CallExpr) []string {
	var names []string
	for _, word := range call.Args[1:] {
		lit := word.Lit()
		if lit == "" {
			lit = quotedLiteral(word)
		}
		if lit == "" {
			break
		}
		if strings.HasPrefix(lit, "-") || strings.Contains(lit, "=") {
			continue
		}
		names = append(names, lit)
		if !isWrapperCommand(lit) {
			break
		}
	}
	return names
}

// quotedLiteral returns the constant value of a single- or double-quoted
// word composed entirely of literal parts, or "" if the word is dynamic.
func quotedLiteral(word *syntax.Word) string {
	if len(word.Parts) != 1 {
		return ""
	}

	switch part := word.Parts[0].(type) {
	case *syntax.SglQuoted:
		if !part.Dollar {
			return part.Value
		}
	case *syntax.DblQuoted:
		var b strings.Builder
		for _, p := range part.Parts {
			lit, ok := p.(*syntax.Lit)
			if !ok {
				return ""
			}
			b.WriteString(lit.Value)
		}
		return b.String()
	}

	return ""
}

// rawText renders a word back to its source form.
func rawText(printer *syntax.Printer, word *syntax.Word) string {
	var buf bytes.Buffer
	if err := printer.Print(&buf, word); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}

// insideFilterSpan reports whether the call lies strictly inside one of the
// recorded filter-bearing invocations. The filter-bearing call itself starts
// at the span start and is not suppressed.
func insideFilterSpan(call *syntax.CallExpr, spans []span) bool {
	pos := call.Pos().Offset()
	end := call.End().Offset()
	for _, s := range spans {
		if pos > s.start && end <= s.end {
			return true
		}
	}
	return false
}
