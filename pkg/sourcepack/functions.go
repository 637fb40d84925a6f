// SPDX-License-Identifier: MPL-2.0

package sourcepack

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// scanFile parses one *.sh library file and returns its top-level function
// declarations in source order. Nested definitions (a function declared
// inside another function's body) stay part of the outer body text and are
// not indexed separately.
func scanFile(packDir, rel string) ([]*Function, error) {
	path := filepath.Join(packDir, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read library file: %w", err)
	}

	file, err := syntax.NewParser().Parse(bytes.NewReader(data), rel)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse library file: %w", path, err)
	}

	printer := syntax.NewPrinter()

	var fns []*Function
	for _, stmt := range file.Stmts {
		decl, ok := stmt.Cmd.(*syntax.FuncDecl)
		if !ok {
			continue
		}

		name := decl.Name.Value
		if name == "" {
			continue
		}

		body, err := functionBody(printer, decl)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to print body of %q: %w", path, name, err)
		}

		fns = append(fns, &Function{
			Name:    name,
			Body:    body,
			File:    rel,
			Private: strings.HasPrefix(name, PrivatePrefix),
		})
	}

	return fns, nil
}

// functionBody renders the statements inside a function definition as text,
// without the surrounding braces. For the common `name() { ... }` form the
// block's statements are printed one per line; other body shapes (subshell
// bodies and single-statement forms) are printed as-is.
func functionBody(printer *syntax.Printer, decl *syntax.FuncDecl) (string, error) {
	stmts := []*syntax.Stmt{decl.Body}
	if block, ok := decl.Body.Cmd.(*syntax.Block); ok {
		stmts = block.Stmts
	}

	var b strings.Builder
	for i, stmt := range stmts {
		if i > 0 {
			b.WriteString("\n")
		}
		var buf bytes.Buffer
		if err := printer.Print(&buf, stmt); err != nil {
			return "", err
		}
		b.WriteString(strings.TrimRight(buf.String(), "\n"))
	}

	return b.String(), nil
}
