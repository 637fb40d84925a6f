// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"shdeps-cli/internal/config"
	"shdeps-cli/internal/watch"

	"github.com/spf13/cobra"
)

// runAnalyzeWatch runs the analysis once, then re-runs it whenever the
// script, a shell library under its directory, or a discovered pack
// location changes. It blocks until the context is cancelled (e.g., Ctrl+C).
func runAnalyzeWatch(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *analyzeFlagValues, cfg *config.Config, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve script path %q: %w", path, err)
	}
	baseDir := filepath.Dir(absPath)

	analyzeOnce := func(ctx context.Context) error {
		data, readErr := os.ReadFile(absPath)
		if readErr != nil {
			return fmt.Errorf("failed to read script: %w", readErr)
		}
		result, analyzeErr := runAnalysis(ctx, app, cfg, rootFlags, flags, string(data), path)
		if analyzeErr != nil {
			return analyzeErr
		}
		return renderResult(app, cfg, flags, result)
	}

	fmt.Fprintf(app.stdout, "%s Watch mode: analyzing '%s'\n\n", VerboseHighlightStyle.Render("→"), path)
	if execErr := analyzeOnce(cmd.Context()); execErr != nil {
		// Keep watching: the user may fix the script and save again.
		fmt.Fprintf(app.stderr, "%s Analysis failed: %v\n", WarningStyle.Render("!"), execErr)
	}
	fmt.Fprintf(app.stdout, "\n%s Watching for changes (Ctrl+C to stop)...\n\n", VerboseHighlightStyle.Render("→"))

	// Script edits and pack edits both invalidate the result, so the pack
	// search locations are watched alongside the script's directory: the
	// user sources dir plus every configured include path. Roots that do
	// not exist are skipped by the watcher.
	roots := []string{baseDir}
	if sourcesDir, dirErr := config.SourcesDir(); dirErr == nil {
		roots = append(roots, sourcesDir)
	}
	for _, inc := range cfg.Includes {
		roots = append(roots, string(inc.Path))
	}

	w, err := watch.New(watch.Config{
		Roots: roots,
		Patterns: append([]string{
			filepath.Base(absPath),
		}, watch.DefaultPatterns()...),
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stdout, "%s Detected %d change(s). Re-analyzing '%s'...\n\n",
				VerboseHighlightStyle.Render("→"), len(changed), path)
			if execErr := analyzeOnce(ctx); execErr != nil {
				fmt.Fprintf(app.stderr, "%s Analysis failed: %v\n", WarningStyle.Render("!"), execErr)
			}
			fmt.Fprintf(app.stdout, "\n%s Watching for changes...\n\n", VerboseHighlightStyle.Render("→"))
			return nil
		},
		Stdout: app.stdout,
		Stderr: app.stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	return w.Run(cmd.Context())
}
