// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"shdeps-cli/internal/config"
	"shdeps-cli/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	verbose    bool
	configPath string
}

// newRootCommand assembles the full command tree around the given App.
func newRootCommand(app *App) (*cobra.Command, *rootFlagValues) {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "shdeps",
		Short: "Resolve missing command dependencies in shell scripts",
		Long: TitleStyle.Render("shdeps") + SubtitleStyle.Render(" - Resolve missing command dependencies in shell scripts") + `

shdeps parses a shell script, finds every command it invokes, and
classifies each one: shell builtin, locally defined function, alias,
or missing. Missing commands are matched against approved source
packs, and matching definitions are rendered as inlineable shell
functions. Inlined definitions are re-analyzed recursively, so the
output is self-contained.

Source packs are directories named '<name>.shpack' holding a CUE
manifest and *.sh function libraries.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create a source pack with: shdeps source init <name>
  2. Approve it in your config or pass --source <name>
  3. Analyze a script: shdeps analyze myscript.sh

` + SubtitleStyle.Render("Examples:") + `
  shdeps analyze deploy.sh           Analyze a script file
  cat deploy.sh | shdeps analyze -   Analyze from stdin
  shdeps analyze -c 'frobnicate x'   Analyze an inline snippet
  shdeps source list                 List discovered source packs
  shdeps config show                 Show current configuration`,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/shdeps/config.cue)")

	rootCmd.AddCommand(newAnalyzeCommand(app, flags))
	rootCmd.AddCommand(newSourceCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))
	rootCmd.AddCommand(newCompletionCommand())

	return rootCmd, flags
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the production App and runs the CLI. This is called by
// main.main(). Exit codes carried by ExitError are propagated to the shell.
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd, _ := newRootCommand(app)

	// fang overrides rootCmd.Version, so the version string goes through
	// fang.WithVersion instead.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// loadConfig loads the configuration honoring the --config flag. Load
// failures are surfaced as a warning and the defaults are used, so a broken
// config file never blocks commands that barely need it.
func loadConfig(ctx context.Context, app *App, flags *rootFlagValues) *config.Config {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		fmt.Fprintln(app.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, flags.verbose))
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.UI.Verbose {
		flags.verbose = true
	}
	return cfg
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
