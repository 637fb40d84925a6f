// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"shdeps-cli/internal/config"
	"shdeps-cli/internal/discovery"
	"shdeps-cli/internal/issue"
	"shdeps-cli/internal/registry"
	"shdeps-cli/internal/resolve"
	"shdeps-cli/internal/script"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// analyzeFlagValues holds the flags of the `shdeps analyze` command.
type analyzeFlagValues struct {
	command    string
	known      []string
	ignore     []string
	sources    []string
	recurse    bool
	maxDepth   int
	summary    bool
	jsonOut    bool
	watch      bool
	aliasFile  string
	noPathScan bool
}

// newAnalyzeCommand creates the `shdeps analyze` command.
func newAnalyzeCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &analyzeFlagValues{}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [script]",
		Short: "Analyze a script's command dependencies",
		Long: `Analyze a shell script and report every command it depends on.

The script is read from a file path, from stdin when the path is '-',
or from the --command flag for inline snippets. Each invoked command
is classified (builtin, function, alias, external, missing) and missing
commands found in approved source packs are rendered as inlineable
function definitions. Inlined definitions are re-analyzed recursively
so their own dependencies are reported too.

By default the inlineable definitions are printed, ready to paste into
the script. --summary prints the classification of every non-builtin
command instead, and --json emits the complete result.`,
		Example: `  shdeps analyze deploy.sh
  cat deploy.sh | shdeps analyze -
  shdeps analyze -c 'deploy_widget --fast'
  shdeps analyze --source toolkit --summary deploy.sh
  shdeps analyze --watch deploy.sh`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, app, rootFlags, flags, args)
		},
	}

	af := analyzeCmd.Flags()
	af.StringVarP(&flags.command, "command", "c", "", "analyze an inline snippet instead of a file")
	af.StringSliceVar(&flags.known, "known", nil, "function names to treat as already defined")
	af.StringSliceVar(&flags.ignore, "ignore", nil, "command names to exclude from the analysis")
	af.StringSliceVar(&flags.sources, "source", nil, "approved source pack name (repeatable; overrides config)")
	af.BoolVar(&flags.recurse, "recurse", false, "include recursively discovered definitions in the inlineable output")
	af.IntVar(&flags.maxDepth, "max-depth", 0, "cap the number of analysis levels (0 = automatic)")
	af.BoolVar(&flags.summary, "summary", false, "print the classification of non-builtin commands instead of inlineable text")
	af.BoolVar(&flags.jsonOut, "json", false, "emit the full result as JSON")
	af.BoolVar(&flags.watch, "watch", false, "re-run the analysis when the script or source packs change")
	af.StringVar(&flags.aliasFile, "alias-file", "", "alias table file (TOML; overrides config)")
	af.BoolVar(&flags.noPathScan, "no-path-scan", false, "do not consult $PATH when classifying commands")

	return analyzeCmd
}

func runAnalyze(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *analyzeFlagValues, args []string) error {
	if flags.command != "" && len(args) > 0 {
		return fmt.Errorf("--command and a script argument cannot be used together")
	}
	if flags.command == "" && len(args) == 0 {
		return fmt.Errorf("no script given: pass a file path, '-' for stdin, or --command")
	}
	if flags.summary && flags.jsonOut {
		return fmt.Errorf("--summary and --json cannot be used together")
	}

	cfg := loadConfig(cmd.Context(), app, rootFlags)

	if flags.watch {
		// Watch mode needs a real file to watch; stdin and inline snippets
		// have no filesystem identity.
		if flags.command != "" || args[0] == "-" {
			return fmt.Errorf("--watch requires a script file path")
		}
		return runAnalyzeWatch(cmd, app, rootFlags, flags, cfg, args[0])
	}

	src, name, err := readScriptSource(cmd, app, cfg, flags, args)
	if err != nil {
		return err
	}

	result, err := runAnalysis(cmd.Context(), app, cfg, rootFlags, flags, src, name)
	if err != nil {
		return err
	}

	return renderResult(app, cfg, flags, result)
}

// readScriptSource obtains the script text and its diagnostic name from the
// inline flag, stdin, or a file path.
func readScriptSource(cmd *cobra.Command, app *App, cfg *config.Config, flags *analyzeFlagValues, args []string) (string, string, error) {
	if flags.command != "" {
		return flags.command, script.DefaultUnitName, nil
	}

	if args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("failed to read script from stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			renderIssue(app, cfg, issue.ScriptNotFoundId)
		}
		return "", "", issue.NewErrorContext().
			WithOperation("read script").
			WithResource(path).
			WithSuggestion("Check the path, or pass '-' to read from stdin").
			Wrap(err).
			BuildError()
	}
	return string(data), path, nil
}

// runAnalysis wires discovery, the registry, and the resolver together and
// performs one analysis pass.
func runAnalysis(ctx context.Context, app *App, cfg *config.Config, rootFlags *rootFlagValues, flags *analyzeFlagValues, src, name string) (*resolve.Result, error) {
	disc := discovery.New(cfg)
	discovered, diags, err := disc.Packs()
	if err != nil {
		var collision *discovery.PackCollisionError
		if errors.As(err, &collision) {
			renderIssue(app, cfg, issue.PackCollisionId)
		}
		return nil, err
	}
	printDiagnostics(app, diags, rootFlags.verbose)

	approved := flags.sources
	if len(approved) == 0 {
		approved = cfg.ApprovedSourceNames()
	}
	warnUnknownSources(app, discovered, approved)

	packs, packNames := discovery.RegistryInputs(discovered)
	opts := []registry.HostOption{
		registry.WithPackNames(packNames),
		registry.WithPathScan(cfg.Registry.ScanPath && !flags.noPathScan),
	}

	aliasPath := flags.aliasFile
	if aliasPath == "" {
		aliasPath = string(cfg.Registry.AliasFile)
	}
	if aliasPath != "" {
		aliases, aliasErr := registry.LoadAliasFile(aliasPath)
		if aliasErr != nil {
			renderIssue(app, cfg, issue.AliasFileParseErrorId)
			return nil, aliasErr
		}
		opts = append(opts, registry.WithAliases(aliases))
	}

	analyzerOpts := []resolve.Option{}
	if rootFlags.verbose {
		logger := log.NewWithOptions(app.stderr, log.Options{
			Prefix: "analyze",
			Level:  log.DebugLevel,
		})
		analyzerOpts = append(analyzerOpts, resolve.WithLogger(logger))
	}

	analyzer := resolve.New(registry.NewHost(packs, opts...), analyzerOpts...)

	maxDepth := flags.maxDepth
	if maxDepth == 0 {
		maxDepth = cfg.Analysis.MaxDepth
	}

	result, err := analyzer.Analyze(ctx, resolve.Request{
		Script:            src,
		Name:              name,
		KnownFunctions:    flags.known,
		ApprovedSources:   approved,
		IgnoreNames:       flags.ignore,
		ExpandRecursively: flags.recurse || cfg.Analysis.Recursive,
		MaxDepth:          maxDepth,
	})
	if err != nil {
		var parseErr *script.ParseError
		if errors.As(err, &parseErr) {
			renderIssue(app, cfg, issue.ScriptParseErrorId)
		}
		return nil, err
	}
	return result, nil
}

// renderResult writes the analysis result in one of the three output shapes:
// JSON with the full result, a styled classification summary, or (default)
// the top-level inlineable definitions, ready to paste into the script.
func renderResult(app *App, cfg *config.Config, flags *analyzeFlagValues, result *resolve.Result) error {
	switch {
	case flags.jsonOut:
		enc := json.NewEncoder(app.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)

	case flags.summary:
		renderSummary(app, result)
		return nil

	default:
		if len(result.TopLevelInlineable) > 0 {
			fmt.Fprintln(app.stdout, strings.Join(result.TopLevelInlineable, "\n"))
		}
		return nil
	}
}

// renderSummary prints the non-builtin resolutions as a styled listing.
func renderSummary(app *App, result *resolve.Result) {
	if len(result.NonCore) == 0 {
		fmt.Fprintln(app.stdout, SuccessStyle.Render("✓")+" No missing commands")
		return
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render(fmt.Sprintf("Commands (%d)", len(result.NonCore))))
	for _, r := range result.NonCore {
		fmt.Fprintln(app.stdout, formatResolution(r))
	}
}

// formatResolution renders one classified command as a summary line. The
// listing is a projection of the full record: a retrieved body is shown as
// its line count here, with the text itself available through --json.
func formatResolution(r resolve.Resolution) string {
	if r.Err != "" {
		return fmt.Sprintf("  %s %-20s %s", ErrorStyle.Render("✗"), CmdStyle.Render(r.Name), SubtitleStyle.Render("missing: "+r.Err))
	}

	detail := r.Kind.String()
	if r.Source != "" {
		detail += " · " + r.Source
	}
	if r.IsAlias {
		detail += " (via alias)"
	}
	if r.IsPrivate {
		detail += " (private)"
	}
	if r.Body != "" {
		lines := strings.Count(strings.TrimRight(r.Body, "\n"), "\n") + 1
		if lines == 1 {
			detail += " · 1-line body"
		} else {
			detail += fmt.Sprintf(" · %d-line body", lines)
		}
	}
	return fmt.Sprintf("  %s %-20s %s", SuccessStyle.Render("✓"), CmdStyle.Render(r.Name), SubtitleStyle.Render(detail))
}

// printDiagnostics renders discovery diagnostics. Warnings are only shown in
// verbose mode; error diagnostics are always shown.
func printDiagnostics(app *App, diags []discovery.Diagnostic, verbose bool) {
	for _, d := range diags {
		switch d.Severity {
		case discovery.SeverityError:
			fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+d.Message)
		case discovery.SeverityWarning:
			if verbose {
				fmt.Fprintln(app.stderr, WarningStyle.Render("Warning: ")+d.Message)
			}
		}
	}
}

// warnUnknownSources flags approved source names that match no discovered
// pack. The analysis still runs; those sources simply contribute nothing.
func warnUnknownSources(app *App, discovered []*discovery.DiscoveredPack, approved []string) {
	names := make(map[string]struct{}, len(discovered))
	for _, p := range discovered {
		names[strings.ToLower(p.EffectiveName())] = struct{}{}
	}
	for _, source := range approved {
		if _, ok := names[strings.ToLower(source)]; !ok {
			fmt.Fprintln(app.stderr, WarningStyle.Render("Warning: ")+
				fmt.Sprintf("approved source %q matches no discovered pack", source))
		}
	}
}

// renderIssue writes a rendered issue card to stderr, best effort.
func renderIssue(app *App, cfg *config.Config, id issue.Id) {
	target := issue.Get(id)
	if target == nil {
		return
	}
	rendered, err := target.Render(glamourStyle(cfg))
	if err != nil {
		return
	}
	fmt.Fprint(app.stderr, rendered)
}

// glamourStyle maps the configured color scheme to a glamour style name.
func glamourStyle(cfg *config.Config) string {
	switch cfg.UI.ColorScheme {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	default:
		return "auto"
	}
}
