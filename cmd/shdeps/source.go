// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"shdeps-cli/internal/discovery"
	"shdeps-cli/internal/issue"
	"shdeps-cli/pkg/sourcepack"

	"github.com/spf13/cobra"
)

// newSourceCommand creates the `shdeps source` command tree.
func newSourceCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	sourceCmd := &cobra.Command{
		Use:   "source",
		Short: "Manage source packs",
		Long: `Manage source packs.

Source packs are directories named '<name>.shpack' that hold a CUE
manifest and *.sh function libraries. Packs are discovered in the
current directory, in ~/.shdeps/sources, and at paths configured
under 'includes'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	sourceCmd.AddCommand(newSourceListCommand(app, rootFlags))
	sourceCmd.AddCommand(newSourceValidateCommand(app, rootFlags))
	sourceCmd.AddCommand(newSourceInitCommand(app))

	return sourceCmd
}

// newSourceListCommand creates the `shdeps source list` command.
func newSourceListCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered source packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd.Context(), app, rootFlags)

			disc := discovery.New(cfg)
			result := disc.DiscoverAll()
			printDiagnostics(app, result.Diagnostics, rootFlags.verbose)

			if err := disc.CheckCollisions(result.Packs); err != nil {
				renderIssue(app, cfg, issue.PackCollisionId)
				return err
			}

			approved := make(map[string]struct{}, len(cfg.ApprovedSources))
			for _, name := range cfg.ApprovedSourceNames() {
				approved[strings.ToLower(name)] = struct{}{}
			}

			fmt.Fprintln(app.stdout, TitleStyle.Render(fmt.Sprintf("Source packs (%d)", len(result.Packs))))
			if len(result.Packs) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("  (none found)"))
				fmt.Fprintf(app.stdout, "\nCreate one with: %s\n", CmdStyle.Render("shdeps source init <name>"))
				return nil
			}

			for _, pack := range result.Packs {
				marker := SubtitleStyle.Render("·")
				if _, ok := approved[strings.ToLower(pack.EffectiveName())]; ok {
					marker = SuccessStyle.Render("✓")
				}
				detail := pack.Source.String()
				if pack.Alias != "" {
					detail += fmt.Sprintf(" · alias of %s", filepath.Base(pack.Path))
				}
				if pack.Pack != nil {
					detail += fmt.Sprintf(" · %d functions", len(pack.Pack.Functions()))
				}
				if pack.Error != nil {
					marker = ErrorStyle.Render("✗")
					detail += " · failed to load"
				}
				fmt.Fprintf(app.stdout, "  %s %-20s %s\n", marker, CmdStyle.Render(pack.EffectiveName()), SubtitleStyle.Render(detail))
				if rootFlags.verbose {
					fmt.Fprintf(app.stdout, "    %s\n", VerboseStyle.Render(pack.Path))
				}
			}

			fmt.Fprintln(app.stdout)
			fmt.Fprintln(app.stdout, SubtitleStyle.Render("✓ marks packs approved for dependency resolution."))
			return nil
		},
	}
}

// newSourceValidateCommand creates the `shdeps source validate` command.
func newSourceValidateCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a source pack directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd.Context(), app, rootFlags)

			result, err := sourcepack.Validate(args[0])
			if err != nil {
				renderIssue(app, cfg, issue.PackNotFoundId)
				return err
			}

			fmt.Fprintln(app.stdout, TitleStyle.Render("Validate Source Pack"))
			fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render("Pack"), result.PackName)
			fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render("Path"), result.PackPath)
			fmt.Fprintf(app.stdout, "%s: %d\n", CmdStyle.Render("Functions"), result.FunctionCount)
			fmt.Fprintln(app.stdout)

			if result.Valid {
				fmt.Fprintf(app.stdout, "%s Pack is valid\n", SuccessStyle.Render("✓"))
				return nil
			}

			fmt.Fprintln(app.stdout, ErrorStyle.Render(fmt.Sprintf("Issues (%d)", len(result.Issues))))
			for _, iss := range result.Issues {
				location := ""
				if iss.Path != "" {
					location = SubtitleStyle.Render(" (" + iss.Path + ")")
				}
				fmt.Fprintf(app.stdout, "  %s [%s] %s%s\n", ErrorStyle.Render("✗"), iss.Type, iss.Message, location)
			}

			return &ExitError{Code: 1, Err: fmt.Errorf("pack %q failed validation", result.PackName)}
		},
	}
}

// newSourceInitCommand creates the `shdeps source init` command.
func newSourceInitCommand(app *App) *cobra.Command {
	var (
		initPath        string
		initDescription string
	)

	initCmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new source pack",
		Long: `Create a new source pack with the given name.

The pack name must start with a letter and may contain alphanumeric
characters, dots, underscores, and hyphens.

Examples:
  shdeps source init toolkit
  shdeps source init toolkit --path ~/.shdeps/sources
  shdeps source init toolkit -d "Deployment helpers"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packPath, err := sourcepack.Create(sourcepack.CreateOptions{
				Name:        args[0],
				ParentDir:   initPath,
				Description: initDescription,
			})
			if err != nil {
				return fmt.Errorf("failed to create pack: %w", err)
			}

			fmt.Fprintf(app.stdout, "%s Source pack created\n\n", SuccessStyle.Render("✓"))
			fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render("Path"), packPath)
			fmt.Fprintf(app.stdout, "%s: %s\n\n", CmdStyle.Render("Name"), args[0])
			fmt.Fprintln(app.stdout, "Next steps:")
			fmt.Fprintf(app.stdout, "  1. Add functions to %s\n", CmdStyle.Render(filepath.Join(packPath, "lib.sh")))
			fmt.Fprintf(app.stdout, "  2. Validate with %s\n", CmdStyle.Render("shdeps source validate "+packPath))
			fmt.Fprintf(app.stdout, "  3. Approve it: add %q to approved_sources in your config\n", args[0])
			return nil
		},
	}

	initCmd.Flags().StringVarP(&initPath, "path", "p", "", "parent directory for the pack (default: current directory)")
	initCmd.Flags().StringVarP(&initDescription, "description", "d", "", "description for the manifest")

	return initCmd
}
