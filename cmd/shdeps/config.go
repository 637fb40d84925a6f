// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"shdeps-cli/internal/config"
	"shdeps-cli/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `shdeps config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage shdeps configuration",
		Long: `Manage shdeps configuration.

Configuration is stored in:
  - Linux: ~/.config/shdeps/config.cue
  - macOS: ~/Library/Application Support/shdeps/config.cue
  - Windows: %APPDATA%\shdeps\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), app, rootFlags, args[0], args[1])
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: rootFlags.configPath})
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, rootFlags *rootFlagValues) error {
	cfg, cfgPath, err := app.Config.Resolve(ctx, config.LoadOptions{ConfigFilePath: rootFlags.configPath})
	if err != nil {
		renderIssue(app, config.DefaultConfig(), issue.ConfigLoadFailedId)
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)

	if cfgPath != "" {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), cfgPath)
	} else {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(app.stdout)

	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("includes"))
	if len(cfg.Includes) == 0 {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		for _, inc := range cfg.Includes {
			if inc.Alias != "" {
				fmt.Fprintf(app.stdout, "  - %s (alias: %s)\n", valueStyle.Render(inc.Path.String()), valueStyle.Render(inc.Alias))
			} else {
				fmt.Fprintf(app.stdout, "  - %s\n", valueStyle.Render(inc.Path.String()))
			}
		}
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("approved_sources"))
	if len(cfg.ApprovedSources) == 0 {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		for _, name := range cfg.ApprovedSourceNames() {
			fmt.Fprintf(app.stdout, "  - %s\n", valueStyle.Render(name))
		}
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("registry"))
	fmt.Fprintf(app.stdout, "  scan_path: %s\n", valueStyle.Render(strconv.FormatBool(cfg.Registry.ScanPath)))
	if cfg.Registry.AliasFile != "" {
		fmt.Fprintf(app.stdout, "  alias_file: %s\n", valueStyle.Render(string(cfg.Registry.AliasFile)))
	} else {
		fmt.Fprintf(app.stdout, "  alias_file: %s\n", SubtitleStyle.Render("(not set)"))
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("analysis"))
	fmt.Fprintf(app.stdout, "  max_depth: %s\n", valueStyle.Render(strconv.Itoa(cfg.Analysis.MaxDepth)))
	fmt.Fprintf(app.stdout, "  recursive: %s\n", valueStyle.Render(strconv.FormatBool(cfg.Analysis.Recursive)))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(app.stdout, "  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))
	fmt.Fprintf(app.stdout, "  verbose: %s\n", valueStyle.Render(strconv.FormatBool(cfg.UI.Verbose)))

	return nil
}

func initConfig(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err = config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), filepath.Join(cfgDir, "config.cue"))

	// Also create the user sources directory so `source init --path` has a
	// natural destination.
	if err := config.EnsureSourcesDir(); err == nil {
		if sourcesDir, dirErr := config.SourcesDir(); dirErr == nil {
			fmt.Fprintf(app.stdout, "%s Created sources directory at %s\n", SuccessStyle.Render("✓"), sourcesDir)
		}
	}

	return nil
}

func showConfigPath(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, "config.cue"))

	if sourcesDir, err := config.SourcesDir(); err == nil {
		fmt.Fprintf(app.stdout, "Sources directory: %s\n", sourcesDir)
	}

	return nil
}

func setConfigValue(ctx context.Context, app *App, rootFlags *rootFlagValues, key, value string) error {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: rootFlags.configPath})
	if err != nil {
		return err
	}

	switch key {
	case "registry.scan_path":
		cfg.Registry.ScanPath = value == "true" || value == "1"

	case "registry.alias_file":
		cfg.Registry.AliasFile = config.AliasFilePath(value)

	case "analysis.max_depth":
		depth, parseErr := strconv.Atoi(value)
		if parseErr != nil || depth < 0 {
			return fmt.Errorf("invalid analysis.max_depth: must be a non-negative integer")
		}
		cfg.Analysis.MaxDepth = depth

	case "analysis.recursive":
		cfg.Analysis.Recursive = value == "true" || value == "1"

	case "ui.verbose":
		cfg.UI.Verbose = value == "true" || value == "1"

	case "ui.color_scheme":
		scheme := config.ColorScheme(value)
		if valid, _ := scheme.IsValid(); !valid {
			return fmt.Errorf("invalid ui.color_scheme: must be 'auto', 'dark', or 'light'")
		}
		cfg.UI.ColorScheme = scheme

	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: registry.scan_path, registry.alias_file, analysis.max_depth, analysis.recursive, ui.verbose, ui.color_scheme", key)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(app.stdout, "%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}
