// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"os"

	"shdeps-cli/internal/config"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: Cobra command handlers receive an App reference
	// and reach configuration and output streams through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp. Tests supply
	// buffers and fake providers to isolate command behavior.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp builds an App, filling nil dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}
