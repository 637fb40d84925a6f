// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/shdeps/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/shdeps/config.cue on macOS, %APPDATA%\shdeps\config.cue
// on Windows). The package provides type-safe configuration access and supports source
// pack includes, inline approval lists, registry lookup options, and analysis settings.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
