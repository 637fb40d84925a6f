// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions selects where analyzer configuration is read from. The zero
// value means the standard lookup: the platform config dir, then the working
// directory, then built-in defaults.
type LoadOptions struct {
	// ConfigFilePath forces loading from one specific config.cue file. The
	// file must exist; there is no fallback when it is set.
	ConfigFilePath string
	// ConfigDirPath overrides the platform config directory lookup.
	ConfigDirPath string
}

// Provider resolves analyzer configuration for a CLI invocation. The command
// layer depends on this interface rather than on file loading directly.
type Provider interface {
	// Load returns the effective configuration.
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
	// Resolve additionally reports the path of the config file that
	// satisfied the load. The path is empty when built-in defaults were
	// used.
	Resolve(ctx context.Context, opts LoadOptions) (*Config, string, error)
}

// cueFileProvider loads CUE configuration files from disk.
type cueFileProvider struct{}

// NewProvider returns the file-backed configuration provider.
func NewProvider() Provider {
	return &cueFileProvider{}
}

func (p *cueFileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := p.Resolve(ctx, opts)
	return cfg, err
}

func (p *cueFileProvider) Resolve(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}
