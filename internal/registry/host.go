// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"shdeps-cli/pkg/sourcepack"
)

// DefaultOwnSource is the source name under which shdeps' own bundled
// helpers would appear. See Registry.OwnSource.
const DefaultOwnSource = "shdeps"

// Host is the production Registry backed by the analyzing machine: shell
// builtins, the user alias table, loaded source packs, and $PATH.
//
// Lookup precedence mirrors how an interactive shell resolves a name:
// aliases shadow builtins, builtins shadow functions, functions shadow
// binaries on $PATH.
type Host struct {
	packs     []*sourcepack.Pack
	packNames map[string]string
	aliases   map[string]string
	builtins  map[string]struct{}
	scanPath  bool
	lookPath  func(string) (string, error)
	ownSource string
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithAliases installs the user alias table (alias name, lower-cased, to
// expansion text).
func WithAliases(aliases map[string]string) HostOption {
	return func(h *Host) {
		if aliases != nil {
			h.aliases = aliases
		}
	}
}

// WithPathScan controls whether $PATH binaries are consulted. Disabling it
// restricts the registry to builtins, aliases, and source packs, which makes
// analysis output independent of the analyzing machine's installed software.
func WithPathScan(enabled bool) HostOption {
	return func(h *Host) { h.scanPath = enabled }
}

// WithLookPath overrides the binary lookup function. Tests use this to avoid
// depending on the real $PATH.
func WithLookPath(fn func(string) (string, error)) HostOption {
	return func(h *Host) {
		if fn != nil {
			h.lookPath = fn
		}
	}
}

// WithPackNames overrides the source name of individual packs, keyed by
// pack path. Discovery uses this to apply configured aliases when two packs
// share a short name.
func WithPackNames(names map[string]string) HostOption {
	return func(h *Host) {
		if names != nil {
			h.packNames = names
		}
	}
}

// WithOwnSource overrides the source name reported by OwnSource.
func WithOwnSource(name string) HostOption {
	return func(h *Host) {
		if name != "" {
			h.ownSource = name
		}
	}
}

// NewHost creates a Host over the given source packs. Pack order matters:
// when two packs export the same function name, the earlier pack wins.
func NewHost(packs []*sourcepack.Pack, opts ...HostOption) *Host {
	h := &Host{
		packs:     packs,
		packNames: map[string]string{},
		aliases:   map[string]string{},
		builtins:  builtinSet(),
		scanPath:  true,
		lookPath:  exec.LookPath,
		ownSource: DefaultOwnSource,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Lookup implements Registry.
func (h *Host) Lookup(ctx context.Context, name string) (*Command, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	folded := strings.ToLower(name)

	if expansion, ok := h.aliases[folded]; ok {
		return &Command{
			Name:        name,
			Source:      AliasSource,
			Kind:        KindAlias,
			AliasTarget: aliasTarget(expansion),
		}, nil
	}

	if _, ok := h.builtins[folded]; ok {
		return &Command{
			Name:   folded,
			Source: CoreSource,
			Kind:   KindCommand,
		}, nil
	}

	for _, pack := range h.packs {
		if fn, ok := pack.Function(name, false); ok {
			return &Command{
				Name:   fn.Name,
				Source: h.packName(pack),
				Kind:   KindFunction,
				Body:   fn.Body,
			}, nil
		}
	}

	if h.scanPath {
		if path, err := h.lookPath(name); err == nil {
			return &Command{
				Name:   name,
				Source: filepath.Dir(path),
				Kind:   KindCommand,
			}, nil
		}
	}

	return nil, &NotFoundError{Name: name}
}

// ResolveAlias implements Registry. Alias chains (an alias whose target is
// itself an alias) are followed to the final command; cycles are an error.
func (h *Host) ResolveAlias(ctx context.Context, alias *Command) (*Command, error) {
	if alias == nil || alias.Kind != KindAlias {
		return nil, fmt.Errorf("cannot resolve alias: entry is not an alias")
	}

	seen := map[string]struct{}{strings.ToLower(alias.Name): {}}
	target := alias.AliasTarget

	for {
		if target == "" {
			return nil, &NotFoundError{Name: alias.Name, Source: AliasSource}
		}

		folded := strings.ToLower(target)
		if _, cycle := seen[folded]; cycle {
			return nil, fmt.Errorf("alias cycle detected at %q", target)
		}
		seen[folded] = struct{}{}

		cmd, err := h.Lookup(ctx, target)
		if err != nil {
			return nil, err
		}
		if cmd.Kind != KindAlias {
			return cmd, nil
		}
		target = cmd.AliasTarget
	}
}

// LookupInSource implements Registry. Only source packs can be scoped to;
// the lookup sees private functions the general Lookup hides.
func (h *Host) LookupInSource(ctx context.Context, source, name string) (*Command, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, pack := range h.packs {
		if !strings.EqualFold(h.packName(pack), source) {
			continue
		}
		if fn, ok := pack.Function(name, true); ok {
			return &Command{
				Name:   fn.Name,
				Source: h.packName(pack),
				Kind:   KindFunction,
				Body:   fn.Body,
			}, nil
		}
		return nil, &NotFoundError{Name: name, Source: source}
	}

	return nil, &NotFoundError{Name: name, Source: source}
}

// packName returns the effective source name for a pack, honoring any
// configured override.
func (h *Host) packName(p *sourcepack.Pack) string {
	if name, ok := h.packNames[p.Path]; ok && name != "" {
		return name
	}
	return p.Name()
}

// OwnSource implements Registry.
func (h *Host) OwnSource() string { return h.ownSource }
