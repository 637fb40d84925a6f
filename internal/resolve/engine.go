// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"fmt"
	"strings"

	"shdeps-cli/internal/registry"
	"shdeps-cli/internal/script"
)

// selfShadowedError marks a lookup that resolved to the tool's own source
// while that source was not approved. It is handled exactly like a lookup
// failure: a tool must not recommend itself as a dependency of the scripts
// it analyzes.
type selfShadowedError struct {
	name   string
	source string
}

// Error implements the error interface.
func (e *selfShadowedError) Error() string {
	return fmt.Sprintf("command %q resolves to %s itself, which is not an approved source", e.name, e.source)
}

// resolveLevel classifies the candidates of one analysis level. It returns
// the resolutions and the candidate names that survived the exclusion
// filters; the expander adds the latter to the next level's ignore set.
//
// Exclusion precedes resolution: names the caller knows, names declared at
// the unit's top level, and ignored names never reach the registry.
func (a *Analyzer) resolveLevel(ctx context.Context, unit *script.Unit, known, ignore nameSet, approved []string) ([]Resolution, []string, error) {
	declared := newNameSet(unit.DeclaredFunctions...)

	var resolutions []Resolution
	var survived []string

	for _, candidate := range unit.Candidates {
		if known.has(candidate) || declared.has(candidate) || ignore.has(candidate) {
			a.log.Debug("candidate excluded before lookup", "unit", unit.Name, "name", candidate)
			continue
		}
		survived = append(survived, candidate)

		res, err := a.resolveOne(ctx, candidate, approved)
		if err != nil {
			return nil, nil, err
		}
		resolutions = append(resolutions, res)
	}

	return resolutions, survived, nil
}

// resolveOne classifies a single candidate name. The returned error is only
// non-nil for context cancellation; lookup failures are recorded on the
// Resolution itself so the caller can see what is missing.
func (a *Analyzer) resolveOne(ctx context.Context, name string, approved []string) (Resolution, error) {
	cmd, err := a.reg.Lookup(ctx, name)
	if err != nil && ctx.Err() != nil {
		return Resolution{}, ctx.Err()
	}

	// A hit on our own source counts as a miss unless explicitly approved.
	// Source names compare case-insensitively, like every other name here.
	if err == nil && strings.EqualFold(cmd.Source, a.reg.OwnSource()) && !containsFold(approved, cmd.Source) {
		err = &selfShadowedError{name: name, source: cmd.Source}
		cmd = nil
	}

	isAlias := false
	if err == nil && cmd.Kind == registry.KindAlias {
		target, aliasErr := a.reg.ResolveAlias(ctx, cmd)
		if aliasErr != nil {
			if ctx.Err() != nil {
				return Resolution{}, ctx.Err()
			}
			err = aliasErr
			cmd = nil
		} else {
			// The resolution describes the target; IsAlias records how the
			// script reached it.
			cmd = target
			isAlias = true
		}
	}

	if err != nil {
		res := Resolution{Name: name, Kind: registry.KindUnknown, Err: err.Error()}

		// Fallback: a source-scoped lookup can see definitions the general
		// registry hides. First approved source with a match wins; misses
		// are swallowed per source.
		for _, source := range approved {
			found, srcErr := a.reg.LookupInSource(ctx, source, name)
			if srcErr != nil {
				if ctx.Err() != nil {
					return Resolution{}, ctx.Err()
				}
				a.log.Debug("source-scoped lookup missed", "source", source, "name", name, "err", srcErr)
				continue
			}
			a.log.Debug("resolved via source-scoped lookup", "source", source, "name", name)
			return Resolution{
				Name:      found.Name,
				Source:    found.Source,
				Kind:      found.Kind,
				IsPrivate: true,
				Body:      found.Body,
			}, nil
		}

		return res, nil
	}

	return Resolution{
		Name:    cmd.Name,
		Source:  cmd.Source,
		Kind:    cmd.Kind,
		IsAlias: isAlias,
		Body:    cmd.Body,
	}, nil
}
