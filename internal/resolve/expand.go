// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"shdeps-cli/internal/registry"
	"shdeps-cli/internal/script"
)

// Analyzer runs the full extraction, resolution, and expansion pipeline
// against one Registry. It is stateless across calls: every Analyze call
// owns its working sets.
type Analyzer struct {
	reg registry.Registry
	log *log.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for analysis progress. The default
// discards everything; the CLI passes its configured logger.
func WithLogger(logger *log.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.log = logger
		}
	}
}

// New creates an Analyzer over the given registry.
func New(reg registry.Registry, opts ...Option) *Analyzer {
	a := &Analyzer{
		reg: reg,
		log: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the analysis described by req.
//
// Levels are processed as an explicit worklist rather than call-stack
// recursion: level 0 is the request's script; whenever a level yields
// inlineable definitions from approved sources, their concatenation becomes
// the next level's script. Before each descent, every name processed at the
// current level joins the ignore set, so the set of names that can still be
// "new" strictly shrinks and the loop terminates on any consistent registry.
// A depth cap guards against a registry that answers inconsistently across
// calls; hitting it is logged and stops expansion without failing the call.
//
// The caller-known function names apply to level 0 only: nested levels
// analyze synthesized definitions the caller has never seen, and restart
// from an empty known set.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	known := newNameSet(req.KnownFunctions...)
	ignore := newNameSet(req.IgnoreNames...)
	seenEver := newNameSet()

	res := &Result{}

	src := req.Script
	baseName := req.Name
	if baseName == "" {
		baseName = script.DefaultUnitName
	}

	for depth := 0; ; depth++ {
		if limit := a.depthLimit(req, seenEver); depth > 0 && depth >= limit {
			a.log.Warn("analysis depth cap reached; registry results may be inconsistent",
				"depth", depth, "limit", limit)
			break
		}

		unitName := baseName
		if depth > 0 {
			unitName = fmt.Sprintf("%s#inline-%d", baseName, depth)
		}

		unit, err := script.Parse(src, unitName)
		if err != nil {
			return nil, err
		}

		level, survived, err := a.resolveLevel(ctx, unit, known, ignore, req.ApprovedSources)
		if err != nil {
			return nil, err
		}

		top := a.inlineable(level, req.ApprovedSources)

		a.log.Debug("analysis level complete",
			"unit", unitName, "depth", depth, "resolved", len(level), "inlineable", len(top))

		res.All = append(res.All, level...)
		for _, r := range level {
			if r.Source != registry.CoreSource {
				res.NonCore = append(res.NonCore, r)
			}
		}

		switch {
		case depth == 0:
			res.TopLevelInlineable = append(res.TopLevelInlineable, top...)
			res.Inlineable = append(res.Inlineable, top...)
		case req.ExpandRecursively:
			res.Inlineable = append(res.Inlineable, top...)
		}

		if len(top) == 0 {
			break
		}

		// Everything this level touched is settled; the next level must not
		// rediscover it. Both the surviving candidate spellings and the
		// canonical resolved names go in, so alias indirection cannot
		// reintroduce a name.
		for _, name := range survived {
			ignore.add(name)
			seenEver.add(name)
		}
		for _, r := range level {
			ignore.add(r.Name)
			seenEver.add(r.Name)
		}

		known = newNameSet()
		src = strings.Join(top, "\n")
	}

	return res, nil
}

// depthLimit returns the maximum number of analysis levels for this request.
func (a *Analyzer) depthLimit(req Request, seenEver nameSet) int {
	if req.MaxDepth > 0 {
		return req.MaxDepth
	}
	// One level per distinct name ever discovered is the natural bound: a
	// level that introduces no new name yields nothing to descend into.
	return len(seenEver) + 1
}

// inlineable renders the definitions of one level that qualify for inlining:
// resolved from an approved source, with a name and a retrievable body, and
// not a shell builtin. The list is de-duplicated by name, preserving order.
func (a *Analyzer) inlineable(level []Resolution, approved []string) []string {
	var out []string
	seen := newNameSet()

	for _, r := range level {
		if r.Name == "" || r.Body == "" {
			continue
		}
		if r.Source == registry.CoreSource || !containsFold(approved, r.Source) {
			continue
		}
		if seen.has(r.Name) {
			continue
		}
		seen.add(r.Name)
		out = append(out, RenderFunction(r.Name, r.Body))
	}

	return out
}
