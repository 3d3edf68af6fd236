package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/rulehost/internal/starlark"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// ScriptExt is the file extension of rule scripts.
const ScriptExt = ".star"

// Loader resolves script specs into a Registry.
type Loader struct {
	// BaseDir resolves relative script paths. Empty means the working directory.
	BaseDir string

	// Parallelism bounds concurrent script compilation. Zero or less means one
	// source at a time.
	Parallelism int

	// Pool supplies Starlark threads to loaded scripts. A default pool is
	// created when nil.
	Pool *starlark.ThreadPool

	Logger *slog.Logger
}

// LoadError reports the rule source that failed to load.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load validates and compiles every spec and returns a registry holding them
// in input order. Any failure fails the whole load.
func (l *Loader) Load(ctx context.Context, specs []ScriptSpec) (*Registry, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool := l.Pool
	if pool == nil {
		pool = starlark.NewThreadPool(0, logger)
	}

	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, &LoadError{Source: spec.Path, Err: err}
		}
	}

	defs := make([]*Definition, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.Parallelism, 1))

	for i, spec := range specs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			def, err := l.resolve(spec, pool)
			if err != nil {
				return &LoadError{Source: spec.Path, Err: err}
			}
			defs[i] = def
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, d := range defs {
		logger.Debug("rule source loaded",
			"source", d.Source,
			"stages", d.Stages,
			"stage_rules", len(d.StageRules),
		)
	}
	return New(defs...), nil
}

func (l *Loader) resolve(spec ScriptSpec, pool *starlark.ThreadPool) (*Definition, error) {
	def := &Definition{Source: spec.Path}

	if spec.IsBuiltin() {
		name := strings.TrimPrefix(spec.Path, BuiltinPrefix)
		b, ok := lint.LookupBuiltin(name)
		if !ok {
			return nil, fmt.Errorf("unknown builtin rule source %q", name)
		}
		def.Rule = b.New()
		def.Stages = b.Stages
		def.StageRules = b.StageRules
	} else {
		if filepath.Ext(spec.Path) != ScriptExt {
			return nil, fmt.Errorf("unsupported rule source, want %s script or %s<name>", ScriptExt, BuiltinPrefix)
		}
		path := spec.Path
		if !filepath.IsAbs(path) && l.BaseDir != "" {
			path = filepath.Join(l.BaseDir, path)
		}
		script, err := starlark.LoadScript(path, pool)
		if err != nil {
			return nil, err
		}
		def.Rule = script
		def.Stages = script.Stages()
		def.StageRules = script.StageRules()
	}

	// Declarations in the init message override the source's own.
	if len(spec.Stages) > 0 {
		def.Stages = spec.Stages
	}
	if len(spec.StageRules) > 0 {
		def.StageRules = spec.StageRules
	}
	return def, nil
}
