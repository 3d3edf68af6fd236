package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/rulehost/internal/registry"
	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// Policy decides what a rule failure does to the request.
type Policy string

const (
	// PolicyAbort stops the request at the first failing rule and ends the session.
	PolicyAbort Policy = "abort"
	// PolicyIsolate records the failure and keeps running the remaining rules.
	PolicyIsolate Policy = "isolate"
)

// ParsePolicy parses a policy name. Empty means PolicyAbort.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicyIsolate:
		return PolicyIsolate, nil
	default:
		return "", fmt.Errorf("unknown rule error policy %q (want %s or %s)", s, PolicyAbort, PolicyIsolate)
	}
}

// RuleError is a failure raised by one rule source's check.
type RuleError struct {
	Source string
	Err    error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Source, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Result is the outcome of dispatching one request.
type Result struct {
	Stage      core.Stage
	Violations []core.Violation

	// RuleErrors lists isolated failures; always empty under PolicyAbort.
	RuleErrors []*RuleError
}

// Dispatcher runs the eligible rules of a registry against requests.
type Dispatcher struct {
	registry *registry.Registry
	policy   Policy
	logger   *slog.Logger
	metrics  *Metrics
}

// NewDispatcher creates a dispatcher. A nil logger discards output and a nil
// metrics set records nothing.
func NewDispatcher(reg *registry.Registry, policy Policy, logger *slog.Logger, metrics *Metrics) *Dispatcher {
	if reg == nil {
		reg = registry.New()
	}
	if policy == "" {
		policy = PolicyAbort
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		registry: reg,
		policy:   policy,
		logger:   logger,
		metrics:  metrics,
	}
}

// Registry returns the dispatcher's registry.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// Dispatch invokes every eligible rule in registration order and
// concatenates their violations. Under PolicyAbort the first rule failure is
// returned as a *RuleError and no partial result is produced.
func (d *Dispatcher) Dispatch(ctx context.Context, req *lint.Request) (*Result, error) {
	defs := d.registry.Select(req.Stage, req.Selection)
	d.logger.Debug("dispatching request",
		"stage", req.Stage,
		"path", req.Path,
		"eligible", len(defs),
	)

	var agg Aggregator
	res := &Result{Stage: req.Stage}

	for _, def := range defs {
		vs, err := d.invoke(ctx, def, req)
		if err != nil {
			var rerr *RuleError
			if !errors.As(err, &rerr) {
				rerr = &RuleError{Source: def.Source, Err: err}
			}
			if d.policy != PolicyIsolate {
				return nil, rerr
			}
			d.logger.Warn("rule failed, continuing", "source", rerr.Source, "error", rerr.Err)
			res.RuleErrors = append(res.RuleErrors, rerr)
			continue
		}
		agg.Add(vs)
	}

	res.Violations = agg.Violations()
	d.metrics.observeRequest(req.Stage, agg.Len())
	return res, nil
}

// invoke runs one rule behind a recover boundary.
func (d *Dispatcher) invoke(ctx context.Context, def *registry.Definition, req *lint.Request) (vs []core.Violation, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			vs = nil
			err = &RuleError{Source: def.Source, Err: fmt.Errorf("panic: %v", r)}
		}
		d.metrics.observeRule(def.Source, time.Since(start), err != nil)
	}()

	vs, err = def.Rule.Check(ctx, req)
	if err != nil {
		return nil, &RuleError{Source: def.Source, Err: err}
	}
	return vs, nil
}
