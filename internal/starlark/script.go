package starlark

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/linemap"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

const (
	// requestLocal is the thread-local key holding the current *lint.Request.
	requestLocal = "rulehost.request"

	// requestMemo is the scratch key of the request dict shared by all
	// scripts handling one request.
	requestMemo = "starlark.request"
)

// Script is a compiled rule script. It implements lint.Rule.
type Script struct {
	path       string
	check      starlark.Callable
	stages     []core.Stage
	stageRules map[core.Stage][]string
	pool       *ThreadPool
}

var _ lint.Rule = (*Script)(nil)

// Path returns the script's source path.
func (s *Script) Path() string { return s.path }

// Stages returns the stages declared by the script's STAGES global.
func (s *Script) Stages() []core.Stage { return s.stages }

// StageRules returns the ids declared by the script's STAGE_RULES global.
func (s *Script) StageRules() map[core.Stage][]string { return s.stageRules }

// Check calls the script's check function with the request dict and decodes
// the returned list into violations.
func (s *Script) Check(ctx context.Context, req *lint.Request) ([]core.Violation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqVal, err := requestDict(req)
	if err != nil {
		return nil, err
	}

	thread := s.pool.Get(s.path)
	defer s.pool.Put(thread)
	thread.SetLocal(requestLocal, req)

	result, err := starlark.Call(thread, s.check, starlark.Tuple{reqVal}, nil)
	if err != nil {
		return nil, newEvalError(s.path, err)
	}

	vs, err := decodeViolations(result)
	if err != nil {
		return nil, &EvalError{File: s.path, Message: err.Error()}
	}
	return vs, nil
}

// requestDict returns the dict form of req, building it on first use. The
// same mutable dict is passed to every script of the request so scripts can
// share derived tables through it.
func requestDict(req *lint.Request) (*starlark.Dict, error) {
	return lint.Memo(req.Scratch(), requestMemo, func() (*starlark.Dict, error) {
		payload, err := req.Generic()
		if err != nil {
			return nil, err
		}
		payloadVal, err := GoToStarlark(payload)
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
		enabled, _ := GoToStarlark(nonNil(req.Selection.Enabled))
		disabled, _ := GoToStarlark(nonNil(req.Selection.Disabled))
		rules := starlark.NewDict(2)
		_ = rules.SetKey(starlark.String("enabled"), enabled)
		_ = rules.SetKey(starlark.String("disabled"), disabled)

		d := starlark.NewDict(5)
		_ = d.SetKey(starlark.String("kind"), starlark.String("check"))
		_ = d.SetKey(starlark.String("stage"), starlark.String(req.Stage))
		_ = d.SetKey(starlark.String("path"), starlark.String(req.Path))
		_ = d.SetKey(starlark.String("payload"), payloadVal)
		_ = d.SetKey(starlark.String("rules"), rules)
		return d, nil
	})
}

func requestFromThread(thread *starlark.Thread) *lint.Request {
	req, _ := thread.Local(requestLocal).(*lint.Request)
	return req
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// decodeViolations converts a check result into violations. None and empty
// lists mean no violations; anything else that is not a list of dicts is an
// error.
func decodeViolations(result starlark.Value) ([]core.Violation, error) {
	if result == starlark.None {
		return nil, nil
	}
	list, ok := result.(*starlark.List)
	if !ok {
		return nil, fmt.Errorf("check returned %s, want list", result.Type())
	}

	out := make([]core.Violation, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		raw, err := ToGo(list.Index(i))
		if err != nil {
			return nil, fmt.Errorf("violation %d: %w", i, err)
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("violation %d: got %s, want dict", i, list.Index(i).Type())
		}

		v := core.Violation{Severity: core.SeverityWarning}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
			Result:     &v,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("violation %d: %w", i, err)
		}
		if v.RuleID == "" {
			return nil, fmt.Errorf("violation %d: missing rule_id", i)
		}
		if err := normalizeLocation(&v.Location); err != nil {
			return nil, fmt.Errorf("violation %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// normalizeLocation fills defaults for a violation's location. A missing
// location points at 1:1, and a missing end collapses onto the start.
// Explicit positions must be 1-based.
func normalizeLocation(loc *linemap.Location) error {
	if *loc == (linemap.Location{}) {
		*loc = linemap.Location{Line: 1, Col: 1, EndLine: 1, EndCol: 1}
		return nil
	}
	if loc.EndLine == 0 && loc.EndCol == 0 {
		loc.EndLine, loc.EndCol = loc.Line, loc.Col
	}
	if loc.Line < 1 || loc.Col < 1 || loc.EndLine < 1 || loc.EndCol < 1 {
		return fmt.Errorf("location %d:%d-%d:%d is not 1-based", loc.Line, loc.Col, loc.EndLine, loc.EndCol)
	}
	return nil
}

// EvalError represents an error raised while running a script's check.
type EvalError struct {
	File      string
	Message   string
	Backtrace string // Starlark call stack, when available
}

func newEvalError(file string, err error) *EvalError {
	e := &EvalError{File: file, Message: err.Error()}
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		e.Message = evalErr.Msg
		e.Backtrace = evalErr.Backtrace()
	}
	return e
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}
