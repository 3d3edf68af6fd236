package starlark

import (
	"fmt"
	"os"
	"path/filepath"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/rulehost/pkg/core"
)

// Globals a script may define.
const (
	checkGlobal      = "check"
	stagesGlobal     = "STAGES"
	stageRulesGlobal = "STAGE_RULES"
)

// LoadScript reads and executes a rule script once and returns its compiled
// form. The script must define a callable check(req).
func LoadScript(path string, pool *ThreadPool) (*Script, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: rule script paths come from the init message
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	return CompileScript(path, content, pool)
}

// CompileScript executes script source under the given name.
func CompileScript(name string, content []byte, pool *ThreadPool) (*Script, error) {
	if pool == nil {
		pool = NewThreadPool(0, nil)
	}

	thread := &starlark.Thread{
		Name:  "load:" + filepath.Base(name),
		Print: pool.print,
	}

	globals, err := starlark.ExecFile(thread, name, content, Predeclared()) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	if err != nil {
		return nil, &LoadError{File: name, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}

	fn, ok := globals[checkGlobal].(starlark.Callable)
	if !ok {
		return nil, &LoadError{File: name, Message: "script must define a check(req) function"}
	}

	s := &Script{
		path:  name,
		check: fn,
		pool:  pool,
	}

	if v, ok := globals[stagesGlobal]; ok {
		s.stages, err = parseStages(v)
		if err != nil {
			return nil, &LoadError{File: name, Message: fmt.Sprintf("%s: %v", stagesGlobal, err)}
		}
	}
	if v, ok := globals[stageRulesGlobal]; ok {
		s.stageRules, err = parseStageRules(v)
		if err != nil {
			return nil, &LoadError{File: name, Message: fmt.Sprintf("%s: %v", stageRulesGlobal, err)}
		}
	}

	return s, nil
}

func parseStages(v starlark.Value) ([]core.Stage, error) {
	names, err := ToStrings(v)
	if err != nil {
		return nil, err
	}
	stages := make([]core.Stage, 0, len(names))
	for _, n := range names {
		st, err := core.ParseStage(n)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, nil
}

func parseStageRules(v starlark.Value) (map[core.Stage][]string, error) {
	dict, ok := v.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("got %s, want dict", v.Type())
	}
	out := make(map[core.Stage][]string, dict.Len())
	for _, item := range dict.Items() {
		key, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("key must be a stage name, got %s", item[0].Type())
		}
		st, err := core.ParseStage(key)
		if err != nil {
			return nil, err
		}
		ids, err := ToStrings(item[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[st] = ids
	}
	return out, nil
}

// LoadError represents an error loading a rule script.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}
