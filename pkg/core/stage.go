package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// Stage
// =============================================================================

// Stage names one phase of the driving pipeline. Each request carries exactly
// one stage, and the payload shape depends on it.
type Stage string

// Known stages, in pipeline order.
const (
	StageRawText Stage = "raw_text"
	StagePPText  Stage = "pp_text"
	StageCST     Stage = "cst"
	StageAST     Stage = "ast"
)

var allStages = []Stage{StageRawText, StagePPText, StageCST, StageAST}

// AllStages returns every known stage in pipeline order.
func AllStages() []Stage {
	out := make([]Stage, len(allStages))
	copy(out, allStages)
	return out
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, st := range allStages {
		if s == st {
			return true
		}
	}
	return false
}

// String returns the wire name of the stage.
func (s Stage) String() string {
	return string(s)
}

// ParseStage converts a wire name to a Stage.
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.TrimSpace(s))
	if !st.Valid() {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	return st, nil
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown stages.
func (s *Stage) UnmarshalText(text []byte) error {
	st, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
