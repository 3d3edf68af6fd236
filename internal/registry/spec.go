package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/leapstack-labs/rulehost/pkg/core"
)

// BuiltinPrefix marks a rule source compiled into the host.
const BuiltinPrefix = "builtin:"

// ScriptSpec is one entry of the init message's script list.
type ScriptSpec struct {
	Path       string                  `json:"path" koanf:"path" validate:"required"`
	Stages     []core.Stage            `json:"stages,omitempty" koanf:"stages" validate:"dive,stage"`
	StageRules map[core.Stage][]string `json:"stage_rules,omitempty" koanf:"stage_rules" validate:"dive,keys,stage,endkeys,dive,required"`
}

// UnmarshalJSON accepts either a spec object or a bare path string.
func (s *ScriptSpec) UnmarshalJSON(b []byte) error {
	var path string
	if err := json.Unmarshal(b, &path); err == nil {
		*s = ScriptSpec{Path: path}
		return nil
	}

	type plain ScriptSpec
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = ScriptSpec(p)
	return nil
}

// IsBuiltin reports whether s names a compiled-in source.
func (s ScriptSpec) IsBuiltin() bool {
	return strings.HasPrefix(s.Path, BuiltinPrefix)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("stage", func(fl validator.FieldLevel) bool {
		return core.Stage(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks the shape of s: a non-empty path and known stage names.
func (s ScriptSpec) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "stage":
			msgs = append(msgs, fmt.Sprintf("%s: unknown stage %q", fe.Namespace(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
