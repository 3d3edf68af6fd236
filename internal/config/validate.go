package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/leapstack-labs/rulehost/pkg/core"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		_, ok := core.ParseSeverity(fl.Field().String())
		return ok
	})
	return v
}

// Validate checks field values and every script spec.
func (c *Config) Validate() error {
	var msgs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
	}

	for i, s := range c.Check.Scripts {
		if err := s.Validate(); err != nil {
			msgs = append(msgs, fmt.Sprintf("check.scripts[%d]: %v", i, err))
		}
	}

	if len(msgs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	// Namespace is "Config.host.on_rule_error"; drop the root type name.
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s: %q is not one of [%s]", key, fe.Value(), fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "severity":
		return fmt.Sprintf("%s: unknown severity %q", key, fe.Value())
	default:
		return fmt.Sprintf("%s: failed %s=%s (got %v)", key, fe.Tag(), fe.Param(), fe.Value())
	}
}
