package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dshills/inkwell/internal/event"
)

// Runtimes lists the plugin runtime names accepted by the runtime tag.
var Runtimes = []string{"js", "lua"}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		_ = v.RegisterValidation("event_name", func(fl validator.FieldLevel) bool {
			return event.Name(fl.Field().String()).Valid()
		})

		_ = v.RegisterValidation("runtime", func(fl validator.FieldLevel) bool {
			name := fl.Field().String()
			for _, r := range Runtimes {
				if r == name {
					return true
				}
			}
			return false
		})

		validateInst = v
	})
	return validateInst
}

// Validate checks struct tags and cross-field rules.
func Validate(cfg *Config) error {
	if cfg == nil {
		return &ValidationError{Field: "config", Message: "configuration is nil"}
	}
	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]int, len(cfg.Plugins.List))
	for i, p := range cfg.Plugins.List {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if prev, ok := seen[key]; ok {
			return &ValidationError{
				Field:   fmt.Sprintf("plugins.list[%d].name", i),
				Message: fmt.Sprintf("duplicate plugin name %q (also at index %d)", p.Name, prev),
			}
		}
		seen[key] = i
	}
	return nil
}

func convertValidationError(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		field := yamlishFieldName(fe)
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("failed validation for tag '%s'", fe.Tag()),
			Err:     err,
		}
	}
	return &ValidationError{Field: "config", Message: err.Error(), Err: err}
}

// yamlishFieldName turns Config.Plugins.List[0].Name into
// plugins.list[0].name.
func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, snake(p))
	}
	return strings.Join(out, ".")
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '[' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
