package business

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/inboxflow/inboxflow/engine/core"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the boundary invariants once so downstream stages can
// trust the record. Failures are *core.ConfigurationError.
func (c *Config) Validate() error {
	if c == nil {
		return core.NewConfigurationError("", "business configuration is required", nil)
	}
	if !c.Provider.Valid() {
		return core.NewConfigurationError("provider", fmt.Sprintf("unsupported provider %q", c.Provider), nil)
	}
	if strings.TrimSpace(c.Business.Name) == "" {
		return core.NewConfigurationError("business.name", "is required", nil)
	}
	if err := structValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return core.NewConfigurationError(fieldPath(fe.Namespace()), describe(fe), err)
		}
		return core.NewConfigurationError("", "invalid business configuration", err)
	}
	for name, id := range c.Labels {
		if strings.TrimSpace(name) == "" {
			return core.NewConfigurationError("labels", "label names must not be blank", nil)
		}
		if strings.TrimSpace(id) == "" {
			return core.NewConfigurationError("labels."+name, "label id must not be blank", nil)
		}
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min", "max":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
