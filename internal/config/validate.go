package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config key rather than the Go field name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})
	return v
}

// Validate checks cfg and reports every invalid field at once.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate config")
	}

	var result *multierror.Error
	for _, fe := range verrs {
		result = multierror.Append(result, fieldError(fe))
	}
	return errors.Mark(result.ErrorOrNil(), ErrValidationFailed)
}

func fieldError(fe validator.FieldError) error {
	// Namespace is "Config.git.command_timeout"; drop the struct name
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}

	switch fe.Tag() {
	case "required", "required_if":
		return errors.Newf("%s is required", key)
	case "oneof":
		return errors.Newf("%s must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "gte":
		return errors.Newf("%s must not be negative", key)
	case "contains":
		return errors.Newf("%s entries must be KEY=VALUE, got %q", key, fmt.Sprint(fe.Value()))
	default:
		return errors.Newf("%s failed %s validation", key, fe.Tag())
	}
}
