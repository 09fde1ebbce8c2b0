package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/telhawk-systems/authsim/internal/models"
	"github.com/telhawk-systems/authsim/internal/simulator"
)

var validate = validator.New()

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string
	Message string
}

// Validate checks every rule and returns all failures joined. Structural failures
// wrap models.ErrInvalidInput; an unparseable start date wraps models.ErrInvalidDate.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return fmt.Errorf("validation failed: %w", err)
		}
		for _, fe := range ve {
			f := FieldError{Field: fieldPath(fe), Message: formatValidationError(fe)}
			errs = append(errs, fmt.Errorf("%s: %s: %w", f.Field, f.Message, models.ErrInvalidInput))
		}
	}

	if c.Simulation.StartDate != "" {
		if _, err := simulator.ParseStartDate(c.Simulation.StartDate); err != nil {
			errs = append(errs, fmt.Errorf("simulation.start_date: expected YYYY-MM-DD HH:MM:SS: %w", err))
		}
	}

	if c.Identity.PoolIn == "" && c.Identity.GeneratedNames == 0 &&
		(c.Identity.FirstNames == "" || c.Identity.LastNames == "") && len(c.Identity.Roles) == 0 {
		errs = append(errs, fmt.Errorf("identity: no source of usernames configured: %w", models.ErrInvalidInput))
	}

	return errors.Join(errs...)
}

// fieldPath turns Config.Simulation.AttackProb into simulation.AttackProb.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	ns = strings.TrimPrefix(ns, "Config.")
	if i := strings.LastIndex(ns, "."); i >= 0 {
		return strings.ToLower(ns[:i]) + "." + ns[i+1:]
	}
	return ns
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "this field is required"
	case "url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must have a minimum length of %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
