// Package validation validates request payloads with go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
)

var (
	validate    = validator.New()
	snowflakeRe = regexp.MustCompile(`^[0-9]{1,20}$`)
)

func init() {
	// "snowflake" accepts Discord ids.
	if err := validate.RegisterValidation("snowflake", func(fl validator.FieldLevel) bool {
		if fl.Field().String() == "" {
			return true
		}
		return snowflakeRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("failed to register snowflake validation: %v", err))
	}

	// "role" accepts guest, member and admin.
	if err := validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	}); err != nil {
		panic(fmt.Sprintf("failed to register role validation: %v", err))
	}
}

// ValidationError holds the messages of every failed field.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return strings.Join(v.Errors, ", ")
}

// Is makes a ValidationError match apperrors.ErrValidation.
func (v *ValidationError) Is(target error) bool {
	return target == apperrors.ErrValidation
}

// ValidateStruct validates s against its `validate` tags.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Errors: []string{err.Error()}}
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("field '%s' is required", fe.Field()))
		case "snowflake":
			messages = append(messages, fmt.Sprintf("field '%s' must be a numeric id", fe.Field()))
		case "role":
			messages = append(messages, fmt.Sprintf("field '%s' must be one of guest, member, admin", fe.Field()))
		default:
			messages = append(messages, fmt.Sprintf("field '%s' failed on the '%s' tag", fe.Field(), fe.Tag()))
		}
	}
	return &ValidationError{Errors: messages}
}
