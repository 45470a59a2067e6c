package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"plara/internal/types"
)

// Validator wraps go-playground/validator so handlers translate struct
// validation failures into the service's AppError taxonomy instead of
// exposing library error strings to clients.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator. JSON tag names are used in error
// details so clients see the wire-level field names they actually sent.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates dst against its `validate` tags. It returns nil on
// success, or a *types.AppError (400) describing the first failure class:
// "validation_missing_required_field" when a required field is absent,
// "validation_invalid_field" otherwise. All failing fields are listed in the
// error details.
func (v *Validator) ValidateStruct(dst interface{}) error {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError: the caller passed a non-struct. That is a
		// programming error, not client input.
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"validation could not be performed",
			err,
		)
	}

	code := types.ErrCodeValidationInvalidField
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
		if fe.Tag() == "required" {
			code = types.ErrCodeValidationMissingField
		}
	}

	first := fieldErrs[0]
	msg := "invalid value for field " + first.Field()
	if code == types.ErrCodeValidationMissingField {
		msg = "missing required field"
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				msg = "missing required field " + fe.Field()
				break
			}
		}
	}

	return types.NewAppErrorWithDetails(code, msg, err, details)
}
