package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError lists every invalid field of a payload
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report json field names instead of Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		validate.RegisterValidation("campaign_tag", func(fl validator.FieldLevel) bool {
			return IsCampaignTag(fl.Field().String())
		})
	})
	return validate
}

// IsCampaignTag reports whether tag belongs to the fixed campaign tag set
func IsCampaignTag(tag string) bool {
	for _, t := range CampaignTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate runs the struct tag rules and, when present, the model's own Validate method.
func Validate(v interface{}) error {
	if err := validatorInstance().Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		problems := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			problems = append(problems, describeFieldError(fe))
		}
		return &ValidationError{Problems: problems}
	}

	if self, ok := v.(interface{ Validate() error }); ok {
		if err := self.Validate(); err != nil {
			return &ValidationError{Problems: []string{err.Error()}}
		}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "campaign_tag":
		return fmt.Sprintf("%s must be one of [%s]", field, strings.Join(CampaignTags, " "))
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
