package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	errors "github.com/frahmantamala/donation-checkout/internal"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	nonDigits     = regexp.MustCompile(`[^0-9]`)
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Label      string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []*FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]*FieldValidator, 0),
	}
}

// Field registers a field. The label is used in messages; it defaults to the
// field name.
func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := &FieldValidator{
		FieldName:  name,
		Label:      name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return fv
}

func (fv *FieldValidator) Labeled(label string) *FieldValidator {
	fv.Label = label
	return fv
}

func (fv *FieldValidator) fail(message string, code errors.ErrorCode) *errors.AppError {
	return errors.NewValidationFieldError(fv.FieldName, message, code)
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return fv.fail(fmt.Sprintf("%s is required", fv.Label), errors.ErrCodeValidationFailed)
			}
		case *string:
			if v == nil || strings.TrimSpace(*v) == "" {
				return fv.fail(fmt.Sprintf("%s is required", fv.Label), errors.ErrCodeValidationFailed)
			}
		case int64:
			if v == 0 {
				return fv.fail(fmt.Sprintf("%s is required", fv.Label), errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

// MinFloat rejects values below min. NaN and infinities never pass.
func (fv *FieldValidator) MinFloat(min float64, message string, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(float64); ok {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < min {
				if message == "" {
					message = fmt.Sprintf("%s must be at least %g", fv.Label, min)
				}
				return fv.fail(message, code)
			}
		}
		return nil
	})
	return fv
}

// Email checks the address shape. Empty values are left to Required.
func (fv *FieldValidator) Email() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok && strings.TrimSpace(v) != "" {
			if !emailPattern.MatchString(strings.TrimSpace(v)) {
				return fv.fail("Please enter a valid email address", errors.ErrCodeInvalidEmail)
			}
		}
		return nil
	})
	return fv
}

// MobilePhone strips everything but digits and expects a 10-digit mobile
// number. Empty values are left to Required.
func (fv *FieldValidator) MobilePhone() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok && strings.TrimSpace(v) != "" {
			if !mobilePattern.MatchString(DigitsOnly(v)) {
				return fv.fail("Please enter a valid 10-digit mobile number", errors.ErrCodeInvalidPhone)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) OneOf(allowed ...string) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := value.(string)
		if !ok || v == "" {
			return nil
		}
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fv.fail(fmt.Sprintf("%s must be one of %s", fv.Label, strings.Join(allowed, ", ")), errors.ErrCodeValidationFailed)
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

// Validate runs every registered validator. Only the first failure of each
// field is reported.
func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			appErr := validator(field.Value)
			if appErr == nil {
				continue
			}
			if details, ok := appErr.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
			} else {
				validationErrors = append(validationErrors, errors.ValidationError{
					Field:   field.FieldName,
					Message: appErr.Message,
					Code:    string(appErr.Code),
				})
			}
			break
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

func DigitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}
