package checkout

import (
	"strings"

	errors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/core/common/validation"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
)

// ValidateStep checks the fields owned by step and returns a field to message
// map. An empty map means the step is complete. Review and Receipt own no
// fields.
func ValidateStep(step Step, form donation.FormData) map[string]string {
	var appErr *errors.AppError

	switch step {
	case StepAmount:
		appErr = validateAmount(form)
	case StepDonorDetails:
		appErr = validateDonorDetails(form)
	default:
		return map[string]string{}
	}

	if appErr == nil {
		return map[string]string{}
	}
	return errors.FieldMessages(appErr)
}

func validateAmount(form donation.FormData) *errors.AppError {
	v := validation.NewValidator()
	v.Field("amount", form.Amount).
		MinFloat(donation.MinimumAmount, "Minimum donation amount is ₹1", errors.ErrCodeInvalidAmount)

	freq := v.Field("recurringFrequency", string(form.RecurringFrequency)).
		Labeled("Recurring frequency").
		OneOf(donation.Frequencies...)
	if form.Recurring {
		freq.Required()
	}

	return v.Validate()
}

func validateDonorDetails(form donation.FormData) *errors.AppError {
	donor := form.DonorInfo

	v := validation.NewValidator()
	v.Field("firstName", donor.FirstName).Labeled("First name").Required()
	v.Field("lastName", donor.LastName).Labeled("Last name").Required()
	v.Field("email", donor.Email).Labeled("Email").Required().Email()
	v.Field("phone", donor.Phone).Labeled("Phone").Required().MobilePhone()
	if form.TaxDeductible {
		v.Field("address", donor.Address).
			Labeled("Address").
			Custom(func(value interface{}) *errors.AppError {
				if s, _ := value.(string); strings.TrimSpace(s) == "" {
					return errors.NewValidationFieldError("address", "Address is required for tax-deductible donations", errors.ErrCodeValidationFailed)
				}
				return nil
			})
	}

	return v.Validate()
}

// validateThrough validates every step before last, stopping at the first
// step with errors.
func validateThrough(last Step, form donation.FormData) (Step, map[string]string) {
	for s := StepAmount; s < last; s++ {
		if fieldErrs := ValidateStep(s, form); len(fieldErrs) > 0 {
			return s, fieldErrs
		}
	}
	return last, map[string]string{}
}
