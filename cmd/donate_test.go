package cmd

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
)

var _ = Describe("donate", func() {
	BeforeEach(func() {
		donateFlags.amount = 0
		donateFlags.firstName = ""
		donateFlags.email = ""
		donateFlags.method = string(donation.MethodUPI)
		donateFlags.frequency = ""
	})

	It("keeps pre-filled donor details the flags leave unset", func() {
		form := donation.NewFormData()
		form.DonorInfo.FirstName = "Asha"
		form.DonorInfo.Email = "asha@example.com"

		donateFlags.amount = 250
		donateFlags.email = "other@example.com"
		donateFlags.frequency = "monthly"
		applyDonateFlags(&form)

		Expect(form.Amount).To(Equal(250.0))
		Expect(form.DonorInfo.FirstName).To(Equal("Asha"))
		Expect(form.DonorInfo.Email).To(Equal("other@example.com"))
		Expect(form.Recurring).To(BeTrue())
		Expect(form.RecurringFrequency).To(Equal(donation.Frequency("monthly")))
	})

	It("lists field messages in the error", func() {
		err := apperrors.NewValidationError("Please correct the highlighted fields", apperrors.ErrCodeValidationFailed).
			WithDetails(apperrors.ValidationErrors{Errors: []apperrors.ValidationError{
				{Field: "phone", Message: "Please enter a valid 10-digit mobile number"},
				{Field: "email", Message: "Please enter a valid email address"},
			}})

		Expect(describeFailure(err).Error()).To(Equal(
			"Please correct the highlighted fields\n  email: Please enter a valid email address\n  phone: Please enter a valid 10-digit mobile number"))
	})

	It("maps the configured database to its driver", func() {
		Expect(sqlDriver(apperrors.DatabaseConfig{Driver: "sqlite"})).To(Equal("sqlite3"))
		Expect(sqlDriver(apperrors.DatabaseConfig{Driver: "postgres"})).To(Equal("pgx"))
	})
})
