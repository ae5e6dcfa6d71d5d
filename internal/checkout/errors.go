package checkout

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"

	errors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/paymentgateway"
)

func errSubmitInFlight() *errors.AppError {
	return errors.NewConflictError("Your donation is already being processed", errors.ErrCodeSubmitInFlight)
}

func errInvalidStep(message string) *errors.AppError {
	return errors.NewValidationError(message, errors.ErrCodeInvalidStep)
}

func errStepValidation(fieldErrs map[string]string) *errors.AppError {
	fields := make([]string, 0, len(fieldErrs))
	for field := range fieldErrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	details := errors.ValidationErrors{}
	for _, field := range fields {
		details.Errors = append(details.Errors, errors.ValidationError{
			Field:   field,
			Message: fieldErrs[field],
			Code:    string(errors.ErrCodeValidationFailed),
		})
	}
	return errors.NewValidationError("Please correct the highlighted fields", errors.ErrCodeValidationFailed).
		WithDetails(details)
}

// errSessionClosed is returned to a submit whose session was reset while it
// was waiting on the network.
func errSessionClosed() *errors.AppError {
	return errors.NewConflictError("The checkout was closed before the donation completed", errors.ErrCodeInvalidStep)
}

func gatewayFailure(err error) *errors.AppError {
	if stderrors.Is(err, paymentgateway.ErrPaymentCancelled) {
		return errors.NewExternalError("Payment was cancelled. No donation was made.", errors.ErrCodePaymentCancelled, http.StatusPaymentRequired).
			WithCause(err)
	}

	reason := err.Error()
	var gwErr *paymentgateway.GatewayError
	if stderrors.As(err, &gwErr) {
		reason = gwErr.Reason
	}
	return errors.NewExternalError(fmt.Sprintf("Payment failed: %s", reason), errors.ErrCodePaymentFailed, http.StatusPaymentRequired).
		WithCause(err)
}

func donationFailure(err error) *errors.AppError {
	message := "We could not process your donation. Please try again."
	if appErr, ok := errors.IsAppError(err); ok && appErr.StatusCode >= 400 && appErr.StatusCode < 500 {
		message = fmt.Sprintf("Donation failed: %s", appErr.Message)
	}
	return errors.NewExternalError(message, errors.ErrCodeDonationFailed, http.StatusBadGateway).
		WithCause(err)
}

// recordFailure reports a payment that went through but was not recorded.
// Retrying could record the donation twice, so the donor is sent to support.
func recordFailure(err error, paymentID, orderID string) *errors.AppError {
	message := fmt.Sprintf("Your payment was received (payment ID %s) but we could not confirm your donation record. "+
		"Please do not pay again; contact support with this payment ID so we can complete it.", paymentID)
	return errors.NewExternalError(message, errors.ErrCodeDonationRecordFailed, http.StatusBadGateway).
		WithCause(err).
		WithDetails(map[string]string{"paymentId": paymentID, "orderId": orderID})
}
