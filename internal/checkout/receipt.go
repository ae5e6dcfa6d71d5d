package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
	paymentgatewaytypes "github.com/frahmantamala/donation-checkout/internal/core/datamodel/paymentgateway"
)

// BuildReceipt derives the receipt of a recorded donation. Identifiers the
// Donation API left out are generated locally and the receipt is flagged as
// synthesized; such ids are for display and must not be used as keys.
func BuildReceipt(form donation.FormData, campaign donation.Campaign, record *donation.Donation, confirmation *paymentgatewaytypes.Confirmation, now time.Time) donation.Receipt {
	receipt := donation.Receipt{
		DonorName:     form.DonorInfo.DisplayName(),
		Amount:        form.Amount,
		CampaignTitle: campaign.Title,
		Date:          now,
		PaymentMethod: form.PaymentDetails.Method,
		TaxDeductible: form.TaxDeductible,
	}

	if record != nil {
		receipt.ReceiptID = record.ReceiptID
		receipt.TransactionID = record.TransactionID
		if record.Amount > 0 {
			receipt.Amount = record.Amount
		}
	}

	if receipt.TransactionID == "" && confirmation != nil {
		receipt.TransactionID = confirmation.PaymentID
	}

	if receipt.ReceiptID == "" {
		receipt.ReceiptID = fallbackID("RCP", now)
		receipt.Synthesized = true
	}
	if receipt.TransactionID == "" {
		receipt.TransactionID = fallbackID("TXN", now)
		receipt.Synthesized = true
	}

	return receipt
}

func fallbackID(prefix string, now time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), token)
}

// BuildPayload maps the session form to the Donation API create request.
func BuildPayload(form donation.FormData, campaign donation.Campaign) donation.CreatePayload {
	donor := form.DonorInfo

	currency := campaign.Currency
	if currency == "" {
		currency = donation.DefaultCurrency
	}

	payload := donation.CreatePayload{
		CampaignID:    campaign.ID,
		Amount:        form.Amount,
		Currency:      currency,
		PaymentMethod: form.PaymentDetails.Method,
		DonationType:  form.DonationType(),
		Message:       strings.TrimSpace(form.Message),
		Anonymous:     donor.Anonymous,
		DonorName:     donor.FullName(),
		DonorEmail:    strings.TrimSpace(donor.Email),
		DonorPhone:    strings.TrimSpace(donor.Phone),
		DonorAddress:  joinAddress(donor),
		TaxDeductible: form.TaxDeductible,
	}
	if form.Recurring {
		payload.RecurringFrequency = form.RecurringFrequency
	}
	return payload
}

func joinAddress(d donation.DonorInfo) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{d.Address, d.City, d.State, d.Pincode, d.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if strings.TrimSpace(d.Address) == "" {
		return ""
	}
	return strings.Join(parts, ", ")
}
