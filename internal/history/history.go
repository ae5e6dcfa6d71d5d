package history

import (
	"time"

	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
)

const (
	StatusRecorded   = "recorded"
	StatusUnrecorded = "unrecorded"
)

// Entry is a locally kept trace of a finished checkout. Unrecorded entries
// are payments the gateway confirmed but the Donation API never stored.
type Entry struct {
	ID            int64                  `json:"id" gorm:"primaryKey"`
	UserID        string                 `json:"user_id" gorm:"column:user_id;not null;index"`
	CampaignID    string                 `json:"campaign_id" gorm:"column:campaign_id"`
	CampaignTitle string                 `json:"campaign_title" gorm:"column:campaign_title"`
	ReceiptID     string                 `json:"receipt_id,omitempty" gorm:"column:receipt_id"`
	TransactionID string                 `json:"transaction_id,omitempty" gorm:"column:transaction_id"`
	PaymentID     string                 `json:"payment_id,omitempty" gorm:"column:payment_id"`
	OrderID       string                 `json:"order_id,omitempty" gorm:"column:order_id"`
	DonorName     string                 `json:"donor_name" gorm:"column:donor_name"`
	Amount        float64                `json:"amount" gorm:"column:amount;not null"`
	PaymentMethod donation.PaymentMethod `json:"payment_method" gorm:"column:payment_method"`
	TaxDeductible bool                   `json:"tax_deductible" gorm:"column:tax_deductible"`
	Synthesized   bool                   `json:"synthesized" gorm:"column:synthesized"`
	Status        string                 `json:"status" gorm:"column:status;not null"`
	FailureReason string                 `json:"failure_reason,omitempty" gorm:"column:failure_reason"`
	DonatedAt     time.Time              `json:"donated_at" gorm:"column:donated_at"`
	CreatedAt     time.Time              `json:"created_at" gorm:"column:created_at"`
}

func (Entry) TableName() string {
	return "donation_receipts"
}

func NewRecordedEntry(userID string, receipt donation.Receipt, campaign donation.Campaign) *Entry {
	return &Entry{
		UserID:        userID,
		CampaignID:    campaign.ID,
		CampaignTitle: receipt.CampaignTitle,
		ReceiptID:     receipt.ReceiptID,
		TransactionID: receipt.TransactionID,
		DonorName:     receipt.DonorName,
		Amount:        receipt.Amount,
		PaymentMethod: receipt.PaymentMethod,
		TaxDeductible: receipt.TaxDeductible,
		Synthesized:   receipt.Synthesized,
		Status:        StatusRecorded,
		DonatedAt:     receipt.Date,
		CreatedAt:     time.Now(),
	}
}

// NewUnrecordedEntry keeps what is known about a paid donation the Donation
// API did not record. Anonymous donors are stored under the placeholder name.
func NewUnrecordedEntry(userID string, payload donation.CreatePayload, campaign donation.Campaign, paymentID, orderID, reason string, at time.Time) *Entry {
	donorName := payload.DonorName
	if payload.Anonymous {
		donorName = donation.AnonymousDonorName
	}
	return &Entry{
		UserID:        userID,
		CampaignID:    campaign.ID,
		CampaignTitle: campaign.Title,
		PaymentID:     paymentID,
		OrderID:       orderID,
		DonorName:     donorName,
		Amount:        payload.Amount,
		PaymentMethod: payload.PaymentMethod,
		TaxDeductible: payload.TaxDeductible,
		Status:        StatusUnrecorded,
		FailureReason: reason,
		DonatedAt:     at,
		CreatedAt:     time.Now(),
	}
}
