package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/paymentgateway"
)

const (
	EventTypeDonationCompleted    = "donation.completed"
	EventTypeDonationRecordFailed = "donation.record_failed"
)

// DonationCompletedEvent is emitted after a donation was recorded and its
// receipt issued.
type DonationCompletedEvent struct {
	BaseEvent
	UserID   string            `json:"user_id"`
	Donation donation.Donation `json:"donation"`
	Receipt  donation.Receipt  `json:"receipt"`
	Campaign donation.Campaign `json:"campaign"`
}

func NewDonationCompletedEvent(userID string, d donation.Donation, receipt donation.Receipt, campaign donation.Campaign) *DonationCompletedEvent {
	return &DonationCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDonationCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":     userID,
				"donation_id": d.ID,
				"receipt_id":  receipt.ReceiptID,
				"campaign_id": campaign.ID,
				"amount":      receipt.Amount,
			},
		},
		UserID:   userID,
		Donation: d,
		Receipt:  receipt,
		Campaign: campaign,
	}
}

// DonationRecordFailedEvent is emitted when the gateway confirmed a payment
// but the Donation API did not record it. It needs manual follow-up.
type DonationRecordFailedEvent struct {
	BaseEvent
	UserID        string                      `json:"user_id"`
	Request       donation.CreatePayload      `json:"payload"`
	Confirmation  paymentgateway.Confirmation `json:"confirmation"`
	Campaign      donation.Campaign           `json:"campaign"`
	FailureReason string                      `json:"failure_reason"`
}

func NewDonationRecordFailedEvent(userID string, payload donation.CreatePayload, confirmation paymentgateway.Confirmation, campaign donation.Campaign, reason string) *DonationRecordFailedEvent {
	return &DonationRecordFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDonationRecordFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":        userID,
				"campaign_id":    campaign.ID,
				"payment_id":     confirmation.PaymentID,
				"order_id":       confirmation.OrderID,
				"amount":         payload.Amount,
				"failure_reason": reason,
			},
		},
		UserID:        userID,
		Request:       payload,
		Confirmation:  confirmation,
		Campaign:      campaign,
		FailureReason: reason,
	}
}
