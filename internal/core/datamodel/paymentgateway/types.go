package paymentgateway

import (
	"errors"
)

type ResultStatus string

const (
	ResultSuccess   ResultStatus = "success"
	ResultCancelled ResultStatus = "cancelled"
	ResultFailed    ResultStatus = "failed"
)

type Donor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"contact"`
}

// PaymentRequest describes one hosted checkout. Amount is in major currency
// units.
type PaymentRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Receipt     string  `json:"receipt"`
	Description string  `json:"description"`
	Donor       Donor   `json:"donor"`
}

func (r *PaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

// Order is what the gateway returns when an order is created; amount is in
// the smallest currency unit.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// PendingCheckout is what a browser needs to open the hosted checkout for
// an order. CallbackToken must accompany cancel and failure callbacks.
type PendingCheckout struct {
	KeyID         string `json:"key_id"`
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Description   string `json:"description"`
	Donor         Donor  `json:"prefill"`
	CallbackToken string `json:"callback_token"`
}

// Confirmation is the signed proof of a completed payment. The callback
// checks the signature before resolving and the Donation API checks it again.
type Confirmation struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Signature string `json:"signature"`
}

// Result is the single outcome delivered for a pending order.
type Result struct {
	Status    ResultStatus `json:"status"`
	PaymentID string       `json:"payment_id,omitempty"`
	Signature string       `json:"signature,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}
