package donation

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	MethodUPI          PaymentMethod = "UPI"
	MethodCreditCard   PaymentMethod = "CreditCard"
	MethodDebitCard    PaymentMethod = "DebitCard"
	MethodBankTransfer PaymentMethod = "BankTransfer"
	MethodNetBanking   PaymentMethod = "NetBanking"
	MethodRazorpay     PaymentMethod = "Razorpay"
)

// UsesGateway reports whether the method is settled through the hosted
// payment gateway before the donation is recorded.
func (m PaymentMethod) UsesGateway() bool {
	return m == MethodRazorpay
}

type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

var Frequencies = []string{string(FrequencyMonthly), string(FrequencyQuarterly), string(FrequencyYearly)}

const (
	DefaultCurrency    = "INR"
	MinimumAmount      = 1.0
	AnonymousDonorName = "Anonymous Donor"

	TypeOneTime   = "one-time"
	TypeRecurring = "recurring"
)

type DonorInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Country   string `json:"country"`
	Anonymous bool   `json:"anonymous"`
}

func (d DonorInfo) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(d.FirstName) + " " + strings.TrimSpace(d.LastName))
}

// DisplayName is the name shown on receipts and history, honouring the
// anonymous flag.
func (d DonorInfo) DisplayName() string {
	if d.Anonymous {
		return AnonymousDonorName
	}
	return d.FullName()
}

type PaymentDetails struct {
	Method PaymentMethod `json:"method"`

	UPIID string `json:"upiId,omitempty"`

	CardNumber     string `json:"cardNumber,omitempty"`
	CardholderName string `json:"cardholderName,omitempty"`
	ExpiryDate     string `json:"expiryDate,omitempty"`

	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	IFSCCode      string `json:"ifscCode,omitempty"`
}

// FormData is the mutable state of one checkout session.
type FormData struct {
	Amount             float64        `json:"amount"`
	DonorInfo          DonorInfo      `json:"donorInfo"`
	PaymentDetails     PaymentDetails `json:"paymentDetails"`
	TaxDeductible      bool           `json:"taxDeductible"`
	Message            string         `json:"message"`
	Recurring          bool           `json:"recurring"`
	RecurringFrequency Frequency      `json:"recurringFrequency,omitempty"`
}

// NewFormData returns the initial value of a session's form.
func NewFormData() FormData {
	return FormData{
		DonorInfo:      DonorInfo{Country: "India"},
		PaymentDetails: PaymentDetails{Method: MethodUPI},
	}
}

func (f FormData) DonationType() string {
	if f.Recurring {
		return TypeRecurring
	}
	return TypeOneTime
}

// Receipt is created once a donation has been paid for and recorded. It is
// never modified afterwards.
type Receipt struct {
	ReceiptID     string        `json:"receiptId"`
	DonorName     string        `json:"donorName"`
	Amount        float64       `json:"amount"`
	CampaignTitle string        `json:"campaignTitle"`
	Date          time.Time     `json:"date"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	TaxDeductible bool          `json:"taxDeductible"`
	TransactionID string        `json:"transactionId"`
	// Synthesized marks receipts whose identifiers were generated locally
	// because the Donation API did not return them. Such ids are for display
	// only.
	Synthesized bool `json:"synthesized"`
}

type Campaign struct {
	ID           string     `json:"_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	GoalAmount   float64    `json:"goalAmount"`
	RaisedAmount float64    `json:"raisedAmount"`
	Currency     string     `json:"currency,omitempty"`
	Status       string     `json:"status,omitempty"`
	FundID       string     `json:"fund,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	TaxExempt    bool       `json:"taxExempt,omitempty"`
}

type Fund struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"isActive"`
}

// CreatePayload is the body of the Donation API's create-donation call.
type CreatePayload struct {
	CampaignID         string        `json:"campaignId"`
	Amount             float64       `json:"amount"`
	Currency           string        `json:"currency"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	DonationType       string        `json:"donationType"`
	RecurringFrequency Frequency     `json:"recurringFrequency,omitempty"`
	Message            string        `json:"message,omitempty"`
	Anonymous          bool          `json:"anonymous"`
	DonorName          string        `json:"donorName"`
	DonorEmail         string        `json:"donorEmail"`
	DonorPhone         string        `json:"donorPhone"`
	DonorAddress       string        `json:"donorAddress,omitempty"`
	TaxDeductible      bool          `json:"taxDeductible"`

	PaymentID string `json:"paymentId,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// Donation is the record returned by the Donation API.
type Donation struct {
	ID            string        `json:"_id"`
	CampaignID    string        `json:"campaignId,omitempty"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
	Status        string        `json:"status,omitempty"`
	ReceiptID     string        `json:"receiptId,omitempty"`
	TransactionID string        `json:"transactionId,omitempty"`
	Anonymous     bool          `json:"anonymous,omitempty"`
	DonorName     string        `json:"donorName,omitempty"`
	CreatedAt     *time.Time    `json:"createdAt,omitempty"`
}

type Page struct {
	Donations  []Donation `json:"donations"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int        `json:"total"`
	TotalPages int        `json:"totalPages"`
}

// Profile is the signed-in user's identity used to pre-fill donor details.
type Profile struct {
	UserID    string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}
