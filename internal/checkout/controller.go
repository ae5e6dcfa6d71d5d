package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	errors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
	paymentgatewaytypes "github.com/frahmantamala/donation-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/donation-checkout/internal/core/events"
)

// DonationService persists donations.
type DonationService interface {
	CreateDonation(ctx context.Context, payload donation.CreatePayload) (*donation.Donation, error)
}

// PaymentGateway runs one hosted checkout and resolves exactly once, with a
// confirmation or an error.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, req *paymentgatewaytypes.PaymentRequest, onCheckout func(paymentgatewaytypes.PendingCheckout)) (*paymentgatewaytypes.Confirmation, error)
}

// ProfileProvider supplies the signed-in user's details.
type ProfileProvider interface {
	CurrentProfile(ctx context.Context) (*donation.Profile, error)
}

type Dependencies struct {
	Donations DonationService
	Gateway   PaymentGateway
	Profiles  ProfileProvider
	Events    events.Publisher
	Logger    *slog.Logger
	Now       func() time.Time
	// RecordTimeout bounds the create-donation call made after a confirmed
	// payment. That call is detached from the caller's cancellation.
	RecordTimeout time.Duration
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	Step            Step                                 `json:"step"`
	Form            donation.FormData                    `json:"form"`
	Errors          map[string]string                    `json:"errors"`
	Submitting      bool                                 `json:"submitting"`
	Populated       bool                                 `json:"populated"`
	Receipt         *donation.Receipt                    `json:"receipt,omitempty"`
	Campaign        donation.Campaign                    `json:"campaign"`
	PendingCheckout *paymentgatewaytypes.PendingCheckout `json:"pending_checkout,omitempty"`
}

// Controller drives one checkout session for a campaign through amount,
// donor details, review and receipt. It is the only writer of the session's
// form. Network calls happen outside the lock; their results are dropped if
// the session was reset meanwhile.
type Controller struct {
	deps     Dependencies
	logger   *slog.Logger
	campaign donation.Campaign

	mu           sync.Mutex
	step         Step
	form         donation.FormData
	fieldErrors  map[string]string
	submitting   bool
	hasPopulated bool
	receipt      *donation.Receipt
	pending      *paymentgatewaytypes.PendingCheckout
	// epoch changes on every reset so late completions can be recognised.
	epoch uint64
}

func NewController(campaign donation.Campaign, deps Dependencies) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RecordTimeout <= 0 {
		deps.RecordTimeout = 30 * time.Second
	}

	return &Controller{
		deps:        deps,
		logger:      deps.Logger.With("campaign_id", campaign.ID),
		campaign:    campaign,
		step:        StepAmount,
		form:        donation.NewFormData(),
		fieldErrors: map[string]string{},
	}
}

// Open pre-fills donor details from the user's profile once per open. Fields
// the donor already typed are left alone, and later opens do nothing until
// the session is closed.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.hasPopulated || c.deps.Profiles == nil {
		c.mu.Unlock()
		return nil
	}
	c.hasPopulated = true
	epoch := c.epoch
	c.mu.Unlock()

	profile, err := c.deps.Profiles.CurrentProfile(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		c.logger.Debug("discarding profile for closed session")
		return nil
	}
	if err != nil {
		c.hasPopulated = false
		c.logger.Warn("failed to load profile for donor details", "error", err)
		return fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil
	}

	donor := &c.form.DonorInfo
	fillBlank(&donor.FirstName, profile.FirstName)
	fillBlank(&donor.LastName, profile.LastName)
	fillBlank(&donor.Email, profile.Email)
	fillBlank(&donor.Phone, profile.Phone)

	c.logger.Debug("donor details pre-filled from profile", "user_id", profile.UserID)
	return nil
}

func fillBlank(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

// Close returns the session to its initial state. It is the only way out of
// the receipt step.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// closeIfIdle closes the session unless a submission is in flight. The check
// and the close happen under one lock so a submit cannot start in between.
func (c *Controller) closeIfIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return false
	}
	c.closeLocked()
	return true
}

func (c *Controller) closeLocked() {
	c.step = StepAmount
	c.form = donation.NewFormData()
	c.fieldErrors = map[string]string{}
	c.submitting = false
	c.hasPopulated = false
	c.receipt = nil
	c.pending = nil
	c.epoch++
}

// Reset is Close under the name the UI uses for "donate again".
func (c *Controller) Reset() {
	c.Close()
}

// SetForm replaces the form. It is rejected once the receipt is shown and
// while a submission is in flight.
func (c *Controller) SetForm(form donation.FormData) error {
	return c.Edit(func(f *donation.FormData) { *f = form })
}

// Edit applies fn to the form under the same rules as SetForm.
func (c *Controller) Edit(fn func(*donation.FormData)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step == StepReceipt {
		return errInvalidStep("The donation is complete; start a new checkout to donate again")
	}
	if c.submitting {
		return errSubmitInFlight()
	}

	fn(&c.form)
	return nil
}

// Next validates the current step and moves one step forward. It never
// advances from Review to Receipt: a receipt only exists after Submit, so
// Next on Review or Receipt returns INVALID_STEP and leaves the step as is.
func (c *Controller) Next() (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.submitting:
		return c.step, errSubmitInFlight()
	case c.step >= StepReview:
		return c.step, errInvalidStep("Use submit to complete the donation")
	}

	if fieldErrs := ValidateStep(c.step, c.form); len(fieldErrs) > 0 {
		c.fieldErrors = fieldErrs
		return c.step, errStepValidation(fieldErrs)
	}

	c.fieldErrors = map[string]string{}
	c.step++
	return c.step, nil
}

// Previous moves one step back without validation. It cannot leave the
// receipt step and is refused while a submission is in flight.
func (c *Controller) Previous() (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.step == StepReceipt:
		return c.step, errInvalidStep("The donation is complete; close the checkout to start over")
	case c.submitting:
		return c.step, errSubmitInFlight()
	}

	if c.step > StepAmount {
		c.step--
	}
	c.fieldErrors = map[string]string{}
	return c.step, nil
}

// Submit completes the donation from the review step. With a gateway method
// the hosted checkout is settled first and its confirmation is sent along
// with the donation; other methods record the donation directly. On success
// the session moves to Receipt. On failure it stays on Review and nothing is
// retried. Concurrent calls are refused while one is in flight.
func (c *Controller) Submit(ctx context.Context) (receipt *donation.Receipt, err error) {
	form, epoch, err := c.beginSubmit()
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("checkout submit panicked", "panic", r, "stack", string(debug.Stack()))
			receipt = nil
			err = errors.NewInternalError("Something went wrong while processing your donation", fmt.Errorf("panic: %v", r))
		}
		c.endSubmit(epoch)
	}()

	payload := BuildPayload(form, c.campaign)
	logger := c.logger.With("amount", form.Amount, "payment_method", form.PaymentDetails.Method)

	var confirmation *paymentgatewaytypes.Confirmation
	if form.PaymentDetails.Method.UsesGateway() {
		if c.deps.Gateway == nil {
			return nil, gatewayFailure(fmt.Errorf("payment gateway is not configured"))
		}

		req := &paymentgatewaytypes.PaymentRequest{
			Amount:      form.Amount,
			Currency:    payload.Currency,
			Description: fmt.Sprintf("Donation to %s", c.campaign.Title),
			Donor: paymentgatewaytypes.Donor{
				Name:  form.DonorInfo.FullName(),
				Email: form.DonorInfo.Email,
				Phone: form.DonorInfo.Phone,
			},
		}

		confirmation, err = c.deps.Gateway.ProcessPayment(ctx, req, func(p paymentgatewaytypes.PendingCheckout) {
			c.setPending(epoch, p)
		})
		if err != nil {
			logger.Warn("gateway payment did not complete", "error", err)
			return nil, gatewayFailure(err)
		}

		payload.PaymentID = confirmation.PaymentID
		payload.OrderID = confirmation.OrderID
		payload.Signature = confirmation.Signature
		logger = logger.With("payment_id", confirmation.PaymentID, "order_id", confirmation.OrderID)
	}

	record, err := c.createDonation(ctx, payload, confirmation != nil)
	if err != nil {
		if confirmation != nil {
			logger.Error("payment confirmed but donation was not recorded", "error", err)
			c.publish(ctx, events.NewDonationRecordFailedEvent(errors.UserIDFromContext(ctx), payload, *confirmation, c.campaign, err.Error()))
			return nil, recordFailure(err, confirmation.PaymentID, confirmation.OrderID)
		}
		logger.Error("donation request failed", "error", err)
		return nil, donationFailure(err)
	}

	built := BuildReceipt(form, c.campaign, record, confirmation, c.deps.Now())
	c.publish(ctx, events.NewDonationCompletedEvent(errors.UserIDFromContext(ctx), *record, built, c.campaign))

	if !c.complete(epoch, built) {
		logger.Info("donation completed after the session was closed", "receipt_id", built.ReceiptID)
		return nil, errSessionClosed()
	}

	logger.Info("donation completed", "donation_id", record.ID, "receipt_id", built.ReceiptID, "synthesized_ids", built.Synthesized)
	return &built, nil
}

func (c *Controller) beginSubmit() (donation.FormData, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting {
		return donation.FormData{}, 0, errSubmitInFlight()
	}
	if c.step != StepReview {
		return donation.FormData{}, 0, errInvalidStep("The donation can only be submitted from the review step")
	}

	// the form may have been replaced while on Review
	if _, fieldErrs := validateThrough(StepReview, c.form); len(fieldErrs) > 0 {
		c.fieldErrors = fieldErrs
		return donation.FormData{}, 0, errStepValidation(fieldErrs)
	}

	c.fieldErrors = map[string]string{}
	c.submitting = true
	return c.form, c.epoch, nil
}

func (c *Controller) endSubmit(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return
	}
	c.submitting = false
	c.pending = nil
}

func (c *Controller) setPending(epoch uint64, p paymentgatewaytypes.PendingCheckout) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch == epoch {
		c.pending = &p
	}
}

func (c *Controller) complete(epoch uint64, receipt donation.Receipt) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return false
	}
	c.receipt = &receipt
	c.step = StepReceipt
	return true
}

// createDonation records the donation. After a confirmed payment the call is
// detached from ctx so a departing caller cannot leave money without a record.
func (c *Controller) createDonation(ctx context.Context, payload donation.CreatePayload, paid bool) (*donation.Donation, error) {
	if paid {
		detached, cancel := errors.WithTimeout(context.WithoutCancel(ctx), c.deps.RecordTimeout)
		defer cancel()
		ctx = detached
	}

	record, err := c.deps.Donations.CreateDonation(ctx, payload)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &donation.Donation{}
	}
	return record, nil
}

func (c *Controller) publish(ctx context.Context, event events.Event) {
	if c.deps.Events == nil {
		return
	}
	if err := c.deps.Events.Publish(ctx, event); err != nil {
		c.logger.Warn("failed to publish checkout event", "event_type", event.EventType(), "error", err)
	}
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

func (c *Controller) Campaign() donation.Campaign {
	return c.campaign
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	fieldErrs := make(map[string]string, len(c.fieldErrors))
	for k, v := range c.fieldErrors {
		fieldErrs[k] = v
	}

	snap := Snapshot{
		Step:       c.step,
		Form:       c.form,
		Errors:     fieldErrs,
		Submitting: c.submitting,
		Populated:  c.hasPopulated,
		Campaign:   c.campaign,
	}
	if c.receipt != nil {
		r := *c.receipt
		snap.Receipt = &r
	}
	if c.pending != nil {
		p := *c.pending
		snap.PendingCheckout = &p
	}
	return snap
}
