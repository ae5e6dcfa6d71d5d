package history_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/checkout"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/donation-checkout/internal/core/events"
	"github.com/frahmantamala/donation-checkout/internal/history"
)

type memoryRepository struct {
	mu        sync.Mutex
	entries   []*history.Entry
	createErr error
}

func (m *memoryRepository) Create(_ context.Context, entry *history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]*history.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*history.Entry
	for _, e := range m.entries {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepository) all() []*history.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*history.Entry(nil), m.entries...)
}

type failingDonations struct{ err error }

func (f failingDonations) CreateDonation(context.Context, donation.CreatePayload) (*donation.Donation, error) {
	return nil, f.err
}

type confirmingGateway struct {
	confirmation *paymentgateway.Confirmation
}

func (g confirmingGateway) ProcessPayment(context.Context, *paymentgateway.PaymentRequest, func(paymentgateway.PendingCheckout)) (*paymentgateway.Confirmation, error) {
	return g.confirmation, nil
}

var _ = Describe("EventHandler", func() {
	var (
		repo    *memoryRepository
		bus     *events.EventBus
		logger  *slog.Logger
		service *history.Service
	)

	campaign := donation.Campaign{ID: "camp-1", Title: "Clean Water"}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		repo = &memoryRepository{}
		bus = events.NewEventBus(logger)
		service = history.NewService(repo, logger)
		history.NewEventHandler(service, logger).RegisterEventHandlers(bus)
	})

	It("stores a recorded entry for completed donations", func() {
		receipt := donation.Receipt{
			ReceiptID:     "RCP-42",
			DonorName:     "Asha Rao",
			Amount:        1000,
			CampaignTitle: campaign.Title,
			Date:          time.Now(),
			PaymentMethod: donation.MethodUPI,
			TransactionID: "TXN-42",
		}
		event := events.NewDonationCompletedEvent("user-1", donation.Donation{ID: "don-1"}, receipt, campaign)

		Expect(bus.Publish(context.Background(), event)).To(Succeed())
		Expect(bus.Drain(context.Background())).To(Succeed())

		entries := repo.all()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Status).To(Equal(history.StatusRecorded))
		Expect(entries[0].ReceiptID).To(Equal("RCP-42"))
		Expect(entries[0].CampaignID).To(Equal("camp-1"))
	})

	It("stores an unrecorded entry without the name of an anonymous donor", func() {
		confirmation := &paymentgateway.Confirmation{PaymentID: "pay_1", OrderID: "order_1", Signature: "sig"}
		controller := checkout.NewController(campaign, checkout.Dependencies{
			Donations: failingDonations{err: errors.New("upstream unavailable")},
			Gateway:   confirmingGateway{confirmation: confirmation},
			Events:    bus,
			Logger:    logger,
		})

		form := donation.NewFormData()
		form.Amount = 250
		form.DonorInfo.FirstName = "Asha"
		form.DonorInfo.LastName = "Rao"
		form.DonorInfo.Email = "asha@example.com"
		form.DonorInfo.Phone = "9876543210"
		form.DonorInfo.Anonymous = true
		form.PaymentDetails.Method = donation.MethodRazorpay
		Expect(controller.SetForm(form)).To(Succeed())
		_, err := controller.Next()
		Expect(err).NotTo(HaveOccurred())
		_, err = controller.Next()
		Expect(err).NotTo(HaveOccurred())

		ctx := apperrors.ContextWithUserID(context.Background(), "user-1")
		_, err = controller.Submit(ctx)
		Expect(err).To(HaveOccurred())
		Expect(bus.Drain(context.Background())).To(Succeed())

		entries := repo.all()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Status).To(Equal(history.StatusUnrecorded))
		Expect(entries[0].PaymentID).To(Equal("pay_1"))
		Expect(entries[0].ReceiptID).To(BeEmpty())
		Expect(entries[0].DonorName).To(Equal(donation.AnonymousDonorName))
		Expect(entries[0].FailureReason).To(ContainSubstring("upstream unavailable"))
	})

	It("keeps the donor name of a named unrecorded donation", func() {
		payload := donation.CreatePayload{CampaignID: "camp-1", Amount: 250, DonorName: "Asha Rao", PaymentMethod: donation.MethodRazorpay}
		confirmation := paymentgateway.Confirmation{PaymentID: "pay_2", OrderID: "order_2", Signature: "sig"}
		event := events.NewDonationRecordFailedEvent("user-1", payload, confirmation, campaign, "upstream unavailable")

		Expect(bus.PublishSync(context.Background(), event)).To(Succeed())

		entries := repo.all()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].DonorName).To(Equal("Asha Rao"))
		Expect(entries[0].FailureReason).To(Equal("upstream unavailable"))
	})

	It("rejects events of the wrong type", func() {
		handler := history.NewEventHandler(service, logger)
		err := handler.HandleDonationCompleted(context.Background(), events.BaseEvent{Type: events.EventTypeDonationCompleted})
		Expect(err).To(HaveOccurred())
	})

	It("reports repository failures", func() {
		repo.createErr = errors.New("disk full")
		handler := history.NewEventHandler(service, logger)
		event := events.NewDonationCompletedEvent("user-1", donation.Donation{}, donation.Receipt{ReceiptID: "RCP-1"}, campaign)

		err := handler.HandleDonationCompleted(context.Background(), event)
		appErr, ok := apperrors.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusInternalServerError))
	})

	Describe("Handler", func() {
		It("lists the caller's entries", func() {
			Expect(repo.Create(context.Background(), &history.Entry{UserID: "user-1", ReceiptID: "RCP-1", Status: history.StatusRecorded})).To(Succeed())
			Expect(repo.Create(context.Background(), &history.Entry{UserID: "user-2", ReceiptID: "RCP-2", Status: history.StatusRecorded})).To(Succeed())

			req := httptest.NewRequest(http.MethodGet, "/donations/history?limit=5", nil)
			req = req.WithContext(apperrors.ContextWithUserID(req.Context(), "user-1"))
			rec := httptest.NewRecorder()

			history.NewHandler(service, logger).ListHistory(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"receipt_id":"RCP-1"`))
			Expect(rec.Body.String()).NotTo(ContainSubstring("RCP-2"))
		})

		It("refuses anonymous callers", func() {
			req := httptest.NewRequest(http.MethodGet, "/donations/history", nil)
			rec := httptest.NewRecorder()

			history.NewHandler(service, logger).ListHistory(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
