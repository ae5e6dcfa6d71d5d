package checkout_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/checkout"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
	paymentgatewaytypes "github.com/frahmantamala/donation-checkout/internal/core/datamodel/paymentgateway"
)

type stubCampaigns struct {
	campaigns map[string]donation.Campaign
}

func (s *stubCampaigns) GetCampaign(_ context.Context, id string) (*donation.Campaign, error) {
	c, ok := s.campaigns[id]
	if !ok {
		return nil, apperrors.ErrCampaignNotFound
	}
	return &c, nil
}

type sessionBody struct {
	SessionID string `json:"session_id"`
	Step      struct {
		Index int    `json:"index"`
		Name  string `json:"name"`
	} `json:"step"`
	Form    donation.FormData `json:"form"`
	Errors  map[string]string `json:"errors"`
	Receipt *donation.Receipt `json:"receipt"`
}

var _ = Describe("Handler", func() {
	var (
		router    chi.Router
		sessions  *checkout.SessionStore
		donations *stubDonations
		user      string
	)

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(data)
		}
		req := httptest.NewRequest(method, path, reader)
		req = req.WithContext(apperrors.ContextWithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder) sessionBody {
		var out sessionBody
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		return out
	}

	create := func() string {
		rec := do(http.MethodPost, "/checkout/sessions", map[string]string{"campaign_id": "c1"})
		Expect(rec.Code).To(Equal(http.StatusCreated))
		return decode(rec).SessionID
	}

	BeforeEach(func() {
		user = "user-1"
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		sessions = checkout.NewSessionStore()
		donations = &stubDonations{record: &donation.Donation{ID: "d1", ReceiptID: "RCP-9", TransactionID: "TXN-9"}}
		profiles := &stubProfiles{profile: &donation.Profile{FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Phone: "9876543210"}}

		handler := checkout.NewHandler(sessions, &stubCampaigns{campaigns: map[string]donation.Campaign{
			"c1": {ID: "c1", Title: "Clean Water"},
		}}, checkout.Dependencies{
			Donations: donations,
			Profiles:  profiles,
			Now:       func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) },
		}, logger)

		r := chi.NewRouter()
		r.Route("/checkout/sessions", func(sr chi.Router) {
			sr.Post("/", handler.CreateSession)
			sr.Get("/{id}", handler.GetSession)
			sr.Put("/{id}/form", handler.UpdateForm)
			sr.Post("/{id}/next", handler.Next)
			sr.Post("/{id}/previous", handler.Previous)
			sr.Post("/{id}/submit", handler.Submit)
			sr.Post("/{id}/reset", handler.Reset)
			sr.Delete("/{id}", handler.DeleteSession)
		})
		router = r
	})

	It("creates a pre-filled session on the amount step", func() {
		rec := do(http.MethodPost, "/checkout/sessions", map[string]string{"campaign_id": "c1"})

		Expect(rec.Code).To(Equal(http.StatusCreated))
		body := decode(rec)
		Expect(body.SessionID).NotTo(BeEmpty())
		Expect(body.Step.Name).To(Equal("amount"))
		Expect(body.Form.DonorInfo.Email).To(Equal("asha@example.com"))
		Expect(sessions.Len()).To(Equal(1))
	})

	It("requires a campaign id", func() {
		rec := do(http.MethodPost, "/checkout/sessions", map[string]string{"campaign_id": ""})
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring(`"field":"campaign_id"`))
		Expect(sessions.Len()).To(BeZero())
	})

	It("returns 404 for unknown campaigns", func() {
		rec := do(http.MethodPost, "/checkout/sessions", map[string]string{"campaign_id": "missing"})
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("walks a donation through to the receipt", func() {
		id := create()
		form := validForm()
		form.PaymentDetails.Method = donation.MethodUPI

		Expect(do(http.MethodPut, "/checkout/sessions/"+id+"/form", form).Code).To(Equal(http.StatusOK))
		Expect(decode(do(http.MethodPost, "/checkout/sessions/"+id+"/next", nil)).Step.Name).To(Equal("donor_details"))
		Expect(decode(do(http.MethodPost, "/checkout/sessions/"+id+"/next", nil)).Step.Name).To(Equal("review"))

		rec := do(http.MethodPost, "/checkout/sessions/"+id+"/submit", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		body := decode(rec)
		Expect(body.Step.Name).To(Equal("receipt"))
		Expect(body.Receipt).NotTo(BeNil())
		Expect(body.Receipt.ReceiptID).To(Equal("RCP-9"))
		Expect(donations.Calls()).To(Equal(1))
	})

	It("reports field errors when a step is invalid", func() {
		id := create()

		rec := do(http.MethodPost, "/checkout/sessions/"+id+"/next", nil)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring(`"field":"amount"`))

		snap := decode(do(http.MethodGet, "/checkout/sessions/"+id, nil))
		Expect(snap.Step.Name).To(Equal("amount"))
		Expect(snap.Errors).To(HaveKey("amount"))
	})

	It("hides sessions from other users", func() {
		id := create()
		user = "user-2"

		Expect(do(http.MethodGet, "/checkout/sessions/"+id, nil).Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodDelete, "/checkout/sessions/"+id, nil).Code).To(Equal(http.StatusNotFound))
	})

	It("resets a session and pre-fills it again", func() {
		id := create()
		form := validForm()
		form.DonorInfo.Email = "other@example.com"
		Expect(do(http.MethodPut, "/checkout/sessions/"+id+"/form", form).Code).To(Equal(http.StatusOK))

		body := decode(do(http.MethodPost, "/checkout/sessions/"+id+"/reset", nil))
		Expect(body.Step.Name).To(Equal("amount"))
		Expect(body.Form.Amount).To(BeZero())
		Expect(body.Form.DonorInfo.Email).To(Equal("asha@example.com"))
	})

	It("deletes sessions", func() {
		id := create()

		Expect(do(http.MethodDelete, "/checkout/sessions/"+id, nil).Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodGet, "/checkout/sessions/"+id, nil).Code).To(Equal(http.StatusNotFound))
	})

	It("rejects unknown form fields", func() {
		id := create()
		rec := do(http.MethodPut, "/checkout/sessions/"+id+"/form", map[string]interface{}{"amount": 10, "coupon": "X"})
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("SessionStore", func() {
	It("sweeps idle sessions and closes them", func() {
		store := checkout.NewSessionStore()
		c := checkout.NewController(donation.Campaign{ID: "c1"}, checkout.Dependencies{})
		Expect(c.SetForm(validForm())).To(Succeed())
		store.Add("user-1", c)

		Expect(store.Sweep(time.Hour)).To(Equal(0))
		Expect(store.Sweep(-time.Second)).To(Equal(1))
		Expect(store.Len()).To(BeZero())
		Expect(c.Snapshot().Form).To(Equal(donation.NewFormData()))
	})

	It("keeps a session whose payment is in flight and lets the submit finish", func() {
		gateway := newStubGateway()
		gateway.release = make(chan struct{})
		gateway.confirmation = &paymentgatewaytypes.Confirmation{PaymentID: "pay_1", OrderID: "order_1", Signature: "sig"}
		donations := &stubDonations{record: &donation.Donation{ID: "d1", ReceiptID: "RCP-1"}}

		store := checkout.NewSessionStore()
		c := checkout.NewController(donation.Campaign{ID: "c1", Title: "Clean Water"}, checkout.Dependencies{
			Donations: donations,
			Gateway:   gateway,
		})
		form := validForm()
		form.PaymentDetails.Method = donation.MethodRazorpay
		Expect(c.SetForm(form)).To(Succeed())
		_, err := c.Next()
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Next()
		Expect(err).NotTo(HaveOccurred())
		store.Add("user-1", c)

		type outcome struct {
			receipt *donation.Receipt
			err     error
		}
		done := make(chan outcome, 1)
		go func() {
			defer GinkgoRecover()
			receipt, err := c.Submit(context.Background())
			done <- outcome{receipt, err}
		}()
		Eventually(gateway.started).Should(Receive())

		Expect(store.Sweep(-time.Second)).To(Equal(0))
		Expect(store.Len()).To(Equal(1))

		close(gateway.release)
		var got outcome
		Eventually(done).Should(Receive(&got))
		Expect(got.err).NotTo(HaveOccurred())
		Expect(got.receipt.ReceiptID).To(Equal("RCP-1"))
		Expect(c.Step()).To(Equal(checkout.StepReceipt))
	})
})
