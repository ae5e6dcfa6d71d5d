package checkout_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
	paymentgatewaytypes "github.com/frahmantamala/donation-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/donation-checkout/internal/core/events"
)

type stubDonations struct {
	mu       sync.Mutex
	calls    int32
	payloads []donation.CreatePayload
	record   *donation.Donation
	err      error
	ctxErr   error
}

func (s *stubDonations) CreateDonation(ctx context.Context, payload donation.CreatePayload) (*donation.Donation, error) {
	atomic.AddInt32(&s.calls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	s.ctxErr = ctx.Err()
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubDonations) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

func (s *stubDonations) LastPayload() donation.CreatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloads[len(s.payloads)-1]
}

type stubGateway struct {
	calls        int32
	started      chan struct{}
	release      chan struct{}
	confirmation *paymentgatewaytypes.Confirmation
	err          error
	checkout     *paymentgatewaytypes.PendingCheckout
	lastRequest  *paymentgatewaytypes.PaymentRequest
}

func newStubGateway() *stubGateway {
	return &stubGateway{started: make(chan struct{}, 4)}
}

func (s *stubGateway) ProcessPayment(ctx context.Context, req *paymentgatewaytypes.PaymentRequest, onCheckout func(paymentgatewaytypes.PendingCheckout)) (*paymentgatewaytypes.Confirmation, error) {
	atomic.AddInt32(&s.calls, 1)
	s.lastRequest = req
	if s.checkout != nil && onCheckout != nil {
		onCheckout(*s.checkout)
	}
	s.started <- struct{}{}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.confirmation, nil
}

func (s *stubGateway) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

type stubProfiles struct {
	calls   int32
	profile *donation.Profile
	err     error
}

func (s *stubProfiles) CurrentProfile(ctx context.Context) (*donation.Profile, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.profile, s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func (p *recordingPublisher) Last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}
