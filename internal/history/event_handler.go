package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/donation-checkout/internal/core/events"
)

type EventHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewEventHandler(service *Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

func (h *EventHandler) HandleDonationCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.DonationCompletedEvent)
	if !ok {
		h.logger.Error("invalid event type for donation completed handler", "event_type", event.EventType())
		return fmt.Errorf("expected DonationCompletedEvent, got %T", event)
	}

	h.logger.Info("recording donation receipt",
		"receipt_id", completed.Receipt.ReceiptID,
		"user_id", completed.UserID,
		"event_id", completed.EventID())

	return h.service.Record(ctx, NewRecordedEntry(completed.UserID, completed.Receipt, completed.Campaign))
}

func (h *EventHandler) HandleDonationRecordFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(*events.DonationRecordFailedEvent)
	if !ok {
		h.logger.Error("invalid event type for donation record failed handler", "event_type", event.EventType())
		return fmt.Errorf("expected DonationRecordFailedEvent, got %T", event)
	}

	h.logger.Warn("paid donation was not recorded upstream",
		"payment_id", failed.Confirmation.PaymentID,
		"order_id", failed.Confirmation.OrderID,
		"user_id", failed.UserID,
		"reason", failed.FailureReason,
		"event_id", failed.EventID())

	entry := NewUnrecordedEntry(failed.UserID, failed.Request, failed.Campaign,
		failed.Confirmation.PaymentID, failed.Confirmation.OrderID, failed.FailureReason, failed.OccurredAt())
	return h.service.Record(ctx, entry)
}

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

func (h *EventHandler) RegisterEventHandlers(bus Subscriber) {
	bus.Subscribe(events.EventTypeDonationCompleted, h.HandleDonationCompleted)
	bus.Subscribe(events.EventTypeDonationRecordFailed, h.HandleDonationRecordFailed)

	h.logger.Info("history event handlers registered",
		"handlers", []string{events.EventTypeDonationCompleted, events.EventTypeDonationRecordFailed})
}
