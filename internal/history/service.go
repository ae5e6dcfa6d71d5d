package history

import (
	"context"
	"log/slog"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Record(ctx context.Context, entry *Entry) error {
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to store donation history entry",
			"error", err,
			"user_id", entry.UserID,
			"receipt_id", entry.ReceiptID,
			"payment_id", entry.PaymentID)
		return apperrors.NewInternalError("failed to store donation history", err)
	}
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("unauthorized", apperrors.ErrCodeInvalidToken)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	entries, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Error("failed to list donation history", "error", err, "user_id", userID)
		return nil, apperrors.NewInternalError("failed to list donation history", err)
	}
	return entries, nil
}
