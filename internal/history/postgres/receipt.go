package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/donation-checkout/internal/history"
)

// ReceiptRepository implements history.Repository using GORM
type ReceiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) history.Repository {
	return &ReceiptRepository{db: db}
}

func (r *ReceiptRepository) Create(ctx context.Context, entry *history.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByUser returns the user's newest entries first.
func (r *ReceiptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*history.Entry, error) {
	var entries []*history.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("donated_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
