package payments

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/paytm-adapter/internal/repo"
	"github.com/angelmondragon/paytm-adapter/pkg/db/models"
	"gorm.io/gorm"
)

var ErrPaymentNotFound = errors.New("payment not found")

// Repository reads the payment records created when a cart becomes an order.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// RetrieveByCartID returns the Paytm payment recorded for the cart.
func (r *Repository) RetrieveByCartID(ctx context.Context, cartID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.DB(ctx).
		Where("cart_id = ? AND provider_id = ?", cartID, ProviderID).
		Order("created_at DESC").
		First(&payment).Error
	if repo.IsNotFound(err) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// RecordRefund adds amount to the refunded total, never past the payment amount.
func (r *Repository) RecordRefund(ctx context.Context, paymentID string, amount int64) error {
	res := r.DB(ctx).Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]any{
			"amount_refunded": gorm.Expr("CASE WHEN amount_refunded + ? > amount THEN amount ELSE amount_refunded + ? END", amount, amount),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// MarkCanceled stamps canceled_at once.
func (r *Repository) MarkCanceled(ctx context.Context, paymentID string) error {
	now := time.Now().UTC()
	return r.DB(ctx).Model(&models.Payment{}).
		Where("id = ? AND canceled_at IS NULL", paymentID).
		Updates(map[string]any{"canceled_at": now, "updated_at": now}).Error
}
