package orders

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/paytm-adapter/internal/repo"
	"github.com/angelmondragon/paytm-adapter/pkg/db/models"
	"github.com/angelmondragon/paytm-adapter/pkg/enums"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrAlreadyCaptured = errors.New("order payment already captured")
)

// Repository reads orders and performs the conditional capture write.
type Repository interface {
	RetrieveByCartID(ctx context.Context, cartID string) (*models.Order, error)
	Retrieve(ctx context.Context, orderID string) (*models.Order, error)
	CapturePayment(ctx context.Context, orderID string) error
}

type repository struct {
	repo.Base
	now func() time.Time
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db), now: time.Now}
}

func (r *repository) RetrieveByCartID(ctx context.Context, cartID string) (*models.Order, error) {
	return r.first(ctx, "cart_id = ?", cartID)
}

func (r *repository) Retrieve(ctx context.Context, orderID string) (*models.Order, error) {
	return r.first(ctx, "id = ?", orderID)
}

func (r *repository) first(ctx context.Context, query string, arg string) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).Where(query, arg).First(&order).Error
	if repo.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CapturePayment flips the order to captured only if it is not captured yet.
// A repeat call returns ErrAlreadyCaptured and writes nothing.
func (r *repository) CapturePayment(ctx context.Context, orderID string) error {
	now := r.now().UTC()
	return r.InTx(ctx, func(tx repo.Base) error {
		res := tx.DB(ctx).Model(&models.Order{}).
			Where("id = ? AND payment_status <> ?", orderID, enums.PaymentStatusCaptured).
			Updates(map[string]any{
				"payment_status": enums.PaymentStatusCaptured,
				"captured_at":    now,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.DB(ctx).Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrAlreadyCaptured
		}

		return tx.DB(ctx).Model(&models.Payment{}).
			Where("order_id = ? AND captured_at IS NULL", orderID).
			Updates(map[string]any{"captured_at": now, "updated_at": now}).Error
	})
}
