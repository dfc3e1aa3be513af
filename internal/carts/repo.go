package carts

import (
	"context"
	"errors"

	"github.com/angelmondragon/paytm-adapter/internal/repo"
	"github.com/angelmondragon/paytm-adapter/pkg/db"
	"github.com/angelmondragon/paytm-adapter/pkg/db/models"
	"github.com/angelmondragon/paytm-adapter/pkg/enums"
	"github.com/angelmondragon/paytm-adapter/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("cart not found")

// Repository exposes the cart reads and session writes the payment flow needs.
type Repository struct {
	repo.Base
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Retrieve loads a cart with its customer, region and payment sessions.
func (r *Repository) Retrieve(ctx context.Context, cartID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB(ctx).
		Preload("Customer").
		Preload("Region").
		Preload("PaymentSessions").
		Where("id = ?", cartID).
		First(&cart).Error
	if repo.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// SaveSession stores session data for the cart/provider pair, creating the
// session on first write.
func (r *Repository) SaveSession(ctx context.Context, cartID, providerID string, data types.SessionData) (*models.PaymentSession, error) {
	session, err := r.findSession(ctx, cartID, providerID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return r.updateSessionData(ctx, session, data)
	}

	session = &models.PaymentSession{
		ID:         "ps_" + uuid.NewString(),
		CartID:     cartID,
		ProviderID: providerID,
		Status:     enums.PaymentSessionStatusPending,
		IsSelected: true,
		Data:       data,
	}
	if err := r.DB(ctx).Create(session).Error; err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, err
		}
		// lost the insert race; the winner's row gets our data
		existing, findErr := r.findSession(ctx, cartID, providerID)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, err
		}
		return r.updateSessionData(ctx, existing, data)
	}
	return session, nil
}

// UpdateSessionStatus records the gateway-reported status on the session.
func (r *Repository) UpdateSessionStatus(ctx context.Context, sessionID string, status enums.PaymentSessionStatus) error {
	res := r.DB(ctx).Model(&models.PaymentSession{}).
		Where("id = ?", sessionID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) findSession(ctx context.Context, cartID, providerID string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := r.DB(ctx).
		Where("cart_id = ? AND provider_id = ?", cartID, providerID).
		First(&session).Error
	if repo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *Repository) updateSessionData(ctx context.Context, session *models.PaymentSession, data types.SessionData) (*models.PaymentSession, error) {
	session.Data = data
	if err := r.DB(ctx).Model(session).Select("data", "updated_at").Updates(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}
