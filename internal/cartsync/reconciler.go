package cartsync

import (
	"context"
	"fmt"

	"github.com/angelmondragon/paytm-adapter/internal/payments"
	"github.com/angelmondragon/paytm-adapter/pkg/db/models"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
	"github.com/angelmondragon/paytm-adapter/pkg/pubsub"
	"github.com/angelmondragon/paytm-adapter/pkg/types"
)

// EventCustomerUpdated fires when a cart's customer changes.
const EventCustomerUpdated = "cart.customer_updated"

const (
	OutcomeUpdated   = "updated"
	OutcomeNoSession = "no_session"
	OutcomeFailed    = "failed"
)

type cartStore interface {
	Retrieve(ctx context.Context, cartID string) (*models.Cart, error)
	SaveSession(ctx context.Context, cartID, providerID string, data types.SessionData) (*models.PaymentSession, error)
}

type sessionUpdater interface {
	UpdatePayment(ctx context.Context, data types.SessionData, cart *models.Cart) (types.SessionData, error)
}

type subscriber interface {
	Subscribe(event string, handler pubsub.Handler)
}

type reconcileMetrics interface {
	IncReconciliation(outcome string)
}

// Reconciler refreshes the Paytm session after a cart mutation.
type Reconciler struct {
	carts    cartStore
	payments sessionUpdater
	logg     *logger.Logger
	metrics  reconcileMetrics
}

func NewReconciler(carts cartStore, payments sessionUpdater, logg *logger.Logger, metrics reconcileMetrics) (*Reconciler, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Reconciler{carts: carts, payments: payments, logg: logg, metrics: metrics}, nil
}

// Register subscribes the reconciler to cart events on bus.
func (r *Reconciler) Register(bus subscriber) {
	bus.Subscribe(EventCustomerUpdated, r.HandleCustomerUpdated)
}

// HandleCustomerUpdated never returns an error; failures are logged and counted.
func (r *Reconciler) HandleCustomerUpdated(ctx context.Context, event pubsub.Event) error {
	ctx = r.logg.WithCartID(ctx, event.CartID)
	outcome := r.reconcile(ctx, event.CartID)
	if r.metrics != nil {
		r.metrics.IncReconciliation(outcome)
	}
	return nil
}

func (r *Reconciler) reconcile(ctx context.Context, cartID string) string {
	cart, err := r.carts.Retrieve(ctx, cartID)
	if err != nil {
		r.logg.Error(ctx, "cart reconciliation: load cart failed", err)
		return OutcomeFailed
	}

	session := cart.SessionFor(payments.ProviderID)
	if session == nil || session.Data.ID == "" {
		r.logg.Debug(ctx, "cart reconciliation: no paytm session")
		return OutcomeNoSession
	}

	data, err := r.payments.UpdatePayment(ctx, session.Data, cart)
	if err != nil {
		r.logg.Error(ctx, "cart reconciliation: update payment failed", err)
		return OutcomeFailed
	}

	if data.TxnToken != session.Data.TxnToken {
		if _, err := r.carts.SaveSession(ctx, cart.ID, payments.ProviderID, data); err != nil {
			r.logg.Error(ctx, "cart reconciliation: save session failed", err)
			return OutcomeFailed
		}
	}

	r.logg.Info(ctx, "cart reconciliation: paytm session refreshed")
	return OutcomeUpdated
}
