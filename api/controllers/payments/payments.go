package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/paytm-adapter/api/responses"
	"github.com/angelmondragon/paytm-adapter/api/validators"
	"github.com/angelmondragon/paytm-adapter/internal/carts"
	paymentsvc "github.com/angelmondragon/paytm-adapter/internal/payments"
	"github.com/angelmondragon/paytm-adapter/pkg/db/models"
	"github.com/angelmondragon/paytm-adapter/pkg/enums"
	pkgerrors "github.com/angelmondragon/paytm-adapter/pkg/errors"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
	"github.com/angelmondragon/paytm-adapter/pkg/money"
	"github.com/angelmondragon/paytm-adapter/pkg/types"
)

const maxCartIDLength = 128

type PaymentService interface {
	UpdatePayment(ctx context.Context, data types.SessionData, cart *models.Cart) (types.SessionData, error)
	GetStatus(ctx context.Context, data types.SessionData) (enums.PaymentSessionStatus, error)
	CapturePayment(ctx context.Context, payment *models.Payment) (types.SessionData, error)
	RefundPayment(ctx context.Context, payment *models.Payment, amount int64) (*paymentsvc.RefundOutcome, error)
	CancelPayment(ctx context.Context, payment *models.Payment) (*paymentsvc.RefundOutcome, error)
}

type CartStore interface {
	Retrieve(ctx context.Context, cartID string) (*models.Cart, error)
	SaveSession(ctx context.Context, cartID, providerID string, data types.SessionData) (*models.PaymentSession, error)
	UpdateSessionStatus(ctx context.Context, sessionID string, status enums.PaymentSessionStatus) error
}

type PaymentStore interface {
	RetrieveByCartID(ctx context.Context, cartID string) (*models.Payment, error)
	RecordRefund(ctx context.Context, paymentID string, amount int64) error
	MarkCanceled(ctx context.Context, paymentID string) error
}

type sessionResponse struct {
	SessionID string                     `json:"session_id"`
	CartID    string                     `json:"cart_id"`
	Status    enums.PaymentSessionStatus `json:"status"`
	Data      types.SessionData          `json:"data"`
}

type captureResponse struct {
	PaymentID string            `json:"payment_id"`
	CartID    string            `json:"cart_id"`
	Data      types.SessionData `json:"data"`
}

type refundRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type refundResponse struct {
	PaymentID string `json:"payment_id"`
	CartID    string `json:"cart_id"`
	RefID     string `json:"ref_id"`
	RefundID  string `json:"refund_id,omitempty"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
}

// PaymentSession opens the cart's Paytm session, or brings an existing one
// in line with the cart, and persists the resulting session data.
func PaymentSession(svc PaymentService, cartStore CartStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || cartStore == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		ctx := r.Context()

		cart, err := loadCart(ctx, cartStore, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var data types.SessionData
		if existing := cart.SessionFor(paymentsvc.ProviderID); existing != nil {
			data = existing.Data
		}

		data, err = svc.UpdatePayment(ctx, data, cart)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := cartStore.SaveSession(ctx, cart.ID, paymentsvc.ProviderID, data)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeStore, err, "save payment session"))
			return
		}

		responses.WriteSuccess(w, sessionResponse{
			SessionID: session.ID,
			CartID:    cart.ID,
			Status:    session.Status,
			Data:      session.Data,
		})
	}
}

// PaymentSessionStatus reports the gateway status of the cart's session and
// persists it when it moved.
func PaymentSessionStatus(svc PaymentService, cartStore CartStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || cartStore == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		ctx := r.Context()

		cart, err := loadCart(ctx, cartStore, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		session := cart.SessionFor(paymentsvc.ProviderID)
		if session == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found"))
			return
		}

		status, err := svc.GetStatus(ctx, session.Data)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if status != session.Status {
			if err := cartStore.UpdateSessionStatus(ctx, session.ID, status); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeStore, err, "update payment session status"))
				return
			}
		}

		responses.WriteSuccess(w, sessionResponse{
			SessionID: session.ID,
			CartID:    cart.ID,
			Status:    status,
			Data:      session.Data,
		})
	}
}

// Capture captures the order behind the cart's payment.
func Capture(svc PaymentService, paymentStore PaymentStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || paymentStore == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		ctx := r.Context()

		payment, err := loadPayment(ctx, paymentStore, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		data, err := svc.CapturePayment(ctx, payment)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, captureResponse{PaymentID: payment.ID, CartID: payment.CartID, Data: data})
	}
}

// Refund issues a partial or full refund of the cart's payment.
func Refund(svc PaymentService, paymentStore PaymentStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || paymentStore == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		ctx := r.Context()

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payment, err := loadPayment(ctx, paymentStore, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := svc.RefundPayment(ctx, payment, payload.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		recordRefund(ctx, paymentStore, logg, payment, money.Min(payment.Amount, payload.Amount))

		responses.WriteSuccessStatus(w, http.StatusCreated, newRefundResponse(payment, outcome))
	}
}

// Cancel refunds the full payment amount and marks the payment canceled.
func Cancel(svc PaymentService, paymentStore PaymentStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || paymentStore == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		ctx := r.Context()

		payment, err := loadPayment(ctx, paymentStore, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := svc.CancelPayment(ctx, payment)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		recordRefund(ctx, paymentStore, logg, payment, payment.Amount)
		if err := paymentStore.MarkCanceled(ctx, payment.ID); err != nil && logg != nil {
			logg.Error(logg.WithField(ctx, "payment_id", payment.ID), "mark payment canceled failed", err)
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newRefundResponse(payment, outcome))
	}
}

// The gateway already accepted the refund, so a bookkeeping failure is logged
// rather than reported as a failed refund.
func recordRefund(ctx context.Context, paymentStore PaymentStore, logg *logger.Logger, payment *models.Payment, amount int64) {
	if err := paymentStore.RecordRefund(ctx, payment.ID, amount); err != nil && logg != nil {
		logg.Error(logg.WithField(ctx, "payment_id", payment.ID), "record refund failed", err)
	}
}

func loadCart(ctx context.Context, cartStore CartStore, r *http.Request) (*models.Cart, error) {
	cartID, err := cartIDParam(r)
	if err != nil {
		return nil, err
	}
	cart, err := cartStore.Retrieve(ctx, cartID)
	if errors.Is(err, carts.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found").WithDetails(map[string]any{"cart_id": cartID})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "retrieve cart")
	}
	return cart, nil
}

func loadPayment(ctx context.Context, paymentStore PaymentStore, r *http.Request) (*models.Payment, error) {
	cartID, err := cartIDParam(r)
	if err != nil {
		return nil, err
	}
	payment, err := paymentStore.RetrieveByCartID(ctx, cartID)
	if errors.Is(err, paymentsvc.ErrPaymentNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found").WithDetails(map[string]any{"cart_id": cartID})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "retrieve payment")
	}
	return payment, nil
}

func cartIDParam(r *http.Request) (string, error) {
	cartID := validators.SanitizeString(chi.URLParam(r, "cartId"), maxCartIDLength)
	if cartID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	return cartID, nil
}

func newRefundResponse(payment *models.Payment, outcome *paymentsvc.RefundOutcome) refundResponse {
	resp := refundResponse{PaymentID: payment.ID, CartID: payment.CartID}
	if outcome != nil {
		resp.RefID = outcome.RefID
		resp.RefundID = outcome.RefundID
		resp.Amount = outcome.Amount
		resp.Status = outcome.Status
	}
	return resp
}
