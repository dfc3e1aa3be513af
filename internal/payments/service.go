package payments

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/angelmondragon/paytm-adapter/internal/orders"
	"github.com/angelmondragon/paytm-adapter/pkg/db/models"
	"github.com/angelmondragon/paytm-adapter/pkg/enums"
	pkgerrors "github.com/angelmondragon/paytm-adapter/pkg/errors"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
	"github.com/angelmondragon/paytm-adapter/pkg/money"
	"github.com/angelmondragon/paytm-adapter/pkg/paytm"
	"github.com/angelmondragon/paytm-adapter/pkg/types"
	"github.com/google/uuid"
)

// ProviderID is the payment provider identifier carts use for Paytm sessions.
const ProviderID = "paytm"

const (
	CaptureOutcomeCaptured        = "captured"
	CaptureOutcomeAlreadyCaptured = "already_captured"
	CaptureOutcomeNotAuthorized   = "not_authorized"
	CaptureOutcomeOrderNotFound   = "order_not_found"
	CaptureOutcomeError           = "error"
)

type ServiceParams struct {
	Gateway  Gateway
	Verifier SignatureVerifier
	Orders   OrderStore
	Locker   CaptureLocker
	Logger   *logger.Logger
	Metrics  captureMetrics
	NewRefID func() string
}

// Service is the payment session state machine. It is the only place that
// decides which gateway and order transitions are legal.
type Service struct {
	gateway  Gateway
	verifier SignatureVerifier
	orders   OrderStore
	locker   CaptureLocker
	logg     *logger.Logger
	metrics  captureMetrics
	newRefID func() string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paytm gateway required")
	}
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order store required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	locker := params.Locker
	if locker == nil {
		locker = newLocalLocker()
	}
	newRefID := params.NewRefID
	if newRefID == nil {
		newRefID = uuid.NewString
	}
	return &Service{
		gateway:  params.Gateway,
		verifier: params.Verifier,
		orders:   params.Orders,
		locker:   locker,
		logg:     params.Logger,
		metrics:  params.Metrics,
		newRefID: newRefID,
	}, nil
}

// AuthorizeResult is the status passthrough returned by AuthorizePayment.
type AuthorizeResult struct {
	Data   types.SessionData
	Status enums.PaymentSessionStatus
}

// RefundOutcome describes a refund the gateway accepted.
type RefundOutcome struct {
	Data     types.SessionData
	RefID    string
	RefundID string
	Amount   string
	Status   string
}

// CreatePayment requests a transaction token for the cart. The cart must
// carry a customer; nothing is sent to the gateway otherwise.
func (s *Service) CreatePayment(ctx context.Context, cart *models.Cart) (types.SessionData, error) {
	if cart == nil {
		return types.SessionData{}, pkgerrors.New(pkgerrors.CodeValidation, "cart required")
	}
	if cart.Customer == nil {
		return types.SessionData{}, pkgerrors.New(pkgerrors.CodePrecondition, "customer required").
			WithDetails(map[string]any{"cart_id": cart.ID})
	}

	ctx = s.logg.WithCartID(ctx, cart.ID)
	currency := cart.CurrencyCode()
	extendInfo := cart.Metadata.ExtendInfo()

	email := cart.Email
	if strings.TrimSpace(email) == "" {
		email = cart.Customer.Email
	}

	token, err := s.gateway.InitiateTransaction(ctx, paytm.InitiateTransactionParams{
		OrderID: cart.ID,
		Amount:  gatewayMoney(cart.Total, currency),
		User: paytm.UserInfo{
			CustID:    cart.Customer.ID,
			Email:     email,
			FirstName: cart.Customer.FirstName,
			LastName:  cart.Customer.LastName,
			Mobile:    cart.Customer.Phone,
		},
		ExtendInfo: extendInfo,
	})
	if err != nil {
		s.logg.Error(ctx, "paytm initiate transaction failed", err)
		return types.SessionData{}, gatewayError(err, "initiate transaction")
	}

	s.logg.Info(ctx, "paytm transaction token issued")
	return types.SessionData{
		ID:           cart.ID,
		TxnToken:     token.TxnToken,
		Amount:       cart.Total,
		CurrencyCode: currency,
		ExtendInfo:   extendInfo,
	}, nil
}

// UpdatePayment reconciles an existing session with the current cart. A
// session without a token is bootstrapped through CreatePayment. Otherwise
// the input data is returned unchanged.
func (s *Service) UpdatePayment(ctx context.Context, data types.SessionData, cart *models.Cart) (types.SessionData, error) {
	if !data.HasToken() {
		return s.CreatePayment(ctx, cart)
	}
	if cart == nil {
		return data, pkgerrors.New(pkgerrors.CodeValidation, "cart required")
	}

	ctx = s.logg.WithCartID(ctx, data.ID)
	status, err := s.gateway.PaymentStatus(ctx, data.ID)
	if err != nil {
		s.logg.Error(ctx, "paytm status lookup failed", err)
		return data, gatewayError(err, "payment status")
	}

	currency := cart.CurrencyCode()
	extendInfo := cart.Metadata.ExtendInfo()
	if amountUnchanged(status, cart.Total, currency) && len(extendInfo) == 0 {
		return data, nil
	}

	amount := gatewayMoney(cart.Total, currency)
	return s.UpdatePaymentData(ctx, data, paytm.UpdateTransactionBody{
		TxnAmount:  &amount,
		ExtendInfo: extendInfo,
	})
}

// UpdatePaymentData sends a signed updateTransactionDetail call. Sessions
// without a token or cart id are left alone.
func (s *Service) UpdatePaymentData(ctx context.Context, data types.SessionData, update paytm.UpdateTransactionBody) (types.SessionData, error) {
	if !data.HasToken() || strings.TrimSpace(data.ID) == "" {
		return data, nil
	}

	body, err := json.Marshal(update)
	if err != nil {
		return data, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode update body")
	}
	signature, err := s.verifier.Sign(string(body))
	if err != nil {
		return data, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign update body")
	}

	if _, err := s.gateway.UpdateTransaction(ctx, paytm.UpdateTransactionParams{
		OrderID:   data.ID,
		TxnToken:  data.TxnToken,
		Body:      body,
		Signature: signature,
	}); err != nil {
		s.logg.Error(s.logg.WithCartID(ctx, data.ID), "paytm update transaction failed", err)
		return data, gatewayError(err, "update transaction")
	}
	return data, nil
}

// GetStatus maps the gateway's order status onto a session status. Unknown
// result codes and empty responses read as pending.
func (s *Service) GetStatus(ctx context.Context, data types.SessionData) (enums.PaymentSessionStatus, error) {
	status, err := s.RetrievePayment(ctx, data)
	if err != nil {
		return enums.PaymentSessionStatusPending, err
	}
	return sessionStatus(status), nil
}

// RetrievePayment returns the raw gateway status for the session. It may be
// nil when the gateway has nothing for the order.
func (s *Service) RetrievePayment(ctx context.Context, data types.SessionData) (*paytm.PaymentStatus, error) {
	status, err := s.gateway.PaymentStatus(ctx, data.ID)
	if err != nil {
		s.logg.Error(s.logg.WithCartID(ctx, data.ID), "paytm status lookup failed", err)
		return nil, gatewayError(err, "payment status")
	}
	return status, nil
}

func (s *Service) GetPaymentData(ctx context.Context, session *models.PaymentSession) (*paytm.PaymentStatus, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment session required")
	}
	return s.RetrievePayment(ctx, session.Data)
}

// AuthorizePayment reports the gateway status for the session without
// changing anything.
func (s *Service) AuthorizePayment(ctx context.Context, session *models.PaymentSession, _ map[string]any) (*AuthorizeResult, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment session required")
	}
	status, err := s.GetStatus(ctx, session.Data)
	if err != nil {
		return nil, err
	}
	return &AuthorizeResult{Data: session.Data, Status: status}, nil
}

// CapturePayment captures the order behind the payment once the gateway
// reports it authorized. Repeat calls never capture twice.
func (s *Service) CapturePayment(ctx context.Context, payment *models.Payment) (types.SessionData, error) {
	if payment == nil {
		return types.SessionData{}, pkgerrors.New(pkgerrors.CodeValidation, "payment required")
	}
	ctx = s.logg.WithCartID(ctx, payment.CartID)

	status, err := s.GetStatus(ctx, payment.Data)
	if err != nil {
		s.incCapture(CaptureOutcomeError)
		return payment.Data, err
	}
	if status != enums.PaymentSessionStatusAuthorized {
		s.logg.Info(s.logg.WithField(ctx, "session_status", status.String()), "capture skipped, payment not authorized")
		s.incCapture(CaptureOutcomeNotAuthorized)
		return payment.Data, nil
	}

	order, err := s.orders.RetrieveByCartID(ctx, payment.CartID)
	if errors.Is(err, orders.ErrNotFound) {
		s.logg.Warn(ctx, "capture skipped, no order for cart")
		s.incCapture(CaptureOutcomeOrderNotFound)
		return payment.Data, nil
	}
	if err != nil {
		s.incCapture(CaptureOutcomeError)
		return payment.Data, pkgerrors.Wrap(pkgerrors.CodeStore, err, "retrieve order")
	}

	if _, err := s.CaptureOrder(ctx, order); err != nil {
		return payment.Data, err
	}
	return payment.Data, nil
}

// CaptureOrder captures a resolved order under the per-order lock. The order
// is re-read once the lock is held; the caller's snapshot only short-circuits
// orders already known to be captured. It returns the capture outcome label.
func (s *Service) CaptureOrder(ctx context.Context, order *models.Order) (string, error) {
	if order == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	if order.PaymentStatus == enums.PaymentStatusCaptured {
		s.incCapture(CaptureOutcomeAlreadyCaptured)
		return CaptureOutcomeAlreadyCaptured, nil
	}

	release, err := s.locker.Lock(ctx, order.ID)
	if err != nil {
		s.incCapture(CaptureOutcomeError)
		return CaptureOutcomeError, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire capture lock")
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", relErr.Error()), "capture lock release failed")
		}
	}()

	current, err := s.orders.Retrieve(ctx, order.ID)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		s.incCapture(CaptureOutcomeOrderNotFound)
		return CaptureOutcomeOrderNotFound, nil
	case err != nil:
		s.incCapture(CaptureOutcomeError)
		return CaptureOutcomeError, pkgerrors.Wrap(pkgerrors.CodeStore, err, "retrieve order")
	case current.PaymentStatus == enums.PaymentStatusCaptured:
		s.incCapture(CaptureOutcomeAlreadyCaptured)
		return CaptureOutcomeAlreadyCaptured, nil
	}

	err = s.orders.CapturePayment(ctx, order.ID)
	switch {
	case err == nil:
		s.logg.Info(ctx, "order payment captured")
		s.incCapture(CaptureOutcomeCaptured)
		return CaptureOutcomeCaptured, nil
	case errors.Is(err, orders.ErrAlreadyCaptured):
		s.incCapture(CaptureOutcomeAlreadyCaptured)
		return CaptureOutcomeAlreadyCaptured, nil
	case errors.Is(err, orders.ErrNotFound):
		s.incCapture(CaptureOutcomeOrderNotFound)
		return CaptureOutcomeOrderNotFound, nil
	default:
		s.logg.Error(ctx, "order capture failed", err)
		s.incCapture(CaptureOutcomeError)
		return CaptureOutcomeError, pkgerrors.Wrap(pkgerrors.CodeStore, err, "capture order payment")
	}
}

// CancelPayment refunds the full payment amount.
func (s *Service) CancelPayment(ctx context.Context, payment *models.Payment) (*RefundOutcome, error) {
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment required")
	}
	return s.RefundPayment(ctx, payment, payment.Amount)
}

// RefundPayment issues a one-shot refund capped at the payment amount. Every
// call uses a fresh reference id and failures are not retried.
func (s *Service) RefundPayment(ctx context.Context, payment *models.Payment, refundAmount int64) (*RefundOutcome, error) {
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment required")
	}
	if refundAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	ctx = s.logg.WithCartID(ctx, payment.CartID)

	status, err := s.RetrievePayment(ctx, payment.Data)
	if err != nil {
		return nil, err
	}
	if status == nil || strings.TrimSpace(status.TxnID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "no gateway transaction to refund").
			WithDetails(map[string]any{"cart_id": payment.CartID})
	}

	refID := s.newRefID()
	amount := money.FormatAmount(money.Min(payment.Amount, refundAmount), payment.CurrencyCode)

	result, err := s.gateway.Refund(ctx, paytm.RefundParams{
		OrderID: payment.Data.ID,
		RefID:   refID,
		TxnID:   status.TxnID,
		Amount:  amount,
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "ref_id", refID), "paytm refund failed", err)
		return nil, gatewayError(err, "refund")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"ref_id": refID, "amount": amount}), "paytm refund accepted")
	return &RefundOutcome{
		Data:     payment.Data,
		RefID:    refID,
		RefundID: result.RefundID,
		Amount:   amount,
		Status:   result.ResultInfo.ResultStatus,
	}, nil
}

// RetrieveSavedMethods always returns an empty list; Paytm keeps no saved methods for us.
func (s *Service) RetrieveSavedMethods(_ context.Context, _ *models.Customer) ([]map[string]any, error) {
	return []map[string]any{}, nil
}

// DeletePayment is a no-op. Sessions are never deleted through the gateway.
func (s *Service) DeletePayment(_ context.Context, _ *models.PaymentSession) error {
	return nil
}

func (s *Service) incCapture(outcome string) {
	if s.metrics != nil {
		s.metrics.IncCapture(outcome)
	}
}

func sessionStatus(status *paytm.PaymentStatus) enums.PaymentSessionStatus {
	if status == nil {
		return enums.PaymentSessionStatusPending
	}
	switch status.ResultInfo.ResultStatus {
	case paytm.StatusTxnSuccess:
		return enums.PaymentSessionStatusAuthorized
	case paytm.StatusTxnFailure:
		return enums.PaymentSessionStatusError
	default:
		return enums.PaymentSessionStatusPending
	}
}

func amountUnchanged(status *paytm.PaymentStatus, total int64, currency string) bool {
	if status == nil || strings.TrimSpace(status.TxnAmount) == "" {
		return false
	}
	reported, err := money.ParseAmount(status.TxnAmount, currency)
	if err != nil {
		return false
	}
	return reported == total
}

func gatewayMoney(amount int64, currency string) paytm.Money {
	return paytm.Money{
		Value:    money.FormatAmount(amount, currency),
		Currency: strings.ToUpper(currency),
	}
}

func gatewayError(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paytm "+op+" failed")
}
