package paytmwebhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/angelmondragon/paytm-adapter/internal/orders"
	"github.com/angelmondragon/paytm-adapter/pkg/db/models"
	"github.com/angelmondragon/paytm-adapter/pkg/enums"
	pkgerrors "github.com/angelmondragon/paytm-adapter/pkg/errors"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
	"github.com/angelmondragon/paytm-adapter/pkg/paytm"
)

// Outcomes recorded for every notification.
const (
	OutcomeCaptured        = "captured"
	OutcomeAlreadyCaptured = "already_captured"
	OutcomeDuplicate       = "duplicate"
	OutcomeIgnored         = "ignored"
	OutcomeInvalid         = "invalid"
	OutcomeUnverified      = "unverified"
	OutcomeOrderNotFound   = "order_not_found"
	OutcomeError           = "error"
)

type verifier interface {
	Verify(body, signature string) bool
}

type orderStore interface {
	RetrieveByCartID(ctx context.Context, cartID string) (*models.Order, error)
}

// capturer is satisfied by payments.Service.
type capturer interface {
	CaptureOrder(ctx context.Context, order *models.Order) (string, error)
}

type guard interface {
	CheckAndMark(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type webhookMetrics interface {
	IncWebhook(outcome string)
}

type ServiceParams struct {
	MerchantID string
	Verifier   verifier
	Orders     orderStore
	Capturer   capturer
	Guard      guard
	Logger     *logger.Logger
	Metrics    webhookMetrics
}

type Service struct {
	merchantID string
	verifier   verifier
	orders     orderStore
	capturer   capturer
	guard      guard
	logg       *logger.Logger
	metrics    webhookMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if strings.TrimSpace(params.MerchantID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "merchant id required")
	}
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order store required")
	}
	if params.Capturer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "capturer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		merchantID: params.MerchantID,
		verifier:   params.Verifier,
		orders:     params.Orders,
		capturer:   params.Capturer,
		guard:      params.Guard,
		logg:       params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// Notification is the subset of the Paytm callback the service acts on.
// JSON decoding matches keys case-insensitively, so MID/ORDERID/CHECKSUMHASH/STATUS
// and mid/orderId/checksumhash/status both land here.
type Notification struct {
	MID          string `json:"mid"`
	OrderID      string `json:"orderId"`
	ChecksumHash string `json:"checksumhash"`
	Status       string `json:"status"`
	TxnID        string `json:"txnId"`
	TxnAmount    string `json:"txnAmount"`
}

// DecodeJSON parses a JSON notification body.
func DecodeJSON(payload []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode paytm notification")
	}
	return &n, nil
}

// DecodeForm parses the form-encoded callback Paytm posts to callback urls.
func DecodeForm(values url.Values) *Notification {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := values.Get(k); v != "" {
				return v
			}
		}
		return ""
	}
	return &Notification{
		MID:          get("MID", "mid"),
		OrderID:      get("ORDERID", "orderId", "orderid"),
		ChecksumHash: get("CHECKSUMHASH", "checksumhash"),
		Status:       get("STATUS", "status"),
		TxnID:        get("TXNID", "txnId"),
		TxnAmount:    get("TXNAMOUNT", "txnAmount"),
	}
}

// Handle verifies a notification and captures the matching order on
// TXN_SUCCESS. Unverifiable or irrelevant notifications are logged and
// dropped with a nil error; only store and capture failures are returned.
func (s *Service) Handle(ctx context.Context, n *Notification) (string, error) {
	outcome, err := s.handle(ctx, n)
	if s.metrics != nil {
		s.metrics.IncWebhook(outcome)
	}
	return outcome, err
}

func (s *Service) handle(ctx context.Context, n *Notification) (string, error) {
	if n == nil || strings.TrimSpace(n.OrderID) == "" || strings.TrimSpace(n.ChecksumHash) == "" {
		s.logg.Warn(ctx, "paytm notification missing order id or checksum")
		return OutcomeInvalid, nil
	}

	orderID := strings.TrimSpace(n.OrderID)
	status := strings.ToUpper(strings.TrimSpace(n.Status))
	ctx = s.logg.WithFields(s.logg.WithCartID(ctx, orderID), map[string]any{"paytm_status": status})

	body, err := canonicalBody(s.merchantID, orderID)
	if err != nil {
		return OutcomeError, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode canonical body")
	}
	if !s.verifier.Verify(body, n.ChecksumHash) {
		s.logg.Warn(ctx, "paytm notification failed checksum verification")
		return OutcomeUnverified, nil
	}

	key := EventKey(orderID, status)
	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, key)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "paytm notification idempotency check failed")
		} else if seen {
			s.logg.Info(ctx, "paytm notification already processed")
			return OutcomeDuplicate, nil
		}
	}

	outcome, err := s.apply(ctx, orderID, status)
	if s.guard != nil && !settled(outcome, err) {
		if delErr := s.guard.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", delErr.Error()), "paytm notification idempotency release failed")
		}
	}
	return outcome, err
}

func (s *Service) apply(ctx context.Context, orderID, status string) (string, error) {
	order, err := s.orders.RetrieveByCartID(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		s.logg.Info(ctx, "paytm notification for unknown order")
		return OutcomeOrderNotFound, nil
	}
	if err != nil {
		s.logg.Error(ctx, "paytm notification order lookup failed", err)
		return OutcomeError, pkgerrors.Wrap(pkgerrors.CodeStore, err, "retrieve order")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	if status != paytm.StatusTxnSuccess {
		s.logg.Info(ctx, "paytm notification status needs no action")
		return OutcomeIgnored, nil
	}
	if order.PaymentStatus == enums.PaymentStatusCaptured {
		return OutcomeAlreadyCaptured, nil
	}

	result, err := s.capturer.CaptureOrder(ctx, order)
	if err != nil {
		s.logg.Error(ctx, "paytm notification capture failed", err)
		return OutcomeError, err
	}
	return result, nil
}

// settled reports whether a notification reached a final result. Anything
// else releases its key so a redelivery is processed again.
func settled(outcome string, err error) bool {
	if err != nil {
		return false
	}
	return outcome != OutcomeOrderNotFound && outcome != OutcomeError
}

// canonicalBody renders {"mid":...,"orderId":...}, the body Paytm signs for notifications.
func canonicalBody(merchantID, orderID string) (string, error) {
	payload := struct {
		MID     string `json:"mid"`
		OrderID string `json:"orderId"`
	}{MID: merchantID, OrderID: orderID}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
