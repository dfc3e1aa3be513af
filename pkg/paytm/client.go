package paytm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/paytm-adapter/pkg/checksum"
	"github.com/angelmondragon/paytm-adapter/pkg/config"
	pkgerrors "github.com/angelmondragon/paytm-adapter/pkg/errors"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
)

const (
	stagingEnv    = "staging"
	productionEnv = "production"

	initiatePath = "/theia/api/v1/initiateTransaction"
	statusPath   = "/v3/order/status"
	updatePath   = "/theia/api/v1/updateTransactionDetail"
	refundPath   = "/refund/apply"

	maxResponseBytes = 1 << 20
)

const (
	OpInitiate = "initiate_transaction"
	OpStatus   = "order_status"
	OpUpdate   = "update_transaction"
	OpRefund   = "refund"

	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	errMerchantIDRequired = errors.New("paytm merchant id is required")
	errLoggerRequired     = errors.New("paytm logger is required")
	errEmptyBody          = errors.New("paytm response has no body")
)

var baseURLs = map[string]string{
	stagingEnv:    "https://securegw-stage.paytm.in",
	productionEnv: "https://securegw.paytm.in",
}

// Signer produces the head signature for a serialized request body.
type Signer interface {
	Sign(body string) (string, error)
}

// Observer receives one callback per gateway round trip.
type Observer interface {
	ObserveGatewayCall(operation, outcome string, elapsed time.Duration)
}

// Client talks to the Paytm payment gateway for a single merchant.
type Client struct {
	http        *http.Client
	signer      Signer
	observer    Observer
	logger      *logger.Logger
	baseURL     string
	environment string
	mid         string
	website     string
	callbackURL string
	channelID   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBaseURL overrides the environment host, used against local fakes.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(raw), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func WithSigner(s Signer) Option {
	return func(c *Client) {
		if s != nil {
			c.signer = s
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient validates the merchant configuration and selects the staging or production host.
func NewClient(ctx context.Context, cfg config.PaytmConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	mid := strings.TrimSpace(cfg.MerchantID)
	if mid == "" {
		return nil, errMerchantIDRequired
	}

	env := productionEnv
	if cfg.TestMode {
		env = stagingEnv
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	channel := strings.TrimSpace(cfg.ChannelID)
	if channel == "" {
		channel = "WEB"
	}

	c := &Client{
		http:        &http.Client{Timeout: timeout},
		logger:      logg,
		baseURL:     baseURLs[env],
		environment: env,
		mid:         mid,
		website:     cfg.WebsiteName(),
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		channelID:   channel,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.signer == nil {
		verifier, err := checksum.NewVerifier(cfg.MerchantKey)
		if err != nil {
			return nil, err
		}
		c.signer = verifier
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"environment": env,
		"website":     c.website,
	}), "paytm client initialized")
	return c, nil
}

func (c *Client) MerchantID() string {
	if c == nil {
		return ""
	}
	return c.mid
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) Website() string {
	if c == nil {
		return ""
	}
	return c.website
}

// InitiateTransaction requests a transaction token for an order.
func (c *Client) InitiateTransaction(ctx context.Context, params InitiateTransactionParams) (*TransactionToken, error) {
	if strings.TrimSpace(params.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	body := initiateBody{
		RequestType: "Payment",
		Mid:         c.mid,
		WebsiteName: c.website,
		OrderID:     params.OrderID,
		CallbackURL: c.callbackURL,
		TxnAmount:   params.Amount,
		UserInfo:    params.User,
		ExtendInfo:  params.ExtendInfo,
	}

	c.log(ctx, "request", OpInitiate, map[string]any{
		"order_id": params.OrderID,
		"amount":   params.Amount.Value,
		"currency": params.Amount.Currency,
		"email":    params.User.Email,
	})

	var out TransactionToken
	err := c.signedCall(ctx, OpInitiate, initiatePath, c.orderQuery(params.OrderID), body, requestHead{ChannelID: c.channelID}, &out, func() error {
		if out.ResultInfo.ResultStatus == resultFailure || out.TxnToken == "" {
			return rejected(OpInitiate, out.ResultInfo)
		}
		return nil
	})
	if err != nil {
		return nil, requireBody(OpInitiate, err)
	}

	c.log(ctx, "response", OpInitiate, map[string]any{
		"order_id":    params.OrderID,
		"result_code": out.ResultInfo.ResultCode,
	})
	return &out, nil
}

// PaymentStatus reads the gateway's view of an order. A response without a
// body returns a nil status and no error.
func (c *Client) PaymentStatus(ctx context.Context, orderID string) (*PaymentStatus, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	c.log(ctx, "request", OpStatus, map[string]any{"order_id": orderID})

	var out PaymentStatus
	err := c.signedCall(ctx, OpStatus, statusPath, nil, statusBody{Mid: c.mid, OrderID: orderID}, requestHead{}, &out, nil)
	if errors.Is(err, errEmptyBody) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.log(ctx, "response", OpStatus, map[string]any{
		"order_id":      orderID,
		"result_status": out.ResultInfo.ResultStatus,
	})
	return &out, nil
}

// UpdateTransaction sends an updateTransactionDetail call. The body and
// signature are forwarded as given so the signature covers the exact bytes sent.
func (c *Client) UpdateTransaction(ctx context.Context, params UpdateTransactionParams) (*UpdateTransactionResult, error) {
	if strings.TrimSpace(params.OrderID) == "" || strings.TrimSpace(params.TxnToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and txn token are required")
	}

	c.log(ctx, "request", OpUpdate, map[string]any{"order_id": params.OrderID})

	payload := envelope{
		Body: params.Body,
		Head: requestHead{TxnToken: params.TxnToken, Signature: params.Signature},
	}

	var out UpdateTransactionResult
	err := c.call(ctx, OpUpdate, updatePath, c.orderQuery(params.OrderID), payload, &out, func() error {
		if out.ResultInfo.ResultStatus == resultFailure {
			return rejected(OpUpdate, out.ResultInfo)
		}
		return nil
	})
	if err != nil {
		return nil, requireBody(OpUpdate, err)
	}

	c.log(ctx, "response", OpUpdate, map[string]any{
		"order_id":    params.OrderID,
		"result_code": out.ResultInfo.ResultCode,
	})
	return &out, nil
}

// Refund initiates a refund against a settled transaction.
func (c *Client) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	if strings.TrimSpace(params.OrderID) == "" || strings.TrimSpace(params.RefID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and ref id are required")
	}

	body := refundBody{
		Mid:          c.mid,
		TxnType:      "REFUND",
		OrderID:      params.OrderID,
		TxnID:        params.TxnID,
		RefID:        params.RefID,
		RefundAmount: params.Amount,
	}

	c.log(ctx, "request", OpRefund, map[string]any{
		"order_id": params.OrderID,
		"ref_id":   params.RefID,
		"amount":   params.Amount,
	})

	var out RefundResult
	err := c.signedCall(ctx, OpRefund, refundPath, nil, body, requestHead{}, &out, func() error {
		if out.ResultInfo.ResultStatus == StatusTxnFailure {
			return rejected(OpRefund, out.ResultInfo)
		}
		return nil
	})
	if err != nil {
		return nil, requireBody(OpRefund, err)
	}

	c.log(ctx, "response", OpRefund, map[string]any{
		"order_id":      params.OrderID,
		"refund_id":     out.RefundID,
		"result_status": out.ResultInfo.ResultStatus,
	})
	return &out, nil
}

func (c *Client) signedCall(ctx context.Context, op, path string, query url.Values, body any, head requestHead, out any, check func() error) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encode paytm %s body", op))
	}
	sig, err := c.signer.Sign(string(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("sign paytm %s body", op))
	}
	head.Signature = sig
	return c.call(ctx, op, path, query, envelope{Body: json.RawMessage(raw), Head: head}, out, check)
}

func (c *Client) call(ctx context.Context, op, path string, query url.Values, payload any, out any, check func() error) (err error) {
	start := time.Now()
	outcome := OutcomeError
	defer func() {
		if c.observer != nil {
			c.observer.ObserveGatewayCall(op, outcome, time.Since(start))
		}
		if err != nil && !errors.Is(err, errEmptyBody) {
			c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		}
	}()

	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encode paytm %s request", op))
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("build paytm %s request", op))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("paytm %s failed", op))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("read paytm %s response", op))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, fmt.Errorf("unexpected status %d", resp.StatusCode), fmt.Sprintf("paytm %s failed", op)).
			WithDetails(map[string]any{"http_status": resp.StatusCode})
	}

	var env responseEnvelope
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("decode paytm %s response", op))
		}
	}
	trimmed := bytes.TrimSpace(env.Body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		outcome = OutcomeOK
		return errEmptyBody
	}
	if err := json.Unmarshal(env.Body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("decode paytm %s body", op))
	}

	if check != nil {
		if err := check(); err != nil {
			outcome = OutcomeRejected
			return err
		}
	}

	outcome = OutcomeOK
	return nil
}

func (c *Client) orderQuery(orderID string) url.Values {
	q := url.Values{}
	q.Set("mid", c.mid)
	q.Set("orderId", orderID)
	return q
}

func requireBody(op string, err error) error {
	if errors.Is(err, errEmptyBody) {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("paytm %s returned no body", op))
	}
	return err
}

func rejected(op string, info ResultInfo) error {
	return pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("paytm %s rejected: %s", op, info.ResultMsg)).
		WithDetails(map[string]any{
			"result_status": info.ResultStatus,
			"result_code":   info.ResultCode,
			"result_msg":    info.ResultMsg,
		})
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paytm %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("paytm %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "signature", "checksum", "email", "mobile", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
