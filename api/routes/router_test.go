package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	paymentsvc "github.com/angelmondragon/paytm-adapter/internal/payments"
	paytmwebhook "github.com/angelmondragon/paytm-adapter/internal/webhooks/paytm"
	pkgAuth "github.com/angelmondragon/paytm-adapter/pkg/auth"
	"github.com/angelmondragon/paytm-adapter/pkg/config"
	"github.com/angelmondragon/paytm-adapter/pkg/db/models"
	"github.com/angelmondragon/paytm-adapter/pkg/enums"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
	"github.com/angelmondragon/paytm-adapter/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubPaymentService struct {
	captures int
}

func (s *stubPaymentService) UpdatePayment(ctx context.Context, data types.SessionData, cart *models.Cart) (types.SessionData, error) {
	return types.SessionData{ID: cart.ID, TxnToken: "tok", Amount: cart.Total}, nil
}

func (s *stubPaymentService) GetStatus(ctx context.Context, data types.SessionData) (enums.PaymentSessionStatus, error) {
	return enums.PaymentSessionStatusPending, nil
}

func (s *stubPaymentService) CapturePayment(ctx context.Context, payment *models.Payment) (types.SessionData, error) {
	s.captures++
	return payment.Data, nil
}

func (s *stubPaymentService) RefundPayment(ctx context.Context, payment *models.Payment, amount int64) (*paymentsvc.RefundOutcome, error) {
	return &paymentsvc.RefundOutcome{RefID: "ref"}, nil
}

func (s *stubPaymentService) CancelPayment(ctx context.Context, payment *models.Payment) (*paymentsvc.RefundOutcome, error) {
	return &paymentsvc.RefundOutcome{RefID: "ref"}, nil
}

type stubCartStore struct{}

func (stubCartStore) Retrieve(ctx context.Context, cartID string) (*models.Cart, error) {
	return &models.Cart{ID: cartID, Total: 1000}, nil
}

func (stubCartStore) SaveSession(ctx context.Context, cartID, providerID string, data types.SessionData) (*models.PaymentSession, error) {
	return &models.PaymentSession{ID: "ps_01", CartID: cartID, ProviderID: providerID, Data: data}, nil
}

func (stubCartStore) UpdateSessionStatus(ctx context.Context, sessionID string, status enums.PaymentSessionStatus) error {
	return nil
}

type stubPaymentStore struct{}

func (stubPaymentStore) RetrieveByCartID(ctx context.Context, cartID string) (*models.Payment, error) {
	return &models.Payment{ID: "pay_01", CartID: cartID, Amount: 1000, CurrencyCode: "INR"}, nil
}

func (stubPaymentStore) RecordRefund(ctx context.Context, paymentID string, amount int64) error {
	return nil
}

func (stubPaymentStore) MarkCanceled(ctx context.Context, paymentID string) error {
	return nil
}

type stubWebhookService struct {
	calls int
}

func (s *stubWebhookService) Handle(ctx context.Context, n *paytmwebhook.Notification) (string, error) {
	s.calls++
	return paytmwebhook.OutcomeIgnored, nil
}

type memoryIdempotencyStore struct {
	data map[string]string
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

type routerFixture struct {
	handler  http.Handler
	payments *stubPaymentService
	webhooks *stubWebhookService
	cfg      *config.Config
}

func newRouterFixture(t *testing.T, secret string) routerFixture {
	t.Helper()
	cfg := &config.Config{
		App:  config.AppConfig{Env: "dev"},
		Auth: config.AuthConfig{JWTSecret: secret, JWTIssuer: "paytm-adapter"},
	}
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	payments := &stubPaymentService{}
	webhooks := &stubWebhookService{}
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_total"}))

	handler := NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		reg,
		&memoryIdempotencyStore{data: map[string]string{}},
		payments,
		stubCartStore{},
		stubPaymentStore{},
		webhooks,
	)
	return routerFixture{handler: handler, payments: payments, webhooks: webhooks, cfg: cfg}
}

func (f routerFixture) token(t *testing.T) string {
	t.Helper()
	token, err := pkgAuth.MintServiceToken(f.cfg.Auth, time.Now(), "checkout", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (f routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestPublicRoutes(t *testing.T) {
	f := newRouterFixture(t, "secret")

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/paytm/hooks", http.StatusCreated},
	}
	for _, tc := range cases {
		resp := f.do(httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`)))
		if resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d got %d", tc.method, tc.path, tc.want, resp.Code)
		}
	}
	if f.webhooks.calls != 1 {
		t.Fatalf("expected webhook service called once, got %d", f.webhooks.calls)
	}
	if resp := f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil)); resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestPaymentsAPIRequiresToken(t *testing.T) {
	f := newRouterFixture(t, "secret")

	resp := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/carts/cart_01/payment-session", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/cart_01/payment-session", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t))
	resp = f.do(req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCaptureRouteIsIdempotent(t *testing.T) {
	f := newRouterFixture(t, "secret")
	token := f.token(t)

	noKey := httptest.NewRequest(http.MethodPost, "/api/v1/payments/cart_01/capture", nil)
	noKey.Header.Set("Authorization", "Bearer "+token)
	if resp := f.do(noKey); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", resp.Code)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/cart_01/capture", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "cap-1")
		if resp := f.do(req); resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d: %s", i, resp.Code, resp.Body.String())
		}
	}
	if f.payments.captures != 1 {
		t.Fatalf("expected replayed response, got %d capture calls", f.payments.captures)
	}
}

func TestPaymentsAPIDisabledWithoutSecret(t *testing.T) {
	f := newRouterFixture(t, "")

	resp := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/payments/cart_01/capture", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if resp := f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected health to stay mounted, got %d", resp.Code)
	}
}

