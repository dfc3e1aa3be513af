package orders

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/angelmondragon/paytm-adapter/pkg/db/models"
	"github.com/angelmondragon/paytm-adapter/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "orders.db")+"?_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL UNIQUE,
  payment_status TEXT NOT NULL DEFAULT 'not_paid',
  currency_code TEXT NOT NULL,
  total INTEGER NOT NULL DEFAULT 0,
  captured_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  order_id TEXT,
  provider_id TEXT NOT NULL,
  amount INTEGER NOT NULL,
  amount_refunded INTEGER NOT NULL DEFAULT 0,
  currency_code TEXT NOT NULL,
  data TEXT,
  captured_at DATETIME,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(payments).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.PaymentStatus) {
	t.Helper()
	orderID := "order_01"
	require.NoError(t, db.Create(&models.Order{
		ID: orderID, CartID: "cart_01", PaymentStatus: status, CurrencyCode: "inr", Total: 2000,
	}).Error)
	require.NoError(t, db.Create(&models.Payment{
		ID: "pay_01", CartID: "cart_01", OrderID: &orderID, ProviderID: "paytm", Amount: 2000, CurrencyCode: "inr",
	}).Error)
}

func TestRetrieveByCartID(t *testing.T) {
	db := setupOrdersTestDB(t)
	seedOrder(t, db, enums.PaymentStatusAwaiting)
	r := NewRepository(db)

	got, err := r.RetrieveByCartID(context.Background(), "cart_01")
	require.NoError(t, err)
	assert.Equal(t, "order_01", got.ID)
	assert.Equal(t, enums.PaymentStatusAwaiting, got.PaymentStatus)

	_, err = r.RetrieveByCartID(context.Background(), "cart_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCapturePaymentIsConditional(t *testing.T) {
	db := setupOrdersTestDB(t)
	seedOrder(t, db, enums.PaymentStatusAwaiting)
	r := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CapturePayment(ctx, "order_01"))

	order, err := r.Retrieve(ctx, "order_01")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCaptured, order.PaymentStatus)
	assert.NotNil(t, order.CapturedAt)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "id = ?", "pay_01").Error)
	assert.NotNil(t, payment.CapturedAt)

	assert.ErrorIs(t, r.CapturePayment(ctx, "order_01"), ErrAlreadyCaptured)
	assert.ErrorIs(t, r.CapturePayment(ctx, "order_missing"), ErrNotFound)
}

func TestCapturePaymentConcurrentCallersCaptureOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	seedOrder(t, db, enums.PaymentStatusNotPaid)
	r := NewRepository(db)

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		captured int
		already  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.CapturePayment(context.Background(), "order_01")
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				captured++
			case ErrAlreadyCaptured:
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, captured)
	assert.Equal(t, callers-1, already)
}
