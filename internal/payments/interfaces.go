package payments

import (
	"context"

	"github.com/angelmondragon/paytm-adapter/pkg/db/models"
	"github.com/angelmondragon/paytm-adapter/pkg/paytm"
)

// Gateway is the remote Paytm surface the state machine drives.
type Gateway interface {
	InitiateTransaction(ctx context.Context, params paytm.InitiateTransactionParams) (*paytm.TransactionToken, error)
	PaymentStatus(ctx context.Context, orderID string) (*paytm.PaymentStatus, error)
	UpdateTransaction(ctx context.Context, params paytm.UpdateTransactionParams) (*paytm.UpdateTransactionResult, error)
	Refund(ctx context.Context, params paytm.RefundParams) (*paytm.RefundResult, error)
}

// SignatureVerifier signs outbound bodies with the merchant key.
type SignatureVerifier interface {
	Sign(body string) (string, error)
	Verify(body, signature string) bool
}

// OrderStore resolves orders and performs the conditional capture write.
type OrderStore interface {
	RetrieveByCartID(ctx context.Context, cartID string) (*models.Order, error)
	Retrieve(ctx context.Context, orderID string) (*models.Order, error)
	CapturePayment(ctx context.Context, orderID string) error
}

// CaptureLocker serializes captures per order id.
type CaptureLocker interface {
	Lock(ctx context.Context, id string) (func(context.Context) error, error)
}

type captureMetrics interface {
	IncCapture(outcome string)
}
