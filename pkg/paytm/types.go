package paytm

import "encoding/json"

// Result statuses reported by the order status API.
const (
	StatusTxnSuccess = "TXN_SUCCESS"
	StatusTxnFailure = "TXN_FAILURE"
	StatusPending    = "PENDING"

	// initiateTransaction and updateTransactionDetail report S/F instead.
	resultFailure = "F"
)

type Money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type UserInfo struct {
	CustID    string `json:"custId"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Mobile    string `json:"mobile,omitempty"`
}

type ResultInfo struct {
	ResultStatus string `json:"resultStatus"`
	ResultCode   string `json:"resultCode"`
	ResultMsg    string `json:"resultMsg"`
}

// InitiateTransactionParams describes a transaction token request for one order.
type InitiateTransactionParams struct {
	OrderID    string
	Amount     Money
	User       UserInfo
	ExtendInfo map[string]any
}

type TransactionToken struct {
	ResultInfo       ResultInfo `json:"resultInfo"`
	TxnToken         string     `json:"txnToken"`
	IsPromoCodeValid bool       `json:"isPromoCodeValid"`
	Authenticated    bool       `json:"authenticated"`
}

// PaymentStatus is the body of an order status response.
type PaymentStatus struct {
	ResultInfo  ResultInfo `json:"resultInfo"`
	TxnID       string     `json:"txnId"`
	BankTxnID   string     `json:"bankTxnId"`
	OrderID     string     `json:"orderId"`
	TxnAmount   string     `json:"txnAmount"`
	TxnType     string     `json:"txnType"`
	GatewayName string     `json:"gatewayName"`
	BankName    string     `json:"bankName"`
	Mid         string     `json:"mid"`
	PaymentMode string     `json:"paymentMode"`
	RefundAmt   string     `json:"refundAmt"`
	TxnDate     string     `json:"txnDate"`
}

// UpdateTransactionBody is the signed portion of an updateTransactionDetail call.
type UpdateTransactionBody struct {
	TxnAmount  *Money         `json:"txnAmount,omitempty"`
	ExtendInfo map[string]any `json:"extendInfo,omitempty"`
}

// UpdateTransactionParams carries a pre-serialized body and the signature computed over those exact bytes.
type UpdateTransactionParams struct {
	OrderID   string
	TxnToken  string
	Body      json.RawMessage
	Signature string
}

type UpdateTransactionResult struct {
	ResultInfo ResultInfo `json:"resultInfo"`
	TxnToken   string     `json:"txnToken,omitempty"`
}

type RefundParams struct {
	OrderID string
	RefID   string
	TxnID   string
	Amount  string
}

type RefundResult struct {
	ResultInfo   ResultInfo `json:"resultInfo"`
	OrderID      string     `json:"orderId"`
	Mid          string     `json:"mid"`
	RefID        string     `json:"refId"`
	RefundID     string     `json:"refundId"`
	TxnID        string     `json:"txnId"`
	RefundAmount string     `json:"refundAmount"`
	TxnTimestamp string     `json:"txnTimestamp"`
}

type requestHead struct {
	ChannelID string `json:"channelId,omitempty"`
	TxnToken  string `json:"txnToken,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type envelope struct {
	Body any         `json:"body"`
	Head requestHead `json:"head"`
}

type initiateBody struct {
	RequestType string         `json:"requestType"`
	Mid         string         `json:"mid"`
	WebsiteName string         `json:"websiteName"`
	OrderID     string         `json:"orderId"`
	CallbackURL string         `json:"callbackUrl,omitempty"`
	TxnAmount   Money          `json:"txnAmount"`
	UserInfo    UserInfo       `json:"userInfo"`
	ExtendInfo  map[string]any `json:"extendInfo,omitempty"`
}

type statusBody struct {
	Mid     string `json:"mid"`
	OrderID string `json:"orderId"`
}

type refundBody struct {
	Mid          string `json:"mid"`
	TxnType      string `json:"txnType"`
	OrderID      string `json:"orderId"`
	TxnID        string `json:"txnId"`
	RefID        string `json:"refId"`
	RefundAmount string `json:"refundAmount"`
}

type responseEnvelope struct {
	Head json.RawMessage `json:"head"`
	Body json.RawMessage `json:"body"`
}
