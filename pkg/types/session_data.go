package types

import "strings"

// SessionData is the payload persisted on a Paytm payment session. ID is the
// gateway order id, which is always the cart id.
type SessionData struct {
	ID           string         `json:"id"`
	TxnToken     string         `json:"txnToken,omitempty"`
	Amount       int64          `json:"amount"`
	CurrencyCode string         `json:"currencyCode,omitempty"`
	ExtendInfo   map[string]any `json:"extendInfo,omitempty"`
}

// HasToken reports whether the gateway has issued a transaction token for the session.
func (d SessionData) HasToken() bool {
	return strings.TrimSpace(d.TxnToken) != ""
}

// Metadata is free-form JSON attached to carts.
type Metadata map[string]any

const extendInfoKey = "extendInfo"

// ExtendInfo returns the provider metadata stored under metadata.extendInfo, or nil.
func (m Metadata) ExtendInfo() map[string]any {
	if m == nil {
		return nil
	}
	raw, ok := m[extendInfoKey]
	if !ok {
		return nil
	}
	info, ok := raw.(map[string]any)
	if !ok || len(info) == 0 {
		return nil
	}
	return info
}
