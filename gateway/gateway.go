// Package gateway talks to the external payment processor.
package gateway

import (
	"context"
	"fmt"

	"acmportal/config"
)

// SuccessCode is the gateway result code for an accepted request or a
// verified payment. Any other code is a refusal.
const SuccessCode = 100

// PaymentRequest is one new payment attempt sent to the gateway.
type PaymentRequest struct {
	Amount      int64
	CallbackURL string
	Description string
	Email       string
	Mobile      string
}

type RequestResult struct {
	Code      int
	Message   string
	Authority string
	FeeType   string
	Fee       int64
}

type VerifyResult struct {
	Code     int
	Message  string
	RefID    string
	CardPan  string
	CardHash string
}

// UnverifiedPayment is an authority the gateway has seen paid but not
// yet verified by the merchant.
type UnverifiedPayment struct {
	Authority   string `json:"authority"`
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Date        string `json:"date"`
}

// Gateway is the contract the payment ledger consumes. Errors are
// transport failures only; a refusal is a result whose Code is not
// SuccessCode.
type Gateway interface {
	Name() string
	Configured() bool
	RequestPayment(ctx context.Context, req PaymentRequest) (RequestResult, error)
	VerifyPayment(ctx context.Context, amount int64, authority string) (VerifyResult, error)
	// ListUnverified never fails; any error degrades to an empty list.
	ListUnverified(ctx context.Context) []UnverifiedPayment
	StartPayURL(authority string) string
}

// New builds the gateway selected by PAYMENT_GATEWAY.
func New(cfg config.Payment) (Gateway, error) {
	switch cfg.Gateway {
	case "zarinpal":
		return NewZarinpal(cfg), nil
	case "stub":
		return NewStub(cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway: %s", cfg.Gateway)
	}
}
