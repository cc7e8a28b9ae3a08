package gateway

import "context"

// Order is the provider-side object created before payment capture.
// Notes carry whatever the checkout flow stashed there; Razorpay echoes
// them back verbatim on fetch.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]interface{}
}

type Client interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}
