package gateway

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

type Razorpay struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

var _ Client = (*Razorpay)(nil)

func NewRazorpay(keyID, keySecret string) *Razorpay {
	return &Razorpay{
		client:    razorpay.NewClient(keyID, keySecret),
		keyID:     keyID,
		keySecret: keySecret,
	}
}

// The razorpay-go SDK does not take a context; the ctx parameter only
// satisfies the Client interface here.
func (g *Razorpay) CreateOrder(_ context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*Order, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	return orderFromBody(body), nil
}

func (g *Razorpay) FetchOrder(_ context.Context, orderID string) (*Order, error) {
	body, err := g.client.Order.Fetch(orderID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch gateway order %s: %w", orderID, err)
	}
	return orderFromBody(body), nil
}

func (g *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, g.keySecret)
}

func (g *Razorpay) KeyID() string { return g.keyID }

func orderFromBody(body map[string]interface{}) *Order {
	ord := &Order{
		ID:       stringField(body, "id"),
		Currency: stringField(body, "currency"),
		Receipt:  stringField(body, "receipt"),
	}
	if v, ok := body["amount"].(float64); ok {
		ord.Amount = int64(v)
	}
	if notes, ok := body["notes"].(map[string]interface{}); ok {
		ord.Notes = notes
	}
	return ord
}

func stringField(body map[string]interface{}, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}
