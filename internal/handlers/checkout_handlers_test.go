package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vishaga/online_store/internal/models"
)

func createProduct(t *testing.T, env *testEnv, name string, price float64) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: price, Details: "details"}
	require.NoError(t, env.DB.Create(&p).Error)
	return p
}

func TestCheckoutCartTotal(t *testing.T) {
	env := newTestEnv(t)
	tea := createProduct(t, env, "Tea", 10.0)
	addCartItem(t, env, 1, tea.ID, "Tea", 3)

	rec, c := env.doJSONRequest(http.MethodPost, "/cart/checkout",
		map[string]interface{}{"user_id": 1}, "")
	require.NoError(t, env.Checkout.CheckoutCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OrderID  string `json:"order_id"`
		Key      string `json:"razorpay_key"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(3000), resp.Amount)
	require.Equal(t, "INR", resp.Currency)
	require.Equal(t, "rzp_test_key", resp.Key)
	require.NotEmpty(t, resp.OrderID)
}

func TestCheckoutCartEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/cart/checkout",
		map[string]interface{}{"user_id": 1}, "")
	require.NoError(t, env.Checkout.CheckoutCart(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuyItemEncodesPurchaseNotes(t *testing.T) {
	env := newTestEnv(t)
	tea := createProduct(t, env, "Tea", 10.0)

	rec, c := env.doJSONRequest(http.MethodPost, "/cart/buy_item",
		map[string]interface{}{"product_id": tea.ID, "quantity": 2}, "")
	require.NoError(t, env.Checkout.BuyItem(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OrderID string `json:"order_id"`
		Amount  int64  `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(2000), resp.Amount)

	ord := env.Gateway.orders[resp.OrderID]
	require.NotNil(t, ord)
	require.Equal(t, "1", ord.Notes["product_id"])
	require.Equal(t, "2", ord.Notes["quantity"])
}

func TestBuyItemUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/cart/buy_item",
		map[string]interface{}{"product_id": 99, "quantity": 1}, "")
	require.NoError(t, env.Checkout.BuyItem(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func verifyPayment(t *testing.T, env *testEnv, orderID, signature string, userID uint) int {
	t.Helper()
	rec, c := env.doJSONRequest(http.MethodPost, "/cart/verify_payment", map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": "pay_test",
		"razorpay_signature":  signature,
		"user_id":             userID,
	}, "")
	require.NoError(t, env.Checkout.VerifyPayment(c))
	return rec.Code
}

func TestVerifyPaymentInvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	tea := createProduct(t, env, "Tea", 10.0)

	_, c := env.doJSONRequest(http.MethodPost, "/cart/buy_item",
		map[string]interface{}{"product_id": tea.ID, "quantity": 1}, "")
	require.NoError(t, env.Checkout.BuyItem(c))

	code := verifyPayment(t, env, "order_test_1", "bad-signature", 1)
	require.Equal(t, http.StatusBadRequest, code)

	var count int64
	require.NoError(t, env.DB.Model(&models.OrderHistory{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestVerifyPaymentSingleItem(t *testing.T) {
	env := newTestEnv(t)
	_, userID := signup(t, env, "buyer", "buyer@example.com")
	tea := createProduct(t, env, "Tea", 10.0)

	rec, c := env.doJSONRequest(http.MethodPost, "/cart/buy_item",
		map[string]interface{}{"product_id": tea.ID, "quantity": 2}, "")
	require.NoError(t, env.Checkout.BuyItem(c))
	var resp struct {
		OrderID string `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// price changes between checkout and verification; history captures
	// the price at verification time
	require.NoError(t, env.DB.Model(&models.Product{}).Where("id = ?", tea.ID).
		Update("price", 12.0).Error)

	sig := signPayment(resp.OrderID, "pay_test")
	code := verifyPayment(t, env, resp.OrderID, sig, userID)
	require.Equal(t, http.StatusOK, code)

	var orders []models.OrderHistory
	require.NoError(t, env.DB.Find(&orders).Error)
	require.Len(t, orders, 1)
	require.Equal(t, userID, orders[0].UserID)
	require.Equal(t, tea.ID, orders[0].ProductID)
	require.Equal(t, "Tea", orders[0].ProductName)
	require.Equal(t, 2, orders[0].Quantity)
	require.Equal(t, 12.0, orders[0].PriceAtPurchase)
	require.Equal(t, "42 Tea Lane", orders[0].Address)
}

func TestVerifyPaymentReplayDuplicates(t *testing.T) {
	env := newTestEnv(t)
	_, userID := signup(t, env, "buyer", "buyer@example.com")
	tea := createProduct(t, env, "Tea", 10.0)

	rec, c := env.doJSONRequest(http.MethodPost, "/cart/buy_item",
		map[string]interface{}{"product_id": tea.ID, "quantity": 1}, "")
	require.NoError(t, env.Checkout.BuyItem(c))
	var resp struct {
		OrderID string `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	sig := signPayment(resp.OrderID, "pay_test")
	for i := 0; i < 2; i++ {
		code := verifyPayment(t, env, resp.OrderID, sig, userID)
		require.Equal(t, http.StatusOK, code)
	}

	var count int64
	require.NoError(t, env.DB.Model(&models.OrderHistory{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestVerifyPaymentCartOrderLeavesCartAlone(t *testing.T) {
	env := newTestEnv(t)
	_, userID := signup(t, env, "buyer", "buyer@example.com")
	tea := createProduct(t, env, "Tea", 10.0)
	addCartItem(t, env, userID, tea.ID, "Tea", 3)

	rec, c := env.doJSONRequest(http.MethodPost, "/cart/checkout",
		map[string]interface{}{"user_id": userID}, "")
	require.NoError(t, env.Checkout.CheckoutCart(c))
	var resp struct {
		OrderID string `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	sig := signPayment(resp.OrderID, "pay_test")
	code := verifyPayment(t, env, resp.OrderID, sig, userID)
	require.Equal(t, http.StatusOK, code)

	// cart settlement is disabled by default: rows stay, nothing lands
	// in history
	var cartCount, orderCount int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Count(&cartCount).Error)
	require.NoError(t, env.DB.Model(&models.OrderHistory{}).Count(&orderCount).Error)
	require.Equal(t, int64(1), cartCount)
	require.Zero(t, orderCount)
}

func TestOrdersHistory(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.DB.Create(&models.OrderHistory{
		UserID: 1, ProductID: 2, ProductName: "Tea", Quantity: 3, PriceAtPurchase: 10,
	}).Error)
	require.NoError(t, env.DB.Create(&models.OrderHistory{
		UserID: 7, ProductID: 2, ProductName: "Tea", Quantity: 1, PriceAtPurchase: 10,
	}).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/orders_history", nil, "")
	require.NoError(t, env.Orders.GetAllOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var all []models.OrderHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2)

	rec, c = env.doJSONRequest(http.MethodGet, "/orders_history/1", nil, "")
	c.SetParamNames("user_id")
	c.SetParamValues("1")
	require.NoError(t, env.Orders.GetUserOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var mine []models.OrderHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	require.Equal(t, uint(1), mine[0].UserID)
}
