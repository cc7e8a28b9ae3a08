package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/glebarez/sqlite"

	"github.com/vishaga/online_store/internal/checkout"
	"github.com/vishaga/online_store/internal/gateway"
	"github.com/vishaga/online_store/internal/handlers"
	"github.com/vishaga/online_store/internal/middleware/auth"
	"github.com/vishaga/online_store/internal/models"
)

const testGatewaySecret = "test_secret"

type testEnv struct {
	T         *testing.T
	E         *echo.Echo
	DB        *gorm.DB
	Auth      *handlers.AuthHandler
	Cart      *handlers.CartHandler
	Product   *handlers.ProductHandler
	Orders    *handlers.OrderHandler
	Checkout  *handlers.CheckoutHandler
	Gateway   *fakeGateway
	TokenAuth *auth.TokenAuth
}

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Token{},
		&models.Product{},
		&models.ProductImage{},
		&models.CartItem{},
		&models.OrderHistory{},
	))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := initTestDB(t)
	gw := newFakeGateway()

	env := &testEnv{
		T:         t,
		E:         echo.New(),
		DB:        db,
		Gateway:   gw,
		TokenAuth: &auth.TokenAuth{DB: db},
	}
	env.Auth = &handlers.AuthHandler{DB: db}
	env.Cart = &handlers.CartHandler{DB: db}
	env.Product = &handlers.ProductHandler{DB: db}
	env.Orders = &handlers.OrderHandler{DB: db}
	env.Checkout = &handlers.CheckoutHandler{
		Svc: &checkout.Service{DB: db, Gateway: gw},
	}
	return env
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) doFormRequest(method, path string, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func signup(t *testing.T, env *testEnv, username, email string) (string, uint) {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"email":    email,
		"password": "password",
		"address":  "42 Tea Lane",
	}
	rec, c := env.doJSONRequest(http.MethodPost, "/signup", payload, "")
	require.NoError(t, env.Auth.Signup(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Token  string `json:"token"`
		UserID uint   `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.UserID
}

type imageFile struct {
	name string
	mime string
	data []byte
}

func multipartBody(t *testing.T, fields map[string]string, images []imageFile) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, img := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, img.name))
		h.Set("Content-Type", img.mime)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(img.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// fakeGateway records created orders and verifies signatures with the
// same HMAC scheme as the real provider.
type fakeGateway struct {
	orders map[string]*gateway.Order
	seq    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: map[string]*gateway.Order{}}
}

func (f *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*gateway.Order, error) {
	f.seq++
	ord := &gateway.Order{
		ID:       fmt.Sprintf("order_test_%d", f.seq),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	}
	f.orders[ord.ID] = ord
	return ord, nil
}

func (f *fakeGateway) FetchOrder(_ context.Context, orderID string) (*gateway.Order, error) {
	ord, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	return ord, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(signPayment(orderID, paymentID)), []byte(signature))
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testGatewaySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
