package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/vishaga/online_store/internal/gateway"
	"github.com/vishaga/online_store/internal/logging"
	"github.com/vishaga/online_store/internal/models"
)

var (
	ErrValidation       = errors.New("validation")
	ErrNotFound         = errors.New("not found")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidSignature = errors.New("invalid payment signature")
)

const Currency = "INR"

type Service struct {
	DB      *gorm.DB
	Gateway gateway.Client

	// CartSettlement enables the whole-cart transfer policy on verified
	// payments whose gateway order carries no purchase notes.
	CartSettlement bool
}

type CheckoutResult struct {
	OrderID  string `json:"order_id"`
	KeyID    string `json:"razorpay_key"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CheckoutCart totals price*quantity over the user's cart rows at current
// product prices and opens a gateway order for that amount in paise.
func (s *Service) CheckoutCart(ctx context.Context, userID uint) (*CheckoutResult, error) {
	var items []models.CartItem
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var total float64
	for _, it := range items {
		var p models.Product
		if err := s.DB.WithContext(ctx).First(&p, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		total += p.Price * float64(it.Quantity)
	}

	receipt := fmt.Sprintf("order_rcptid_%d_%d", userID, time.Now().Unix())
	return s.createOrder(ctx, toPaise(total), receipt, nil)
}

// BuyItem opens a gateway order for a single product/quantity pair. The
// pair is written into the order notes so VerifyPayment can recover it
// without any server-side cart state.
func (s *Service) BuyItem(ctx context.Context, productID uint, quantity int) (*CheckoutResult, error) {
	if productID == 0 || quantity < 1 {
		return nil, fmt.Errorf("product_id and a positive quantity are required: %w", ErrValidation)
	}

	var p models.Product
	if err := s.DB.WithContext(ctx).First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, err
	}

	notes := map[string]interface{}{
		"product_id": strconv.FormatUint(uint64(productID), 10),
		"quantity":   strconv.Itoa(quantity),
	}
	receipt := fmt.Sprintf("buy_rcptid_%d_%d_%d", productID, quantity, time.Now().Unix())
	return s.createOrder(ctx, toPaise(p.Price*float64(quantity)), receipt, notes)
}

func (s *Service) createOrder(ctx context.Context, amount int64, receipt string, notes map[string]interface{}) (*CheckoutResult, error) {
	ord, err := s.Gateway.CreateOrder(ctx, amount, Currency, receipt, notes)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{
		OrderID:  ord.ID,
		KeyID:    s.Gateway.KeyID(),
		Amount:   ord.Amount,
		Currency: ord.Currency,
	}, nil
}

// VerifyPayment checks the gateway signature and, on success, settles the
// purchase. An order whose notes encode a product/quantity pair settles
// through the single-item policy; otherwise the whole-cart policy runs,
// but only when enabled. A failed signature writes nothing.
func (s *Service) VerifyPayment(ctx context.Context, orderID, paymentID, signature string, userID uint) (int, error) {
	if !s.Gateway.VerifySignature(orderID, paymentID, signature) {
		return 0, ErrInvalidSignature
	}

	ord, err := s.Gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}

	productID, quantity, ok, err := purchaseFromNotes(ord.Notes)
	if err != nil {
		return 0, err
	}
	if ok {
		if err := s.SettleSingleItem(ctx, userID, productID, quantity); err != nil {
			return 0, err
		}
		return 1, nil
	}

	if s.CartSettlement {
		return s.SettleCart(ctx, userID)
	}

	logging.FromContext(ctx).Info("payment verified without settlement",
		"order_id", orderID, "user_id", userID)
	return 0, nil
}

// SettleSingleItem appends one history row at the product's current price.
// There is no idempotency key: replaying a verification inserts a
// duplicate row.
func (s *Service) SettleSingleItem(ctx context.Context, userID, productID uint, quantity int) error {
	var p models.Product
	if err := s.DB.WithContext(ctx).First(&p, productID).Error; err != nil {
		return err
	}

	order := models.OrderHistory{
		UserID:          userID,
		ProductID:       p.ID,
		ProductName:     p.Name,
		Quantity:        quantity,
		PriceAtPurchase: p.Price,
		PurchaseDate:    time.Now().UTC(),
	}
	s.snapshotContact(ctx, userID, &order)

	return s.DB.WithContext(ctx).Create(&order).Error
}

// SettleCart moves every cart row of the user into orders_history and
// deletes the rows, all in one transaction. Cart rows whose product has
// disappeared are dropped without a history entry.
func (s *Service) SettleCart(ctx context.Context, userID uint) (int, error) {
	settled := 0
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", userID).Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		var user models.User
		hasUser := tx.First(&user, userID).Error == nil

		for _, it := range items {
			var p models.Product
			if err := tx.First(&p, it.ProductID).Error; err == nil {
				order := models.OrderHistory{
					UserID:          userID,
					ProductID:       it.ProductID,
					ProductName:     it.ProductName,
					Quantity:        it.Quantity,
					PriceAtPurchase: p.Price,
					PurchaseDate:    time.Now().UTC(),
				}
				if hasUser {
					order.Phone = user.PhoneNumber
					order.Address = user.Address
				}
				if err := tx.Create(&order).Error; err != nil {
					return err
				}
				settled++
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err := tx.Delete(&models.CartItem{}, it.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return 0, txErr
	}
	return settled, nil
}

func (s *Service) snapshotContact(ctx context.Context, userID uint, order *models.OrderHistory) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err == nil {
		order.Phone = user.PhoneNumber
		order.Address = user.Address
	}
}

// purchaseFromNotes recovers the product/quantity pair that BuyItem stored
// on the gateway order. Missing notes mean a cart checkout; malformed
// values surface as errors (no retry, no partial settlement).
func purchaseFromNotes(notes map[string]interface{}) (productID uint, quantity int, ok bool, err error) {
	if notes == nil {
		return 0, 0, false, nil
	}
	rawID, haveID := notes["product_id"]
	rawQty, haveQty := notes["quantity"]
	if !haveID || !haveQty {
		return 0, 0, false, nil
	}

	id, err := noteInt(rawID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("order notes product_id: %w", err)
	}
	qty, err := noteInt(rawQty)
	if err != nil {
		return 0, 0, false, fmt.Errorf("order notes quantity: %w", err)
	}
	return uint(id), qty, true, nil
}

func noteInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case string:
		return strconv.Atoi(n)
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected note type %T", v)
	}
}

func toPaise(amount float64) int64 {
	return int64(amount * 100)
}
