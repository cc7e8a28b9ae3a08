package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vishaga/online_store/internal/checkout"
	"github.com/vishaga/online_store/internal/events"
	"github.com/vishaga/online_store/internal/logging"
)

type CheckoutHandler struct {
	Svc      *checkout.Service
	Producer *events.Producer
}

func (h *CheckoutHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.Publish(ctx, events.TopicOrders, fmt.Sprint(event["user_id"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *CheckoutHandler) CheckoutCart(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id is required"})
	}

	res, err := h.Svc.CheckoutCart(ctx, req.UserID)
	if err != nil {
		return checkoutError(c, err)
	}

	h.publish(c, map[string]any{
		"type":     "checkout_started",
		"user_id":  req.UserID,
		"order_id": res.OrderID,
		"amount":   res.Amount,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "Checkout successful",
		"order_id":     res.OrderID,
		"razorpay_key": res.KeyID,
		"amount":       res.Amount,
		"currency":     res.Currency,
	})
}

func (h *CheckoutHandler) BuyItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	res, err := h.Svc.BuyItem(ctx, req.ProductID, req.Quantity)
	if err != nil {
		return checkoutError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "Checkout successful",
		"order_id":     res.OrderID,
		"razorpay_key": res.KeyID,
		"amount":       res.Amount,
		"currency":     res.Currency,
	})
}

func (h *CheckoutHandler) VerifyPayment(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		OrderID   string `json:"razorpay_order_id"`
		PaymentID string `json:"razorpay_payment_id"`
		Signature string `json:"razorpay_signature"`
		UserID    uint   `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id is required"})
	}

	settled, err := h.Svc.VerifyPayment(ctx, req.OrderID, req.PaymentID, req.Signature, req.UserID)
	if err != nil {
		return checkoutError(c, err)
	}

	h.publish(c, map[string]any{
		"type":       "payment_verified",
		"user_id":    req.UserID,
		"order_id":   req.OrderID,
		"payment_id": req.PaymentID,
		"settled":    settled,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Payment successful and order placed"})
}

func checkoutError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, checkout.ErrInvalidSignature):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment signature"})
	case errors.Is(err, checkout.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "cart is empty"})
	case errors.Is(err, checkout.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, checkout.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
}
