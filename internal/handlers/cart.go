package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vishaga/online_store/internal/events"
	"github.com/vishaga/online_store/internal/logging"
	"github.com/vishaga/online_store/internal/models"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.Publish(ctx, events.TopicCart, fmt.Sprint(event["user_id"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

// AddToCart always inserts a new row; adding the same product twice keeps
// two rows rather than incrementing quantity.
func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		UserID      uint   `json:"user_id"`
		ProductID   uint   `json:"product_id"`
		ProductName string `json:"product_name"`
		Quantity    int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 || req.ProductID == 0 || req.ProductName == "" || req.Quantity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing fields"})
	}

	item := models.CartItem{
		UserID:      req.UserID,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
	}
	if err := h.DB.WithContext(ctx).Create(&item).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	h.publish(c, map[string]any{
		"type":       "cart_item_added",
		"user_id":    item.UserID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})

	return c.JSON(http.StatusCreated, item)
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil || userID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	var items []models.CartItem
	if err := h.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, items)
}

// UpdateQuantity rejects anything but a positive integer; a fractional or
// non-numeric quantity already fails at bind time.
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := strconv.Atoi(c.Param("item_id"))
	if err != nil || itemID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be a positive integer"})
	}
	if req.Quantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be a positive integer"})
	}

	var item models.CartItem
	if err := h.DB.WithContext(ctx).First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "cart item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	item.Quantity = req.Quantity
	if err := h.DB.WithContext(ctx).Save(&item).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	h.publish(c, map[string]any{
		"type":     "cart_quantity_updated",
		"user_id":  item.UserID,
		"item_id":  item.ID,
		"quantity": item.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "cart item quantity updated successfully"})
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := strconv.Atoi(c.Param("item_id"))
	if err != nil || itemID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}

	var item models.CartItem
	if err := h.DB.WithContext(ctx).First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "cart item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	if err := h.DB.WithContext(ctx).Delete(&item).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	h.publish(c, map[string]any{
		"type":    "cart_item_removed",
		"user_id": item.UserID,
		"item_id": item.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "item removed from cart successfully"})
}
