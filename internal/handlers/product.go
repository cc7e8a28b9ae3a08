package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vishaga/online_store/internal/events"
	"github.com/vishaga/online_store/internal/logging"
	"github.com/vishaga/online_store/internal/models"
	"github.com/vishaga/online_store/internal/search"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
	ES       *elasticsearch.Client
}

type productResponse struct {
	ID              uint     `json:"id"`
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	Details         string   `json:"details"`
	LineDescription string   `json:"line_description,omitempty"`
	Benefit         string   `json:"benefit,omitempty"`
	Images          []string `json:"images"`
}

func toProductResponse(p *models.Product, full bool) productResponse {
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		urls = append(urls, fmt.Sprintf("/product_images/%d", img.ID))
	}
	resp := productResponse{
		ID:      p.ID,
		Name:    p.Name,
		Price:   p.Price,
		Details: p.Details,
		Images:  urls,
	}
	if full {
		resp.LineDescription = p.LineDescription
		resp.Benefit = p.Benefit
	}
	return resp
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.Publish(ctx, events.TopicProducts, fmt.Sprint(event["product_id"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *ProductHandler) indexDoc(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, p); err != nil {
		logging.FromContext(c.Request().Context()).Error("es index error", "error", err)
	}
}

func (h *ProductHandler) deleteDoc(c echo.Context, id uint) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.DeleteProduct(ctx, h.ES, id); err != nil {
		logging.FromContext(c.Request().Context()).Error("es delete error", "error", err)
	}
}

func readImage(fh *multipart.FileHeader) ([]byte, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Header.Get("Content-Type"), nil
}

// Upload creates a product and stores its uploaded images as binary rows.
// The product row is committed before the image rows; a failure while
// inserting images leaves the product without them.
func (h *ProductHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	name := c.FormValue("name")
	priceStr := c.FormValue("price")
	details := c.FormValue("details")
	if name == "" || priceStr == "" || details == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing fields"})
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price"})
	}

	product := models.Product{
		Name:            name,
		Price:           price,
		Details:         details,
		LineDescription: c.FormValue("line_description"),
		Benefit:         c.FormValue("benefit"),
	}
	if err := h.DB.WithContext(ctx).Create(&product).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["images"] {
			data, mimeType, err := readImage(fh)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
			}
			img := models.ProductImage{ProductID: product.ID, Data: data, MimeType: mimeType}
			if err := h.DB.WithContext(ctx).Create(&img).Error; err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
			}
		}
	}

	h.publish(c, map[string]any{
		"type":       "product_created",
		"product_id": product.ID,
		"name":       product.Name,
	})
	h.indexDoc(c, &product)

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "product saved successfully",
		"id":      product.ID,
	})
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()

	var products []models.Product
	if err := h.DB.WithContext(ctx).Preload("Images").Order("id ASC").Find(&products).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i], false))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).Preload("Images").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, toProductResponse(&product, true))
}

// UpdateProduct applies a partial multipart update; uploading any image
// replaces the product's image set wholesale.
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	if v := c.FormValue("name"); v != "" {
		product.Name = v
	}
	if v := c.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price"})
		}
		product.Price = price
	}
	if v := c.FormValue("details"); v != "" {
		product.Details = v
	}
	if v := c.FormValue("line_description"); v != "" {
		product.LineDescription = v
	}
	if v := c.FormValue("benefit"); v != "" {
		product.Benefit = v
	}

	if err := h.DB.WithContext(ctx).Save(&product).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	if form, err := c.MultipartForm(); err == nil && form != nil && len(form.File["images"]) > 0 {
		if err := h.DB.WithContext(ctx).Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		for _, fh := range form.File["images"] {
			data, mimeType, err := readImage(fh)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
			}
			img := models.ProductImage{ProductID: product.ID, Data: data, MimeType: mimeType}
			if err := h.DB.WithContext(ctx).Create(&img).Error; err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
			}
		}
	}

	h.publish(c, map[string]any{
		"type":       "product_updated",
		"product_id": product.ID,
		"name":       product.Name,
	})
	h.indexDoc(c, &product)

	return c.JSON(http.StatusOK, echo.Map{"message": "product updated successfully"})
}

// DeleteProduct removes the product and every image that belongs to it.
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	if err := h.DB.WithContext(ctx).Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	if err := h.DB.WithContext(ctx).Delete(&product).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	h.publish(c, map[string]any{
		"type":       "product_deleted",
		"product_id": product.ID,
	})
	h.deleteDoc(c, product.ID)

	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted successfully"})
}

func (h *ProductHandler) GetProductImage(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid image id"})
	}

	var img models.ProductImage
	if err := h.DB.WithContext(ctx).First(&img, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "image not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return c.Blob(http.StatusOK, mimeType, img.Data)
}
