package models

import "time"

type User struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"      json:"id"`
	Username     string  `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string  `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string  `gorm:"size:255;not null"             json:"-"`
	PhoneNumber  string  `gorm:"size:20"                       json:"phone_number"`
	Address      string  `gorm:"size:255"                      json:"address"`
	Tokens       []Token `gorm:"constraint:OnDelete:CASCADE"   json:"-"`
}

// Token is an opaque bearer credential. A user may hold several live
// tokens at once (multi-device); expired rows just fail the auth check.
type Token struct {
	Token     string    `gorm:"primaryKey;size:255" json:"token"`
	UserID    uint      `gorm:"index;not null"      json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"            json:"expires_at"`
}

type Product struct {
	ID              uint           `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name            string         `gorm:"size:255;not null"           json:"name"`
	Price           float64        `gorm:"not null"                    json:"price"`
	Details         string         `gorm:"type:text"                   json:"details"`
	LineDescription string         `gorm:"type:text"                   json:"line_description"`
	Benefit         string         `gorm:"type:text"                   json:"benefit"`
	Images          []ProductImage `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type ProductImage struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint   `gorm:"index;not null"           json:"product_id"`
	Data      []byte `gorm:"not null"                 json:"-"`
	MimeType  string `gorm:"size:50"                  json:"mime_type"`
}

// CartItem snapshots the product name at add time; repeated adds of the
// same product create separate rows.
type CartItem struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint   `gorm:"index;not null"           json:"user_id"`
	ProductID   uint   `gorm:"not null"                 json:"product_id"`
	ProductName string `gorm:"size:255;not null"        json:"product_name"`
	Quantity    int    `gorm:"not null"                 json:"quantity"`
}

// OrderHistory is append-only. Price, phone and address are captured at
// settlement time and never follow later product or profile edits.
type OrderHistory struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint      `gorm:"index;not null"           json:"user_id"`
	ProductID       uint      `gorm:"not null"                 json:"product_id"`
	ProductName     string    `gorm:"size:255;not null"        json:"product_name"`
	Quantity        int       `gorm:"not null"                 json:"quantity"`
	PriceAtPurchase float64   `gorm:"not null"                 json:"price_at_purchase"`
	PurchaseDate    time.Time `json:"purchase_date"`
	Phone           string    `gorm:"size:20"                  json:"phone"`
	Address         string    `gorm:"size:255"                 json:"address"`
}

func (OrderHistory) TableName() string { return "orders_history" }
