package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Customer is a known buyer, used to detect renewals and seed their last
// plan back into the cart.
type Customer struct {
	gorm.Model
	Phone          string    `json:"phone" gorm:"uniqueIndex"`
	Name           string    `json:"name" gorm:"index"`
	Email          string    `json:"email"`
	LastPlatform   string    `json:"last_platform"`
	LastPlan       string    `json:"last_plan"`
	LastPrice      int       `json:"last_price"`
	LastPurchaseAt time.Time `json:"last_purchase_at"`
	TotalPurchases int       `json:"total_purchases" gorm:"default:0"`
}

// BeforeCreate normalizes the phone number to digits-only, the format the
// webhook delivers after stripping the "whatsapp:" prefix.
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	c.Phone = strings.TrimPrefix(c.Phone, "+")
	return nil
}
