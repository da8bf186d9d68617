package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sale is one delivered cart line, mirrored best-effort into the secondary
// relational store after a successful delivery.
type Sale struct {
	gorm.Model
	SaleRef      string    `json:"sale_ref" gorm:"uniqueIndex"`
	Phone        string    `json:"phone" gorm:"index"`
	ClientName   string    `json:"client_name"`
	Platform     string    `json:"platform"`
	Plan         string    `json:"plan"`
	Quantity     int       `json:"quantity"`
	TotalPrice   int       `json:"total_price"`
	IsRenewal    bool      `json:"is_renewal"`
	DeliveredVia string    `json:"delivered_via"` // whatsapp | email | manual
	DeliveredAt  time.Time `json:"delivered_at"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.SaleRef == "" {
		s.SaleRef = fmt.Sprintf("VD-%s", uuid.New().String()[:8])
	}
	return nil
}
