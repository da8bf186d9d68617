package models

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lost sale reasons.
const (
	LossOutOfStock     = "sem_stock"
	LossCancelled      = "cancelado"
	LossTimeout        = "timeout"
	LossExitIntent     = "desistencia"
	LossAltDeclined    = "alternativa_recusada"
	LossRestockExpired = "reposicao_expirada"
)

// LostSale is an append-only record of an abandoned, cancelled or timed-out
// order, kept for manual win-back by the supervisor.
type LostSale struct {
	gorm.Model
	SaleID     string `json:"sale_id" gorm:"uniqueIndex"`
	Phone      string `json:"phone" gorm:"index"`
	ClientName string `json:"client_name"`
	Interests  string `json:"interests"`  // comma-separated platforms/plans
	LastState  string `json:"last_state"` // step name at the moment of loss
	Reason     string `json:"reason"`
	Recovered  bool   `json:"recovered" gorm:"default:false"`
}

func (l *LostSale) BeforeCreate(tx *gorm.DB) error {
	if l.SaleID == "" {
		l.SaleID = fmt.Sprintf("PV-%s", uuid.New().String()[:8])
	}
	return nil
}
