package models

import (
	"time"

	"gorm.io/gorm"
)

// Account types for inventory profiles.
const (
	AccountTypeFull   = "full_account"
	AccountTypeShared = "shared_profile"
)

// Profile statuses.
const (
	ProfileAvailable = "available"
	ProfileSold      = "sold"
)

// OppositeAccountType returns the fallback type used when the requested
// type runs out.
func OppositeAccountType(t string) string {
	if t == AccountTypeFull {
		return AccountTypeShared
	}
	return AccountTypeFull
}

// Profile is one deliverable credential slot in the inventory pool.
// The gorm row ID doubles as the row reference used by supervisor
// commands ("liberar <ref>") and by markSold/markAvailable.
type Profile struct {
	gorm.Model
	Platform    string     `json:"platform" gorm:"index"`
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	ProfileName string     `json:"profile_name"`
	PIN         string     `json:"pin"`
	AccountType string     `json:"account_type" gorm:"index"` // full_account | shared_profile
	Status      string     `json:"status" gorm:"index;default:available"`
	BuyerName   string     `json:"buyer_name"`
	BuyerPhone  string     `json:"buyer_phone" gorm:"index"`
	SoldAt      *time.Time `json:"sold_at"`
}
