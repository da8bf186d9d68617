package storage

import (
	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

// Store defines the interface for storage operations
type Store interface {
	// Session snapshot operations (batch flush / startup restore)
	SaveSessionRecord(rec *models.SessionRecord) error
	DeleteSessionRecord(phone string) error
	LoadSessionRecords() ([]*models.SessionRecord, error)

	// Customer operations
	GetCustomerByPhone(phone string) (*models.Customer, error)
	GetCustomerByName(name string) (*models.Customer, error)
	UpsertCustomer(customer *models.Customer) error

	// Inventory operations
	FindAvailableProfiles(platform string, count int, accountType string) ([]*models.Profile, error)
	CountAvailable(platform, accountType string) (int, error)
	HasAnyStock(platform string) (bool, error)
	MarkSold(rowRef uint, buyerName, buyerPhone string) error
	MarkAvailable(rowRef uint) error
	FindSoldProfilesByPhone(phone string) ([]*models.Profile, error)
	CreateProfile(profile *models.Profile) error
	StockSnapshot() (map[string]map[string]int, error)

	// Lost sale operations
	AppendLostSale(loss *models.LostSale) error
	ListLostSales() ([]*models.LostSale, error)
	GetLostSale(saleID string) (*models.LostSale, error)
	MarkLostSaleRecovered(saleID string) error
}

// Mirror is the optional secondary relational sink for sales. Failures are
// logged by callers and never abort a delivery.
type Mirror interface {
	RecordSale(sale *models.Sale) error
	MirrorCustomer(customer *models.Customer) error
}
