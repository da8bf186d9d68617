package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

// DatabaseStore implements Store (and Mirror) on top of PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed storage
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Session snapshot operations

func (d *DatabaseStore) SaveSessionRecord(rec *models.SessionRecord) error {
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "last_activity", "has_verification", "updated_at"}),
	}).Create(rec).Error
}

func (d *DatabaseStore) DeleteSessionRecord(phone string) error {
	return d.db.Where("phone = ?", phone).Delete(&models.SessionRecord{}).Error
}

func (d *DatabaseStore) LoadSessionRecords() ([]*models.SessionRecord, error) {
	var records []*models.SessionRecord
	if err := d.db.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Customer operations

func (d *DatabaseStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	var customer models.Customer
	err := d.db.Where("phone = ?", phone).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer not found")
		}
		return nil, err
	}
	return &customer, nil
}

func (d *DatabaseStore) GetCustomerByName(name string) (*models.Customer, error) {
	var customer models.Customer
	err := d.db.Where("LOWER(name) = LOWER(?)", name).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer not found")
		}
		return nil, err
	}
	return &customer, nil
}

func (d *DatabaseStore) UpsertCustomer(customer *models.Customer) error {
	return d.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "email", "last_platform", "last_plan", "last_price",
			"last_purchase_at", "total_purchases", "updated_at",
		}),
	}).Create(customer).Error
}

// Inventory operations
//
// Acquisition is read-then-write with no transactional guard; two
// overlapping approvals can race on the same rows. Accepted at the expected
// concurrency (tens of sessions, one operator).

func (d *DatabaseStore) CreateProfile(profile *models.Profile) error {
	return d.db.Create(profile).Error
}

func (d *DatabaseStore) FindAvailableProfiles(platform string, count int, accountType string) ([]*models.Profile, error) {
	var profiles []*models.Profile
	err := d.db.
		Where("platform ILIKE ? AND account_type = ? AND status = ?", platform, accountType, models.ProfileAvailable).
		Order("id").
		Limit(count).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (d *DatabaseStore) CountAvailable(platform, accountType string) (int, error) {
	var count int64
	err := d.db.Model(&models.Profile{}).
		Where("platform ILIKE ? AND account_type = ? AND status = ?", platform, accountType, models.ProfileAvailable).
		Count(&count).Error
	return int(count), err
}

func (d *DatabaseStore) HasAnyStock(platform string) (bool, error) {
	var count int64
	err := d.db.Model(&models.Profile{}).
		Where("platform ILIKE ? AND status = ?", platform, models.ProfileAvailable).
		Count(&count).Error
	return count > 0, err
}

func (d *DatabaseStore) MarkSold(rowRef uint, buyerName, buyerPhone string) error {
	now := time.Now()
	result := d.db.Model(&models.Profile{}).Where("id = ?", rowRef).Updates(map[string]interface{}{
		"status":      models.ProfileSold,
		"buyer_name":  buyerName,
		"buyer_phone": buyerPhone,
		"sold_at":     &now,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("profile %d not found", rowRef)
	}
	return nil
}

func (d *DatabaseStore) MarkAvailable(rowRef uint) error {
	result := d.db.Model(&models.Profile{}).Where("id = ?", rowRef).Updates(map[string]interface{}{
		"status":      models.ProfileAvailable,
		"buyer_name":  "",
		"buyer_phone": "",
		"sold_at":     nil,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("profile %d not found", rowRef)
	}
	return nil
}

func (d *DatabaseStore) FindSoldProfilesByPhone(phone string) ([]*models.Profile, error) {
	var profiles []*models.Profile
	err := d.db.
		Where("buyer_phone = ? AND status = ?", phone, models.ProfileSold).
		Order("id").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (d *DatabaseStore) StockSnapshot() (map[string]map[string]int, error) {
	type row struct {
		Platform    string
		AccountType string
		Count       int
	}
	var rows []row
	err := d.db.Model(&models.Profile{}).
		Select("platform, account_type, COUNT(*) as count").
		Where("status = ?", models.ProfileAvailable).
		Group("platform, account_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]map[string]int)
	for _, r := range rows {
		if snapshot[r.Platform] == nil {
			snapshot[r.Platform] = make(map[string]int)
		}
		snapshot[r.Platform][r.AccountType] = r.Count
	}
	return snapshot, nil
}

// Lost sale operations

func (d *DatabaseStore) AppendLostSale(loss *models.LostSale) error {
	return d.db.Create(loss).Error
}

func (d *DatabaseStore) ListLostSales() ([]*models.LostSale, error) {
	var losses []*models.LostSale
	if err := d.db.Order("created_at").Find(&losses).Error; err != nil {
		return nil, err
	}
	return losses, nil
}

func (d *DatabaseStore) GetLostSale(saleID string) (*models.LostSale, error) {
	var loss models.LostSale
	err := d.db.Where("sale_id = ?", saleID).First(&loss).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lost sale not found")
		}
		return nil, err
	}
	return &loss, nil
}

func (d *DatabaseStore) MarkLostSaleRecovered(saleID string) error {
	result := d.db.Model(&models.LostSale{}).Where("sale_id = ?", saleID).Update("recovered", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("lost sale not found")
	}
	return nil
}

// Mirror implementation

func (d *DatabaseStore) RecordSale(sale *models.Sale) error {
	return d.db.Create(sale).Error
}

func (d *DatabaseStore) MirrorCustomer(customer *models.Customer) error {
	return d.UpsertCustomer(customer)
}
