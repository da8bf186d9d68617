package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

// MemoryStore holds all data in memory for tests and local development
type MemoryStore struct {
	records   map[string]*models.SessionRecord
	customers map[string]*models.Customer // keyed by phone
	profiles  map[uint]*models.Profile
	lostSales map[string]*models.LostSale
	sales     []*models.Sale

	recordMu   sync.RWMutex
	customerMu sync.RWMutex
	profileMu  sync.RWMutex
	lossMu     sync.RWMutex
	saleMu     sync.Mutex

	profileCounter  uint
	customerCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]*models.SessionRecord),
		customers: make(map[string]*models.Customer),
		profiles:  make(map[uint]*models.Profile),
		lostSales: make(map[string]*models.LostSale),
	}
}

// Session snapshot operations

func (m *MemoryStore) SaveSessionRecord(rec *models.SessionRecord) error {
	m.recordMu.Lock()
	defer m.recordMu.Unlock()

	clone := *rec
	m.records[rec.Phone] = &clone
	return nil
}

func (m *MemoryStore) DeleteSessionRecord(phone string) error {
	m.recordMu.Lock()
	defer m.recordMu.Unlock()

	delete(m.records, phone)
	return nil
}

func (m *MemoryStore) LoadSessionRecords() ([]*models.SessionRecord, error) {
	m.recordMu.RLock()
	defer m.recordMu.RUnlock()

	records := make([]*models.SessionRecord, 0, len(m.records))
	for _, rec := range m.records {
		clone := *rec
		records = append(records, &clone)
	}
	return records, nil
}

// Customer operations

func (m *MemoryStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	customer, exists := m.customers[phone]
	if !exists {
		return nil, fmt.Errorf("customer not found")
	}
	return customer, nil
}

func (m *MemoryStore) GetCustomerByName(name string) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	for _, customer := range m.customers {
		if strings.ToLower(customer.Name) == needle {
			return customer, nil
		}
	}
	return nil, fmt.Errorf("customer not found")
}

func (m *MemoryStore) UpsertCustomer(customer *models.Customer) error {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	if existing, exists := m.customers[customer.Phone]; exists {
		customer.ID = existing.ID
		customer.CreatedAt = existing.CreatedAt
	} else {
		m.customerCounter++
		customer.ID = m.customerCounter
		customer.CreatedAt = time.Now()
	}
	customer.UpdatedAt = time.Now()
	m.customers[customer.Phone] = customer
	return nil
}

// Inventory operations

func (m *MemoryStore) CreateProfile(profile *models.Profile) error {
	m.profileMu.Lock()
	defer m.profileMu.Unlock()

	m.profileCounter++
	profile.ID = m.profileCounter
	if profile.Status == "" {
		profile.Status = models.ProfileAvailable
	}
	profile.CreatedAt = time.Now()
	m.profiles[profile.ID] = profile
	return nil
}

func (m *MemoryStore) FindAvailableProfiles(platform string, count int, accountType string) ([]*models.Profile, error) {
	m.profileMu.RLock()
	defer m.profileMu.RUnlock()

	matches := []*models.Profile{}
	for _, p := range m.profiles {
		if p.Status == models.ProfileAvailable &&
			strings.EqualFold(p.Platform, platform) &&
			p.AccountType == accountType {
			matches = append(matches, p)
		}
	}
	// Oldest rows first, matching the database ORDER BY id
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	if len(matches) > count {
		matches = matches[:count]
	}
	return matches, nil
}

func (m *MemoryStore) CountAvailable(platform, accountType string) (int, error) {
	m.profileMu.RLock()
	defer m.profileMu.RUnlock()

	count := 0
	for _, p := range m.profiles {
		if p.Status == models.ProfileAvailable &&
			strings.EqualFold(p.Platform, platform) &&
			p.AccountType == accountType {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) HasAnyStock(platform string) (bool, error) {
	m.profileMu.RLock()
	defer m.profileMu.RUnlock()

	for _, p := range m.profiles {
		if p.Status == models.ProfileAvailable && strings.EqualFold(p.Platform, platform) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) MarkSold(rowRef uint, buyerName, buyerPhone string) error {
	m.profileMu.Lock()
	defer m.profileMu.Unlock()

	profile, exists := m.profiles[rowRef]
	if !exists {
		return fmt.Errorf("profile %d not found", rowRef)
	}
	now := time.Now()
	profile.Status = models.ProfileSold
	profile.BuyerName = buyerName
	profile.BuyerPhone = buyerPhone
	profile.SoldAt = &now
	return nil
}

func (m *MemoryStore) MarkAvailable(rowRef uint) error {
	m.profileMu.Lock()
	defer m.profileMu.Unlock()

	profile, exists := m.profiles[rowRef]
	if !exists {
		return fmt.Errorf("profile %d not found", rowRef)
	}
	profile.Status = models.ProfileAvailable
	profile.BuyerName = ""
	profile.BuyerPhone = ""
	profile.SoldAt = nil
	return nil
}

func (m *MemoryStore) FindSoldProfilesByPhone(phone string) ([]*models.Profile, error) {
	m.profileMu.RLock()
	defer m.profileMu.RUnlock()

	matches := []*models.Profile{}
	for _, p := range m.profiles {
		if p.Status == models.ProfileSold && p.BuyerPhone == phone {
			matches = append(matches, p)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (m *MemoryStore) StockSnapshot() (map[string]map[string]int, error) {
	m.profileMu.RLock()
	defer m.profileMu.RUnlock()

	snapshot := make(map[string]map[string]int)
	for _, p := range m.profiles {
		if p.Status != models.ProfileAvailable {
			continue
		}
		if snapshot[p.Platform] == nil {
			snapshot[p.Platform] = make(map[string]int)
		}
		snapshot[p.Platform][p.AccountType]++
	}
	return snapshot, nil
}

// Lost sale operations

func (m *MemoryStore) AppendLostSale(loss *models.LostSale) error {
	m.lossMu.Lock()
	defer m.lossMu.Unlock()

	if loss.SaleID == "" {
		loss.SaleID = fmt.Sprintf("PV-%s", uuid.New().String()[:8])
	}
	loss.CreatedAt = time.Now()
	m.lostSales[loss.SaleID] = loss
	return nil
}

func (m *MemoryStore) ListLostSales() ([]*models.LostSale, error) {
	m.lossMu.RLock()
	defer m.lossMu.RUnlock()

	losses := make([]*models.LostSale, 0, len(m.lostSales))
	for _, loss := range m.lostSales {
		losses = append(losses, loss)
	}
	sort.Slice(losses, func(i, j int) bool { return losses[i].CreatedAt.Before(losses[j].CreatedAt) })
	return losses, nil
}

func (m *MemoryStore) GetLostSale(saleID string) (*models.LostSale, error) {
	m.lossMu.RLock()
	defer m.lossMu.RUnlock()

	loss, exists := m.lostSales[saleID]
	if !exists {
		return nil, fmt.Errorf("lost sale not found")
	}
	return loss, nil
}

func (m *MemoryStore) MarkLostSaleRecovered(saleID string) error {
	m.lossMu.Lock()
	defer m.lossMu.Unlock()

	loss, exists := m.lostSales[saleID]
	if !exists {
		return fmt.Errorf("lost sale not found")
	}
	loss.Recovered = true
	return nil
}

// Mirror implementation, so tests can assert on mirrored sales

func (m *MemoryStore) RecordSale(sale *models.Sale) error {
	m.saleMu.Lock()
	defer m.saleMu.Unlock()

	if sale.SaleRef == "" {
		sale.SaleRef = fmt.Sprintf("VD-%s", uuid.New().String()[:8])
	}
	m.sales = append(m.sales, sale)
	return nil
}

func (m *MemoryStore) MirrorCustomer(customer *models.Customer) error {
	return m.UpsertCustomer(customer)
}

// Sales returns the mirrored sales (test helper).
func (m *MemoryStore) Sales() []*models.Sale {
	m.saleMu.Lock()
	defer m.saleMu.Unlock()

	out := make([]*models.Sale, len(m.sales))
	copy(out, m.sales)
	return out
}
