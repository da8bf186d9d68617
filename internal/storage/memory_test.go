package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

func seedProfiles(t *testing.T, m *MemoryStore, platform, accountType string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, m.CreateProfile(&models.Profile{
			Platform:    platform,
			Email:       fmt.Sprintf("p%d@mail.com", i),
			Password:    "pw",
			AccountType: accountType,
		}))
	}
}

func TestFindAvailableProfilesOldestFirst(t *testing.T) {
	m := NewMemoryStore()
	seedProfiles(t, m, "Netflix", models.AccountTypeShared, 3)

	profiles, err := m.FindAvailableProfiles("Netflix", 2, models.AccountTypeShared)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, uint(1), profiles[0].ID)
	assert.Equal(t, uint(2), profiles[1].ID)
}

func TestFindAvailableProfilesFiltersTypeAndStatus(t *testing.T) {
	m := NewMemoryStore()
	seedProfiles(t, m, "Netflix", models.AccountTypeShared, 1)
	seedProfiles(t, m, "Netflix", models.AccountTypeFull, 1)
	require.NoError(t, m.MarkSold(1, "Alguém", "244900000009"))

	profiles, err := m.FindAvailableProfiles("Netflix", 5, models.AccountTypeShared)
	require.NoError(t, err)
	assert.Empty(t, profiles, "sold shared slot is gone, full slot is the wrong type")

	profiles, err = m.FindAvailableProfiles("netflix", 5, models.AccountTypeFull)
	require.NoError(t, err)
	assert.Len(t, profiles, 1, "platform match is case-insensitive")
}

func TestMarkSoldAndMarkAvailable(t *testing.T) {
	m := NewMemoryStore()
	seedProfiles(t, m, "Spotify", models.AccountTypeFull, 1)

	require.NoError(t, m.MarkSold(1, "Dário", "244900000001"))
	sold, err := m.FindSoldProfilesByPhone("244900000001")
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.NotNil(t, sold[0].SoldAt)

	count, err := m.CountAvailable("Spotify", models.AccountTypeFull)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, m.MarkAvailable(1))
	count, err = m.CountAvailable("Spotify", models.AccountTypeFull)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Error(t, m.MarkSold(99, "x", "y"))
}

func TestStockSnapshot(t *testing.T) {
	m := NewMemoryStore()
	seedProfiles(t, m, "Netflix", models.AccountTypeShared, 2)
	seedProfiles(t, m, "Netflix", models.AccountTypeFull, 1)
	seedProfiles(t, m, "Max", models.AccountTypeShared, 1)
	require.NoError(t, m.MarkSold(4, "Alguém", "244900000009"))

	snapshot, err := m.StockSnapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot["Netflix"][models.AccountTypeShared])
	assert.Equal(t, 1, snapshot["Netflix"][models.AccountTypeFull])
	assert.Empty(t, snapshot["Max"], "sold rows leave the snapshot")
}

func TestUpsertCustomerKeepsIdentity(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.UpsertCustomer(&models.Customer{Phone: "244900000001", Name: "Dário"}))

	first, err := m.GetCustomerByPhone("244900000001")
	require.NoError(t, err)

	require.NoError(t, m.UpsertCustomer(&models.Customer{
		Phone:        "244900000001",
		Name:         "Dário Milagre",
		LastPlatform: "Netflix",
	}))

	updated, err := m.GetCustomerByPhone("244900000001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, "Netflix", updated.LastPlatform)
}

func TestLostSaleLifecycle(t *testing.T) {
	m := NewMemoryStore()

	loss := &models.LostSale{Phone: "244900000001", Reason: models.LossTimeout}
	require.NoError(t, m.AppendLostSale(loss))
	require.NotEmpty(t, loss.SaleID, "an ID is assigned on append")

	got, err := m.GetLostSale(loss.SaleID)
	require.NoError(t, err)
	assert.False(t, got.Recovered)

	require.NoError(t, m.MarkLostSaleRecovered(loss.SaleID))
	got, err = m.GetLostSale(loss.SaleID)
	require.NoError(t, err)
	assert.True(t, got.Recovered)

	assert.Error(t, m.MarkLostSaleRecovered("PV-deadbeef"))
}
