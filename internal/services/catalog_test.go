package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "familia", Normalize("Família"))
	assert.Equal(t, "promocao", Normalize("  PROMOÇÃO "))
	assert.Equal(t, "ja tenho", Normalize("Já tenho"))
}

func TestFindPlatformsByAlias(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"quero netflix", []string{"Netflix"}},
		{"tem HBO?", []string{"Max"}},
		{"amazon prime por favor", []string{"Prime Video"}},
		{"netflix e spotify", []string{"Netflix", "Spotify"}},
		{"disney plus", []string{"Disney+"}},
		{"bom dia", nil},
	}

	for _, tt := range tests {
		var got []string
		for _, p := range FindPlatforms(tt.text) {
			got = append(got, p.Name)
		}
		assert.Equal(t, tt.want, got, "text %q", tt.text)
	}
}

func TestFindPlatformsKeepCatalogOrder(t *testing.T) {
	// Mention order does not matter, catalog order does
	platforms := FindPlatforms("spotify e também netflix")
	require.Len(t, platforms, 2)
	assert.Equal(t, "Netflix", platforms[0].Name)
	assert.Equal(t, "Spotify", platforms[1].Name)
}

func TestPlatformByKey(t *testing.T) {
	require.NotNil(t, PlatformByKey("netflix"))
	require.NotNil(t, PlatformByKey("Prime Video"), "display name also resolves")
	assert.Nil(t, PlatformByKey("telegram"))
}

func TestFindPlanByAlias(t *testing.T) {
	netflix := PlatformByKey("netflix")
	require.NotNil(t, netflix)

	plan := netflix.FindPlan("quero a conta completa")
	require.NotNil(t, plan)
	assert.Equal(t, "Individual", plan.Name)
	assert.Equal(t, 5000, plan.Price)
	assert.Equal(t, models.AccountTypeFull, plan.AccountType)

	plan = netflix.FindPlan("o familiar")
	require.NotNil(t, plan)
	assert.Equal(t, "Família", plan.Name)
	assert.Equal(t, 4, plan.SlotsPerUnit)

	assert.Nil(t, netflix.FindPlan("premium"))
}

func TestPlanByName(t *testing.T) {
	spotify := PlatformByKey("spotify")
	require.NotNil(t, spotify)

	plan := spotify.PlanByName("família")
	require.NotNil(t, plan)
	assert.Equal(t, 10000, plan.Price)

	assert.Nil(t, spotify.PlanByName("Perfil"))
}
