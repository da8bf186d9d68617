package services

import (
	"strings"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

// PlanSpec is one sellable plan of a platform.
type PlanSpec struct {
	Name         string
	Price        int // Kz
	SlotsPerUnit int
	AccountType  string
	Aliases      []string
}

// PlatformSpec is one streaming platform and its plan table.
type PlatformSpec struct {
	Key     string
	Name    string
	Aliases []string
	Plans   []PlanSpec
}

// Catalog is the static price table. Prices are in Kwanza.
var Catalog = []PlatformSpec{
	{
		Key:     "netflix",
		Name:    "Netflix",
		Aliases: []string{"netflix", "netflex", "net flix"},
		Plans: []PlanSpec{
			{Name: "Perfil", Price: 3500, SlotsPerUnit: 1, AccountType: models.AccountTypeShared, Aliases: []string{"perfil", "partilhado", "compartilhado"}},
			{Name: "Individual", Price: 5000, SlotsPerUnit: 1, AccountType: models.AccountTypeFull, Aliases: []string{"individual", "completa", "conta completa", "privada"}},
			{Name: "Família", Price: 12000, SlotsPerUnit: 4, AccountType: models.AccountTypeShared, Aliases: []string{"familia", "família", "familiar"}},
		},
	},
	{
		Key:     "prime",
		Name:    "Prime Video",
		Aliases: []string{"prime", "prime video", "amazon"},
		Plans: []PlanSpec{
			{Name: "Individual", Price: 4000, SlotsPerUnit: 1, AccountType: models.AccountTypeFull, Aliases: []string{"individual", "completa"}},
			{Name: "Família", Price: 9000, SlotsPerUnit: 3, AccountType: models.AccountTypeShared, Aliases: []string{"familia", "família", "familiar"}},
		},
	},
	{
		Key:     "max",
		Name:    "Max",
		Aliases: []string{"max", "hbo", "hbo max"},
		Plans: []PlanSpec{
			{Name: "Perfil", Price: 3000, SlotsPerUnit: 1, AccountType: models.AccountTypeShared, Aliases: []string{"perfil", "partilhado"}},
			{Name: "Individual", Price: 4000, SlotsPerUnit: 1, AccountType: models.AccountTypeFull, Aliases: []string{"individual", "completa"}},
		},
	},
	{
		Key:     "disney",
		Name:    "Disney+",
		Aliases: []string{"disney", "disney+", "disney plus"},
		Plans: []PlanSpec{
			{Name: "Individual", Price: 4500, SlotsPerUnit: 1, AccountType: models.AccountTypeFull, Aliases: []string{"individual", "completa"}},
		},
	},
	{
		Key:     "spotify",
		Name:    "Spotify",
		Aliases: []string{"spotify", "espotify"},
		Plans: []PlanSpec{
			{Name: "Individual", Price: 4000, SlotsPerUnit: 1, AccountType: models.AccountTypeFull, Aliases: []string{"individual", "premium"}},
			{Name: "Família", Price: 10000, SlotsPerUnit: 4, AccountType: models.AccountTypeShared, Aliases: []string{"familia", "família", "familiar"}},
		},
	},
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "ã", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "õ", "o", "ô", "o",
	"ú", "u",
	"ç", "c",
)

// Normalize lowercases and strips Portuguese accents for matching.
func Normalize(text string) string {
	return accentReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
}

// FindPlatforms returns every platform mentioned in text, in catalog order.
func FindPlatforms(text string) []*PlatformSpec {
	norm := Normalize(text)
	var found []*PlatformSpec
	for i := range Catalog {
		p := &Catalog[i]
		for _, alias := range p.Aliases {
			if strings.Contains(norm, alias) {
				found = append(found, p)
				break
			}
		}
	}
	return found
}

// PlatformByKey looks a platform up by its catalog key or display name.
func PlatformByKey(key string) *PlatformSpec {
	norm := Normalize(key)
	for i := range Catalog {
		if Catalog[i].Key == norm || Normalize(Catalog[i].Name) == norm {
			return &Catalog[i]
		}
	}
	return nil
}

// FindPlan returns the plan of p whose name or alias appears in text.
func (p *PlatformSpec) FindPlan(text string) *PlanSpec {
	norm := Normalize(text)
	for i := range p.Plans {
		plan := &p.Plans[i]
		for _, alias := range plan.Aliases {
			if strings.Contains(norm, Normalize(alias)) {
				return plan
			}
		}
	}
	return nil
}

// PlanByName returns the plan with the given display name.
func (p *PlatformSpec) PlanByName(name string) *PlanSpec {
	norm := Normalize(name)
	for i := range p.Plans {
		if Normalize(p.Plans[i].Name) == norm {
			return &p.Plans[i]
		}
	}
	return nil
}
