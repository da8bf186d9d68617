package bot

import (
	"fmt"
	"log"
	"strings"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

// deliver executes an approved verification: acquires inventory per cart
// line (requested account type first, opposite type as fallback), sends the
// credentials, marks rows sold, mirrors the sale and resets the session.
// Partial stock delivers what exists and flags the rest for manual
// handling; total failure apologizes without promising a timeline and
// keeps the verification pending for a retry. The returned summary goes
// back to whoever approved, supervisor chat or admin API.
func (b *Bot) deliver(pv *models.PendingVerification) string {
	phone := pv.Phone

	// Approval arrives on the operator's turn; the customer may be mid-turn.
	lock := b.lockFor(phone)
	lock.Lock()
	defer lock.Unlock()

	var allLines []string
	var shortfalls []string
	var delivered []deliveredLine

	for _, item := range pv.Cart {
		profiles := b.acquireProfiles(item)
		if len(profiles) == 0 {
			shortfalls = append(shortfalls, fmt.Sprintf("%s %s: sem stock (%d vagas)", item.Service, item.Plan, item.TotalSlots))
			continue
		}
		if len(profiles) < item.TotalSlots {
			shortfalls = append(shortfalls, fmt.Sprintf("%s %s: faltam %d de %d vagas", item.Service, item.Plan, item.TotalSlots-len(profiles), item.TotalSlots))
		}

		for _, p := range profiles {
			if err := b.store.MarkSold(p.ID, pv.ClientName, phone); err != nil {
				log.Printf("⚠️  Failed to mark profile %d sold: %v", p.ID, err)
			}
		}
		allLines = append(allLines, credentialLines(item, profiles)...)
		delivered = append(delivered, deliveredLine{item: item, profiles: profiles})
	}

	if len(delivered) == 0 {
		// Verification stays pending so the supervisor can retry after a
		// restock.
		b.send(phone, "O seu pagamento está confirmado ✅ Estamos a preparar a entrega dos seus acessos e avisamos já de seguida. Obrigado pela paciência! 🙏")
		return "❌ Entrega falhou por falta de stock total:\n" + strings.Join(shortfalls, "\n") + "\nVerificação continua pendente."
	}

	via := "whatsapp"
	result := b.send(phone, deliveryMessage(firstName(pv.ClientName), allLines))
	if result.InvalidNumber {
		if pv.Email != "" && b.mailer != nil {
			product := deliveredProductName(delivered)
			if err := b.mailer.SendCredentials(pv.Email, pv.ClientName, product, allLines); err != nil {
				log.Printf("❌ Email fallback to %s failed: %v", pv.Email, err)
				via = "manual"
			} else {
				via = "email"
			}
		} else {
			via = "manual"
		}
	}

	b.recordDelivery(pv, delivered, via)

	b.sessions.DeletePending(phone)
	if sess := b.sessions.Get(phone); sess != nil {
		sess.ResetSelection()
		sess.IsRenewal = false
		sess.Step = models.StepServiceChoice
		sess.Objections = make(map[string]bool)
		b.sessions.MarkDirty(phone)
	}

	summary := fmt.Sprintf("✅ Entrega concluída para %s (%s) via %s.", pv.ClientName, phone, via)
	if len(shortfalls) > 0 {
		summary += "\n⚠️ Para entrega manual:\n" + strings.Join(shortfalls, "\n")
	}
	if via == "manual" {
		summary += "\n⚠️ Número inválido no WhatsApp e sem email, entregar manualmente."
	}
	return summary
}

type deliveredLine struct {
	item     models.CartItem
	profiles []*models.Profile
}

// acquireProfiles fetches up to item.TotalSlots profiles, topping up with
// the opposite account type when the requested one runs short.
func (b *Bot) acquireProfiles(item models.CartItem) []*models.Profile {
	profiles, err := b.store.FindAvailableProfiles(item.Service, item.TotalSlots, item.AccountType)
	if err != nil {
		log.Printf("⚠️  Inventory lookup failed for %s: %v", item.Service, err)
		profiles = nil
	}
	if missing := item.TotalSlots - len(profiles); missing > 0 {
		fallback, err := b.store.FindAvailableProfiles(item.Service, missing, models.OppositeAccountType(item.AccountType))
		if err == nil {
			profiles = append(profiles, fallback...)
		}
	}
	return profiles
}

// recordDelivery updates the customer record and mirrors each sale line.
// Mirroring is best-effort: failures are logged and never abort anything.
func (b *Bot) recordDelivery(pv *models.PendingVerification, delivered []deliveredLine, via string) {
	now := b.clock()
	first := delivered[0].item

	customer := &models.Customer{
		Phone:          pv.Phone,
		Name:           pv.ClientName,
		Email:          pv.Email,
		LastPlatform:   first.Service,
		LastPlan:       first.Plan,
		LastPrice:      first.UnitPrice,
		LastPurchaseAt: now,
	}
	if existing, err := b.store.GetCustomerByPhone(pv.Phone); err == nil {
		customer.TotalPurchases = existing.TotalPurchases
	}
	customer.TotalPurchases++
	if err := b.store.UpsertCustomer(customer); err != nil {
		log.Printf("⚠️  Failed to upsert customer %s: %v", pv.Phone, err)
	}

	if b.mirror == nil {
		return
	}
	for _, line := range delivered {
		sale := &models.Sale{
			Phone:        pv.Phone,
			ClientName:   pv.ClientName,
			Platform:     line.item.Service,
			Plan:         line.item.Plan,
			Quantity:     line.item.Quantity,
			TotalPrice:   line.item.TotalPrice,
			IsRenewal:    pv.IsRenewal,
			DeliveredVia: via,
			DeliveredAt:  now,
		}
		if err := b.mirror.RecordSale(sale); err != nil {
			log.Printf("⚠️  Sale mirror failed for %s: %v", pv.Phone, err)
		}
	}
	if err := b.mirror.MirrorCustomer(customer); err != nil {
		log.Printf("⚠️  Customer mirror failed for %s: %v", pv.Phone, err)
	}
}

func deliveredProductName(delivered []deliveredLine) string {
	names := make([]string, 0, len(delivered))
	for _, line := range delivered {
		names = append(names, line.item.Service+" "+line.item.Plan)
	}
	return strings.Join(names, ", ")
}
