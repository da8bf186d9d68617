package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/services"
)

// LLM scopes. Routing is pattern-first, LLM-second: free text only reaches
// the model when no deterministic rule fired, and the system prompt is
// rebuilt every turn with live stock so the model cannot invent
// availability.
type llmScope int

const (
	scopeServices llmScope = iota
	scopePlans
	scopeCart
)

// llmReply answers free text with the LLM, degrading to a canned fallback
// on any failure.
func (b *Bot) llmReply(ctx context.Context, sess *models.Session, text string, scope llmScope) {
	if b.llm == nil {
		b.send(sess.Phone, msgGenericFallback)
		return
	}

	system := b.buildSystemPrompt(sess, scope)
	reply, err := b.llm.Generate(ctx, system, b.sessions.History(sess.Phone), text)
	if err != nil || strings.TrimSpace(reply) == "" {
		log.Printf("⚠️  LLM reply failed for %s: %v", sess.Phone, err)
		b.send(sess.Phone, msgGenericFallback)
		return
	}
	b.send(sess.Phone, reply)
}

func (b *Bot) buildSystemPrompt(sess *models.Session, scope llmScope) string {
	var p strings.Builder
	p.WriteString("És o assistente de vendas da VendaZap, uma revenda de contas de streaming em Angola. ")
	p.WriteString("Responde sempre em português, curto e simpático, com no máximo 3 frases. ")
	p.WriteString("Preços em Kwanza (Kz). Nunca inventes plataformas, planos ou preços fora da lista abaixo. ")
	p.WriteString("Nunca prometas entrega antes da confirmação do pagamento.\n\n")

	stock, err := b.store.StockSnapshot()
	if err != nil {
		stock = map[string]map[string]int{}
	}

	switch scope {
	case scopeCart:
		p.WriteString("O cliente já tem um pedido fechado e só falta o comprovativo em PDF. ")
		p.WriteString("Fala APENAS sobre este pedido; é proibido mencionar outras plataformas ou planos.\n\nPedido atual:\n")
		for _, item := range sess.Cart {
			fmt.Fprintf(&p, "- %s %s x%d = %s\n", item.Service, item.Plan, item.Quantity, formatKz(item.TotalPrice))
		}
		fmt.Fprintf(&p, "Total: %s\n", formatKz(sess.TotalValue))
	case scopePlans:
		platform := services.PlatformByKey(sess.ServiceKey)
		if platform != nil {
			fmt.Fprintf(&p, "O cliente está a escolher um plano de %s. Fala apenas dos planos desta plataforma.\n\nPlanos:\n", platform.Name)
			for i := range platform.Plans {
				plan := &platform.Plans[i]
				available := stock[platform.Name][plan.AccountType] + stock[platform.Name][models.OppositeAccountType(plan.AccountType)]
				fmt.Fprintf(&p, "- %s: %s/mês (vagas disponíveis: %d)\n", plan.Name, formatKz(plan.Price), available)
			}
		}
	default:
		p.WriteString("O cliente está a escolher uma plataforma. Plataformas e stock ao vivo:\n")
		for i := range services.Catalog {
			platform := &services.Catalog[i]
			total := 0
			for _, n := range stock[platform.Name] {
				total += n
			}
			status := "ESGOTADO — não ofereças"
			if total > 0 {
				status = fmt.Sprintf("%d vagas", total)
			}
			fmt.Fprintf(&p, "- %s (%s)\n", platform.Name, status)
		}
	}

	if sess.ClientName != "" {
		fmt.Fprintf(&p, "\nNome do cliente: %s.", firstName(sess.ClientName))
	}
	return p.String()
}
