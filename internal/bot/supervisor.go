package bot

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/services"
)

var (
	embeddedPhoneRe = regexp.MustCompile(`\d{9,15}`)
	lostSaleIDRe    = regexp.MustCompile(`(?i)pv-[0-9a-f]{8}`)
)

const supervisorHelp = "Comandos: assumir <num> | retomar <num> | liberar <ref> | reposto <num> | " +
	"alternativa <plano> <num> | cancelar <num> | recuperar <id> [mensagem] | " +
	"localizacao <num> | pin <dígitos> <nome> | vendas-perdidas | sim/não [num] para aprovar/rejeitar"

// handleSupervisor interprets privileged commands from operator numbers.
// Invalid command shapes get a clarifying reply and are otherwise ignored.
func (b *Bot) handleSupervisor(ctx context.Context, op string, msg IncomingMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	fields := strings.Fields(services.Normalize(text))
	cmd := fields[0]

	switch {
	case cmd == "assumir":
		target := embeddedPhoneRe.FindString(text)
		if target == "" {
			b.opReply(op, "Indique o número: assumir <num>")
			return
		}
		b.sessions.Pause(target)
		b.opReply(op, "✅ Bot pausado para "+target+". A conversa é sua.")

	case cmd == "retomar":
		target := embeddedPhoneRe.FindString(text)
		if target == "" {
			b.opReply(op, "Indique o número: retomar <num>")
			return
		}
		b.sessions.Resume(target)
		b.opReply(op, "✅ Bot retomado para "+target+".")

	case cmd == "liberar":
		if len(fields) < 2 {
			b.opReply(op, "Indique a referência: liberar <ref>")
			return
		}
		ref, err := strconv.Atoi(fields[1])
		if err != nil {
			b.opReply(op, "Referência inválida: "+fields[1])
			return
		}
		if err := b.store.MarkAvailable(uint(ref)); err != nil {
			b.opReply(op, "❌ Não consegui liberar a vaga "+fields[1]+": "+err.Error())
			return
		}
		b.opReply(op, "✅ Vaga "+fields[1]+" devolvida ao stock.")

	case cmd == "reposto":
		b.handleRestocked(op, embeddedPhoneRe.FindString(text))

	case cmd == "alternativa":
		b.handleAlternative(op, text, fields)

	case cmd == "cancelar":
		target := embeddedPhoneRe.FindString(text)
		if target == "" {
			b.opReply(op, "Sem sessão ativa para esse número.")
			return
		}
		lock := b.lockFor(target)
		lock.Lock()
		sess := b.sessions.Get(target)
		if sess == nil {
			lock.Unlock()
			b.opReply(op, "Sem sessão ativa para esse número.")
			return
		}
		b.cancelSession(sess, models.LossCancelled)
		lock.Unlock()
		b.send(target, msgCancelled)
		b.opReply(op, "✅ Pedido de "+target+" cancelado e registado como venda perdida.")

	case cmd == "recuperar":
		b.handleRecover(op, text, fields)

	case cmd == "localizacao":
		target := embeddedPhoneRe.FindString(text)
		if target == "" {
			b.opReply(op, "Indique o número: localizacao <num>")
			return
		}
		b.send(target, msgNetflixLocationGuide)
		b.opReply(op, "✅ Guia de residência enviado para "+target+".")

	case cmd == "pin":
		b.handlePIN(op, text, fields)

	case cmd == "vendas-perdidas" || (cmd == "vendas" && len(fields) > 1 && fields[1] == "perdidas"):
		b.listLostSales(op)

	case cmd == "sim" || cmd == "s" || cmd == "aprovar" || isBarePhone(text):
		b.handleApprove(op, text, msg.QuotedText)

	case cmd == "nao" || cmd == "não" || cmd == "n" || cmd == "rejeitar":
		b.handleReject(op, text, msg.QuotedText)

	default:
		b.opReply(op, "Comando não reconhecido. "+supervisorHelp)
	}
}

func (b *Bot) opReply(op, text string) {
	if _, err := b.gateway.SendText(op, text); err != nil {
		log.Printf("❌ Failed to reply to operator %s: %v", op, err)
	}
}

func isBarePhone(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && embeddedPhoneRe.FindString(trimmed) == trimmed
}

// resolvePending finds the target verification: explicit number in the
// command, then the quoted message, then the sole pending entry.
func (b *Bot) resolvePending(text, quoted string) (*models.PendingVerification, string) {
	if target := embeddedPhoneRe.FindString(text); target != "" {
		if pv := b.sessions.GetPending(target); pv != nil {
			return pv, ""
		}
		return nil, "Sem verificação pendente para " + target + "."
	}
	if quoted != "" {
		if target := embeddedPhoneRe.FindString(quoted); target != "" {
			if pv := b.sessions.GetPending(target); pv != nil {
				return pv, ""
			}
		}
	}
	if pv := b.sessions.SolePending(); pv != nil {
		return pv, ""
	}
	if len(b.sessions.ListPending()) == 0 {
		return nil, "Não há verificações pendentes."
	}
	return nil, "Há várias verificações pendentes — indique o número (ex: sim 244900000000)."
}

func (b *Bot) handleApprove(op, text, quoted string) {
	pv, problem := b.resolvePending(text, quoted)
	if pv == nil {
		b.opReply(op, problem)
		return
	}
	b.opReply(op, b.deliver(pv))
}

func (b *Bot) handleReject(op, text, quoted string) {
	pv, problem := b.resolvePending(text, quoted)
	if pv == nil {
		b.opReply(op, problem)
		return
	}
	b.opReply(op, b.reject(pv))
}

func (b *Bot) reject(pv *models.PendingVerification) string {
	lock := b.lockFor(pv.Phone)
	lock.Lock()
	defer lock.Unlock()

	b.sessions.DeletePending(pv.Phone)
	if sess := b.sessions.Get(pv.Phone); sess != nil {
		sess.Step = models.StepAwaitingProof
		b.sessions.MarkDirty(pv.Phone)
	}
	b.send(pv.Phone, rejectionMessage())
	return "✅ Verificação de " + pv.Phone + " rejeitada; cliente avisado."
}

// ApproveVerification delivers the pending order for phone. It backs the
// admin HTTP surface and returns the same summary operators get on WhatsApp.
func (b *Bot) ApproveVerification(phone string) (string, error) {
	pv := b.sessions.GetPending(sanitizePhone(phone))
	if pv == nil {
		return "", fmt.Errorf("no pending verification for %s", phone)
	}
	return b.deliver(pv), nil
}

// RejectVerification rejects the pending order for phone (admin HTTP surface).
func (b *Bot) RejectVerification(phone string) (string, error) {
	pv := b.sessions.GetPending(sanitizePhone(phone))
	if pv == nil {
		return "", fmt.Errorf("no pending verification for %s", phone)
	}
	return b.reject(pv), nil
}

// handleRestocked rebuilds the held cart after a manual restock.
func (b *Bot) handleRestocked(op, target string) {
	if target == "" {
		b.opReply(op, "Cliente não está a aguardar reposição.")
		return
	}
	lock := b.lockFor(target)
	lock.Lock()
	defer lock.Unlock()

	sess := b.sessions.Get(target)
	if sess == nil || sess.Step != models.StepAwaitingRestock || sess.PendingRecovery == nil {
		b.opReply(op, "Cliente não está a aguardar reposição.")
		return
	}

	recovery := sess.PendingRecovery
	platform := services.PlatformByKey(recovery.Platform)
	if platform == nil {
		b.opReply(op, "Plataforma desconhecida na reposição: "+recovery.Platform)
		return
	}
	plan := platform.PlanByName(recovery.Plan)
	if plan == nil {
		b.opReply(op, "Plano desconhecido na reposição: "+recovery.Plan)
		return
	}

	sess.PendingRecovery = nil
	b.addCartItem(sess, platform, plan, recovery.Quantity)
	sess.Step = models.StepAwaitingProof
	b.sessions.MarkDirty(target)
	b.send(target, "Boas notícias! 🎉 O seu plano já está disponível.\n\n"+paymentInstructions(sess.Cart, sess.TotalValue))
	b.opReply(op, "✅ Cliente "+target+" avisado; pedido reativado.")
}

// handleAlternative offers a different plan of the same platform to a
// customer stuck in awaiting_restock.
func (b *Bot) handleAlternative(op, text string, fields []string) {
	target := embeddedPhoneRe.FindString(text)
	if target == "" {
		b.opReply(op, "Cliente não está a aguardar reposição.")
		return
	}
	if len(fields) < 3 {
		b.opReply(op, "Formato: alternativa <plano> <num>")
		return
	}
	lock := b.lockFor(target)
	lock.Lock()
	defer lock.Unlock()

	sess := b.sessions.Get(target)
	if sess == nil || sess.Step != models.StepAwaitingRestock || sess.PendingRecovery == nil {
		b.opReply(op, "Cliente não está a aguardar reposição.")
		return
	}

	planName := strings.Join(fields[1:len(fields)-1], " ")
	platform := services.PlatformByKey(sess.PendingRecovery.Platform)
	if platform == nil {
		b.opReply(op, "Plataforma desconhecida: "+sess.PendingRecovery.Platform)
		return
	}
	plan := platform.FindPlan(planName)
	if plan == nil {
		b.opReply(op, fmt.Sprintf("O %s não tem o plano \"%s\".", platform.Name, planName))
		return
	}

	sess.PendingRecovery.OfferedPlan = plan.Name
	sess.Step = models.StepAwaitingAltResponse
	b.sessions.MarkDirty(target)
	b.send(target, alternativeOffer(platform.Name, plan.Name, plan.Price))
	b.opReply(op, "✅ Alternativa "+plan.Name+" oferecida a "+target+".")
}

// handleRecover re-engages a lost sale with a win-back message.
func (b *Bot) handleRecover(op, text string, fields []string) {
	if len(fields) < 2 {
		b.opReply(op, "Formato: recuperar <id> [mensagem]")
		return
	}
	saleID := lostSaleIDRe.FindString(text)
	if saleID == "" {
		b.opReply(op, "ID inválido. Use o formato PV-xxxxxxxx (ver vendas-perdidas).")
		return
	}
	message := ""
	if loc := lostSaleIDRe.FindStringIndex(text); loc != nil {
		message = strings.TrimSpace(text[loc[1]:])
	}

	summary, err := b.RecoverLostSale(saleID, message)
	if err != nil {
		b.opReply(op, "❌ "+err.Error())
		return
	}
	b.opReply(op, summary)
}

// RecoverLostSale sends a win-back message for a lost sale and marks it
// recovered. An empty message falls back to the standard win-back text.
func (b *Bot) RecoverLostSale(saleID, message string) (string, error) {
	saleID = "PV-" + strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(saleID, "PV-"), "pv-"))

	loss, err := b.store.GetLostSale(saleID)
	if err != nil {
		return "", fmt.Errorf("venda perdida %s não encontrada", saleID)
	}
	if message == "" {
		message = msgExitIntentWinBack
	}

	if _, err := b.gateway.SendText(loss.Phone, message); err != nil {
		return "", fmt.Errorf("não consegui contactar %s: %w", loss.Phone, err)
	}
	if err := b.store.MarkLostSaleRecovered(saleID); err != nil {
		log.Printf("⚠️  Failed to mark %s recovered: %v", saleID, err)
	}
	return "✅ Mensagem de recuperação enviada para " + loss.Phone + ".", nil
}

// handlePIN forwards a profile PIN to a customer looked up by name.
func (b *Bot) handlePIN(op, text string, fields []string) {
	if len(fields) < 3 {
		b.opReply(op, "Formato: pin <dígitos> <nome>")
		return
	}
	// Name comes from the raw text: normalization strips the accents the
	// customer record was saved with.
	raw := strings.Fields(text)
	digits := raw[1]
	name := strings.Join(raw[2:], " ")

	customer, err := b.store.GetCustomerByName(name)
	if err != nil {
		b.opReply(op, "Cliente \""+name+"\" não encontrado.")
		return
	}
	b.send(customer.Phone, fmt.Sprintf("Olá %s! O PIN do seu perfil é *%s* 🔑", firstName(customer.Name), digits))
	b.opReply(op, "✅ PIN enviado para "+customer.Name+" ("+customer.Phone+").")
}

func (b *Bot) listLostSales(op string) {
	losses, err := b.store.ListLostSales()
	if err != nil {
		b.opReply(op, "❌ Erro ao listar vendas perdidas: "+err.Error())
		return
	}
	if len(losses) == 0 {
		b.opReply(op, "Sem vendas perdidas registadas. 🎉")
		return
	}

	var lines []string
	for _, loss := range losses {
		status := ""
		if loss.Recovered {
			status = " (recuperada)"
		}
		lines = append(lines, fmt.Sprintf("%s — %s %s | %s | %s%s",
			loss.SaleID, loss.Phone, loss.ClientName, loss.Interests, loss.Reason, status))
	}
	b.opReply(op, "📋 Vendas perdidas:\n"+strings.Join(lines, "\n"))
}
