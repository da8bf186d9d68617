package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/services"
)

// dispatch routes one customer turn to the handler for the session's step.
// The switch is exhaustive over the Step enum; an unknown step (corrupt
// restore) pauses to a human rather than guessing.
func (b *Bot) dispatch(ctx context.Context, sess *models.Session, msg IncomingMessage, text string) {
	switch sess.Step {
	case models.StepStart:
		b.handleStart(sess, text)
	case models.StepCaptureName:
		b.handleCaptureName(sess, text)
	case models.StepRenewalConfirm:
		b.handleRenewalConfirm(sess, text)
	case models.StepServiceChoice:
		b.handleServiceChoice(ctx, sess, text)
	case models.StepPlanChoice:
		b.handlePlanChoice(ctx, sess, text)
	case models.StepOrderSummary:
		b.handleOrderSummary(sess, text)
	case models.StepAwaitingRestock:
		b.send(sess.Phone, msgStillChecking)
	case models.StepAwaitingAltResponse:
		b.handleAltResponse(sess, text)
	case models.StepAwaitingProof:
		b.handleAwaitingProof(ctx, sess, msg, text)
	case models.StepAwaitingSupervisor:
		b.send(sess.Phone, msgStillVerifying)
	default:
		log.Printf("⚠️  Session %s in unknown step %d, pausing", sess.Phone, sess.Step)
		b.sessions.Pause(sess.Phone)
		b.notifyOperators("⚠️ Sessão " + sess.Phone + " em estado desconhecido. Bot pausado.")
	}
}

// handleStart greets first contact. Known numbers skip straight to a
// renewal offer.
func (b *Bot) handleStart(sess *models.Session, text string) {
	if customer, err := b.store.GetCustomerByPhone(sess.Phone); err == nil {
		b.seedRenewal(sess, customer)
		return
	}
	sess.Step = models.StepCaptureName
	b.send(sess.Phone, msgGreeting)
}

// seedRenewal binds a known customer to the session and offers their last plan.
func (b *Bot) seedRenewal(sess *models.Session, customer *models.Customer) {
	sess.ClientName = customer.Name
	sess.Email = customer.Email
	sess.IsRenewal = true
	sess.Platform = customer.LastPlatform
	sess.Plan = customer.LastPlan
	sess.Price = customer.LastPrice
	sess.Step = models.StepRenewalConfirm
	b.send(sess.Phone, renewalPrompt(customer))
}

func (b *Bot) handleCaptureName(sess *models.Session, text string) {
	name := strings.TrimSpace(text)
	if len([]rune(name)) < 3 {
		b.send(sess.Phone, msgNameTooShort)
		return
	}
	sess.ClientName = name

	// A name match can bind this new number to an existing customer
	if customer, err := b.store.GetCustomerByName(name); err == nil && customer.LastPlatform != "" {
		customer.Phone = sess.Phone
		if err := b.store.UpsertCustomer(customer); err != nil {
			log.Printf("⚠️  Failed to rebind customer %s: %v", name, err)
		}
		b.seedRenewal(sess, customer)
		return
	}

	sess.Step = models.StepServiceChoice
	b.send(sess.Phone, greetingFor(firstName(name))+"\n\n"+b.buildServicesMenu())
}

func (b *Bot) handleRenewalConfirm(sess *models.Session, text string) {
	switch {
	case yesRe.MatchString(text) || strings.Contains(services.Normalize(text), "renovar"):
		platform := services.PlatformByKey(sess.Platform)
		if platform == nil {
			// Last plan no longer sold; fall back to the normal flow
			sess.Step = models.StepServiceChoice
			b.send(sess.Phone, b.buildServicesMenu())
			return
		}
		plan := platform.PlanByName(sess.Plan)
		if plan == nil {
			sess.Step = models.StepPlanChoice
			sess.ServiceKey = platform.Key
			b.send(sess.Phone, planMenu(platform))
			return
		}
		b.addCartItem(sess, platform, plan, 1)
		sess.Step = models.StepAwaitingProof
		b.send(sess.Phone, paymentInstructions(sess.Cart, sess.TotalValue))
	case noRe.MatchString(text) || strings.Contains(services.Normalize(text), "outro"):
		platform := services.PlatformByKey(sess.Platform)
		if platform != nil {
			sess.Step = models.StepPlanChoice
			sess.ServiceKey = platform.Key
			b.send(sess.Phone, planMenu(platform))
		} else {
			sess.Step = models.StepServiceChoice
			b.send(sess.Phone, b.buildServicesMenu())
		}
	default:
		b.send(sess.Phone, "Quer renovar o mesmo plano? Responda *sim* ou *outro* 😊")
	}
}

func (b *Bot) handleServiceChoice(ctx context.Context, sess *models.Session, text string) {
	platforms := services.FindPlatforms(text)
	if len(platforms) == 0 {
		if b.handleObjection(ctx, sess, text) {
			return
		}
		b.llmReply(ctx, sess, text, scopeServices)
		return
	}

	var inStock []*services.PlatformSpec
	for _, p := range platforms {
		has, err := b.store.HasAnyStock(p.Name)
		if err != nil {
			log.Printf("⚠️  Stock check failed for %s: %v", p.Name, err)
			continue
		}
		if has {
			inStock = append(inStock, p)
		} else {
			b.logLostSale(sess, models.LossOutOfStock)
			b.send(sess.Phone, outOfStock(p.Name))
			b.notifyOperators("📉 Cliente " + sess.Phone + " pediu " + p.Name + " sem stock.")
		}
	}
	if len(inStock) == 0 {
		// Stay in service_choice; the customer may pick something else
		return
	}

	sess.InterestStack = nil
	for _, p := range inStock {
		sess.InterestStack = append(sess.InterestStack, p.Key)
	}
	sess.CurrentItemIndex = 0
	first := inStock[0]
	sess.ServiceKey = first.Key
	sess.Platform = first.Name
	sess.Step = models.StepPlanChoice
	b.send(sess.Phone, planMenu(first))
}

func (b *Bot) handlePlanChoice(ctx context.Context, sess *models.Session, text string) {
	platform := services.PlatformByKey(sess.ServiceKey)
	if platform == nil {
		sess.Step = models.StepServiceChoice
		b.send(sess.Phone, b.buildServicesMenu())
		return
	}

	plan := platform.FindPlan(text)
	if plan == nil {
		if b.handleObjection(ctx, sess, text) {
			return
		}
		b.llmReply(ctx, sess, text, scopePlans)
		return
	}

	quantity := parseQuantity(text)
	slots := plan.SlotsPerUnit * quantity

	available := b.combinedAvailability(platform.Name, plan.AccountType)
	if available < slots {
		sess.PendingRecovery = &models.PendingRecovery{
			Platform:   platform.Name,
			Plan:       plan.Name,
			UnitPrice:  plan.Price,
			Quantity:   quantity,
			SlotsShort: slots - available,
			Since:      b.clock(),
		}
		sess.Step = models.StepAwaitingRestock
		b.send(sess.Phone, awaitingRestockNotice(platform.Name, plan.Name))
		b.notifyOperators(fmt.Sprintf("📦 Reposição precisa: %s %s x%d para %s (faltam %d vagas). Comandos: reposto %s | alternativa <plano> %s | cancelar %s",
			platform.Name, plan.Name, quantity, sess.Phone, slots-available, sess.Phone, sess.Phone, sess.Phone))
		return
	}

	b.addCartItem(sess, platform, plan, quantity)

	// More interests queued: loop plan_choice for the next platform
	if sess.CurrentItemIndex+1 < len(sess.InterestStack) {
		sess.CurrentItemIndex++
		next := services.PlatformByKey(sess.InterestStack[sess.CurrentItemIndex])
		if next != nil {
			sess.ServiceKey = next.Key
			sess.Platform = next.Name
			b.send(sess.Phone, "Anotado! ✅\n\n"+planMenu(next))
			return
		}
	}

	if len(sess.Cart) > 1 {
		sess.Step = models.StepOrderSummary
		b.send(sess.Phone, orderSummary(sess.Cart, sess.TotalValue))
		return
	}
	sess.Step = models.StepAwaitingProof
	b.send(sess.Phone, paymentInstructions(sess.Cart, sess.TotalValue))
}

func (b *Bot) handleOrderSummary(sess *models.Session, text string) {
	switch {
	case yesRe.MatchString(text):
		sess.Step = models.StepAwaitingProof
		b.send(sess.Phone, paymentInstructions(sess.Cart, sess.TotalValue))
	case noRe.MatchString(text):
		sess.ResetSelection()
		sess.Step = models.StepServiceChoice
		b.send(sess.Phone, "Sem problema! Vamos montar o pedido de novo. 😊\n\n"+b.buildServicesMenu())
	default:
		b.send(sess.Phone, orderSummary(sess.Cart, sess.TotalValue))
	}
}

func (b *Bot) handleAltResponse(sess *models.Session, text string) {
	recovery := sess.PendingRecovery
	if recovery == nil || recovery.OfferedPlan == "" {
		sess.Step = models.StepServiceChoice
		b.send(sess.Phone, b.buildServicesMenu())
		return
	}

	switch {
	case yesRe.MatchString(text):
		platform := services.PlatformByKey(recovery.Platform)
		if platform == nil {
			sess.Step = models.StepServiceChoice
			b.send(sess.Phone, b.buildServicesMenu())
			return
		}
		plan := platform.PlanByName(recovery.OfferedPlan)
		if plan == nil {
			sess.Step = models.StepServiceChoice
			b.send(sess.Phone, b.buildServicesMenu())
			return
		}
		sess.PendingRecovery = nil
		b.addCartItem(sess, platform, plan, recovery.Quantity)
		sess.Step = models.StepAwaitingProof
		b.send(sess.Phone, paymentInstructions(sess.Cart, sess.TotalValue))
	case noRe.MatchString(text):
		b.logLostSale(sess, models.LossAltDeclined)
		sess.PendingRecovery = nil
		sess.Step = models.StepServiceChoice
		b.send(sess.Phone, "Entendido! Quer ver outra plataforma? 😊\n\n"+b.buildServicesMenu())
	default:
		platform := recovery.Platform
		offered := recovery.OfferedPlan
		price := 0
		if p := services.PlatformByKey(platform); p != nil {
			if plan := p.PlanByName(offered); plan != nil {
				price = plan.Price
			}
		}
		b.send(sess.Phone, alternativeOffer(platform, offered, price))
	}
}

func (b *Bot) handleAwaitingProof(ctx context.Context, sess *models.Session, msg IncomingMessage, text string) {
	// Document handling first: the proof is the point of this step
	if msg.MediaURL != "" {
		if strings.Contains(strings.ToLower(msg.MediaType), "pdf") {
			b.createVerification(sess, msg.MediaURL)
			return
		}
		if strings.HasPrefix(strings.ToLower(msg.MediaType), "image/") {
			sess.ProofImageCount++
			if sess.ProofImageCount == 1 {
				b.send(sess.Phone, msgAskPDFFirst)
			} else {
				b.send(sess.Phone, msgAskPDFAgain)
			}
			return
		}
	}

	if text == "" {
		return
	}
	if paymentDetailRe.MatchString(text) {
		b.send(sess.Phone, paymentInstructions(sess.Cart, sess.TotalValue))
		return
	}
	if b.handleObjection(ctx, sess, text) {
		return
	}
	// Free text scoped strictly to the current cart
	b.llmReply(ctx, sess, text, scopeCart)
}

// createVerification snapshots the cart into a pending verification and
// parks the session until a supervisor decides.
func (b *Bot) createVerification(sess *models.Session, proofURL string) {
	pv := &models.PendingVerification{
		Phone:      sess.Phone,
		ClientName: sess.ClientName,
		Email:      sess.Email,
		Cart:       append([]models.CartItem(nil), sess.Cart...),
		IsRenewal:  sess.IsRenewal,
		TotalValue: sess.TotalValue,
		ProofURL:   proofURL,
		Timestamp:  b.clock(),
	}
	b.sessions.SetPending(sess.Phone, pv)
	sess.Step = models.StepAwaitingSupervisor
	b.send(sess.Phone, msgProofReceived)

	var lines []string
	for _, item := range pv.Cart {
		lines = append(lines, fmt.Sprintf("%s %s x%d", item.Service, item.Plan, item.Quantity))
	}
	b.notifyOperators(fmt.Sprintf("💰 Comprovativo recebido de %s (%s)\n%s\nTotal: %s\nResponda *sim %s* para aprovar ou *não %s* para rejeitar.",
		pv.ClientName, pv.Phone, strings.Join(lines, "\n"), formatKz(pv.TotalValue), pv.Phone, pv.Phone))
}

// handleObjection runs the matcher and executes the matched category.
// Returns true when the turn was consumed.
func (b *Bot) handleObjection(ctx context.Context, sess *models.Session, text string) bool {
	out := MatchObjection(text, sess.Objections)
	if out == nil {
		return false
	}

	if out.Escalate {
		b.sessions.Pause(sess.Phone)
		b.send(sess.Phone, msgEscalated)
		b.notifyOperators("🚨 Cliente " + sess.Phone + " insistiu na objeção \"" + out.Category + "\". Bot pausado.")
		return true
	}
	sess.Objections[out.Category] = true

	switch out.Category {
	case objResend:
		b.resendCredentials(sess)
		return true
	case objRenewal:
		if customer, err := b.store.GetCustomerByPhone(sess.Phone); err == nil && customer.LastPlatform != "" {
			b.seedRenewal(sess, customer)
			return true
		}
		sess.Step = models.StepServiceChoice
		b.send(sess.Phone, "Claro! Qual plataforma quer renovar?\n\n"+b.buildServicesMenu())
		return true
	case objCancel:
		b.cancelSession(sess, models.LossCancelled)
		b.send(sess.Phone, msgCancelled)
		return true
	case objUpgrade:
		if platform := services.PlatformByKey(sess.ServiceKey); platform != nil {
			sess.Step = models.StepPlanChoice
			b.send(sess.Phone, planMenu(platform))
			return true
		}
		sess.Step = models.StepServiceChoice
		b.send(sess.Phone, b.buildServicesMenu())
		return true
	case objLocation:
		b.send(sess.Phone, msgNetflixLocationGuide)
		b.notifyOperators("📍 Cliente " + sess.Phone + " com problema de verificação de residência.")
		return true
	}

	if reply, exists := objectionReplies[out.Category]; exists {
		if out.Notify {
			b.notifyOperators("🔔 Cliente " + sess.Phone + " com questão \"" + out.Category + "\": " + truncate(text, 120))
		}
		b.send(sess.Phone, reply)
		return true
	}
	return false
}

// resendCredentials looks the buyer's sold profiles up and re-sends them.
func (b *Bot) resendCredentials(sess *models.Session) {
	profiles, err := b.store.FindSoldProfilesByPhone(sess.Phone)
	if err != nil || len(profiles) == 0 {
		b.send(sess.Phone, "Não encontrei compras associadas a este número 🤔 Vou pedir a um atendente para verificar.")
		b.notifyOperators("🔎 Cliente " + sess.Phone + " pediu reenvio de dados mas não tem compras associadas.")
		return
	}

	var lines []string
	for _, p := range profiles {
		line := fmt.Sprintf("🎬 %s — 📧 %s | 🔑 %s", p.Platform, p.Email, p.Password)
		if p.ProfileName != "" {
			line += " | Perfil: " + p.ProfileName
		}
		if p.PIN != "" {
			line += " | PIN: " + p.PIN
		}
		lines = append(lines, line)
	}
	b.send(sess.Phone, "Aqui estão os seus dados de acesso 😊\n\n"+strings.Join(lines, "\n"))
}

// addCartItem appends a cart line and refreshes the total.
func (b *Bot) addCartItem(sess *models.Session, platform *services.PlatformSpec, plan *services.PlanSpec, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	item := models.CartItem{
		Service:     platform.Name,
		Plan:        plan.Name,
		AccountType: plan.AccountType,
		UnitPrice:   plan.Price,
		Quantity:    quantity,
		SlotsNeeded: plan.SlotsPerUnit,
		TotalSlots:  plan.SlotsPerUnit * quantity,
		TotalPrice:  plan.Price * quantity,
	}
	sess.Cart = append(sess.Cart, item)
	sess.Platform = platform.Name
	sess.Plan = plan.Name
	sess.Price = plan.Price
	sess.RecomputeTotal()
}

// combinedAvailability counts requested-type stock plus the opposite type,
// mirroring the delivery-time fallback.
func (b *Bot) combinedAvailability(platform, accountType string) int {
	same, err := b.store.CountAvailable(platform, accountType)
	if err != nil {
		log.Printf("⚠️  Availability check failed for %s: %v", platform, err)
		return 0
	}
	opposite, err := b.store.CountAvailable(platform, models.OppositeAccountType(accountType))
	if err != nil {
		return same
	}
	return same + opposite
}

func parseQuantity(text string) int {
	norm := services.Normalize(text)
	var qty int
	if _, err := fmt.Sscanf(norm, "%d", &qty); err == nil && qty > 0 && qty <= 10 {
		return qty
	}
	for _, token := range strings.Fields(norm) {
		if n, err := parseInt(strings.TrimSuffix(token, "x")); err == nil && n > 0 && n <= 10 {
			return n
		}
	}
	return 1
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

// buildServicesMenu renders the platform list with live availability.
func (b *Bot) buildServicesMenu() string {
	stock, err := b.store.StockSnapshot()
	if err != nil {
		log.Printf("⚠️  Stock snapshot failed: %v", err)
		stock = map[string]map[string]int{}
	}
	return servicesMenu(stock)
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	return fields[0]
}
