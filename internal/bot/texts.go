package bot

import (
	"fmt"
	"os"
	"strings"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/services"
)

// Customer-facing copy. All texts are Portuguese; code and logs stay in
// English.

const (
	msgGreeting = "Olá! 👋 Bem-vindo à VendaZap, contas de streaming ao melhor preço.\n\nComo se chama?"

	msgNameTooShort = "Não percebi o seu nome 😅 Pode escrever o nome completo?"

	msgStillChecking = "Estamos a confirmar a reposição do stock, já lhe damos novidades! 🙏"

	msgStillVerifying = "O seu comprovativo está em verificação. Assim que for confirmado, enviamos os dados de acesso. 🙏"

	msgProofReceived = "Comprovativo recebido! ✅ Vamos verificar o pagamento e já lhe enviamos os dados de acesso."

	msgAskPDFFirst = "Recebi a imagem, mas para validar o pagamento preciso do comprovativo em *PDF* 📄 (o banco permite exportar). Se preferir, também pode alterar o seu pedido."

	msgAskPDFAgain = "Preciso mesmo do comprovativo em *PDF* para validar o pagamento 📄. Sem o PDF não consigo avançar."

	msgHumanHandoff = "Claro! Vou chamar um atendente humano para continuar consigo. Um momento. 🧑‍💼"

	msgEscalated = "Peço desculpa pelo incómodo 🙏 Vou passar o seu caso ao nosso responsável, que entra em contacto já de seguida."

	msgLoopBreaker = "Vejo que a conversa não está a avançar. Vou pedir a um atendente humano para falar consigo. 🧑‍💼"

	msgOffTopic = "Para não lhe dar informação errada, vou pedir a um atendente para continuar esta conversa. Um momento! 🙏"

	msgExitIntentNudge = "Sem problema, pense com calma! 😊 Só um aviso: o stock é limitado e os preços podem mudar. Se quiser, guardo a sua reserva por alguns minutos."

	msgExitIntentWinBack = "Ainda por aí? 👀 Posso garantir já o seu acesso ao preço de hoje. Quer avançar?"

	msgCancelled = "Pedido cancelado, sem problema! Quando quiser voltar, é só mandar mensagem. 👋"

	msgRestockExpired = "Infelizmente ainda não conseguimos repor o stock 😔 Vamos avisá-lo assim que estiver disponível. Obrigado pela paciência!"

	msgGenericFallback = "Desculpe, tivemos um problema momentâneo. Pode repetir, por favor? 🙏"

	msgNetflixLocationGuide = "Isso é a verificação de residência da Netflix 📺 Faça assim:\n\n" +
		"1️⃣ No aviso, toque em *Estou a ver temporariamente*\n" +
		"2️⃣ Se pedir código, escolha *Enviar e-mail* e avise-nos aqui — enviamos o código\n" +
		"3️⃣ Não toque em *Atualizar residência principal*\n\n" +
		"Qualquer dúvida, estamos aqui! 😊"
)

// Objection rebuttals, one per category. Repeats of price/stalling/trust
// escalate to a human instead of re-sending these.
var objectionReplies = map[string]string{
	objPrice:    "Entendo! 😊 Mas repare: é menos de 200 Kz por dia por entretenimento ilimitado, e garantimos o acesso durante todo o período. Se falhar, substituímos ou devolvemos.",
	objStalling: "Claro, sem pressa! Só lembro que o stock é limitado e os preços de hoje não ficam garantidos. Posso reservar o seu acesso agora. 😊",
	objTrust:    "Compreendo a desconfiança, é normal! Trabalhamos há anos com centenas de clientes e só entregamos depois de confirmar o pagamento — e com garantia de substituição. Quer que um atendente humano fale consigo?",
	objAlready:  "Perfeito! Então talvez lhe interesse renovar ou adicionar outra plataforma com desconto. Quer ver os preços? 😊",
	objTech:     "Lamento o incómodo! 🙏 Já chamei o nosso suporte técnico para resolver isso consigo o mais rápido possível.",
	objPIN:      "Sem problema! O nosso suporte vai confirmar o PIN do seu perfil e já lhe enviamos. 🙏",
}

var (
	bankName   = envOr("BANK_NAME", "BAI")
	bankIBAN   = envOr("BANK_IBAN", "AO06 0040 0000 0000 0000 0000 0")
	bankHolder = envOr("BANK_HOLDER", "VendaZap Lda")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func greetingFor(name string) string {
	return fmt.Sprintf("Olá de novo, %s! 👋 Que bom vê-lo por cá.", name)
}

func renewalPrompt(c *models.Customer) string {
	return fmt.Sprintf(
		"Olá %s! 👋 Vi que da última vez levou *%s %s* por %s.\n\nQuer renovar o mesmo plano? (sim / outro)",
		c.Name, c.LastPlatform, c.LastPlan, formatKz(c.LastPrice))
}

func servicesMenu(stock map[string]map[string]int) string {
	var b strings.Builder
	b.WriteString("Temos estas plataformas disponíveis 🎬\n\n")
	for i := range services.Catalog {
		p := &services.Catalog[i]
		total := 0
		for _, n := range stock[p.Name] {
			total += n
		}
		if total > 0 {
			fmt.Fprintf(&b, "✅ %s\n", p.Name)
		} else {
			fmt.Fprintf(&b, "❌ %s (esgotado)\n", p.Name)
		}
	}
	b.WriteString("\nQual lhe interessa? Pode escolher mais do que uma!")
	return b.String()
}

func planMenu(p *services.PlatformSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Planos %s 🎬\n\n", p.Name)
	for i := range p.Plans {
		plan := &p.Plans[i]
		fmt.Fprintf(&b, "▪️ *%s* — %s/mês\n", plan.Name, formatKz(plan.Price))
	}
	b.WriteString("\nQual prefere?")
	return b.String()
}

func outOfStock(platform string) string {
	return fmt.Sprintf("Neste momento o %s está esgotado 😔 Mas repomos stock com frequência — quer que o avise assim que chegar? Entretanto, temos outras plataformas disponíveis!", platform)
}

func awaitingRestockNotice(platform, plan string) string {
	return fmt.Sprintf("O plano *%s* do %s está com stock insuficiente neste momento 😔 Já pedi reposição à equipa e aviso-o aqui assim que estiver disponível (normalmente é rápido)!", plan, platform)
}

func paymentInstructions(cart []models.CartItem, total int) string {
	var b strings.Builder
	b.WriteString("Perfeito! 🎉 Resumo do seu pedido:\n\n")
	for _, item := range cart {
		fmt.Fprintf(&b, "▪️ %s %s x%d — %s\n", item.Service, item.Plan, item.Quantity, formatKz(item.TotalPrice))
	}
	fmt.Fprintf(&b, "\n*Total: %s*\n\n", formatKz(total))
	fmt.Fprintf(&b, "Para concluir, faça transferência para:\n🏦 %s\nIBAN: %s\nTitular: %s\n\n", bankName, bankIBAN, bankHolder)
	b.WriteString("Depois envie o *comprovativo em PDF* aqui mesmo. 📄")
	return b.String()
}

func orderSummary(cart []models.CartItem, total int) string {
	var b strings.Builder
	b.WriteString("O seu pedido ficou assim 🛒\n\n")
	for _, item := range cart {
		fmt.Fprintf(&b, "▪️ %s %s x%d — %s\n", item.Service, item.Plan, item.Quantity, formatKz(item.TotalPrice))
	}
	fmt.Fprintf(&b, "\n*Total: %s*\n\nConfirma? (sim / não)", formatKz(total))
	return b.String()
}

func alternativeOffer(platform, offered string, price int) string {
	return fmt.Sprintf("Temos uma alternativa! 💡 O plano *%s* do %s está disponível por %s. Quer trocar para este? (sim / não)", offered, platform, formatKz(price))
}

func restockFollowUp(platform string) string {
	return fmt.Sprintf("Ainda estamos a tratar da reposição do %s, não nos esquecemos de si! 🙏", platform)
}

func credentialLines(item models.CartItem, profiles []*models.Profile) []string {
	lines := make([]string, 0, len(profiles)+1)
	lines = append(lines, fmt.Sprintf("🎬 %s %s", item.Service, item.Plan))
	for _, p := range profiles {
		line := fmt.Sprintf("📧 %s | 🔑 %s", p.Email, p.Password)
		if p.ProfileName != "" {
			line += fmt.Sprintf(" | Perfil: %s", p.ProfileName)
		}
		if p.PIN != "" {
			line += fmt.Sprintf(" | PIN: %s", p.PIN)
		}
		lines = append(lines, line)
	}
	return lines
}

func deliveryMessage(name string, lines []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pagamento confirmado, %s! 🎉 Aqui estão os seus dados de acesso:\n\n", name)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n⚠️ Não altere a senha nem os dados da conta.\nObrigado pela preferência! 💙")
	return b.String()
}

func rejectionMessage() string {
	return "Não conseguimos confirmar o seu pagamento 😕 Verifique o comprovativo e envie novamente em PDF, por favor."
}

func formatKz(value int) string {
	// 12000 -> "12.000 Kz"
	s := fmt.Sprintf("%d", value)
	if len(s) > 3 {
		s = s[:len(s)-3] + "." + s[len(s)-3:]
	}
	return s + " Kz"
}
