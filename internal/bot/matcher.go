package bot

import (
	"regexp"
)

// Objection categories, in evaluation order.
const (
	objPrice    = "price"
	objStalling = "stalling"
	objTrust    = "trust"
	objAlready  = "already_have"
	objTech     = "technical"
	objLocation = "location_check"
	objPIN      = "pin_issue"
	objResend   = "resend_credentials"
	objRenewal  = "renewal"
	objCancel   = "cancellation"
	objUpgrade  = "upgrade"
)

// escalatable categories get one canned rebuttal each; a repeat hands the
// conversation to a human instead of arguing the same point again.
var escalatable = map[string]bool{
	objPrice:    true,
	objStalling: true,
	objTrust:    true,
}

type objectionRule struct {
	category string
	patterns []*regexp.Regexp
	notify   bool // alert the operator on match
}

func res(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile("(?i)" + p)
	}
	return compiled
}

// objectionRules are evaluated in order; first category with a matching
// pattern wins.
var objectionRules = []objectionRule{
	{category: objPrice, patterns: res(
		`muito caro`, `t[aá] caro`, `est[aá] caro`, `caro demais`, `pre[cç]o alto`,
		`n[aã]o tenho (esse )?dinheiro`, `baixa(r)? o pre[cç]o`, `desconto`,
	)},
	{category: objStalling, patterns: res(
		`vou ver`, `depois (te )?falo`, `mais logo`, `qualquer hora`, `quando (puder|der)`,
		`ainda n[aã]o sei`, `deixa.me pensar`,
	)},
	{category: objTrust, patterns: res(
		`[eé] confi[aá]vel`, `n[aã]o confio`, `burla`, `esquema`, `golpe`,
		`como sei que`, `[eé] seguro`, `s[aã]o s[eé]rios`,
	)},
	{category: objAlready, patterns: res(
		`j[aá] tenho (uma )?conta`, `j[aá] tenho netflix`, `j[aá] uso`, `j[aá] sou cliente`,
	)},
	{category: objTech, patterns: res(
		`n[aã]o consigo entrar`, `n[aã]o est[aá] a funcionar`, `deu erro`, `senha (errada|inv[aá]lida|mudou)`,
		`conta (caiu|bloqueada)`, `n[aã]o abre`,
	), notify: true},
	{category: objLocation, patterns: res(
		`resid[eê]ncia`, `agregado familiar`, `fora de casa`, `dispositivo n[aã]o faz parte`,
	), notify: true},
	{category: objPIN, patterns: res(
		`pin (do perfil|errado|n[aã]o funciona)`, `pede (um )?pin`, `c[oó]digo do perfil`,
	), notify: true},
	{category: objResend, patterns: res(
		`(re)?envia(r)? (os )?dados`, `perdi (os )?dados`, `manda(r)? (a )?senha (de novo|outra vez)`,
		`qual (era )?a senha`, `dados de acesso (de novo|outra vez)`,
	)},
	{category: objRenewal, patterns: res(
		`renovar`, `renova[cç][aã]o`, `quero continuar`, `mais um m[eê]s`,
	)},
	{category: objCancel, patterns: res(
		`n[aã]o quero mais`, `cancela(r)? (o )?(meu )?pedido`, `desisto`, `esquece`,
	)},
	{category: objUpgrade, patterns: res(
		`mudar de plano`, `plano (maior|melhor)`, `fazer upgrade`, `passar para (o plano )?fam[ií]lia`,
	)},
}

// MatchOutcome is the matcher's verdict on a piece of free text.
type MatchOutcome struct {
	Category string
	Escalate bool // category already raised, hand to a human
	Notify   bool
}

// MatchObjection classifies text against the ordered rule list. Returns nil
// when no category matches. The raised set decides escalation for the
// price/stalling/trust categories.
func MatchObjection(text string, raised map[string]bool) *MatchOutcome {
	for i := range objectionRules {
		rule := &objectionRules[i]
		for _, pattern := range rule.patterns {
			if pattern.MatchString(text) {
				out := &MatchOutcome{
					Category: rule.category,
					Notify:   rule.notify,
				}
				if escalatable[rule.category] && raised[rule.category] {
					out.Escalate = true
				}
				return out
			}
		}
	}
	return nil
}

// Pre-routing detectors. Each can short-circuit the whole turn before the
// state machine runs.

// humanRequestRe: explicit request for a human operator.
var humanRequestRe = regexp.MustCompile(`(?i)#humano|falar com (um |uma )?(humano|atendente|pessoa|gerente)|atendimento humano`)

// escalationRe: billing/access complaints, refund requests, generic failure
// language that the bot must not argue with.
var escalationRe = regexp.MustCompile(`(?i)reembolso|devolv(e|am|er) (o )?(meu )?dinheiro|fui (cobrado|burlado)|cobraram|voc[eê]s? (me )?(enganaram|roubaram)|quero (o )?meu dinheiro|nada funciona|p[eé]ssimo servi[cç]o|vou denunciar`)

// netflixLocationRe: Netflix household/location verification language,
// answered with a fixed guide (no pause).
var netflixLocationRe = regexp.MustCompile(`(?i)atualizar resid[eê]ncia|resid[eê]ncia principal|aparelho n[aã]o faz parte|este aparelho n[aã]o|c[oó]digo de (acesso|verifica[cç][aã]o)|est[aá]s? a ver temporariamente|verificar (que|se) [eé]s? (tu|voc[eê])`)

// Cross-cutting phrase sets used by the state machine before dispatch.

// changeOfMindRe resets the cart and restarts selection.
var changeOfMindRe = regexp.MustCompile(`(?i)mudei de ideia|quero (trocar|mudar|outro servi[cç]o|outra plataforma)|come[cç]ar de novo|recome[cç]ar|afinal quero`)

// fullCancelRe abandons the order entirely.
var fullCancelRe = regexp.MustCompile(`(?i)cancela(r)? tudo|n[aã]o quero mais( nada)?|desisto|esquece|deixa (para )?(l[aá]|depois)`)

// exitIntentRe: hesitation language ("I'll think about it").
var exitIntentRe = regexp.MustCompile(`(?i)vou pensar|deixa.me pensar|preciso de pensar|talvez (mais tarde|depois)|falo (contigo|convosco) depois`)

// yesRe / noRe for confirmation prompts.
var yesRe = regexp.MustCompile(`(?i)^\s*(sim|s|yes|claro|pode ser|quero|confirmo|ok|okay|bora|vamos)[!. ]*$`)
var noRe = regexp.MustCompile(`(?i)^\s*(n[aã]o|n|nao quero|prefiro n[aã]o)[!. ]*$`)

// paymentDetailRe: the customer asking for the bank details again.
var paymentDetailRe = regexp.MustCompile(`(?i)iban|dados banc[aá]rios|conta (para|de) (pagamento|transfer)|manda(r)? (a |o )?(conta|iban)|como (fa[cç]o o )?pagamento|para onde transfiro`)

// onTopicRe is the allow-list that keeps long free text inside the sales
// domain during structured steps; anything long outside it goes to a human.
var onTopicRe = regexp.MustCompile(`(?i)netflix|prime|amazon|max|hbo|disney|spotify|plano|pre[cç]o|conta|perfil|pagamento|transfer|comprovativo|kz|kwanza|fam[ií]lia|individual|sim|n[aã]o|renovar|senha|acesso|stock|dispon[ií]vel`)
