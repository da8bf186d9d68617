package bot

import (
	"context"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/services"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/storage"
)

// Generator is the LLM collaborator contract.
type Generator interface {
	Generate(ctx context.Context, system string, history []models.ChatMessage, userText string) (string, error)
}

// CredentialMailer is the email fallback used when the messaging gateway
// reports a number as invalid.
type CredentialMailer interface {
	SendCredentials(toEmail, name, productName string, credentials []string) error
}

// IncomingMessage is one inbound webhook message, already normalized.
type IncomingMessage struct {
	From       string
	Text       string
	MediaURL   string
	MediaType  string // MIME type of the first attachment, if any
	QuotedText string // body of the quoted message, when replying
}

// Config wires the bot's collaborators. Mirror, LLM and Mailer may be nil;
// every flow degrades without them.
type Config struct {
	Store     storage.Store
	Mirror    storage.Mirror
	Gateway   services.Gateway
	LLM       Generator
	Mailer    CredentialMailer
	Operators []string
	Clock     func() time.Time
}

// Bot is the conversational core: state machine, matcher, supervisor
// commands and sweeps all hang off it.
type Bot struct {
	store     storage.Store
	mirror    storage.Mirror
	gateway   services.Gateway
	llm       Generator
	mailer    CredentialMailer
	sessions  *SessionStore
	operators map[string]bool
	clock     func() time.Time
}

// New creates the bot.
func New(cfg Config) *Bot {
	operators := make(map[string]bool, len(cfg.Operators))
	for _, op := range cfg.Operators {
		if n := sanitizePhone(op); n != "" {
			operators[n] = true
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Bot{
		store:     cfg.Store,
		mirror:    cfg.Mirror,
		gateway:   cfg.Gateway,
		llm:       cfg.LLM,
		mailer:    cfg.Mailer,
		sessions:  NewSessionStore(cfg.Store),
		operators: operators,
		clock:     clock,
	}
}

// Sessions exposes the session store (handlers, jobs, tests).
func (b *Bot) Sessions() *SessionStore { return b.sessions }

// Store exposes the backing store (admin handlers).
func (b *Bot) Store() storage.Store { return b.store }

var phoneDigitsRe = regexp.MustCompile(`[^0-9]`)

func sanitizePhone(phone string) string {
	return phoneDigitsRe.ReplaceAllString(strings.TrimPrefix(phone, "whatsapp:"), "")
}

// lockFor returns the per-phone mutex, so two near-simultaneous messages
// from the same number are handled one at a time. The flush loop takes the
// same lock before snapshotting a session.
func (b *Bot) lockFor(phone string) *sync.Mutex {
	return b.sessions.LockFor(phone)
}

// send delivers one outbound text and records it in the chat history.
// Failures are logged, never propagated: a lost reply must not break a turn.
func (b *Bot) send(phone, text string) services.SendResult {
	result, err := b.gateway.SendText(phone, text)
	if err != nil {
		log.Printf("❌ Failed to send to %s: %v", phone, err)
		return services.SendResult{}
	}
	if result.Sent {
		b.sessions.AppendHistory(phone, "assistant", text, b.clock())
	}
	return result
}

// notifyOperators fans a message out to every configured operator number.
func (b *Bot) notifyOperators(text string) {
	for op := range b.operators {
		if _, err := b.gateway.SendText(op, text); err != nil {
			log.Printf("❌ Failed to notify operator %s: %v", op, err)
		}
	}
}

// HandleIncoming processes one inbound message end to end. It never returns
// an error: every failure is logged and answered with a safe fallback.
func (b *Bot) HandleIncoming(ctx context.Context, msg IncomingMessage) {
	phone := sanitizePhone(msg.From)
	if phone == "" {
		return
	}

	if b.operators[phone] {
		b.handleSupervisor(ctx, phone, msg)
		return
	}

	mu := b.lockFor(phone)
	mu.Lock()
	defer mu.Unlock()

	now := b.clock()
	sess := b.sessions.GetOrCreate(phone, now)
	sess.LastActivity = now
	defer b.sessions.MarkDirty(phone)

	text := strings.TrimSpace(msg.Text)
	if text != "" {
		b.sessions.AppendHistory(phone, "user", text, now)
	}

	// Human has taken over: the bot stays silent until "retomar"
	if b.sessions.IsPaused(phone) {
		return
	}

	// Pre-routing detectors, each short-circuiting the turn
	if text != "" && humanRequestRe.MatchString(text) {
		b.sessions.Pause(phone)
		b.send(phone, msgHumanHandoff)
		b.notifyOperators("🙋 Cliente " + phone + " pediu atendimento humano. Bot pausado.")
		return
	}
	if text != "" && escalationRe.MatchString(text) {
		// One-shot: skip when already under supervision
		if sess.Step != models.StepAwaitingSupervisor {
			b.sessions.Pause(phone)
			b.send(phone, msgEscalated)
			b.notifyOperators("🚨 Escalada automática para " + phone + ": \"" + truncate(text, 120) + "\". Bot pausado.")
			return
		}
	}
	if text != "" && netflixLocationRe.MatchString(text) {
		b.send(phone, msgNetflixLocationGuide)
		b.notifyOperators("📍 Cliente " + phone + " com verificação de residência Netflix (guia enviado).")
		return
	}

	// Loop breaker: two identical repeats hand the conversation to a human
	if text != "" {
		if text == sess.LastText {
			sess.RepeatCount++
		} else {
			sess.RepeatCount = 0
			sess.LastText = text
		}
		if sess.RepeatCount >= 2 {
			b.sessions.Pause(phone)
			b.send(phone, msgLoopBreaker)
			b.notifyOperators("🔁 Cliente " + phone + " em loop (mensagem repetida). Bot pausado.")
			return
		}
	}

	// Any reply clears a pending exit-intent follow-up
	sess.ExitIntentAt = nil
	sess.ExitIntentFollowUpSent = false

	// Cross-cutting phrase sets, before state dispatch
	if text != "" && sess.Step != models.StepStart && sess.Step != models.StepCaptureName &&
		sess.Step != models.StepAwaitingSupervisor {
		if fullCancelRe.MatchString(text) {
			b.cancelSession(sess, models.LossCancelled)
			b.send(phone, msgCancelled)
			return
		}
		if changeOfMindRe.MatchString(text) {
			sess.ResetSelection()
			sess.Step = models.StepServiceChoice
			b.send(phone, b.buildServicesMenu())
			return
		}
	}
	if text != "" && exitIntentRe.MatchString(text) && prePaymentStep(sess.Step) {
		at := now
		sess.ExitIntentAt = &at
		sess.ExitIntentFollowUpSent = false
		b.send(phone, msgExitIntentNudge)
		return
	}

	// Off-topic guard: long free text with no sales vocabulary goes to a
	// human instead of the LLM improvising
	if len(text) > 160 && structuredStep(sess.Step) && !onTopicRe.MatchString(text) {
		b.sessions.Pause(phone)
		b.send(phone, msgOffTopic)
		b.notifyOperators("❓ Cliente " + phone + " fora do guião em " + sess.Step.String() + ". Bot pausado.")
		return
	}

	b.dispatch(ctx, sess, msg, text)
}

func prePaymentStep(step models.Step) bool {
	switch step {
	case models.StepServiceChoice, models.StepPlanChoice, models.StepOrderSummary:
		return true
	default:
		return false
	}
}

func structuredStep(step models.Step) bool {
	switch step {
	case models.StepCaptureName, models.StepRenewalConfirm, models.StepServiceChoice,
		models.StepPlanChoice, models.StepOrderSummary, models.StepAwaitingAltResponse:
		return true
	default:
		return false
	}
}

// cancelSession logs a lost sale and destroys the session.
func (b *Bot) cancelSession(sess *models.Session, reason string) {
	b.logLostSale(sess, reason)
	b.sessions.Delete(sess.Phone)
}

func (b *Bot) logLostSale(sess *models.Session, reason string) {
	loss := &models.LostSale{
		Phone:      sess.Phone,
		ClientName: sess.ClientName,
		Interests:  interestsOf(sess),
		LastState:  sess.Step.String(),
		Reason:     reason,
	}
	if err := b.store.AppendLostSale(loss); err != nil {
		log.Printf("⚠️  Failed to log lost sale for %s: %v", sess.Phone, err)
	}
}

func interestsOf(sess *models.Session) string {
	var parts []string
	for _, item := range sess.Cart {
		parts = append(parts, item.Service+" "+item.Plan)
	}
	if len(parts) == 0 && sess.Platform != "" {
		parts = append(parts, sess.Platform)
	}
	if len(parts) == 0 {
		parts = sess.InterestStack
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
