package bot

import (
	"fmt"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

// SubmitProof attaches an uploaded payment proof to the session for phone,
// creating the pending verification. It backs the web checkout upload, the
// path customers take when sending a PDF over WhatsApp fails.
func (b *Bot) SubmitProof(phone, proofURL string) error {
	phone = sanitizePhone(phone)

	lock := b.lockFor(phone)
	lock.Lock()
	defer lock.Unlock()

	sess := b.sessions.Get(phone)
	if sess == nil {
		return fmt.Errorf("no active session for %s", phone)
	}
	switch sess.Step {
	case models.StepAwaitingProof, models.StepOrderSummary:
	case models.StepAwaitingSupervisor:
		return fmt.Errorf("proof for %s already under review", phone)
	default:
		return fmt.Errorf("session for %s has no order awaiting payment", phone)
	}
	if len(sess.Cart) == 0 {
		return fmt.Errorf("session for %s has an empty cart", phone)
	}

	b.createVerification(sess, proofURL)
	b.sessions.MarkDirty(phone)
	return nil
}

// Broadcast sends text to each phone and reports how many deliveries the
// gateway accepted.
func (b *Bot) Broadcast(phones []string, text string) int {
	sent := 0
	for _, phone := range phones {
		phone = sanitizePhone(phone)
		if phone == "" {
			continue
		}
		if result := b.send(phone, text); result.Sent {
			sent++
		}
	}
	return sent
}
