package bot

import (
	"log"
	"time"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

const (
	restockNudgeWait = 30 * time.Minute
	restockExpiry    = 2 * time.Hour
	exitWinBackDelay = 5 * time.Minute
	exitDestroyDelay = 15 * time.Minute
)

// SweepInactive destroys sessions idle past the cutoff, logging a timeout
// loss for each. Sessions waiting on proof, supervisor review, restock or
// an alternative offer are exempt, as is anyone with a pending verification.
func (b *Bot) SweepInactive(now time.Time) {
	for _, sess := range b.sessions.All() {
		// Session fields are only read under the per-phone lock; a turn may
		// be mutating them right now.
		lock := b.lockFor(sess.Phone)
		lock.Lock()
		cur := b.sessions.Get(sess.Phone)
		if cur == nil || now.Sub(cur.LastActivity) <= staleAfter {
			lock.Unlock()
			continue
		}
		switch cur.Step {
		case models.StepAwaitingProof, models.StepAwaitingSupervisor,
			models.StepAwaitingRestock, models.StepAwaitingAltResponse:
			lock.Unlock()
			continue
		}
		if b.sessions.GetPending(cur.Phone) != nil {
			lock.Unlock()
			continue
		}

		log.Printf("🧹 Timing out idle session %s (step %s)", cur.Phone, cur.Step)
		b.cancelSession(cur, models.LossTimeout)
		lock.Unlock()
	}
}

// SweepRestock nudges customers waiting on a restock after 30 minutes and
// expires the wait after two hours.
func (b *Bot) SweepRestock(now time.Time) {
	for _, sess := range b.sessions.All() {
		lock := b.lockFor(sess.Phone)
		lock.Lock()
		cur := b.sessions.Get(sess.Phone)
		if cur == nil || cur.PendingRecovery == nil ||
			(cur.Step != models.StepAwaitingRestock && cur.Step != models.StepAwaitingAltResponse) {
			lock.Unlock()
			continue
		}

		waited := now.Sub(cur.PendingRecovery.Since)
		switch {
		case waited > restockExpiry:
			log.Printf("🧹 Restock wait expired for %s (%s)", cur.Phone, cur.PendingRecovery.Platform)
			b.send(cur.Phone, msgRestockExpired)
			b.cancelSession(cur, models.LossRestockExpired)
		case waited > restockNudgeWait && !cur.PendingRecovery.FollowUpSent:
			b.send(cur.Phone, restockFollowUp(cur.PendingRecovery.Platform))
			cur.PendingRecovery.FollowUpSent = true
			b.sessions.MarkDirty(cur.Phone)
		}
		lock.Unlock()
	}
}

// SweepExitIntent runs the win-back ladder for customers who signalled they
// were leaving: one nudge after five minutes of silence, session destroyed
// after fifteen.
func (b *Bot) SweepExitIntent(now time.Time) {
	for _, sess := range b.sessions.All() {
		lock := b.lockFor(sess.Phone)
		lock.Lock()
		cur := b.sessions.Get(sess.Phone)
		if cur == nil || cur.ExitIntentAt == nil {
			lock.Unlock()
			continue
		}

		since := now.Sub(*cur.ExitIntentAt)
		switch {
		case since > exitDestroyDelay:
			log.Printf("🧹 Exit intent expired for %s", cur.Phone)
			b.cancelSession(cur, models.LossExitIntent)
		case since > exitWinBackDelay && !cur.ExitIntentFollowUpSent:
			b.send(cur.Phone, msgExitIntentWinBack)
			cur.ExitIntentFollowUpSent = true
			b.sessions.MarkDirty(cur.Phone)
		}
		lock.Unlock()
	}
}
