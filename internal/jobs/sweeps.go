package jobs

import (
	"log"
	"time"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/bot"
)

// SweepJob runs the periodic session maintenance sweeps: inactivity
// timeouts, restock follow-ups and the exit-intent win-back ladder.
type SweepJob struct {
	bot       *bot.Bot
	isRunning bool
}

// NewSweepJob creates the sweep scheduler for the given bot.
func NewSweepJob(b *bot.Bot) *SweepJob {
	return &SweepJob{
		bot:       b,
		isRunning: false,
	}
}

// Start begins all sweep loops.
func (s *SweepJob) Start() {
	if s.isRunning {
		log.Println("Sweep jobs already running")
		return
	}

	s.isRunning = true
	log.Println("Starting session sweep jobs...")

	go s.scheduleInactivitySweep()
	go s.scheduleRestockSweep()
	go s.scheduleExitIntentSweep()

	log.Println("All sweep jobs started successfully")
}

// Stop halts all sweep loops.
func (s *SweepJob) Stop() {
	s.isRunning = false
	log.Println("Stopping session sweep jobs...")
}

// INACTIVITY SWEEP - Runs every 30 minutes
func (s *SweepJob) scheduleInactivitySweep() {
	for s.isRunning {
		time.Sleep(30 * time.Minute)
		if !s.isRunning {
			break
		}
		s.bot.SweepInactive(time.Now())
	}
}

// RESTOCK SWEEP - Runs every 5 minutes
func (s *SweepJob) scheduleRestockSweep() {
	for s.isRunning {
		time.Sleep(5 * time.Minute)
		if !s.isRunning {
			break
		}
		s.bot.SweepRestock(time.Now())
	}
}

// EXIT INTENT SWEEP - Runs every minute to keep the win-back window tight
func (s *SweepJob) scheduleExitIntentSweep() {
	for s.isRunning {
		time.Sleep(1 * time.Minute)
		if !s.isRunning {
			break
		}
		s.bot.SweepExitIntent(time.Now())
	}
}
