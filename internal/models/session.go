package models

import (
	"time"

	"gorm.io/gorm"
)

// Step is the conversation state machine position for a session.
type Step int

const (
	StepStart Step = iota
	StepCaptureName
	StepRenewalConfirm
	StepServiceChoice
	StepPlanChoice
	StepOrderSummary
	StepAwaitingRestock
	StepAwaitingAltResponse
	StepAwaitingProof
	StepAwaitingSupervisor
)

func (s Step) String() string {
	switch s {
	case StepStart:
		return "start"
	case StepCaptureName:
		return "capture_name"
	case StepRenewalConfirm:
		return "renewal_confirm"
	case StepServiceChoice:
		return "service_choice"
	case StepPlanChoice:
		return "plan_choice"
	case StepOrderSummary:
		return "order_summary"
	case StepAwaitingRestock:
		return "awaiting_restock"
	case StepAwaitingAltResponse:
		return "awaiting_alt_response"
	case StepAwaitingProof:
		return "awaiting_proof"
	case StepAwaitingSupervisor:
		return "awaiting_supervisor"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a defined step. Sessions restored from disk
// may carry a step written by a different build.
func (s Step) Valid() bool {
	return s >= StepStart && s <= StepAwaitingSupervisor
}

// CartItem is one line of an in-progress order.
type CartItem struct {
	Service     string `json:"service"`
	Plan        string `json:"plan"`
	AccountType string `json:"account_type"`
	UnitPrice   int    `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	SlotsNeeded int    `json:"slots_needed"` // slots per unit
	TotalSlots  int    `json:"total_slots"`  // slots_needed * quantity
	TotalPrice  int    `json:"total_price"`
}

// PendingRecovery describes an out-of-stock request waiting for a manual
// restock or an alternative-plan offer from the supervisor.
type PendingRecovery struct {
	Platform     string    `json:"platform"`
	Plan         string    `json:"plan"`
	UnitPrice    int       `json:"unit_price"`
	Quantity     int       `json:"quantity"`
	SlotsShort   int       `json:"slots_short"`
	OfferedPlan  string    `json:"offered_plan,omitempty"`
	FollowUpSent bool      `json:"follow_up_sent"`
	Since        time.Time `json:"since"`
}

// Session holds the full conversation state for one phone number.
type Session struct {
	Phone                  string           `json:"phone"`
	Step                   Step             `json:"step"`
	ClientName             string           `json:"client_name"`
	ServiceKey             string           `json:"service_key"`
	Platform               string           `json:"platform"`
	Plan                   string           `json:"plan"`
	Price                  int              `json:"price"`
	Cart                   []CartItem       `json:"cart"`
	TotalValue             int              `json:"total_value"`
	IsRenewal              bool             `json:"is_renewal"`
	Email                  string           `json:"email,omitempty"`
	InterestStack          []string         `json:"interest_stack"`
	CurrentItemIndex       int              `json:"current_item_index"`
	Objections             map[string]bool  `json:"objections"`
	PendingRecovery        *PendingRecovery `json:"pending_recovery,omitempty"`
	LastActivity           time.Time        `json:"last_activity"`
	ExitIntentAt           *time.Time       `json:"exit_intent_at,omitempty"`
	ExitIntentFollowUpSent bool             `json:"exit_intent_follow_up_sent"`
	LastText               string           `json:"last_text"`
	RepeatCount            int              `json:"repeat_count"`
	ProofImageCount        int              `json:"proof_image_count"`
	CreatedAt              time.Time        `json:"created_at"`
}

// RecomputeTotal refreshes TotalValue from the cart lines.
func (s *Session) RecomputeTotal() {
	total := 0
	for _, item := range s.Cart {
		total += item.TotalPrice
	}
	s.TotalValue = total
}

// ResetSelection clears the in-progress selection and cart, keeping the
// customer's identity and objection history.
func (s *Session) ResetSelection() {
	s.ServiceKey = ""
	s.Platform = ""
	s.Plan = ""
	s.Price = 0
	s.Cart = nil
	s.TotalValue = 0
	s.InterestStack = nil
	s.CurrentItemIndex = 0
	s.PendingRecovery = nil
	s.ProofImageCount = 0
}

// PendingVerification is a snapshot of an order awaiting supervisor
// approval of the customer's payment proof.
type PendingVerification struct {
	Phone      string     `json:"phone"`
	ClientName string     `json:"client_name"`
	Email      string     `json:"email,omitempty"`
	Cart       []CartItem `json:"cart"`
	IsRenewal  bool       `json:"is_renewal"`
	TotalValue int        `json:"total_value"`
	ProofURL   string     `json:"proof_url,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ChatMessage is one turn of the conversation history kept for LLM context.
type ChatMessage struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// SessionRecord is the persisted form of a session. The full state travels
// as a JSON snapshot so new session fields never require a migration.
type SessionRecord struct {
	gorm.Model
	Phone           string    `json:"phone" gorm:"uniqueIndex"`
	State           string    `json:"state"` // JSON snapshot: session + pending + paused + history
	LastActivity    time.Time `json:"last_activity"`
	HasVerification bool      `json:"has_verification"`
}
