package bot

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/storage"
)

const (
	historyLimit  = 20
	staleAfter    = 2 * time.Hour
	flushInterval = 15 * time.Second
)

// sessionSnapshot is the JSON shape persisted per phone number.
type sessionSnapshot struct {
	Session *models.Session             `json:"session"`
	Pending *models.PendingVerification `json:"pending,omitempty"`
	Paused  bool                        `json:"paused"`
	History []models.ChatMessage        `json:"history,omitempty"`
}

// SessionStore keeps all per-phone conversation state: sessions, chat
// histories, pending verifications and the paused set. Dirty sessions are
// flushed to the backing store on a fixed interval; durability near a crash
// is explicitly not promised.
type SessionStore struct {
	store storage.Store

	sessions  map[string]*models.Session
	histories map[string][]models.ChatMessage
	pending   map[string]*models.PendingVerification
	paused    map[string]bool
	dirty     map[string]bool
	removed   map[string]bool

	mu   sync.RWMutex
	stop chan struct{}

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewSessionStore creates a session store flushing into the given backing store.
func NewSessionStore(store storage.Store) *SessionStore {
	return &SessionStore{
		store:     store,
		sessions:  make(map[string]*models.Session),
		histories: make(map[string][]models.ChatMessage),
		pending:   make(map[string]*models.PendingVerification),
		paused:    make(map[string]bool),
		dirty:     make(map[string]bool),
		removed:   make(map[string]bool),
		stop:      make(chan struct{}),
		locks:     make(map[string]*sync.Mutex),
	}
}

// LockFor returns the per-phone mutex guarding session mutation. Every
// writer of a live session (message turns, supervisor actions, sweeps, the
// flush snapshot) must hold it, so a flush never marshals a session while a
// turn is mutating it.
func (ss *SessionStore) LockFor(phone string) *sync.Mutex {
	ss.lockMu.Lock()
	defer ss.lockMu.Unlock()

	if mu, exists := ss.locks[phone]; exists {
		return mu
	}
	mu := &sync.Mutex{}
	ss.locks[phone] = mu
	return mu
}

// GetOrCreate returns the session for phone, creating it on first contact.
func (ss *SessionStore) GetOrCreate(phone string, now time.Time) *models.Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if sess, exists := ss.sessions[phone]; exists {
		return sess
	}

	sess := &models.Session{
		Phone:        phone,
		Step:         models.StepStart,
		Objections:   make(map[string]bool),
		LastActivity: now,
		CreatedAt:    now,
	}
	ss.sessions[phone] = sess
	ss.dirty[phone] = true
	delete(ss.removed, phone)
	log.Printf("🆕 Session created for %s", phone)
	return sess
}

// Get returns the session for phone, or nil.
func (ss *SessionStore) Get(phone string) *models.Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.sessions[phone]
}

// All returns a snapshot slice of every live session (sweep input).
func (ss *SessionStore) All() []*models.Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	sessions := make([]*models.Session, 0, len(ss.sessions))
	for _, sess := range ss.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Count returns the number of live sessions.
func (ss *SessionStore) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// MarkDirty queues the session for the next batch flush.
func (ss *SessionStore) MarkDirty(phone string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, exists := ss.sessions[phone]; exists {
		ss.dirty[phone] = true
	}
}

// Delete destroys the session and everything keyed to it.
func (ss *SessionStore) Delete(phone string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	delete(ss.sessions, phone)
	delete(ss.histories, phone)
	delete(ss.pending, phone)
	delete(ss.paused, phone)
	delete(ss.dirty, phone)
	ss.removed[phone] = true
}

// Pause suspends the automated flow for phone (human takes over).
func (ss *SessionStore) Pause(phone string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.paused[phone] = true
	ss.dirty[phone] = true
}

// Resume re-enables the automated flow for phone.
func (ss *SessionStore) Resume(phone string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.paused, phone)
	ss.dirty[phone] = true
}

// IsPaused reports whether the bot is suspended for phone.
func (ss *SessionStore) IsPaused(phone string) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.paused[phone]
}

// SetPending records a pending verification for phone.
func (ss *SessionStore) SetPending(phone string, pv *models.PendingVerification) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.pending[phone] = pv
	ss.dirty[phone] = true
}

// GetPending returns the pending verification for phone, or nil.
func (ss *SessionStore) GetPending(phone string) *models.PendingVerification {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.pending[phone]
}

// DeletePending consumes the pending verification for phone.
func (ss *SessionStore) DeletePending(phone string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.pending, phone)
	ss.dirty[phone] = true
}

// ListPending returns all pending verifications.
func (ss *SessionStore) ListPending() []*models.PendingVerification {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	pending := make([]*models.PendingVerification, 0, len(ss.pending))
	for _, pv := range ss.pending {
		pending = append(pending, pv)
	}
	return pending
}

// SolePending returns the single pending verification when exactly one
// exists. Used for implicit supervisor approve/reject targeting.
func (ss *SessionStore) SolePending() *models.PendingVerification {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	if len(ss.pending) != 1 {
		return nil
	}
	for _, pv := range ss.pending {
		return pv
	}
	return nil
}

// AppendHistory records one turn of the conversation, bounded to the last
// historyLimit turns.
func (ss *SessionStore) AppendHistory(phone, role, content string, at time.Time) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	history := append(ss.histories[phone], models.ChatMessage{Role: role, Content: content, At: at})
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	ss.histories[phone] = history
}

// History returns the recent chat history for phone.
func (ss *SessionStore) History(phone string) []models.ChatMessage {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	history := make([]models.ChatMessage, len(ss.histories[phone]))
	copy(history, ss.histories[phone])
	return history
}

// Restore loads persisted sessions at startup. Sessions idle beyond the
// staleness cutoff with no pending verification are discarded, and every
// loaded session is patched with defaults for fields it may predate.
func (ss *SessionStore) Restore(now time.Time) error {
	records, err := ss.store.LoadSessionRecords()
	if err != nil {
		return err
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	restored, discarded := 0, 0
	for _, rec := range records {
		var snap sessionSnapshot
		if err := json.Unmarshal([]byte(rec.State), &snap); err != nil || snap.Session == nil {
			log.Printf("⚠️  Discarding unreadable session snapshot for %s: %v", rec.Phone, err)
			discarded++
			continue
		}

		if snap.Pending == nil && now.Sub(snap.Session.LastActivity) > staleAfter {
			discarded++
			continue
		}

		patchDefaults(snap.Session)
		ss.sessions[rec.Phone] = snap.Session
		if snap.Pending != nil {
			ss.pending[rec.Phone] = snap.Pending
		}
		if snap.Paused {
			ss.paused[rec.Phone] = true
		}
		if len(snap.History) > 0 {
			ss.histories[rec.Phone] = snap.History
		}
		restored++
	}

	log.Printf("📦 Sessions restored: %d (discarded %d stale/unreadable)", restored, discarded)
	return nil
}

// patchDefaults fills fields a snapshot written by an older build may lack.
func patchDefaults(sess *models.Session) {
	if sess.Objections == nil {
		sess.Objections = make(map[string]bool)
	}
	if !sess.Step.Valid() {
		sess.Step = models.StepStart
	}
	if sess.CurrentItemIndex > len(sess.InterestStack) {
		sess.CurrentItemIndex = 0
	}
}

// StartFlushLoop flushes dirty sessions every flushInterval until Stop.
func (ss *SessionStore) StartFlushLoop() {
	go func() {
		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ss.FlushNow()
			case <-ss.stop:
				ss.FlushNow()
				return
			}
		}
	}()
}

// Stop halts the flush loop after one final flush.
func (ss *SessionStore) Stop() {
	close(ss.stop)
}

// FlushNow persists every dirty session and propagates deletions. Each
// session is marshalled under its per-phone lock so a concurrent turn can
// never mutate it mid-encode.
func (ss *SessionStore) FlushNow() {
	ss.mu.Lock()
	phones := make([]string, 0, len(ss.dirty))
	for phone := range ss.dirty {
		phones = append(phones, phone)
	}
	deletions := make([]string, 0, len(ss.removed))
	for phone := range ss.removed {
		deletions = append(deletions, phone)
	}
	ss.dirty = make(map[string]bool)
	ss.removed = make(map[string]bool)
	ss.mu.Unlock()

	type pendingWrite struct {
		phone string
		rec   *models.SessionRecord
	}
	writes := make([]pendingWrite, 0, len(phones))
	for _, phone := range phones {
		mu := ss.LockFor(phone)
		mu.Lock()
		ss.mu.RLock()
		sess := ss.sessions[phone]
		snap := sessionSnapshot{
			Session: sess,
			Pending: ss.pending[phone],
			Paused:  ss.paused[phone],
			History: ss.histories[phone],
		}
		ss.mu.RUnlock()
		if sess == nil {
			// Deleted after being marked dirty.
			mu.Unlock()
			continue
		}
		data, err := json.Marshal(snap)
		lastActivity := sess.LastActivity
		mu.Unlock()
		if err != nil {
			log.Printf("⚠️  Failed to snapshot session %s: %v", phone, err)
			continue
		}
		writes = append(writes, pendingWrite{phone, &models.SessionRecord{
			Phone:           phone,
			State:           string(data),
			LastActivity:    lastActivity,
			HasVerification: snap.Pending != nil,
		}})
	}

	for _, w := range writes {
		if err := ss.store.SaveSessionRecord(w.rec); err != nil {
			log.Printf("⚠️  Failed to persist session %s: %v", w.phone, err)
		}
	}
	for _, phone := range deletions {
		if err := ss.store.DeleteSessionRecord(phone); err != nil {
			log.Printf("⚠️  Failed to delete session record %s: %v", phone, err)
		}
	}
}
