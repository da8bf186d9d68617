package bot

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/storage"
)

func TestFlushAndRestoreRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	ss := NewSessionStore(store)
	sess := ss.GetOrCreate(testCustomer, now)
	sess.ClientName = "Dário Milagre"
	sess.Step = models.StepAwaitingProof
	sess.Cart = []models.CartItem{{
		Service: "Netflix", Plan: "Individual", UnitPrice: 5000,
		Quantity: 1, TotalSlots: 1, TotalPrice: 5000,
	}}
	sess.TotalValue = 5000
	ss.AppendHistory(testCustomer, "user", "quero netflix", now)
	ss.SetPending(testCustomer, &models.PendingVerification{
		Phone:      testCustomer,
		ClientName: "Dário Milagre",
		TotalValue: 5000,
		Timestamp:  now,
	})
	ss.MarkDirty(testCustomer)
	ss.FlushNow()

	restored := NewSessionStore(store)
	require.NoError(t, restored.Restore(now.Add(time.Minute)))

	got := restored.Get(testCustomer)
	require.NotNil(t, got)
	assert.Equal(t, "Dário Milagre", got.ClientName)
	assert.Equal(t, models.StepAwaitingProof, got.Step)
	require.Len(t, got.Cart, 1)
	assert.Equal(t, 5000, got.TotalValue)

	pv := restored.GetPending(testCustomer)
	require.NotNil(t, pv)
	assert.Equal(t, 5000, pv.TotalValue)

	history := restored.History(testCustomer)
	require.Len(t, history, 1)
	assert.Equal(t, "quero netflix", history[0].Content)
}

// A flush snapshot must never observe a session mid-mutation: the marshal
// takes the same per-phone lock the message turns hold.
func TestFlushWhileTurnsAreInFlight(t *testing.T) {
	b, store, _, _ := newTestBot(t)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "Dário Milagre")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			b.Sessions().FlushNow()
		}
	}()
	for i := 0; i < 300; i++ {
		say(b, testCustomer, fmt.Sprintf("mensagem %d", i))
	}
	<-done
	b.Sessions().FlushNow()

	records, err := store.LoadSessionRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)

	var snap sessionSnapshot
	require.NoError(t, json.Unmarshal([]byte(records[0].State), &snap))
	assert.Equal(t, testCustomer, snap.Session.Phone)
}

func TestRestoreDiscardsStaleSessions(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	ss := NewSessionStore(store)
	ss.GetOrCreate(testCustomer, now)
	ss.FlushNow()

	restored := NewSessionStore(store)
	require.NoError(t, restored.Restore(now.Add(3*time.Hour)))
	assert.Nil(t, restored.Get(testCustomer), "idle sessions past the cutoff are discarded")
}

func TestRestoreKeepsStaleSessionWithPendingVerification(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	ss := NewSessionStore(store)
	sess := ss.GetOrCreate(testCustomer, now)
	sess.Step = models.StepAwaitingSupervisor
	ss.SetPending(testCustomer, &models.PendingVerification{Phone: testCustomer})
	ss.FlushNow()

	restored := NewSessionStore(store)
	require.NoError(t, restored.Restore(now.Add(3*time.Hour)))
	require.NotNil(t, restored.Get(testCustomer), "a pending verification overrides staleness")
	assert.NotNil(t, restored.GetPending(testCustomer))
}

func TestRestorePatchesMissingDefaults(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	// A snapshot written by an older build: no objections map, bogus step
	snap := sessionSnapshot{Session: &models.Session{
		Phone:        testCustomer,
		Step:         models.Step(42),
		LastActivity: now,
	}}
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, store.SaveSessionRecord(&models.SessionRecord{
		Phone:        testCustomer,
		State:        string(data),
		LastActivity: now,
	}))

	restored := NewSessionStore(store)
	require.NoError(t, restored.Restore(now))

	got := restored.Get(testCustomer)
	require.NotNil(t, got)
	assert.NotNil(t, got.Objections)
	assert.Equal(t, models.StepStart, got.Step, "invalid step resets to start")
}

func TestRestoreDiscardsUnreadableSnapshot(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveSessionRecord(&models.SessionRecord{
		Phone:        testCustomer,
		State:        "{not json",
		LastActivity: now,
	}))

	restored := NewSessionStore(store)
	require.NoError(t, restored.Restore(now))
	assert.Nil(t, restored.Get(testCustomer))
}

func TestDeletePropagatesToStoreOnFlush(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	ss := NewSessionStore(store)
	ss.GetOrCreate(testCustomer, now)
	ss.FlushNow()

	records, err := store.LoadSessionRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)

	ss.Delete(testCustomer)
	ss.FlushNow()

	records, err = store.LoadSessionRecords()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHistoryBounded(t *testing.T) {
	ss := NewSessionStore(storage.NewMemoryStore())
	now := time.Now()

	for i := 0; i < historyLimit+10; i++ {
		ss.AppendHistory(testCustomer, "user", "msg", now)
	}
	assert.Len(t, ss.History(testCustomer), historyLimit)
}

func TestSolePending(t *testing.T) {
	ss := NewSessionStore(storage.NewMemoryStore())

	assert.Nil(t, ss.SolePending())

	ss.SetPending("244900000001", &models.PendingVerification{Phone: "244900000001"})
	require.NotNil(t, ss.SolePending())

	ss.SetPending("244900000002", &models.PendingVerification{Phone: "244900000002"})
	assert.Nil(t, ss.SolePending(), "ambiguous with two pending")
}
