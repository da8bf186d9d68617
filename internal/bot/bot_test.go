package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/services"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/storage"
)

const (
	testCustomer = "244900000001"
	testOperator = "244911111111"
)

type sentMessage struct {
	To   string
	Text string
}

// fakeGateway records outbound messages instead of sending them. Numbers in
// the invalid set simulate a gateway-side rejection.
type fakeGateway struct {
	mu       sync.Mutex
	messages []sentMessage
	invalid  map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{invalid: make(map[string]bool)}
}

func (f *fakeGateway) SendText(to, text string) (services.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.invalid[to] {
		return services.SendResult{InvalidNumber: true}, nil
	}
	f.messages = append(f.messages, sentMessage{To: to, Text: text})
	return services.SendResult{Sent: true}, nil
}

func (f *fakeGateway) Connect() error { return nil }
func (f *fakeGateway) Close()         {}

func (f *fakeGateway) messagesTo(phone string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var texts []string
	for _, m := range f.messages {
		if m.To == phone {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

func (f *fakeGateway) lastTo(phone string) string {
	texts := f.messagesTo(phone)
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeGateway) markInvalid(phone string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalid[phone] = true
}

// fakeClock is a settable time source for timeout and sweep tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeMailer records credential emails.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []string // recipient addresses
	lines []string
}

func (m *fakeMailer) SendCredentials(toEmail, name, productName string, credentials []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, toEmail)
	m.lines = append(m.lines, credentials...)
	return nil
}

func newTestBot(t *testing.T) (*Bot, *storage.MemoryStore, *fakeGateway, *fakeClock) {
	t.Helper()

	store := storage.NewMemoryStore()
	gw := newFakeGateway()
	clock := newFakeClock()
	b := New(Config{
		Store:     store,
		Mirror:    store,
		Gateway:   gw,
		Operators: []string{testOperator},
		Clock:     clock.Now,
	})
	return b, store, gw, clock
}

func seedStock(t *testing.T, store *storage.MemoryStore, platform, accountType string, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		require.NoError(t, store.CreateProfile(&models.Profile{
			Platform:    platform,
			Email:       fmt.Sprintf("%s%d@mail.com", strings.ToLower(platform), i),
			Password:    "senha123",
			AccountType: accountType,
		}))
	}
}

func say(b *Bot, phone, text string) {
	b.HandleIncoming(context.Background(), IncomingMessage{From: phone, Text: text})
}

func sendPDF(b *Bot, phone string) {
	b.HandleIncoming(context.Background(), IncomingMessage{
		From:      phone,
		MediaURL:  "https://files.example/proof.pdf",
		MediaType: "application/pdf",
	})
}

func sendImage(b *Bot, phone string) {
	b.HandleIncoming(context.Background(), IncomingMessage{
		From:      phone,
		MediaURL:  "https://files.example/proof.jpg",
		MediaType: "image/jpeg",
	})
}

// reachPlanChoice walks a fresh customer to the plan menu for platform.
func reachPlanChoice(t *testing.T, b *Bot, phone, platform string) {
	t.Helper()

	say(b, phone, "olá")
	say(b, phone, "Dário Milagre")
	say(b, phone, platform)

	sess := b.Sessions().Get(phone)
	require.NotNil(t, sess)
	require.Equal(t, models.StepPlanChoice, sess.Step)
}
