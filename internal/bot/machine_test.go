package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

func TestGreetingAsksForName(t *testing.T) {
	b, _, gw, _ := newTestBot(t)

	say(b, testCustomer, "olá")

	sess := b.Sessions().Get(testCustomer)
	require.NotNil(t, sess)
	assert.Equal(t, models.StepCaptureName, sess.Step)
	assert.Contains(t, gw.lastTo(testCustomer), "Como se chama?")
}

func TestNameTooShortReprompts(t *testing.T) {
	b, _, gw, _ := newTestBot(t)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "Jo")

	sess := b.Sessions().Get(testCustomer)
	assert.Equal(t, models.StepCaptureName, sess.Step)
	assert.Equal(t, msgNameTooShort, gw.lastTo(testCustomer))
	assert.Empty(t, sess.ClientName)
}

func TestSinglePlatformHappyPath(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "Dário Milagre")

	sess := b.Sessions().Get(testCustomer)
	require.Equal(t, models.StepServiceChoice, sess.Step)
	assert.Contains(t, gw.lastTo(testCustomer), "✅ Netflix")

	say(b, testCustomer, "quero netflix")
	require.Equal(t, models.StepPlanChoice, sess.Step)
	assert.Contains(t, gw.lastTo(testCustomer), "Planos Netflix")

	say(b, testCustomer, "individual")
	require.Equal(t, models.StepAwaitingProof, sess.Step)
	require.Len(t, sess.Cart, 1)

	item := sess.Cart[0]
	assert.Equal(t, "Netflix", item.Service)
	assert.Equal(t, "Individual", item.Plan)
	assert.Equal(t, models.AccountTypeFull, item.AccountType)
	assert.Equal(t, 5000, item.UnitPrice)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, 5000, sess.TotalValue)
	assert.Contains(t, gw.lastTo(testCustomer), "IBAN")
}

func TestMultiPlatformCartAndSummary(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeShared, 4)
	seedStock(t, store, "Spotify", models.AccountTypeFull, 1)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "Dário Milagre")
	say(b, testCustomer, "quero netflix e spotify")

	sess := b.Sessions().Get(testCustomer)
	require.Equal(t, models.StepPlanChoice, sess.Step)
	require.Equal(t, []string{"netflix", "spotify"}, sess.InterestStack)

	say(b, testCustomer, "família")
	// Still plan_choice: spotify is next in the stack
	require.Equal(t, models.StepPlanChoice, sess.Step)
	assert.Contains(t, gw.lastTo(testCustomer), "Planos Spotify")

	say(b, testCustomer, "individual")
	require.Equal(t, models.StepOrderSummary, sess.Step)
	require.Len(t, sess.Cart, 2)
	assert.Equal(t, 16000, sess.TotalValue) // 12.000 + 4.000

	say(b, testCustomer, "sim")
	assert.Equal(t, models.StepAwaitingProof, sess.Step)
	assert.Contains(t, gw.lastTo(testCustomer), "Total: 16.000 Kz")
}

func TestOrderSummaryRejectedRestartsSelection(t *testing.T) {
	b, store, _, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeShared, 4)
	seedStock(t, store, "Spotify", models.AccountTypeFull, 1)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "Dário Milagre")
	say(b, testCustomer, "netflix e spotify")
	say(b, testCustomer, "família")
	say(b, testCustomer, "individual")

	sess := b.Sessions().Get(testCustomer)
	require.Equal(t, models.StepOrderSummary, sess.Step)

	say(b, testCustomer, "não")
	assert.Equal(t, models.StepServiceChoice, sess.Step)
	assert.Empty(t, sess.Cart)
	assert.Zero(t, sess.TotalValue)
}

func TestOutOfStockPlatformLogsLostSale(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	// No Max stock at all

	say(b, testCustomer, "olá")
	say(b, testCustomer, "Dário Milagre")
	say(b, testCustomer, "quero max")

	sess := b.Sessions().Get(testCustomer)
	assert.Equal(t, models.StepServiceChoice, sess.Step, "customer stays in service choice")
	assert.Contains(t, gw.lastTo(testCustomer), "esgotado")

	losses, err := store.ListLostSales()
	require.NoError(t, err)
	require.Len(t, losses, 1)
	assert.Equal(t, models.LossOutOfStock, losses[0].Reason)

	ops := gw.messagesTo(testOperator)
	require.NotEmpty(t, ops)
	assert.Contains(t, ops[len(ops)-1], "sem stock")
}

func TestInsufficientSlotsParksInAwaitingRestock(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeShared, 2) // Família needs 4

	reachPlanChoice(t, b, testCustomer, "netflix")
	say(b, testCustomer, "família")

	sess := b.Sessions().Get(testCustomer)
	require.Equal(t, models.StepAwaitingRestock, sess.Step)
	require.NotNil(t, sess.PendingRecovery)
	assert.Equal(t, "Netflix", sess.PendingRecovery.Platform)
	assert.Equal(t, "Família", sess.PendingRecovery.Plan)
	assert.Equal(t, 2, sess.PendingRecovery.SlotsShort)
	assert.Empty(t, sess.Cart, "nothing enters the cart until restock")

	ops := gw.messagesTo(testOperator)
	require.NotEmpty(t, ops)
	assert.Contains(t, ops[len(ops)-1], "reposto "+testCustomer)
}

func TestSharedStockCountsTowardFullRequest(t *testing.T) {
	b, store, _, _ := newTestBot(t)
	// Only shared slots exist; an Individual request still proceeds because
	// delivery falls back to the opposite account type.
	seedStock(t, store, "Netflix", models.AccountTypeShared, 1)

	reachPlanChoice(t, b, testCustomer, "netflix")
	say(b, testCustomer, "individual")

	sess := b.Sessions().Get(testCustomer)
	assert.Equal(t, models.StepAwaitingProof, sess.Step)
	require.Len(t, sess.Cart, 1)
}

func TestProofImageAsksForPDFTwiceWithEscalatingFirmness(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	reachPlanChoice(t, b, testCustomer, "netflix")
	say(b, testCustomer, "individual")

	sess := b.Sessions().Get(testCustomer)
	require.Equal(t, models.StepAwaitingProof, sess.Step)

	sendImage(b, testCustomer)
	assert.Equal(t, msgAskPDFFirst, gw.lastTo(testCustomer))
	assert.Equal(t, models.StepAwaitingProof, sess.Step)

	sendImage(b, testCustomer)
	assert.Equal(t, msgAskPDFAgain, gw.lastTo(testCustomer))
	assert.Equal(t, models.StepAwaitingProof, sess.Step)
	assert.Nil(t, b.Sessions().GetPending(testCustomer))
}

func TestPDFProofCreatesPendingVerification(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	reachPlanChoice(t, b, testCustomer, "netflix")
	say(b, testCustomer, "individual")
	sendPDF(b, testCustomer)

	sess := b.Sessions().Get(testCustomer)
	assert.Equal(t, models.StepAwaitingSupervisor, sess.Step)

	pv := b.Sessions().GetPending(testCustomer)
	require.NotNil(t, pv, "awaiting_supervisor implies a pending verification")
	assert.Equal(t, testCustomer, pv.Phone)
	assert.Equal(t, "Dário Milagre", pv.ClientName)
	assert.Equal(t, 5000, pv.TotalValue)
	require.Len(t, pv.Cart, 1)

	assert.Contains(t, gw.lastTo(testCustomer), "Comprovativo recebido")
	ops := gw.messagesTo(testOperator)
	require.NotEmpty(t, ops)
	assert.Contains(t, ops[len(ops)-1], "sim "+testCustomer)
}

func TestAwaitingProofResendsBankDetails(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	reachPlanChoice(t, b, testCustomer, "netflix")
	say(b, testCustomer, "individual")
	say(b, testCustomer, "manda o iban outra vez")

	assert.Contains(t, gw.lastTo(testCustomer), "IBAN")
	assert.Equal(t, models.StepAwaitingProof, b.Sessions().Get(testCustomer).Step)
}

func TestRenewalShortCircuit(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	require.NoError(t, store.UpsertCustomer(&models.Customer{
		Phone:        testCustomer,
		Name:         "Dário Milagre",
		LastPlatform: "Netflix",
		LastPlan:     "Individual",
		LastPrice:    5000,
	}))

	say(b, testCustomer, "olá")

	sess := b.Sessions().Get(testCustomer)
	require.Equal(t, models.StepRenewalConfirm, sess.Step)
	assert.True(t, sess.IsRenewal)
	assert.Contains(t, gw.lastTo(testCustomer), "Netflix")

	say(b, testCustomer, "sim")
	assert.Equal(t, models.StepAwaitingProof, sess.Step)
	require.Len(t, sess.Cart, 1)
	assert.Equal(t, "Individual", sess.Cart[0].Plan)
}

func TestRenewalDeclinedShowsPlanMenu(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	require.NoError(t, store.UpsertCustomer(&models.Customer{
		Phone:        testCustomer,
		Name:         "Dário Milagre",
		LastPlatform: "Netflix",
		LastPlan:     "Individual",
		LastPrice:    5000,
	}))

	say(b, testCustomer, "olá")
	say(b, testCustomer, "outro")

	sess := b.Sessions().Get(testCustomer)
	assert.Equal(t, models.StepPlanChoice, sess.Step)
	assert.Contains(t, gw.lastTo(testCustomer), "Planos Netflix")
}

func TestHumanRequestPausesBot(t *testing.T) {
	b, _, gw, _ := newTestBot(t)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "#humano")

	assert.True(t, b.Sessions().IsPaused(testCustomer))
	assert.Equal(t, msgHumanHandoff, gw.lastTo(testCustomer))
	require.NotEmpty(t, gw.messagesTo(testOperator))

	// Paused sessions get no bot replies
	before := len(gw.messagesTo(testCustomer))
	say(b, testCustomer, "ainda aí?")
	assert.Equal(t, before, len(gw.messagesTo(testCustomer)))
}

func TestEscalationLanguagePausesBot(t *testing.T) {
	b, _, gw, _ := newTestBot(t)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "quero reembolso, fui cobrado duas vezes")

	assert.True(t, b.Sessions().IsPaused(testCustomer))
	assert.Equal(t, msgEscalated, gw.lastTo(testCustomer))
}

func TestLoopBreakerAfterTwoRepeats(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "Dário Milagre")

	say(b, testCustomer, "xyzqw")
	say(b, testCustomer, "xyzqw")
	assert.False(t, b.Sessions().IsPaused(testCustomer))

	say(b, testCustomer, "xyzqw")
	assert.True(t, b.Sessions().IsPaused(testCustomer))
	assert.Equal(t, msgLoopBreaker, gw.lastTo(testCustomer))
}

func TestExitIntentNudgesAndFlags(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	reachPlanChoice(t, b, testCustomer, "netflix")
	say(b, testCustomer, "vou pensar")

	sess := b.Sessions().Get(testCustomer)
	require.NotNil(t, sess.ExitIntentAt)
	assert.Equal(t, msgExitIntentNudge, gw.lastTo(testCustomer))
	assert.Equal(t, models.StepPlanChoice, sess.Step, "step unchanged by exit intent")

	// Any reply clears the flag
	say(b, testCustomer, "individual")
	assert.Nil(t, sess.ExitIntentAt)
}

func TestFullCancelDestroysSession(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	reachPlanChoice(t, b, testCustomer, "netflix")
	say(b, testCustomer, "cancela tudo, não quero mais")

	assert.Nil(t, b.Sessions().Get(testCustomer))
	assert.Equal(t, msgCancelled, gw.lastTo(testCustomer))

	losses, err := store.ListLostSales()
	require.NoError(t, err)
	require.Len(t, losses, 1)
	assert.Equal(t, models.LossCancelled, losses[0].Reason)
}

func TestChangeOfMindResetsSelection(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	reachPlanChoice(t, b, testCustomer, "netflix")
	say(b, testCustomer, "individual")

	sess := b.Sessions().Get(testCustomer)
	require.Equal(t, models.StepAwaitingProof, sess.Step)

	say(b, testCustomer, "mudei de ideia, quero outra plataforma")
	assert.Equal(t, models.StepServiceChoice, sess.Step)
	assert.Empty(t, sess.Cart)
	assert.Contains(t, gw.lastTo(testCustomer), "plataformas")
}

func TestNetflixLocationGuideWithoutPause(t *testing.T) {
	b, _, gw, _ := newTestBot(t)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "apareceu que este aparelho não faz parte da residência")

	assert.False(t, b.Sessions().IsPaused(testCustomer))
	assert.Equal(t, msgNetflixLocationGuide, gw.lastTo(testCustomer))
	require.NotEmpty(t, gw.messagesTo(testOperator))
}

func TestOffTopicLongTextPauses(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "Dário Milagre")

	long := "Queria aproveitar para falar de um assunto completamente diferente " +
		"sobre viagens, carros usados e imóveis que estou a vender em Luanda, " +
		"caso alguém da vossa equipa esteja interessado em negociar comigo hoje."
	say(b, testCustomer, long)

	assert.True(t, b.Sessions().IsPaused(testCustomer))
	assert.Equal(t, msgOffTopic, gw.lastTo(testCustomer))
}

func TestObjectionGetsCannedReplyThenEscalates(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	reachPlanChoice(t, b, testCustomer, "netflix")

	say(b, testCustomer, "está muito caro")
	assert.Equal(t, objectionReplies[objPrice], gw.lastTo(testCustomer))
	assert.False(t, b.Sessions().IsPaused(testCustomer))

	say(b, testCustomer, "continua caro demais")
	assert.True(t, b.Sessions().IsPaused(testCustomer))
	assert.Equal(t, msgEscalated, gw.lastTo(testCustomer))
}

func TestResendCredentialsObjection(t *testing.T) {
	b, store, gw, _ := newTestBot(t)
	require.NoError(t, store.CreateProfile(&models.Profile{
		Platform:    "Netflix",
		Email:       "acc@mail.com",
		Password:    "senha123",
		AccountType: models.AccountTypeFull,
	}))
	require.NoError(t, store.MarkSold(1, "Dário Milagre", testCustomer))
	seedStock(t, store, "Netflix", models.AccountTypeFull, 1)

	say(b, testCustomer, "olá")
	say(b, testCustomer, "Dário Milagre")
	say(b, testCustomer, "perdi os dados de acesso")

	last := gw.lastTo(testCustomer)
	assert.Contains(t, last, "acc@mail.com")
	assert.Contains(t, last, "senha123")
}

func TestUnknownStepPausesToHuman(t *testing.T) {
	b, _, gw, clock := newTestBot(t)

	sess := b.Sessions().GetOrCreate(testCustomer, clock.Now())
	sess.Step = models.Step(99)

	say(b, testCustomer, "olá")

	assert.True(t, b.Sessions().IsPaused(testCustomer))
	require.NotEmpty(t, gw.messagesTo(testOperator))
}
