package resolver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aletabank-assistant/internal/catalog"
	apperrors "aletabank-assistant/internal/common/errors"
	"aletabank-assistant/internal/common/logger"

	"aletabank-assistant/internal/formatter"
	"aletabank-assistant/internal/models"
	"aletabank-assistant/internal/nlu/embedmatch"
	"aletabank-assistant/internal/nlu/encoder"
	"aletabank-assistant/internal/nlu/patternmatch"
	"aletabank-assistant/internal/nlu/slots"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeReader struct {
	accounts []models.Account
	txs      []models.Transaction
	payments []models.ScheduledPayment
	mortgage *models.Mortgage
	spending []models.CategorySpend
	err      error

	lastOwner    string
	lastTypes    []models.AccountType
	lastRange    models.DateRange
	lastCategory string
	lastFamily   string

	transactionCalls int
}

func (f *fakeReader) AccountsByOwner(_ context.Context, ownerID string, types []models.AccountType) ([]models.Account, error) {
	f.lastOwner, f.lastTypes = ownerID, types
	return f.accounts, f.err
}

func (f *fakeReader) Transactions(_ context.Context, ownerID string, r models.DateRange, category string) ([]models.Transaction, error) {
	f.lastOwner, f.lastRange, f.lastCategory = ownerID, r, category
	f.transactionCalls++
	return f.txs, f.err
}

func (f *fakeReader) ScheduledPayments(_ context.Context, ownerID string) ([]models.ScheduledPayment, error) {
	f.lastOwner = ownerID
	return f.payments, f.err
}

func (f *fakeReader) SharedMortgage(_ context.Context, familyID string) (*models.Mortgage, error) {
	f.lastFamily = familyID
	return f.mortgage, f.err
}

func (f *fakeReader) SpendingByCategory(_ context.Context, ownerID string, r models.DateRange) ([]models.CategorySpend, error) {
	f.lastOwner, f.lastRange = ownerID, r
	return f.spending, f.err
}

type fakeFallback struct {
	answer   string
	snapshot string
	err      error

	lastQuestion string
	lastHint     string
	askCalls     int
}

func (f *fakeFallback) Ask(_ context.Context, question, hint string) (string, error) {
	f.lastQuestion, f.lastHint = question, hint
	f.askCalls++
	return f.answer, f.err
}

func (f *fakeFallback) MarketSnapshot(_ context.Context) (string, error) {
	return f.snapshot, f.err
}

type fakeSessions struct {
	intents map[string]string
	getErr  error
	setErr  error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{intents: make(map[string]string)}
}

func (f *fakeSessions) LastIntent(_ context.Context, sessionID string) (string, error) {
	return f.intents[sessionID], f.getErr
}

func (f *fakeSessions) SetLastIntent(_ context.Context, sessionID, intentID string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.intents[sessionID] = intentID
	return nil
}

func newTestOrchestrator(t *testing.T, reader *fakeReader, external *fakeFallback, sessions *fakeSessions) *Orchestrator {
	t.Helper()
	enc := encoder.NewHashing(256)
	cat, err := catalog.Load("../../configs/intents.json", "../../configs/intents.schema.json", enc)
	require.NoError(t, err)

	o := New(Deps{
		Catalog:  cat,
		Embed:    embedmatch.New(cat, enc, 0.5),
		Pattern:  patternmatch.New(cat),
		Slots:    slots.NewExtractorAt(func() time.Time { return testNow }),
		Data:     reader,
		External: external,
		Sessions: sessions,
		Format:   formatter.New(),
		Log:      logger.NewTestLogger(t),
	})
	o.now = func() time.Time { return testNow }
	return o
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func childIdentity() models.Identity {
	return models.Identity{UserID: "USR003", FullName: "Enric", Role: models.RoleChild, FamilyID: "FAM001"}
}

func parentIdentity() models.Identity {
	return models.Identity{UserID: "USR001", FullName: "Darren", Role: models.RoleParent, FamilyID: "FAM001"}
}

func utterance(id models.Identity, text string) models.UtteranceContext {
	return models.UtteranceContext{
		RequestID: "req-1",
		SessionID: "sess-1",
		Text:      text,
		Identity:  id,
	}
}

func TestSavingsBalanceExpandsToAllSavingsAccounts(t *testing.T) {
	reader := &fakeReader{accounts: []models.Account{
		{ID: "ACC101", OwnerID: "USR003", Name: "Rainy Day Savings", Type: models.AccountTypeRegularSavings, Balance: dec("10500.00")},
		{ID: "ACC102", OwnerID: "USR003", Name: "Trip Fund", Type: models.AccountTypeTravelSavings, Balance: dec("980.10")},
	}}
	o := newTestOrchestrator(t, reader, &fakeFallback{}, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(childIdentity(), "How much is in my savings account?"))
	require.NoError(t, err)

	assert.Equal(t, "account_balance", reply.IntentID)
	assert.Equal(t, models.SourceEmbedding, reply.Source)
	assert.False(t, reply.Denied)
	assert.Equal(t, "USR003", reader.lastOwner)
	assert.Equal(t, models.SavingsTypes, reader.lastTypes)
	assert.Contains(t, reply.Text, "ACC101")
	assert.Contains(t, reply.Text, "10500.00 dollars")
	assert.Contains(t, reply.Text, "ACC102")
	assert.Contains(t, reply.Text, "980.10 dollars")
}

func TestSavingsBalanceViaEmbedding(t *testing.T) {
	reader := &fakeReader{accounts: []models.Account{
		{ID: "ACC201", OwnerID: "USR001", Name: "Rainy Day Savings", Type: models.AccountTypeRegularSavings, Balance: dec("15230.45")},
	}}
	o := newTestOrchestrator(t, reader, &fakeFallback{}, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(parentIdentity(), "what's my savings balance"))
	require.NoError(t, err)

	assert.Equal(t, "account_balance", reply.IntentID)
	assert.Equal(t, models.SourceEmbedding, reply.Source)
	assert.Equal(t, "USR001", reader.lastOwner)
	assert.Equal(t, models.SavingsTypes, reader.lastTypes)
	assert.Contains(t, reply.Text, "15230.45 dollars")
}

// Authorization applies whichever layer matched: a terse "mortgage balance"
// that only the pattern layer catches must still be denied to a child.
func TestTerseMortgageDeniedForChild(t *testing.T) {
	reader := &fakeReader{mortgage: &models.Mortgage{AccountID: "MTG001", Balance: dec("312456.78")}}
	o := newTestOrchestrator(t, reader, &fakeFallback{}, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(childIdentity(), "mortgage balance"))
	require.NoError(t, err)

	assert.Equal(t, "shared_mortgage_balance", reply.IntentID)
	assert.True(t, reply.Denied)
	assert.Equal(t, formatter.DenialText, reply.Text)
	assert.NotContains(t, reply.Text, "312456")
}

func TestMortgageDeniedForChild(t *testing.T) {
	reader := &fakeReader{mortgage: &models.Mortgage{AccountID: "MTG001", Balance: dec("312456.78")}}
	o := newTestOrchestrator(t, reader, &fakeFallback{}, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(childIdentity(), "What's our mortgage balance?"))
	require.NoError(t, err)

	assert.Equal(t, "shared_mortgage_balance", reply.IntentID)
	assert.True(t, reply.Denied)
	assert.Equal(t, formatter.DenialText, reply.Text)
	assert.NotContains(t, reply.Text, "312456")
	assert.Empty(t, reader.lastFamily, "data must not be fetched on denial")
}

func TestMortgageAnsweredForParent(t *testing.T) {
	reader := &fakeReader{mortgage: &models.Mortgage{
		AccountID:      "MTG001",
		FamilyID:       "FAM001",
		Balance:        dec("312456.78"),
		OriginalAmount: dec("450000.00"),
		InterestRate:   dec("3.25"),
		MonthlyPayment: dec("1958.43"),
		TermYears:      30,
	}}
	o := newTestOrchestrator(t, reader, &fakeFallback{}, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(parentIdentity(), "What's our mortgage balance?"))
	require.NoError(t, err)

	assert.False(t, reply.Denied)
	assert.Equal(t, "FAM001", reader.lastFamily)
	assert.Contains(t, reply.Text, "312456.78 dollars")
}

func TestGibberishDefersToExternal(t *testing.T) {
	external := &fakeFallback{answer: "I'm not sure about that one."}
	o := newTestOrchestrator(t, &fakeReader{}, external, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(childIdentity(), "asdkjf random gibberish"))
	require.NoError(t, err)

	assert.Empty(t, reply.IntentID)
	assert.Equal(t, models.SourceExternal, reply.Source)
	assert.Equal(t, "I'm not sure about that one.", reply.Text)
	assert.Equal(t, 1, external.askCalls)
	assert.Contains(t, external.lastQuestion, "asdkjf")
}

func TestDeferredTimeoutDegradesToGenericText(t *testing.T) {
	external := &fakeFallback{err: apperrors.NewFallbackTimeoutError()}
	o := newTestOrchestrator(t, &fakeReader{}, external, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(childIdentity(), "flurble wompity zax"))
	require.NoError(t, err)

	assert.Equal(t, formatter.UnavailableText, reply.Text)
}

func TestMissingDateRangeDefaultsToThirtyDays(t *testing.T) {
	reader := &fakeReader{}
	o := newTestOrchestrator(t, reader, &fakeFallback{}, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(parentIdentity(), "show transactions"))
	require.NoError(t, err)

	assert.Equal(t, "transaction_history", reply.IntentID)
	assert.True(t, reader.lastRange.From.Equal(testNow.AddDate(0, 0, -30)), "from: %v", reader.lastRange.From)
	assert.True(t, reader.lastRange.To.Equal(testNow), "to: %v", reader.lastRange.To)
}

func TestFollowUpReusesPreviousIntent(t *testing.T) {
	reader := &fakeReader{}
	sessions := newFakeSessions()
	sessions.intents["sess-1"] = "transaction_history"
	o := newTestOrchestrator(t, reader, &fakeFallback{}, sessions)

	reply, err := o.HandleMessage(context.Background(), utterance(parentIdentity(), "what about last week"))
	require.NoError(t, err)

	assert.Equal(t, "transaction_history", reply.IntentID)
	assert.Equal(t, models.SourceFollowUp, reply.Source)
	assert.True(t, reader.lastRange.From.Equal(testNow.AddDate(0, 0, -7)), "from: %v", reader.lastRange.From)
}

func TestUnrelatedUtteranceWithNumberDoesNotFollowUp(t *testing.T) {
	reader := &fakeReader{}
	sessions := newFakeSessions()
	sessions.intents["sess-1"] = "transaction_history"
	external := &fakeFallback{answer: "I'm not sure about that one."}
	o := newTestOrchestrator(t, reader, external, sessions)

	// "42" parses as an amount, which no transaction fetch consumes, so the
	// previous intent must not be re-run.
	reply, err := o.HandleMessage(context.Background(), utterance(parentIdentity(), "tell me a joke about 42"))
	require.NoError(t, err)

	assert.Empty(t, reply.IntentID)
	assert.Equal(t, models.SourceExternal, reply.Source)
	assert.Equal(t, 1, external.askCalls)
	assert.Zero(t, reader.transactionCalls)
}

func TestPatternLayerCatchesTerseUtterance(t *testing.T) {
	reader := &fakeReader{payments: []models.ScheduledPayment{{Payee: "City Power", Amount: dec("88.40"), NextDate: testNow, Frequency: "monthly"}}}
	o := newTestOrchestrator(t, reader, &fakeFallback{}, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(parentIdentity(), "upcoming bills?"))
	require.NoError(t, err)

	assert.Equal(t, "scheduled_payments", reply.IntentID)
	assert.Equal(t, models.SourcePattern, reply.Source)
	assert.Contains(t, reply.Text, "City Power")
}

func TestAdvisoryIntentGoesExternal(t *testing.T) {
	external := &fakeFallback{answer: "Index funds spread risk broadly."}
	o := newTestOrchestrator(t, &fakeReader{}, external, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(childIdentity(), "should i invest in index funds"))
	require.NoError(t, err)

	assert.Equal(t, "investment_advice", reply.IntentID)
	assert.Equal(t, "Index funds spread risk broadly.", reply.Text)
	assert.Equal(t, "investing", external.lastHint)
}

func TestDataQueryFailureDegradesGracefully(t *testing.T) {
	reader := &fakeReader{err: apperrors.NewDataQueryError("accounts_by_owner", fmt.Errorf("connection refused"))}
	o := newTestOrchestrator(t, reader, &fakeFallback{}, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(parentIdentity(), "what is my checking account balance"))
	require.NoError(t, err)

	assert.Equal(t, formatter.UnavailableText, reply.Text)
	assert.False(t, reply.Denied)
}

func TestResolvedIntentStoredInSession(t *testing.T) {
	sessions := newFakeSessions()
	o := newTestOrchestrator(t, &fakeReader{}, &fakeFallback{}, sessions)

	_, err := o.HandleMessage(context.Background(), utterance(parentIdentity(), "show me my scheduled payments"))
	require.NoError(t, err)

	assert.Equal(t, "scheduled_payments", sessions.intents["sess-1"])
}

func TestEncodingFailureDegradesThroughLayers(t *testing.T) {
	external := &fakeFallback{answer: "Could you rephrase that?"}
	o := newTestOrchestrator(t, &fakeReader{}, external, newFakeSessions())

	reply, err := o.HandleMessage(context.Background(), utterance(childIdentity(), "???"))
	require.NoError(t, err)

	assert.Empty(t, reply.IntentID)
	assert.Equal(t, "Could you rephrase that?", reply.Text)
}
