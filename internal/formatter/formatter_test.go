package formatter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aletabank-assistant/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFormatBalances(t *testing.T) {
	f := New()
	res := models.ResolutionResult{IntentID: "account_balance"}
	data := models.FetchedData{Accounts: []models.Account{
		{ID: "ACC101", Name: "Rainy Day Savings", Type: models.AccountTypeRegularSavings, Balance: dec("10500.00")},
		{ID: "ACC102", Name: "Trip Fund", Type: models.AccountTypeTravelSavings, Balance: dec("980.10")},
	}}

	text := f.Format(res, data)
	assert.Contains(t, text, "Rainy Day Savings")
	assert.Contains(t, text, "ACC101")
	assert.Contains(t, text, "10500.00 dollars")
	assert.Contains(t, text, "980.10 dollars")
	assert.NotContains(t, text, "$")
}

func TestFormatBalancesExactNeverRounded(t *testing.T) {
	f := New()
	res := models.ResolutionResult{IntentID: "account_balance"}
	data := models.FetchedData{Accounts: []models.Account{
		{ID: "ACC100", Name: "Everyday Checking", Balance: dec("2540.75")},
	}}

	text := f.Format(res, data)
	assert.Contains(t, text, "2540.75 dollars")
	assert.NotContains(t, text, "2541")
}

func TestFormatBalancesNoAccounts(t *testing.T) {
	f := New()
	text := f.Format(models.ResolutionResult{IntentID: "account_balance"}, models.FetchedData{})
	assert.Contains(t, text, "couldn't find any matching accounts")
}

func TestFormatIdempotent(t *testing.T) {
	f := New()
	res := models.ResolutionResult{IntentID: "account_balance"}
	data := models.FetchedData{Accounts: []models.Account{
		{ID: "ACC100", Name: "Everyday Checking", Balance: dec("2540.75")},
	}}

	assert.Equal(t, f.Format(res, data), f.Format(res, data))
}

func TestFormatTransactions(t *testing.T) {
	f := New()
	from := time.Date(2025, 5, 16, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	res := models.ResolutionResult{
		IntentID: "transaction_history",
		Slots:    map[string]models.SlotValue{"date_range": models.DateRangeValue(from, to)},
	}
	data := models.FetchedData{Transactions: []models.Transaction{
		{Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Amount: dec("-54.20"), Description: "WHOLE HARVEST MARKET"},
		{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Amount: dec("1200.00"), Description: "PAYROLL DEPOSIT"},
	}}

	text := f.Format(res, data)
	assert.Contains(t, text, "2 transactions between May 16, 2025 and June 15, 2025")
	assert.Contains(t, text, "spent 54.20 dollars on WHOLE HARVEST MARKET")
	assert.Contains(t, text, "received 1200.00 dollars on PAYROLL DEPOSIT")
}

func TestFormatTransactionsTruncatesLongLists(t *testing.T) {
	f := New()
	res := models.ResolutionResult{
		IntentID: "transaction_history",
		Slots:    map[string]models.SlotValue{"date_range": models.DateRangeValue(time.Now().AddDate(0, 0, -30), time.Now())},
	}
	var txs []models.Transaction
	for i := 0; i < 8; i++ {
		txs = append(txs, models.Transaction{Date: time.Now(), Amount: dec("-10.00"), Description: "COFFEE"})
	}

	text := f.Format(res, models.FetchedData{Transactions: txs})
	assert.Contains(t, text, "You have 8 transactions")
	assert.Contains(t, text, "And 3 more.")
}

func TestFormatMortgage(t *testing.T) {
	f := New()
	res := models.ResolutionResult{IntentID: "shared_mortgage_balance"}
	data := models.FetchedData{Mortgage: &models.Mortgage{
		AccountID:      "MTG001",
		Balance:        dec("312456.78"),
		OriginalAmount: dec("450000.00"),
		InterestRate:   dec("3.25"),
		MonthlyPayment: dec("1958.43"),
		TermYears:      30,
	}}

	text := f.Format(res, data)
	assert.Contains(t, text, "MTG001")
	assert.Contains(t, text, "312456.78 dollars")
	assert.Contains(t, text, "3.25 percent")
	assert.Contains(t, text, "30 years")
}

func TestFormatMortgageNone(t *testing.T) {
	f := New()
	text := f.Format(models.ResolutionResult{IntentID: "shared_mortgage_balance"}, models.FetchedData{})
	assert.Contains(t, text, "no mortgage on file")
}

func TestFormatScheduledPayments(t *testing.T) {
	f := New()
	res := models.ResolutionResult{IntentID: "scheduled_payments"}
	data := models.FetchedData{Payments: []models.ScheduledPayment{
		{Payee: "City Power and Light", Amount: dec("88.40"), NextDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), Frequency: "monthly"},
	}}

	text := f.Format(res, data)
	assert.Contains(t, text, "City Power and Light for 88.40 dollars on July 1, 2025, monthly.")
}

func TestFormatSpending(t *testing.T) {
	f := New()
	res := models.ResolutionResult{
		IntentID: "spending_analysis",
		Slots: map[string]models.SlotValue{
			"date_range": models.DateRangeValue(
				time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)),
		},
	}
	data := models.FetchedData{Spending: []models.CategorySpend{
		{Category: "groceries", Total: dec("412.80"), Count: 9},
		{Category: "dining", Total: dec("230.15"), Count: 5},
	}}

	text := f.Format(res, data)
	assert.Contains(t, text, "You spent 642.95 dollars")
	assert.Contains(t, text, "Groceries: 412.80 dollars over 9 transactions.")
	assert.Contains(t, text, "Dining: 230.15 dollars over 5 transactions.")
}

func TestFormatExternalAnswerPassthrough(t *testing.T) {
	f := New()
	res := models.ResolutionResult{IntentID: "investment_advice"}
	data := models.FetchedData{ExternalAnswer: "Diversification reduces single-stock risk."}

	assert.Equal(t, "Diversification reduces single-stock risk.", f.Format(res, data))
}

func TestFormatUnknownWithoutAnswer(t *testing.T) {
	f := New()
	text := f.Format(models.ResolutionResult{}, models.FetchedData{})
	require.Equal(t, UnavailableText, text)
}
