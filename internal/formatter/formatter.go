// Package formatter renders resolved results as speech-safe plain text. No
// markup, no currency symbols, and balances are printed exactly as stored,
// never rounded away.
package formatter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"aletabank-assistant/internal/models"
)

// User-facing copy shared with the orchestrator. The denial text is generic
// on purpose and must not say what was requested or why it was refused.
const (
	DenialText      = "I'm sorry, I can't share that information with this profile."
	UnavailableText = "I'm sorry, I can't answer that right now. Please try again later."
)

const spokenDate = "January 2, 2006"

// Formatter is stateless; formatting the same inputs always yields the same
// text.
type Formatter struct{}

func New() *Formatter {
	return &Formatter{}
}

// Format renders the reply text for a resolved intent and its fetched data.
func (f *Formatter) Format(res models.ResolutionResult, data models.FetchedData) string {
	switch res.IntentID {
	case "account_balance":
		return formatBalances(data.Accounts)
	case "transaction_history":
		return formatTransactions(res, data.Transactions)
	case "interest_rates":
		return formatInterestRates(data.Accounts)
	case "account_details":
		return formatAccountDetails(data.Accounts)
	case "scheduled_payments":
		return formatScheduledPayments(data.Payments)
	case "shared_mortgage_balance":
		return formatMortgage(data.Mortgage)
	case "spending_analysis":
		return formatSpending(res, data.Spending)
	default:
		if data.ExternalAnswer != "" {
			return data.ExternalAnswer
		}
		return UnavailableText
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " dollars"
}

func formatBalances(accounts []models.Account) string {
	if len(accounts) == 0 {
		return "I couldn't find any matching accounts for you."
	}
	lines := make([]string, 0, len(accounts))
	for _, a := range accounts {
		lines = append(lines, fmt.Sprintf("Your %s, account %s, has a balance of %s.", a.Name, a.ID, money(a.Balance)))
	}
	return strings.Join(lines, " ")
}

func formatTransactions(res models.ResolutionResult, txs []models.Transaction) string {
	r := res.Slots["date_range"].DateRange
	period := fmt.Sprintf("between %s and %s", r.From.Format(spokenDate), r.To.Format(spokenDate))
	if len(txs) == 0 {
		return fmt.Sprintf("You have no transactions %s.", period)
	}

	lines := []string{fmt.Sprintf("You have %d transactions %s.", len(txs), period)}
	shown := txs
	const maxListed = 5
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	for _, t := range shown {
		verb := "received"
		if t.Amount.IsNegative() {
			verb = "spent"
		}
		lines = append(lines, fmt.Sprintf("On %s you %s %s on %s.", t.Date.Format(spokenDate), verb, money(t.Amount.Abs()), t.Description))
	}
	if len(txs) > maxListed {
		lines = append(lines, fmt.Sprintf("And %d more.", len(txs)-maxListed))
	}
	return strings.Join(lines, " ")
}

func formatInterestRates(accounts []models.Account) string {
	if len(accounts) == 0 {
		return "I couldn't find any matching accounts for you."
	}
	lines := make([]string, 0, len(accounts))
	for _, a := range accounts {
		lines = append(lines, fmt.Sprintf("Your %s, account %s, earns %s percent.", a.Name, a.ID, a.InterestRate.String()))
	}
	return strings.Join(lines, " ")
}

func formatAccountDetails(accounts []models.Account) string {
	if len(accounts) == 0 {
		return "I couldn't find any matching accounts for you."
	}
	lines := make([]string, 0, len(accounts))
	for _, a := range accounts {
		lines = append(lines, fmt.Sprintf(
			"Your %s, account %s, is a %s account opened on %s, currently %s, with a balance of %s and %s available.",
			a.Name, a.ID, strings.ToLower(strings.ReplaceAll(string(a.Type), "_", " ")),
			a.OpenedOn.Format(spokenDate), strings.ToLower(a.Status),
			money(a.Balance), money(a.AvailableBalance)))
	}
	return strings.Join(lines, " ")
}

func formatScheduledPayments(payments []models.ScheduledPayment) string {
	if len(payments) == 0 {
		return "You have no scheduled payments coming up."
	}
	lines := []string{fmt.Sprintf("You have %d scheduled payments.", len(payments))}
	for _, p := range payments {
		lines = append(lines, fmt.Sprintf("%s for %s on %s, %s.", p.Payee, money(p.Amount), p.NextDate.Format(spokenDate), p.Frequency))
	}
	return strings.Join(lines, " ")
}

func formatMortgage(m *models.Mortgage) string {
	if m == nil {
		return "There is no mortgage on file for your family."
	}
	return fmt.Sprintf(
		"The family mortgage, account %s, has a remaining balance of %s out of an original %s, at %s percent over %d years, with a monthly payment of %s.",
		m.AccountID, money(m.Balance), money(m.OriginalAmount), m.InterestRate.String(), m.TermYears, money(m.MonthlyPayment))
}

func formatSpending(res models.ResolutionResult, spending []models.CategorySpend) string {
	r := res.Slots["date_range"].DateRange
	period := fmt.Sprintf("between %s and %s", r.From.Format(spokenDate), r.To.Format(spokenDate))
	if len(spending) == 0 {
		return fmt.Sprintf("You have no spending recorded %s.", period)
	}

	total := decimal.Zero
	for _, c := range spending {
		total = total.Add(c.Total)
	}
	lines := []string{fmt.Sprintf("You spent %s %s across %d categories.", money(total), period, len(spending))}
	for _, c := range spending {
		lines = append(lines, fmt.Sprintf("%s: %s over %d transactions.", capitalize(c.Category), money(c.Total), c.Count))
	}
	return strings.Join(lines, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
