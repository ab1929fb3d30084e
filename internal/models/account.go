package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the closed set of account kinds the bank exposes.
type AccountType string

const (
	AccountTypeChecking         AccountType = "CHECKING"
	AccountTypeRegularSavings   AccountType = "REGULAR_SAVINGS"
	AccountTypeTravelSavings    AccountType = "TRAVEL_SAVINGS"
	AccountTypeHighYieldSavings AccountType = "HIGH_YIELD_SAVINGS"
	AccountTypeInvestment       AccountType = "INVESTMENT"
	AccountTypeMortgage         AccountType = "MORTGAGE"
	AccountTypeCredit           AccountType = "CREDIT"

	// AccountTypeSavingsAll is a query-side marker, not a stored type. A
	// generic "savings" request expands to every savings-family account.
	AccountTypeSavingsAll AccountType = "SAVINGS_ALL"
)

// SavingsTypes are the stored account types covered by a generic savings query.
var SavingsTypes = []AccountType{
	AccountTypeRegularSavings,
	AccountTypeTravelSavings,
	AccountTypeHighYieldSavings,
}

// IsSavings reports whether t belongs to the savings family.
func (t AccountType) IsSavings() bool {
	for _, s := range SavingsTypes {
		if t == s {
			return true
		}
	}
	return false
}

type Account struct {
	ID               string          `json:"id"`
	OwnerID          string          `json:"owner_id"`
	Name             string          `json:"name"`
	Type             AccountType     `json:"type"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	OpenedOn         time.Time       `json:"opened_on"`
	Status           string          `json:"status"`
}

type Transaction struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

type ScheduledPayment struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Payee     string          `json:"payee"`
	Amount    decimal.Decimal `json:"amount"`
	NextDate  time.Time       `json:"next_date"`
	Frequency string          `json:"frequency"`
}

// Mortgage is the single shared family liability. Visible to parents only.
type Mortgage struct {
	AccountID      string          `json:"account_id"`
	FamilyID       string          `json:"family_id"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	Balance        decimal.Decimal `json:"balance"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	TermYears      int             `json:"term_years"`
}

// CategorySpend is one row of a spending-by-category aggregation.
type CategorySpend struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}
