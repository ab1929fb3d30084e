package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SlotKind is the closed set of parameter kinds an intent can require.
type SlotKind string

const (
	SlotKindDateRange   SlotKind = "date_range"
	SlotKindAccountType SlotKind = "account_type"
	SlotKindAmount      SlotKind = "amount"
	SlotKindCategory    SlotKind = "category"
)

// DateRange is a half-open-free inclusive day range.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SlotValue is a tagged union over the slot kinds. Exactly the field matching
// Kind is meaningful; the rest stay zero.
type SlotValue struct {
	Kind        SlotKind        `json:"kind"`
	DateRange   DateRange       `json:"date_range,omitempty"`
	AccountType AccountType     `json:"account_type,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	Category    string          `json:"category,omitempty"`
}

func DateRangeValue(from, to time.Time) SlotValue {
	return SlotValue{Kind: SlotKindDateRange, DateRange: DateRange{From: from, To: to}}
}

func AccountTypeValue(t AccountType) SlotValue {
	return SlotValue{Kind: SlotKindAccountType, AccountType: t}
}

func AmountValue(d decimal.Decimal) SlotValue {
	return SlotValue{Kind: SlotKindAmount, Amount: d}
}

func CategoryValue(c string) SlotValue {
	return SlotValue{Kind: SlotKindCategory, Category: c}
}

// Validate checks the union's internal consistency for its kind.
func (v SlotValue) Validate() error {
	switch v.Kind {
	case SlotKindDateRange:
		if v.DateRange.From.IsZero() || v.DateRange.To.IsZero() {
			return fmt.Errorf("date_range slot missing bounds")
		}
		if v.DateRange.To.Before(v.DateRange.From) {
			return fmt.Errorf("date_range slot ends before it starts")
		}
	case SlotKindAccountType:
		if v.AccountType == "" {
			return fmt.Errorf("account_type slot is empty")
		}
	case SlotKindAmount:
		if v.Amount.IsNegative() {
			return fmt.Errorf("amount slot is negative")
		}
	case SlotKindCategory:
		if v.Category == "" {
			return fmt.Errorf("category slot is empty")
		}
	default:
		return fmt.Errorf("unknown slot kind %q", v.Kind)
	}
	return nil
}
