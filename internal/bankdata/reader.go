// Package bankdata is the read-only access layer over the bank's records.
// The assistant never writes: every method is a query scoped to a single
// owner or family.
package bankdata

import (
	"context"

	"aletabank-assistant/internal/models"
)

// Reader exposes the queries the resolution pipeline needs. All methods
// scope results to the given owner; cross-user reads are not expressible.
type Reader interface {
	// AccountsByOwner returns the owner's accounts, optionally filtered to a
	// set of account types. An empty filter returns everything.
	AccountsByOwner(ctx context.Context, ownerID string, types []models.AccountType) ([]models.Account, error)

	// Transactions returns the owner's transactions inside the range, newest
	// first. A non-empty category narrows the result.
	Transactions(ctx context.Context, ownerID string, r models.DateRange, category string) ([]models.Transaction, error)

	// ScheduledPayments returns the owner's upcoming payments ordered by due
	// date.
	ScheduledPayments(ctx context.Context, ownerID string) ([]models.ScheduledPayment, error)

	// SharedMortgage returns the family's mortgage, or nil when the family
	// has none.
	SharedMortgage(ctx context.Context, familyID string) (*models.Mortgage, error)

	// SpendingByCategory aggregates the owner's debits per category inside
	// the range, largest total first.
	SpendingByCategory(ctx context.Context, ownerID string, r models.DateRange) ([]models.CategorySpend, error)
}
