package bankdata

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	apperrors "aletabank-assistant/internal/common/errors"
	"aletabank-assistant/internal/common/logger"
	"aletabank-assistant/internal/models"
)

// PostgresStore implements Reader on top of the bank's Postgres schema.
type PostgresStore struct {
	db  *sql.DB
	log logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

const accountsQuery = `
	SELECT id, owner_id, name, type, balance, available_balance, interest_rate, opened_on, status
	FROM accounts
	WHERE owner_id = $1 AND ($2::text[] IS NULL OR type = ANY($2))
	ORDER BY id`

func (s *PostgresStore) AccountsByOwner(ctx context.Context, ownerID string, types []models.AccountType) ([]models.Account, error) {
	var filter interface{}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		filter = pq.Array(names)
	}

	rows, err := s.db.QueryContext(ctx, accountsQuery, ownerID, filter)
	if err != nil {
		return nil, apperrors.NewDataQueryError("accounts_by_owner", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.Balance, &a.AvailableBalance, &a.InterestRate, &a.OpenedOn, &a.Status); err != nil {
			return nil, apperrors.NewDataQueryError("accounts_by_owner scan", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataQueryError("accounts_by_owner rows", err)
	}
	return accounts, nil
}

const transactionsQuery = `
	SELECT t.id, t.account_id, t.date, t.amount, t.category, t.description, t.balance_after
	FROM transactions t
	JOIN accounts a ON a.id = t.account_id
	WHERE a.owner_id = $1 AND t.date >= $2 AND t.date <= $3 AND ($4 = '' OR t.category = $4)
	ORDER BY t.date DESC`

func (s *PostgresStore) Transactions(ctx context.Context, ownerID string, r models.DateRange, category string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, transactionsQuery, ownerID, r.From, r.To, category)
	if err != nil {
		return nil, apperrors.NewDataQueryError("transactions", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Date, &t.Amount, &t.Category, &t.Description, &t.BalanceAfter); err != nil {
			return nil, apperrors.NewDataQueryError("transactions scan", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataQueryError("transactions rows", err)
	}
	return txs, nil
}

const paymentsQuery = `
	SELECT id, user_id, payee, amount, next_date, frequency
	FROM scheduled_payments
	WHERE user_id = $1
	ORDER BY next_date`

func (s *PostgresStore) ScheduledPayments(ctx context.Context, ownerID string) ([]models.ScheduledPayment, error) {
	rows, err := s.db.QueryContext(ctx, paymentsQuery, ownerID)
	if err != nil {
		return nil, apperrors.NewDataQueryError("scheduled_payments", err)
	}
	defer rows.Close()

	var payments []models.ScheduledPayment
	for rows.Next() {
		var p models.ScheduledPayment
		if err := rows.Scan(&p.ID, &p.UserID, &p.Payee, &p.Amount, &p.NextDate, &p.Frequency); err != nil {
			return nil, apperrors.NewDataQueryError("scheduled_payments scan", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataQueryError("scheduled_payments rows", err)
	}
	return payments, nil
}

const mortgageQuery = `
	SELECT account_id, family_id, original_amount, balance, interest_rate, monthly_payment, term_years
	FROM mortgages
	WHERE family_id = $1`

func (s *PostgresStore) SharedMortgage(ctx context.Context, familyID string) (*models.Mortgage, error) {
	var m models.Mortgage
	err := s.db.QueryRowContext(ctx, mortgageQuery, familyID).
		Scan(&m.AccountID, &m.FamilyID, &m.OriginalAmount, &m.Balance, &m.InterestRate, &m.MonthlyPayment, &m.TermYears)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDataQueryError("shared_mortgage", err)
	}
	return &m, nil
}

const spendingQuery = `
	SELECT t.category, SUM(-t.amount) AS total, COUNT(*) AS count
	FROM transactions t
	JOIN accounts a ON a.id = t.account_id
	WHERE a.owner_id = $1 AND t.date >= $2 AND t.date <= $3 AND t.amount < 0
	GROUP BY t.category
	ORDER BY total DESC`

func (s *PostgresStore) SpendingByCategory(ctx context.Context, ownerID string, r models.DateRange) ([]models.CategorySpend, error) {
	rows, err := s.db.QueryContext(ctx, spendingQuery, ownerID, r.From, r.To)
	if err != nil {
		return nil, apperrors.NewDataQueryError("spending_by_category", err)
	}
	defer rows.Close()

	var spending []models.CategorySpend
	for rows.Next() {
		var c models.CategorySpend
		if err := rows.Scan(&c.Category, &c.Total, &c.Count); err != nil {
			return nil, apperrors.NewDataQueryError("spending_by_category scan", err)
		}
		spending = append(spending, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataQueryError("spending_by_category rows", err)
	}
	return spending, nil
}
