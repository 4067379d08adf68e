package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// GetByMnemo retrieves a ledger with its per-currency balance rows.
func (r *LedgerRepository) GetByMnemo(ctx context.Context, mnemo string) (*domain.Ledger, error) {
	ledger, err := r.getLedger(ctx, mnemo)
	if err != nil {
		return nil, err
	}

	if err := r.loadBalances(ctx, ledger); err != nil {
		return nil, err
	}

	return ledger, nil
}

func (r *LedgerRepository) getLedger(ctx context.Context, mnemo string) (*domain.Ledger, error) {
	var (
		ledger               domain.Ledger
		lastClosing          pgtype.Date
		createdAt, updatedAt pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT mnemo, label, last_closing, created_at, updated_at
		FROM ledgers
		WHERE mnemo = $1`,
		mnemo,
	).Scan(&ledger.Mnemo, &ledger.Label, &lastClosing, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}

		return nil, err
	}

	ledger.LastClosing = pgDateToDate(lastClosing)
	ledger.CreatedAt = createdAt.Time
	ledger.UpdatedAt = updatedAt.Time

	return &ledger, nil
}

func (r *LedgerRepository) loadBalances(ctx context.Context, ledger *domain.Ledger) error {
	rows, err := r.pool.Query(ctx, `
		SELECT currency, rough_debit, rough_credit, futur_debit, futur_credit
		FROM ledger_balances
		WHERE ledger = $1`,
		ledger.Mnemo,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		balance := &domain.LedgerBalance{Ledger: ledger.Mnemo}

		var rd, rc, fd, fc pgtype.Numeric
		if err := rows.Scan(&balance.Currency, &rd, &rc, &fd, &fc); err != nil {
			return err
		}

		balance.RoughDebit = numericToDecimal(rd)
		balance.RoughCredit = numericToDecimal(rc)
		balance.FuturDebit = numericToDecimal(fd)
		balance.FuturCredit = numericToDecimal(fc)

		if ledger.Balances == nil {
			ledger.Balances = make(map[string]*domain.LedgerBalance)
		}
		ledger.Balances[balance.Currency] = balance
	}

	return rows.Err()
}

// GetBalanceForUpdate locks the (ledger, currency) balance row, inserting a
// zero row first when the currency was never posted to this ledger.
func (r *LedgerRepository) GetBalanceForUpdate(ctx context.Context, tx usecase.Transaction, mnemo, currency string) (*domain.LedgerBalance, error) {
	q := txQueryer(tx)

	_, err := q.Exec(ctx, `
		INSERT INTO ledger_balances (ledger, currency)
		VALUES ($1, $2)
		ON CONFLICT (ledger, currency) DO NOTHING`,
		mnemo, currency,
	)
	if err != nil {
		return nil, err
	}

	balance := &domain.LedgerBalance{Ledger: mnemo, Currency: currency}

	var rd, rc, fd, fc pgtype.Numeric
	err = q.QueryRow(ctx, `
		SELECT rough_debit, rough_credit, futur_debit, futur_credit
		FROM ledger_balances
		WHERE ledger = $1 AND currency = $2
		FOR UPDATE`,
		mnemo, currency,
	).Scan(&rd, &rc, &fd, &fc)
	if err != nil {
		return nil, err
	}

	balance.RoughDebit = numericToDecimal(rd)
	balance.RoughCredit = numericToDecimal(rc)
	balance.FuturDebit = numericToDecimal(fd)
	balance.FuturCredit = numericToDecimal(fc)

	return balance, nil
}

// UpdateBalance writes the four aggregates of a (ledger, currency) row.
func (r *LedgerRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, balance *domain.LedgerBalance) error {
	_, err := txQueryer(tx).Exec(ctx, `
		UPDATE ledger_balances
		SET rough_debit = $3, rough_credit = $4,
		    futur_debit = $5, futur_credit = $6
		WHERE ledger = $1 AND currency = $2`,
		balance.Ledger,
		balance.Currency,
		decimalToNumeric(balance.RoughDebit),
		decimalToNumeric(balance.RoughCredit),
		decimalToNumeric(balance.FuturDebit),
		decimalToNumeric(balance.FuturCredit),
	)

	return err
}

// List lists every ledger with its balance rows.
func (r *LedgerRepository) List(ctx context.Context) ([]*domain.Ledger, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT mnemo, label, last_closing, created_at, updated_at
		FROM ledgers
		ORDER BY mnemo`,
	)
	if err != nil {
		return nil, err
	}

	var ledgers []*domain.Ledger
	for rows.Next() {
		var (
			ledger               domain.Ledger
			lastClosing          pgtype.Date
			createdAt, updatedAt pgtype.Timestamptz
		)

		if err := rows.Scan(&ledger.Mnemo, &ledger.Label, &lastClosing, &createdAt, &updatedAt); err != nil {
			rows.Close()
			return nil, err
		}

		ledger.LastClosing = pgDateToDate(lastClosing)
		ledger.CreatedAt = createdAt.Time
		ledger.UpdatedAt = updatedAt.Time
		ledgers = append(ledgers, &ledger)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ledger := range ledgers {
		if err := r.loadBalances(ctx, ledger); err != nil {
			return nil, err
		}
	}

	return ledgers, nil
}
