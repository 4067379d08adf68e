package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

const accountColumns = `number, label, currency, root,
       rough_debit, rough_credit, futur_debit, futur_credit,
       created_at, updated_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetByNumber retrieves an account by its number.
func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return getAccount(ctx, r.pool, number, "")
}

// GetByNumberForUpdate retrieves an account with a FOR UPDATE lock, so the
// aggregates stay consistent under concurrent remediation.
func (r *AccountRepository) GetByNumberForUpdate(ctx context.Context, tx usecase.Transaction, number string) (*domain.Account, error) {
	return getAccount(ctx, txQueryer(tx), number, " FOR UPDATE")
}

func getAccount(ctx context.Context, q queryer, number, suffix string) (*domain.Account, error) {
	row := q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE number = $1`+suffix, number)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

// UpdateAggregates writes the four derived aggregates of an account.
func (r *AccountRepository) UpdateAggregates(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	_, err := txQueryer(tx).Exec(ctx, `
		UPDATE accounts
		SET rough_debit = $2, rough_credit = $3,
		    futur_debit = $4, futur_credit = $5,
		    updated_at = now()
		WHERE number = $1`,
		account.Number,
		decimalToNumeric(account.RoughDebit),
		decimalToNumeric(account.RoughCredit),
		decimalToNumeric(account.FuturDebit),
		decimalToNumeric(account.FuturCredit),
	)

	return err
}

// List lists accounts in chart order, with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY number
		LIMIT $1 OFFSET $2`,
		int32(limit), int32(offset),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account              domain.Account
		rd, rc, fd, fc       pgtype.Numeric
		createdAt, updatedAt pgtype.Timestamptz
	)

	if err := row.Scan(
		&account.Number,
		&account.Label,
		&account.Currency,
		&account.Root,
		&rd, &rc, &fd, &fc,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	account.RoughDebit = numericToDecimal(rd)
	account.RoughCredit = numericToDecimal(rc)
	account.FuturDebit = numericToDecimal(fd)
	account.FuturCredit = numericToDecimal(fc)
	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updatedAt.Time

	return &account, nil
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func dateToPgDate(d domain.Date) pgtype.Date {
	if d.IsZero() {
		return pgtype.Date{}
	}

	return pgtype.Date{Time: d.Time(), Valid: true}
}

func pgDateToDate(d pgtype.Date) domain.Date {
	if !d.Valid {
		return domain.Date{}
	}

	return domain.DateFromTime(d.Time)
}
