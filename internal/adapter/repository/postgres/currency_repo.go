package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trychlos/openbook-sub016/internal/domain"
)

// CurrencyRepository implements usecase.CurrencyRepository.
type CurrencyRepository struct {
	pool *pgxpool.Pool
}

// NewCurrencyRepository creates a new CurrencyRepository.
func NewCurrencyRepository(pool *pgxpool.Pool) *CurrencyRepository {
	return &CurrencyRepository{pool: pool}
}

// GetByCode retrieves a currency by its ISO code.
func (r *CurrencyRepository) GetByCode(ctx context.Context, code string) (*domain.Currency, error) {
	var (
		currency             domain.Currency
		createdAt, updatedAt pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT code, label, digits, created_at, updated_at
		FROM currencies
		WHERE code = $1`,
		code,
	).Scan(&currency.Code, &currency.Label, &currency.Digits, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCurrencyNotFound
		}

		return nil, err
	}

	currency.CreatedAt = createdAt.Time
	currency.UpdatedAt = updatedAt.Time

	return &currency, nil
}

// List lists every known currency.
func (r *CurrencyRepository) List(ctx context.Context) ([]*domain.Currency, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT code, label, digits, created_at, updated_at
		FROM currencies
		ORDER BY code`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var currencies []*domain.Currency
	for rows.Next() {
		var (
			currency             domain.Currency
			createdAt, updatedAt pgtype.Timestamptz
		)

		if err := rows.Scan(&currency.Code, &currency.Label, &currency.Digits, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		currency.CreatedAt = createdAt.Time
		currency.UpdatedAt = updatedAt.Time
		currencies = append(currencies, &currency)
	}

	return currencies, rows.Err()
}
