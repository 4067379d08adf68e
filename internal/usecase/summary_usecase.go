package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/trychlos/openbook-sub016/internal/domain"
)

// CurrencySummary is the per-currency result of a visible-set rescan.
type CurrencySummary struct {
	Currency    string
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
	Balanced    bool
}

// SummaryUseCase is the user-facing "is this balanced?" display: a full,
// non-incremental rescan of the currently visible entry set, grouped by
// currency. It is independent of, and never authoritative over, the
// maintained balance aggregates.
type SummaryUseCase struct {
	currencyRepo CurrencyRepository
}

// NewSummaryUseCase creates a new SummaryUseCase.
func NewSummaryUseCase(currencyRepo CurrencyRepository) *SummaryUseCase {
	return &SummaryUseCase{currencyRepo: currencyRepo}
}

// SummarizeVisible sums debit and credit per currency over the given
// entries and reports, per currency, whether the totals are equal at that
// currency's decimal precision. Unknown currencies fall back to the default
// precision rather than failing the display.
func (uc *SummaryUseCase) SummarizeVisible(ctx context.Context, entries []*domain.Entry) (map[string]CurrencySummary, error) {
	totals := make(map[string]*CurrencySummary)

	for _, e := range entries {
		t, ok := totals[e.Currency]
		if !ok {
			t = &CurrencySummary{Currency: e.Currency}
			totals[e.Currency] = t
		}

		t.DebitTotal = t.DebitTotal.Add(e.Debit)
		t.CreditTotal = t.CreditTotal.Add(e.Credit)
	}

	result := make(map[string]CurrencySummary, len(totals))
	for code, t := range totals {
		currency := &domain.Currency{Code: code, Digits: domain.DefaultCurrencyDigits}

		known, err := uc.currencyRepo.GetByCode(ctx, code)
		switch {
		case err == nil:
			currency = known
		case !errors.Is(err, domain.ErrCurrencyNotFound):
			return nil, err
		}

		t.Balanced = currency.AmountsEqual(t.DebitTotal, t.CreditTotal)
		result[code] = *t
	}

	return result, nil
}
