package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID               int64           `json:"id"`
	OperationDate    domain.Date     `json:"operation_date"`
	EffectDate       domain.Date     `json:"effect_date"`
	Reference        string          `json:"reference,omitempty"`
	Label            string          `json:"label"`
	Ledger           string          `json:"ledger"`
	Account          string          `json:"account"`
	Debit            decimal.Decimal `json:"debit"`
	Credit           decimal.Decimal `json:"credit"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	SettlementNumber int64           `json:"settlement_number,omitempty"`
	ConciliationID   int64           `json:"conciliation_id,omitempty"`
	ConciliationDate domain.Date     `json:"conciliation_date"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:               e.ID,
		OperationDate:    e.OperationDate,
		EffectDate:       e.EffectDate,
		Reference:        e.Reference,
		Label:            e.Label,
		Ledger:           e.Ledger,
		Account:          e.Account,
		Debit:            e.Debit,
		Credit:           e.Credit,
		Currency:         e.Currency,
		Status:           e.Status.String(),
		SettlementNumber: e.SettlementNumber,
		ConciliationID:   e.ConciliationID,
		ConciliationDate: e.ConciliationDate,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ValidationResponse reports the winning validation outcome for a draft,
// alongside the draft as mutated by defaulting.
type ValidationResponse struct {
	Severity string             `json:"severity"`
	Field    string             `json:"field,omitempty"`
	Message  string             `json:"message,omitempty"`
	Draft    *EntryDraftRequest `json:"draft"`
}

// ValidationFromOutcome converts a validation outcome and the defaulted
// draft to a response.
func ValidationFromOutcome(outcome usecase.ValidationOutcome, draft *usecase.EntryDraft) *ValidationResponse {
	resp := &ValidationResponse{
		Severity: outcome.Severity.String(),
		Message:  outcome.Message,
		Draft:    draftRequestFromUsecase(draft),
	}
	if outcome.Field != usecase.FieldNone {
		resp.Field = outcome.Field.String()
	}
	return resp
}

func draftRequestFromUsecase(d *usecase.EntryDraft) *EntryDraftRequest {
	r := &EntryDraftRequest{
		ID:        d.ID,
		Reference: d.Reference,
		Label:     d.Label,
		Ledger:    d.Ledger,
		Account:   d.Account,
		Debit:     d.Debit,
		Credit:    d.Credit,
	}
	if d.OperationDate != "" || d.OperationDateSet {
		v := d.OperationDate
		r.OperationDate = &v
	}
	if d.EffectDate != "" || d.EffectDateSet {
		v := d.EffectDate
		r.EffectDate = &v
	}
	if d.Currency != "" || d.CurrencySet {
		v := d.Currency
		r.Currency = &v
	}
	return r
}

// CurrencySummaryResponse is the per-currency line of a visible-set summary.
type CurrencySummaryResponse struct {
	Currency    string          `json:"currency"`
	DebitTotal  decimal.Decimal `json:"debit_total"`
	CreditTotal decimal.Decimal `json:"credit_total"`
	Balanced    bool            `json:"balanced"`
}

// SummaryResponse groups per-currency summaries of a visible entry set.
type SummaryResponse struct {
	Ledger     string                    `json:"ledger"`
	Currencies []CurrencySummaryResponse `json:"currencies"`
}

// SummaryFromDomain converts per-currency summaries to a response. The
// currency order follows the given codes so the output is stable.
func SummaryFromDomain(ledger string, codes []string, summaries map[string]usecase.CurrencySummary) *SummaryResponse {
	resp := &SummaryResponse{
		Ledger:     ledger,
		Currencies: make([]CurrencySummaryResponse, 0, len(summaries)),
	}
	for _, code := range codes {
		s, ok := summaries[code]
		if !ok {
			continue
		}
		resp.Currencies = append(resp.Currencies, CurrencySummaryResponse{
			Currency:    s.Currency,
			DebitTotal:  s.DebitTotal,
			CreditTotal: s.CreditTotal,
			Balanced:    s.Balanced,
		})
	}
	return resp
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	Number      string          `json:"number"`
	Label       string          `json:"label"`
	Currency    string          `json:"currency"`
	Root        bool            `json:"root"`
	RoughDebit  decimal.Decimal `json:"rough_debit"`
	RoughCredit decimal.Decimal `json:"rough_credit"`
	FuturDebit  decimal.Decimal `json:"futur_debit"`
	FuturCredit decimal.Decimal `json:"futur_credit"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		Number:      a.Number,
		Label:       a.Label,
		Currency:    a.Currency,
		Root:        a.Root,
		RoughDebit:  a.RoughDebit,
		RoughCredit: a.RoughCredit,
		FuturDebit:  a.FuturDebit,
		FuturCredit: a.FuturCredit,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// LedgerBalanceResponse is one per-currency aggregate row of a ledger.
type LedgerBalanceResponse struct {
	Currency    string          `json:"currency"`
	RoughDebit  decimal.Decimal `json:"rough_debit"`
	RoughCredit decimal.Decimal `json:"rough_credit"`
	FuturDebit  decimal.Decimal `json:"futur_debit"`
	FuturCredit decimal.Decimal `json:"futur_credit"`
}

// LedgerResponse represents a ledger in API responses.
type LedgerResponse struct {
	Mnemo       string                  `json:"mnemo"`
	Label       string                  `json:"label"`
	LastClosing domain.Date             `json:"last_closing"`
	Balances    []LedgerBalanceResponse `json:"balances"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// LedgerFromDomain converts domain ledger to response.
func LedgerFromDomain(l *domain.Ledger) *LedgerResponse {
	resp := &LedgerResponse{
		Mnemo:       l.Mnemo,
		Label:       l.Label,
		LastClosing: l.LastClosing,
		Balances:    make([]LedgerBalanceResponse, 0, len(l.Balances)),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	for _, b := range l.Balances {
		resp.Balances = append(resp.Balances, LedgerBalanceResponse{
			Currency:    b.Currency,
			RoughDebit:  b.RoughDebit,
			RoughCredit: b.RoughCredit,
			FuturDebit:  b.FuturDebit,
			FuturCredit: b.FuturCredit,
		})
	}
	return resp
}

// LedgersFromDomain converts domain ledgers to responses.
func LedgersFromDomain(ledgers []*domain.Ledger) []*LedgerResponse {
	result := make([]*LedgerResponse, len(ledgers))
	for i, l := range ledgers {
		result[i] = LedgerFromDomain(l)
	}
	return result
}

// CurrencyResponse represents a currency in API responses.
type CurrencyResponse struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Digits int32  `json:"digits"`
}

// CurrencyFromDomain converts domain currency to response.
func CurrencyFromDomain(c *domain.Currency) *CurrencyResponse {
	return &CurrencyResponse{
		Code:   c.Code,
		Label:  c.Label,
		Digits: c.Digits,
	}
}

// CurrenciesFromDomain converts domain currencies to responses.
func CurrenciesFromDomain(currencies []*domain.Currency) []*CurrencyResponse {
	result := make([]*CurrencyResponse, len(currencies))
	for i, c := range currencies {
		result[i] = CurrencyFromDomain(c)
	}
	return result
}

// RecomputeResponse reports a full aggregate rebuild.
type RecomputeResponse struct {
	EntriesScanned int64 `json:"entries_scanned"`
}

// DriftResponse reports one stored aggregate that disagrees with the sum
// recomputed from the entries.
type DriftResponse struct {
	Currency string          `json:"currency"`
	Bucket   string          `json:"bucket"`
	Side     string          `json:"side"`
	Stored   decimal.Decimal `json:"stored"`
	Computed decimal.Decimal `json:"computed"`
}

// ConsistencyResponse reports the drift check of one ledger.
type ConsistencyResponse struct {
	Ledger     string          `json:"ledger"`
	Consistent bool            `json:"consistent"`
	Drifts     []DriftResponse `json:"drifts"`
}

// ConsistencyFromDomain converts a drift list to a response.
func ConsistencyFromDomain(ledger string, drifts []usecase.BalanceDrift) *ConsistencyResponse {
	resp := &ConsistencyResponse{
		Ledger:     ledger,
		Consistent: len(drifts) == 0,
		Drifts:     make([]DriftResponse, len(drifts)),
	}
	for i, d := range drifts {
		resp.Drifts[i] = DriftResponse{
			Currency: d.Currency,
			Bucket:   d.Bucket.String(),
			Side:     d.Side,
			Stored:   d.Stored,
			Computed: d.Computed,
		}
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
