package dto

import (
	"github.com/shopspring/decimal"

	"github.com/trychlos/openbook-sub016/internal/usecase"
)

// EntryDraftRequest is a candidate entry mutation as sent by a client.
// Pointer fields distinguish "explicitly provided" from "left for the
// validator to infer": an absent operation date defaults to the effect
// date, an absent effect date to the operation date clamped to the ledger
// period minimum, an absent currency to the account's currency.
type EntryDraftRequest struct {
	ID            int64           `json:"id,omitempty"`
	OperationDate *string         `json:"operation_date,omitempty"`
	EffectDate    *string         `json:"effect_date,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	Label         string          `json:"label"`
	Ledger        string          `json:"ledger"`
	Account       string          `json:"account"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Currency      *string         `json:"currency,omitempty"`
}

// ToDraft converts to the validator's draft form.
func (r *EntryDraftRequest) ToDraft() *usecase.EntryDraft {
	draft := &usecase.EntryDraft{
		ID:        r.ID,
		Reference: r.Reference,
		Label:     r.Label,
		Ledger:    r.Ledger,
		Account:   r.Account,
		Debit:     r.Debit,
		Credit:    r.Credit,
	}

	if r.OperationDate != nil {
		draft.OperationDate = *r.OperationDate
		draft.OperationDateSet = true
	}

	if r.EffectDate != nil {
		draft.EffectDate = *r.EffectDate
		draft.EffectDateSet = true
	}

	if r.Currency != nil {
		draft.Currency = *r.Currency
		draft.CurrencySet = true
	}

	return draft
}
