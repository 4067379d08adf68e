package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one leg of a double-entry bookkeeping transaction: one account,
// one amount, debit or credit, posted to a ledger in a single currency.
//
// ID is 0 until the entry is first persisted. The three *Set flags record
// that the user explicitly touched a field, which forbids the validator's
// defaulting logic from overriding it.
type Entry struct {
	ID               int64
	OperationDate    Date
	EffectDate       Date
	Reference        string
	Label            string
	Ledger           string // ledger mnemonic
	Account          string // account number
	Debit            decimal.Decimal
	Credit           decimal.Decimal
	Currency         string
	SettlementNumber int64 // 0 = not part of a settlement group
	ConciliationID   int64 // 0 = not part of a conciliation group
	ConciliationDate Date  // reconciliation value date, set with ConciliationID
	Status           Status

	OperationDateSet bool
	EffectDateSet    bool
	CurrencySet      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AmountsValid reports whether exactly one of debit/credit is strictly
// positive and the other is exactly zero.
func (e *Entry) AmountsValid() bool {
	if e.Debit.IsNegative() || e.Credit.IsNegative() {
		return false
	}
	return e.Debit.IsPositive() != e.Credit.IsPositive()
}

// SameAmounts reports whether two entries carry identical debit and credit.
func (e *Entry) SameAmounts(o *Entry) bool {
	return e.Debit.Equal(o.Debit) && e.Credit.Equal(o.Credit)
}

// Settled reports membership in a settlement group.
func (e *Entry) Settled() bool { return e.SettlementNumber != 0 }

// Conciliated reports membership in a conciliation group.
func (e *Entry) Conciliated() bool { return e.ConciliationID != 0 }

// Clone returns a copy of the entry, used to snapshot the persisted state
// before an edit.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}
