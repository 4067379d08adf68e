package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger (journal) is a named stream that groups entries for operational
// and periodic closing purposes. A ledger carries one balance row per
// currency that has ever been posted to it.
type Ledger struct {
	Mnemo       string
	Label       string
	LastClosing Date
	// Balances is keyed by currency code.
	Balances map[string]*LedgerBalance

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerBalance holds the four derived aggregates of a ledger in one
// currency.
type LedgerBalance struct {
	Ledger   string
	Currency string

	RoughDebit  decimal.Decimal
	RoughCredit decimal.Decimal
	FuturDebit  decimal.Decimal
	FuturCredit decimal.Decimal
}

// Aggregates returns the debit/credit pair for a bucket.
func (b *LedgerBalance) Aggregates(bk Bucket) (debit, credit decimal.Decimal) {
	if bk == BucketFuture {
		return b.FuturDebit, b.FuturCredit
	}
	return b.RoughDebit, b.RoughCredit
}

// Apply adds an entry's contribution to a bucket.
func (b *LedgerBalance) Apply(bk Bucket, debit, credit decimal.Decimal) {
	if bk == BucketFuture {
		b.FuturDebit = b.FuturDebit.Add(debit)
		b.FuturCredit = b.FuturCredit.Add(credit)
		return
	}
	b.RoughDebit = b.RoughDebit.Add(debit)
	b.RoughCredit = b.RoughCredit.Add(credit)
}

// Deduct removes an entry's contribution from a bucket.
func (b *LedgerBalance) Deduct(bk Bucket, debit, credit decimal.Decimal) {
	if bk == BucketFuture {
		b.FuturDebit = b.FuturDebit.Sub(debit)
		b.FuturCredit = b.FuturCredit.Sub(credit)
		return
	}
	b.RoughDebit = b.RoughDebit.Sub(debit)
	b.RoughCredit = b.RoughCredit.Sub(credit)
}

// Balance returns the balance row for a currency, creating a zero row on
// first use.
func (l *Ledger) Balance(currency string) *LedgerBalance {
	if l.Balances == nil {
		l.Balances = make(map[string]*LedgerBalance)
	}
	b, ok := l.Balances[currency]
	if !ok {
		b = &LedgerBalance{Ledger: l.Mnemo, Currency: currency}
		l.Balances[currency] = b
	}
	return b
}

// Dossier is the accounting book context bounding valid dates: the current
// exercise runs from ExerciseBegin to ExerciseEnd inclusive.
type Dossier struct {
	Label         string
	ExerciseBegin Date
	ExerciseEnd   Date
}

// MinimumEffectDate returns the earliest effect date an entry may carry on
// the given ledger: the later of the ledger's last closing date and the
// exercise opening date.
func MinimumEffectDate(l *Ledger, d *Dossier) Date {
	var closing, begin Date
	if l != nil {
		closing = l.LastClosing
	}
	if d != nil {
		begin = d.ExerciseBegin
	}
	return MaxDate(closing, begin)
}
