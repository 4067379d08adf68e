package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a chart-of-accounts node entries post against. It carries one
// fixed currency and four derived aggregates, one debit/credit pair per
// bucket, all in that currency. Aggregates are never edited directly; they
// are maintained exclusively by balance remediation.
type Account struct {
	Number   string
	Label    string
	Currency string
	// Root marks a structural (summary) account that entries cannot post to.
	Root bool

	RoughDebit  decimal.Decimal
	RoughCredit decimal.Decimal
	FuturDebit  decimal.Decimal
	FuturCredit decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Postable reports whether entries may reference this account.
func (a *Account) Postable() bool { return !a.Root }

// Aggregates returns the debit/credit pair for a bucket.
func (a *Account) Aggregates(b Bucket) (debit, credit decimal.Decimal) {
	if b == BucketFuture {
		return a.FuturDebit, a.FuturCredit
	}
	return a.RoughDebit, a.RoughCredit
}

// Apply adds an entry's contribution to a bucket.
func (a *Account) Apply(b Bucket, debit, credit decimal.Decimal) {
	if b == BucketFuture {
		a.FuturDebit = a.FuturDebit.Add(debit)
		a.FuturCredit = a.FuturCredit.Add(credit)
		return
	}
	a.RoughDebit = a.RoughDebit.Add(debit)
	a.RoughCredit = a.RoughCredit.Add(credit)
}

// Deduct removes an entry's contribution from a bucket.
func (a *Account) Deduct(b Bucket, debit, credit decimal.Decimal) {
	if b == BucketFuture {
		a.FuturDebit = a.FuturDebit.Sub(debit)
		a.FuturCredit = a.FuturCredit.Sub(credit)
		return
	}
	a.RoughDebit = a.RoughDebit.Sub(debit)
	a.RoughCredit = a.RoughCredit.Sub(credit)
}
