package domain

import "errors"

var (
	// Lookup errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrLedgerNotFound   = errors.New("ledger not found")
	ErrCurrencyNotFound = errors.New("currency not found")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrDossierNotFound  = errors.New("dossier not found")

	// Field errors (block persistence)
	ErrAmountInvalid     = errors.New("exactly one of debit or credit must be strictly positive")
	ErrLabelRequired     = errors.New("label cannot be empty")
	ErrStructuralAccount = errors.New("account is structural and cannot be posted to")
	ErrCurrencyMismatch  = errors.New("entry currency does not match account currency")
	ErrInvalidDate       = errors.New("invalid date")

	// Cross-date error: same severity as a field error, computed once the
	// simpler checks pass.
	ErrEffectDateTooEarly = errors.New("effect date precedes the ledger period minimum")

	// Precondition violation: only Rough entries are writable through this
	// engine; Future entries additionally carry maintained aggregates.
	ErrNotEditable = errors.New("entry is not editable in its current status")
)
