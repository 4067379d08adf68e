package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/trychlos/openbook-sub016/internal/domain"
)

// Severity classifies a validation outcome. Warnings are advisory only; a
// row with no Error is eligible for persistence.
type Severity int

const (
	SeverityOk Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "ok"
}

// Field identifies the entry field a validation message is attached to.
type Field int

const (
	FieldNone Field = iota
	FieldAmount
	FieldLabel
	FieldAccount
	FieldCurrency
	FieldLedger
	FieldEffectDate
	FieldOperationDate
)

func (f Field) String() string {
	switch f {
	case FieldAmount:
		return "amount"
	case FieldLabel:
		return "label"
	case FieldAccount:
		return "account"
	case FieldCurrency:
		return "currency"
	case FieldLedger:
		return "ledger"
	case FieldEffectDate:
		return "effect_date"
	case FieldOperationDate:
		return "operation_date"
	}
	return "none"
}

// ValidationOutcome is what the grid editor displays for a row: the first
// failing check (in dependency order), or Ok.
type ValidationOutcome struct {
	Severity Severity
	Field    Field
	Message  string
	Err      error
}

// EntryDraft is a candidate entry mutation as typed by the user: dates and
// amounts arrive in their raw text form, the *Set flags record fields the
// user explicitly touched. Defaulting mutates the draft in place so the UI
// can redisplay inferred values.
type EntryDraft struct {
	ID               int64
	OperationDate    string
	EffectDate       string
	Reference        string
	Label            string
	Ledger           string
	Account          string
	Debit            decimal.Decimal
	Credit           decimal.Decimal
	Currency         string
	OperationDateSet bool
	EffectDateSet    bool
	CurrencySet      bool
}

// ValidationUseCase runs the per-field and cross-field checks of the entry
// grid editor, with default-value inference on fields the user has not
// touched.
type ValidationUseCase struct {
	accountRepo  AccountRepository
	ledgerRepo   LedgerRepository
	currencyRepo CurrencyRepository
	dateLayout   string
}

// NewValidationUseCase creates a new ValidationUseCase. dateLayout is the
// configured display date format; empty means ISO-8601.
func NewValidationUseCase(
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	currencyRepo CurrencyRepository,
	dateLayout string,
) *ValidationUseCase {
	if dateLayout == "" {
		dateLayout = domain.DateLayout
	}

	return &ValidationUseCase{
		accountRepo:  accountRepo,
		ledgerRepo:   ledgerRepo,
		currencyRepo: currencyRepo,
		dateLayout:   dateLayout,
	}
}

// check numbers, in dependency order. The first failing check wins when the
// outcome is displayed; the effect-date defaulting check may clear an error
// raised by the earlier effect-date parse.
const (
	checkAmounts = iota + 1
	checkLabel
	checkAccount
	checkCurrency
	checkCurrencyMatch
	checkLedger
	checkEffectDate
	checkOperationDate
	checkEffectDefault
	checkCrossDate
	checkCount
)

var checkFields = [checkCount]Field{
	checkAmounts:       FieldAmount,
	checkLabel:         FieldLabel,
	checkAccount:       FieldAccount,
	checkCurrency:      FieldCurrency,
	checkCurrencyMatch: FieldCurrency,
	checkLedger:        FieldLedger,
	checkEffectDate:    FieldEffectDate,
	checkOperationDate: FieldOperationDate,
	checkEffectDefault: FieldEffectDate,
	checkCrossDate:     FieldEffectDate,
}

// Validate runs every check against the draft and returns the winning
// outcome plus the resolved entry (best effort when invalid). The returned
// error reports persistence failures only, never a validation verdict.
func (uc *ValidationUseCase) Validate(ctx context.Context, draft *EntryDraft, dossier *domain.Dossier) (ValidationOutcome, *domain.Entry, error) {
	var errs [checkCount]error

	entry := &domain.Entry{
		ID:               draft.ID,
		Reference:        strings.TrimSpace(draft.Reference),
		Label:            strings.TrimSpace(draft.Label),
		Ledger:           strings.TrimSpace(draft.Ledger),
		Account:          strings.TrimSpace(draft.Account),
		Debit:            draft.Debit,
		Credit:           draft.Credit,
		Currency:         strings.TrimSpace(draft.Currency),
		OperationDateSet: draft.OperationDateSet,
		EffectDateSet:    draft.EffectDateSet,
		CurrencySet:      draft.CurrencySet,
	}

	// 1. Amounts: exactly one of debit/credit strictly positive.
	if !entry.AmountsValid() {
		errs[checkAmounts] = domain.ErrAmountInvalid
	}

	// 2. Label.
	if entry.Label == "" {
		errs[checkLabel] = domain.ErrLabelRequired
	}

	// 3. Account resolution, plus currency inference.
	account, err := uc.resolveAccount(ctx, entry.Account)
	if err != nil {
		if !isFieldError(err) {
			return ValidationOutcome{}, nil, err
		}
		errs[checkAccount] = err
		account = nil
	} else if !draft.CurrencySet {
		draft.Currency = account.Currency
		entry.Currency = account.Currency
	}

	// 4. Currency resolution.
	currency, err := uc.resolveCurrency(ctx, entry.Currency)
	if err != nil {
		if !isFieldError(err) {
			return ValidationOutcome{}, nil, err
		}
		errs[checkCurrency] = err
		currency = nil
	}

	// 5. Account/currency coherence.
	if account != nil && currency != nil && account.Currency != currency.Code {
		errs[checkCurrencyMatch] = fmt.Errorf("%w: account %s expects currency %s but entry has %s",
			domain.ErrCurrencyMismatch, account.Number, account.Currency, currency.Code)
	}

	// 6. Ledger resolution.
	ledger, err := uc.resolveLedger(ctx, entry.Ledger)
	if err != nil {
		if !isFieldError(err) {
			return ValidationOutcome{}, nil, err
		}
		errs[checkLedger] = err
		ledger = nil
	}

	// 7. Effect date, plus operation-date inference.
	effect, err := domain.ParseDate(strings.TrimSpace(draft.EffectDate), uc.dateLayout)
	switch {
	case err != nil:
		errs[checkEffectDate] = fmt.Errorf("%w: effect date %q", domain.ErrInvalidDate, draft.EffectDate)
	case effect.IsZero():
		errs[checkEffectDate] = fmt.Errorf("%w: effect date is empty", domain.ErrInvalidDate)
	default:
		entry.EffectDate = effect
		if !draft.OperationDateSet {
			draft.OperationDate = effect.Format(uc.dateLayout)
		}
	}

	// 8. Operation date.
	operation, err := domain.ParseDate(strings.TrimSpace(draft.OperationDate), uc.dateLayout)
	switch {
	case err != nil:
		errs[checkOperationDate] = fmt.Errorf("%w: operation date %q", domain.ErrInvalidDate, draft.OperationDate)
	case operation.IsZero():
		errs[checkOperationDate] = fmt.Errorf("%w: operation date is empty", domain.ErrInvalidDate)
	default:
		entry.OperationDate = operation
	}

	// 9. Effect-date defaulting: infer a missing/invalid effect date from
	// the operation date and the ledger period minimum, then clear the
	// error check 7 raised.
	if errs[checkOperationDate] == nil && ledger != nil &&
		errs[checkEffectDate] != nil && !draft.EffectDateSet {
		minimum := domain.MinimumEffectDate(ledger, dossier)
		entry.EffectDate = domain.MaxDate(entry.OperationDate, minimum)
		draft.EffectDate = entry.EffectDate.Format(uc.dateLayout)
		errs[checkEffectDate] = nil
	}

	// 10. Cross-date check: the effect date must not fall in an already
	// closed period. An Error, not a Warning: posting there would corrupt
	// period balances.
	if errs[checkEffectDate] == nil && errs[checkOperationDate] == nil && ledger != nil {
		minimum := domain.MinimumEffectDate(ledger, dossier)
		if !minimum.IsZero() && entry.EffectDate.Before(minimum) {
			errs[checkCrossDate] = fmt.Errorf("%w: effect date %s is before %s on ledger %s",
				domain.ErrEffectDateTooEarly, entry.EffectDate, minimum, ledger.Mnemo)
		}
	}

	for i := checkAmounts; i < checkCount; i++ {
		if errs[i] != nil {
			return ValidationOutcome{
				Severity: SeverityError,
				Field:    checkFields[i],
				Message:  errs[i].Error(),
				Err:      errs[i],
			}, entry, nil
		}
	}

	return ValidationOutcome{Severity: SeverityOk}, entry, nil
}

func (uc *ValidationUseCase) resolveAccount(ctx context.Context, number string) (*domain.Account, error) {
	if number == "" {
		return nil, fmt.Errorf("%w: account is empty", domain.ErrAccountNotFound)
	}

	account, err := uc.accountRepo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, number)
		}

		return nil, err
	}

	if !account.Postable() {
		return nil, fmt.Errorf("%w: %s", domain.ErrStructuralAccount, number)
	}

	return account, nil
}

func (uc *ValidationUseCase) resolveCurrency(ctx context.Context, code string) (*domain.Currency, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: currency is empty", domain.ErrCurrencyNotFound)
	}

	currency, err := uc.currencyRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCurrencyNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCurrencyNotFound, code)
		}

		return nil, err
	}

	return currency, nil
}

func (uc *ValidationUseCase) resolveLedger(ctx context.Context, mnemo string) (*domain.Ledger, error) {
	if mnemo == "" {
		return nil, fmt.Errorf("%w: ledger is empty", domain.ErrLedgerNotFound)
	}

	ledger, err := uc.ledgerRepo.GetByMnemo(ctx, mnemo)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLedgerNotFound, mnemo)
		}

		return nil, err
	}

	return ledger, nil
}

// isFieldError distinguishes a validation verdict from an infrastructure
// failure on reference lookups.
func isFieldError(err error) bool {
	return errors.Is(err, domain.ErrAccountNotFound) ||
		errors.Is(err, domain.ErrStructuralAccount) ||
		errors.Is(err, domain.ErrCurrencyNotFound) ||
		errors.Is(err, domain.ErrLedgerNotFound)
}
