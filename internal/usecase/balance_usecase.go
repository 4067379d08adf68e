package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/infrastructure/metrics"
)

// BalanceUseCase is the derived aggregate store and its remediation
// coordinator: it keeps the per-account and per-(ledger, currency) bucket
// aggregates consistent with the live-edited entry set, one delta at a
// time, without rescanning the ledger.
type BalanceUseCase struct {
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	entryRepo   EntryRepository
	txManager   TransactionManager
	auditRepo   AuditRepository
	publisher   Publisher
	idGen       IDGenerator
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	entryRepo EntryRepository,
	txManager TransactionManager,
	auditRepo AuditRepository,
	publisher Publisher,
	idGen IDGenerator,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *BalanceUseCase {
	return &BalanceUseCase{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		entryRepo:   entryRepo,
		txManager:   txManager,
		auditRepo:   auditRepo,
		publisher:   publisher,
		idGen:       idGen,
		logger:      logger,
		metrics:     metrics,
	}
}

// AccountAdd adds a debit/credit contribution to an account bucket and
// persists the new aggregates.
func (uc *BalanceUseCase) AccountAdd(ctx context.Context, tx Transaction, account *domain.Account, bucket domain.Bucket, debit, credit decimal.Decimal) error {
	account.Apply(bucket, debit, credit)
	return uc.accountRepo.UpdateAggregates(ctx, tx, account)
}

// AccountSub removes a debit/credit contribution from an account bucket and
// persists the new aggregates.
func (uc *BalanceUseCase) AccountSub(ctx context.Context, tx Transaction, account *domain.Account, bucket domain.Bucket, debit, credit decimal.Decimal) error {
	account.Deduct(bucket, debit, credit)
	return uc.accountRepo.UpdateAggregates(ctx, tx, account)
}

// LedgerAdd adds a contribution to the (ledger, currency) bucket aggregates.
func (uc *BalanceUseCase) LedgerAdd(ctx context.Context, tx Transaction, mnemo, currency string, bucket domain.Bucket, debit, credit decimal.Decimal) error {
	balance, err := uc.ledgerRepo.GetBalanceForUpdate(ctx, tx, mnemo, currency)
	if err != nil {
		return err
	}

	balance.Apply(bucket, debit, credit)

	return uc.ledgerRepo.UpdateBalance(ctx, tx, balance)
}

// LedgerSub removes a contribution from the (ledger, currency) bucket
// aggregates.
func (uc *BalanceUseCase) LedgerSub(ctx context.Context, tx Transaction, mnemo, currency string, bucket domain.Bucket, debit, credit decimal.Decimal) error {
	balance, err := uc.ledgerRepo.GetBalanceForUpdate(ctx, tx, mnemo, currency)
	if err != nil {
		return err
	}

	balance.Deduct(bucket, debit, credit)

	return uc.ledgerRepo.UpdateBalance(ctx, tx, balance)
}

// Remediate moves an entry's contribution between aggregates after a field
// edit. old is the persisted snapshot before the edit, nil on insert. The
// account side and the ledger side are decided independently: a ledger
// reassignment leaves the account untouched and vice versa. When a side did
// not change at all, no write is issued for it.
func (uc *BalanceUseCase) Remediate(ctx context.Context, tx Transaction, old, entry *domain.Entry) error {
	bucket, ok := entry.Status.Bucket()
	if !ok {
		return fmt.Errorf("%w: entry %d has status %s", domain.ErrNotEditable, entry.ID, entry.Status)
	}

	if old != nil && old.Account == entry.Account &&
		old.Ledger == entry.Ledger && old.Currency == entry.Currency &&
		old.SameAmounts(entry) {
		if uc.metrics != nil {
			uc.metrics.RemediationsSkipped.Inc()
		}
		return nil
	}

	if err := uc.remediate(ctx, tx, bucket, old, entry); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.RemediationsApplied.Inc()
	}

	return nil
}

func (uc *BalanceUseCase) remediate(ctx context.Context, tx Transaction, bucket domain.Bucket, old, entry *domain.Entry) error {
	if old == nil {
		account, err := uc.accountRepo.GetByNumberForUpdate(ctx, tx, entry.Account)
		if err != nil {
			return err
		}

		if err := uc.AccountAdd(ctx, tx, account, bucket, entry.Debit, entry.Credit); err != nil {
			return err
		}

		return uc.LedgerAdd(ctx, tx, entry.Ledger, entry.Currency, bucket, entry.Debit, entry.Credit)
	}

	if err := uc.remediateAccount(ctx, tx, bucket, old, entry); err != nil {
		return err
	}

	return uc.remediateLedger(ctx, tx, bucket, old, entry)
}

func (uc *BalanceUseCase) remediateAccount(ctx context.Context, tx Transaction, bucket domain.Bucket, old, entry *domain.Entry) error {
	sameAccount := old.Account == entry.Account
	if sameAccount && old.SameAmounts(entry) {
		// nothing moved on the account side
		return nil
	}

	prev, err := uc.accountRepo.GetByNumberForUpdate(ctx, tx, old.Account)
	if err != nil {
		return err
	}

	prev.Deduct(bucket, old.Debit, old.Credit)

	if sameAccount {
		// one write covers both the subtraction and the addition
		return uc.AccountAdd(ctx, tx, prev, bucket, entry.Debit, entry.Credit)
	}

	if err := uc.accountRepo.UpdateAggregates(ctx, tx, prev); err != nil {
		return err
	}

	next, err := uc.accountRepo.GetByNumberForUpdate(ctx, tx, entry.Account)
	if err != nil {
		return err
	}

	return uc.AccountAdd(ctx, tx, next, bucket, entry.Debit, entry.Credit)
}

func (uc *BalanceUseCase) remediateLedger(ctx context.Context, tx Transaction, bucket domain.Bucket, old, entry *domain.Entry) error {
	sameRow := old.Ledger == entry.Ledger && old.Currency == entry.Currency
	if sameRow && old.SameAmounts(entry) {
		return nil
	}

	prev, err := uc.ledgerRepo.GetBalanceForUpdate(ctx, tx, old.Ledger, old.Currency)
	if err != nil {
		return err
	}

	prev.Deduct(bucket, old.Debit, old.Credit)

	if sameRow {
		prev.Apply(bucket, entry.Debit, entry.Credit)
		return uc.ledgerRepo.UpdateBalance(ctx, tx, prev)
	}

	if err := uc.ledgerRepo.UpdateBalance(ctx, tx, prev); err != nil {
		return err
	}

	return uc.LedgerAdd(ctx, tx, entry.Ledger, entry.Currency, bucket, entry.Debit, entry.Credit)
}

// Withdraw removes a deleted entry's last known contribution from its
// account and ledger aggregates. Without this, balances would silently
// overstate after deletions.
func (uc *BalanceUseCase) Withdraw(ctx context.Context, tx Transaction, entry *domain.Entry) error {
	bucket, ok := entry.Status.Bucket()
	if !ok {
		return fmt.Errorf("%w: entry %d has status %s", domain.ErrNotEditable, entry.ID, entry.Status)
	}

	account, err := uc.accountRepo.GetByNumberForUpdate(ctx, tx, entry.Account)
	if err != nil {
		return err
	}

	if err := uc.AccountSub(ctx, tx, account, bucket, entry.Debit, entry.Credit); err != nil {
		return err
	}

	return uc.LedgerSub(ctx, tx, entry.Ledger, entry.Currency, bucket, entry.Debit, entry.Credit)
}

// Recompute rebuilds every aggregate from the entry table in one
// transaction: the reconciliation pass run when aggregates are suspected to
// have drifted from the entries. The audit row rides the same transaction;
// the notification is emitted after commit. Returns the number of entries
// scanned.
func (uc *BalanceUseCase) Recompute(ctx context.Context) (int64, error) {
	start := time.Now()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	scanned, err := uc.entryRepo.RecomputeAggregates(ctx, tx)
	if err != nil {
		return 0, err
	}

	if uc.auditRepo != nil {
		if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Action:       domain.AuditActionRecompute,
			ResourceType: "balances",
			ResourceID:   "all",
			Detail: map[string]any{
				"entries_scanned": scanned,
			},
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	uc.publish(ctx, domain.BalancesRecomputedEvent{Entries: scanned})

	if uc.metrics != nil {
		uc.metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
		uc.metrics.RecomputeScanned.Set(float64(scanned))
		uc.metrics.AuditLogsCreated.WithLabelValues(domain.AuditActionRecompute).Inc()
	}

	return scanned, nil
}

func (uc *BalanceUseCase) publish(ctx context.Context, event domain.Event) {
	if uc.publisher == nil {
		return
	}

	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn().Err(err).Str("event", event.EventType()).Msg("event emission failed")
	}
}

// BalanceDrift reports one stored aggregate that does not match the sum
// recomputed from the entries.
type BalanceDrift struct {
	Currency string
	Bucket   domain.Bucket
	Side     string // debit or credit
	Stored   decimal.Decimal
	Computed decimal.Decimal
}

// CheckLedgerConsistency compares a ledger's stored per-currency aggregates
// with sums recomputed from the entry table. An empty drift list means the
// maintained invariant holds.
func (uc *BalanceUseCase) CheckLedgerConsistency(ctx context.Context, mnemo string) ([]BalanceDrift, error) {
	ledger, err := uc.ledgerRepo.GetByMnemo(ctx, mnemo)
	if err != nil {
		return nil, err
	}

	sums, err := uc.entryRepo.SumsByLedger(ctx, mnemo)
	if err != nil {
		return nil, err
	}

	computed := make(map[string]*domain.LedgerBalance, len(sums))
	for _, s := range sums {
		computed[s.Currency] = s
	}

	currencies := make(map[string]bool)
	for code := range ledger.Balances {
		currencies[code] = true
	}
	for code := range computed {
		currencies[code] = true
	}

	var drifts []BalanceDrift
	for code := range currencies {
		stored := ledger.Balance(code)
		sum, ok := computed[code]
		if !ok {
			sum = &domain.LedgerBalance{Ledger: mnemo, Currency: code}
		}

		for _, bucket := range []domain.Bucket{domain.BucketRough, domain.BucketFuture} {
			sd, sc := stored.Aggregates(bucket)
			cd, cc := sum.Aggregates(bucket)

			if !sd.Equal(cd) {
				drifts = append(drifts, BalanceDrift{Currency: code, Bucket: bucket, Side: "debit", Stored: sd, Computed: cd})
			}
			if !sc.Equal(cc) {
				drifts = append(drifts, BalanceDrift{Currency: code, Bucket: bucket, Side: "credit", Stored: sc, Computed: cc})
			}
		}
	}

	if uc.metrics != nil && len(drifts) > 0 {
		uc.metrics.DriftsDetected.WithLabelValues(mnemo).Add(float64(len(drifts)))
	}

	return drifts, nil
}
