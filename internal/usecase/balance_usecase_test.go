package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/infrastructure/metrics"
	"github.com/trychlos/openbook-sub016/internal/usecase"
	"github.com/trychlos/openbook-sub016/internal/usecase/mocks"
)

type balanceEnv struct {
	accounts  *mocks.MockAccountRepository
	ledgers   *mocks.MockLedgerRepository
	entries   *mocks.MockEntryRepository
	tx        *mocks.MockTransactionManager
	audits    *mocks.MockAuditRepository
	publisher *mocks.MockPublisher
	uc        *usecase.BalanceUseCase
}

func newBalanceEnv() *balanceEnv {
	return newBalanceEnvWith(nil)
}

func newBalanceEnvWith(m *metrics.Metrics) *balanceEnv {
	env := &balanceEnv{
		accounts:  mocks.NewMockAccountRepository(),
		ledgers:   mocks.NewMockLedgerRepository(),
		entries:   mocks.NewMockEntryRepository(),
		tx:        mocks.NewMockTransactionManager(),
		audits:    mocks.NewMockAuditRepository(),
		publisher: mocks.NewMockPublisher(),
	}
	env.uc = usecase.NewBalanceUseCase(
		env.accounts, env.ledgers, env.entries, env.tx,
		env.audits, env.publisher, mocks.NewMockIDGenerator(), zerolog.Nop(), m,
	)
	return env
}

func roughEntry(id int64, account string, debit int64) *domain.Entry {
	return &domain.Entry{
		ID:         id,
		EffectDate: date(2024, time.June, 10),
		Label:      "test entry",
		Ledger:     "BQ",
		Account:    account,
		Debit:      decimal.NewFromInt(debit),
		Currency:   "EUR",
		Status:     domain.StatusRough,
	}
}

func TestRemediate_InsertAddsBothSides(t *testing.T) {
	env := newBalanceEnv()
	account := &domain.Account{Number: "5121", Currency: "EUR"}
	env.accounts.Put(account)
	ledger := &domain.Ledger{Mnemo: "BQ"}
	env.ledgers.Put(ledger)

	entry := roughEntry(1, "5121", 100)

	if err := env.uc.Remediate(context.Background(), &mocks.MockTransaction{}, nil, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !account.RoughDebit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected account rough debit 100, got %s", account.RoughDebit)
	}

	balance := ledger.Balance("EUR")
	if !balance.RoughDebit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected ledger rough debit 100, got %s", balance.RoughDebit)
	}
}

func TestRemediate_UnchangedEntryWritesNothing(t *testing.T) {
	env := newBalanceEnv()
	account := &domain.Account{Number: "5121", Currency: "EUR", RoughDebit: decimal.NewFromInt(100)}
	env.accounts.Put(account)
	ledger := &domain.Ledger{Mnemo: "BQ"}
	ledger.Balance("EUR").RoughDebit = decimal.NewFromInt(100)
	env.ledgers.Put(ledger)

	old := roughEntry(1, "5121", 100)
	entry := old.Clone()

	if err := env.uc.Remediate(context.Background(), &mocks.MockTransaction{}, old, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.accounts.UpdateAggregatesCalls != 0 {
		t.Errorf("expected no account writes, got %d", env.accounts.UpdateAggregatesCalls)
	}

	if env.ledgers.UpdateBalanceCalls != 0 {
		t.Errorf("expected no ledger writes, got %d", env.ledgers.UpdateBalanceCalls)
	}
}

func TestRemediate_AmountChangeSameAccountSingleWrite(t *testing.T) {
	env := newBalanceEnv()
	account := &domain.Account{Number: "5121", Currency: "EUR", RoughDebit: decimal.NewFromInt(100)}
	env.accounts.Put(account)
	ledger := &domain.Ledger{Mnemo: "BQ"}
	ledger.Balance("EUR").RoughDebit = decimal.NewFromInt(100)
	env.ledgers.Put(ledger)

	old := roughEntry(1, "5121", 100)
	entry := roughEntry(1, "5121", 50)

	if err := env.uc.Remediate(context.Background(), &mocks.MockTransaction{}, old, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !account.RoughDebit.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected account rough debit 50, got %s", account.RoughDebit)
	}

	if env.accounts.UpdateAggregatesCalls != 1 {
		t.Errorf("expected a single account write, got %d", env.accounts.UpdateAggregatesCalls)
	}

	balance := ledger.Balance("EUR")
	if !balance.RoughDebit.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected ledger rough debit 50, got %s", balance.RoughDebit)
	}

	if env.ledgers.UpdateBalanceCalls != 1 {
		t.Errorf("expected a single ledger write, got %d", env.ledgers.UpdateBalanceCalls)
	}
}

func TestRemediate_AccountMoveShiftsContribution(t *testing.T) {
	env := newBalanceEnv()
	source := &domain.Account{Number: "5121", Currency: "EUR", RoughDebit: decimal.NewFromInt(100)}
	target := &domain.Account{Number: "6061", Currency: "EUR"}
	env.accounts.Put(source)
	env.accounts.Put(target)
	ledger := &domain.Ledger{Mnemo: "BQ"}
	ledger.Balance("EUR").RoughDebit = decimal.NewFromInt(100)
	env.ledgers.Put(ledger)

	old := roughEntry(1, "5121", 100)
	entry := roughEntry(1, "6061", 50)

	if err := env.uc.Remediate(context.Background(), &mocks.MockTransaction{}, old, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !source.RoughDebit.IsZero() {
		t.Errorf("expected source account emptied, got %s", source.RoughDebit)
	}

	if !target.RoughDebit.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected target account rough debit 50, got %s", target.RoughDebit)
	}

	// ledger and currency unchanged: the ledger row nets the amount change
	balance := ledger.Balance("EUR")
	if !balance.RoughDebit.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected ledger rough debit 50, got %s", balance.RoughDebit)
	}
}

func TestRemediate_LedgerMoveLeavesAccountAlone(t *testing.T) {
	env := newBalanceEnv()
	account := &domain.Account{Number: "5121", Currency: "EUR", RoughDebit: decimal.NewFromInt(100)}
	env.accounts.Put(account)
	bq := &domain.Ledger{Mnemo: "BQ"}
	bq.Balance("EUR").RoughDebit = decimal.NewFromInt(100)
	od := &domain.Ledger{Mnemo: "OD"}
	env.ledgers.Put(bq)
	env.ledgers.Put(od)

	old := roughEntry(1, "5121", 100)
	entry := roughEntry(1, "5121", 100)
	entry.Ledger = "OD"

	if err := env.uc.Remediate(context.Background(), &mocks.MockTransaction{}, old, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.accounts.UpdateAggregatesCalls != 0 {
		t.Errorf("expected no account writes on a ledger move, got %d", env.accounts.UpdateAggregatesCalls)
	}

	if !bq.Balance("EUR").RoughDebit.IsZero() {
		t.Errorf("expected old ledger emptied, got %s", bq.Balance("EUR").RoughDebit)
	}

	if !od.Balance("EUR").RoughDebit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected new ledger rough debit 100, got %s", od.Balance("EUR").RoughDebit)
	}
}

func TestRemediate_FutureBucketKeepsRoughIntact(t *testing.T) {
	env := newBalanceEnv()
	account := &domain.Account{Number: "5121", Currency: "EUR", RoughDebit: decimal.NewFromInt(100)}
	env.accounts.Put(account)
	env.ledgers.Put(&domain.Ledger{Mnemo: "BQ"})

	entry := roughEntry(2, "5121", 30)
	entry.Status = domain.StatusFuture

	if err := env.uc.Remediate(context.Background(), &mocks.MockTransaction{}, nil, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !account.RoughDebit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected rough debit untouched at 100, got %s", account.RoughDebit)
	}

	if !account.FuturDebit.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected futur debit 30, got %s", account.FuturDebit)
	}
}

func TestRemediate_NonBucketStatusRejected(t *testing.T) {
	env := newBalanceEnv()

	entry := roughEntry(1, "5121", 100)
	entry.Status = domain.StatusValidated

	err := env.uc.Remediate(context.Background(), &mocks.MockTransaction{}, nil, entry)
	if !errors.Is(err, domain.ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}
}

func TestWithdraw_SubtractsBothSides(t *testing.T) {
	env := newBalanceEnv()
	account := &domain.Account{Number: "5121", Currency: "EUR", RoughDebit: decimal.NewFromInt(100)}
	env.accounts.Put(account)
	ledger := &domain.Ledger{Mnemo: "BQ"}
	ledger.Balance("EUR").RoughDebit = decimal.NewFromInt(100)
	env.ledgers.Put(ledger)

	entry := roughEntry(1, "5121", 100)

	if err := env.uc.Withdraw(context.Background(), &mocks.MockTransaction{}, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !account.RoughDebit.IsZero() {
		t.Errorf("expected account rough debit back to zero, got %s", account.RoughDebit)
	}

	if !ledger.Balance("EUR").RoughDebit.IsZero() {
		t.Errorf("expected ledger rough debit back to zero, got %s", ledger.Balance("EUR").RoughDebit)
	}
}

func TestRecompute_RunsInOneTransaction(t *testing.T) {
	env := newBalanceEnv()
	env.entries.Put(roughEntry(0, "5121", 100))
	env.entries.Put(roughEntry(0, "5121", 50))

	scanned, err := env.uc.Recompute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if scanned != 2 {
		t.Errorf("expected 2 entries scanned, got %d", scanned)
	}

	if len(env.tx.Transactions) != 1 || !env.tx.Transactions[0].Committed {
		t.Errorf("expected one committed transaction")
	}
}

func TestRecompute_WritesAuditAndEmitsEvent(t *testing.T) {
	env := newBalanceEnv()
	env.entries.Put(roughEntry(0, "5121", 100))
	env.entries.Put(roughEntry(0, "5121", 50))
	env.entries.Put(roughEntry(0, "6061", 25))

	scanned, err := env.uc.Recompute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(env.audits.Logs) != 1 {
		t.Fatalf("expected one audit log, got %d", len(env.audits.Logs))
	}
	if env.audits.Logs[0].Action != domain.AuditActionRecompute {
		t.Errorf("unexpected audit action: %s", env.audits.Logs[0].Action)
	}

	if len(env.publisher.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(env.publisher.Events))
	}
	event, ok := env.publisher.Events[0].(domain.BalancesRecomputedEvent)
	if !ok {
		t.Fatalf("unexpected event type: %T", env.publisher.Events[0])
	}
	if event.Entries != scanned {
		t.Errorf("expected event to carry %d scanned entries, got %d", scanned, event.Entries)
	}
}

func TestRecompute_RecordsMetrics(t *testing.T) {
	m := metrics.NewWith(prometheus.NewRegistry())
	env := newBalanceEnvWith(m)
	env.entries.Put(roughEntry(0, "5121", 100))
	env.entries.Put(roughEntry(0, "5121", 50))

	if _, err := env.uc.Recompute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(m.RecomputeScanned); got != 2 {
		t.Errorf("expected scanned gauge 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.AuditLogsCreated.WithLabelValues(domain.AuditActionRecompute)); got != 1 {
		t.Errorf("expected one recompute audit counted, got %v", got)
	}
}

func TestCheckLedgerConsistency(t *testing.T) {
	env := newBalanceEnv()
	ledger := &domain.Ledger{Mnemo: "BQ"}
	balance := ledger.Balance("EUR")
	balance.RoughDebit = decimal.NewFromInt(150)
	env.ledgers.Put(ledger)

	env.entries.Put(roughEntry(0, "5121", 100))
	env.entries.Put(roughEntry(0, "6061", 50))

	drifts, err := env.uc.CheckLedgerConsistency(context.Background(), "BQ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(drifts) != 0 {
		t.Fatalf("expected no drift, got %+v", drifts)
	}

	// tamper with the stored aggregate
	balance.RoughDebit = decimal.NewFromInt(120)

	drifts, err = env.uc.CheckLedgerConsistency(context.Background(), "BQ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(drifts) != 1 {
		t.Fatalf("expected one drift, got %+v", drifts)
	}

	drift := drifts[0]
	if drift.Currency != "EUR" || drift.Bucket != domain.BucketRough || drift.Side != "debit" {
		t.Errorf("unexpected drift location: %+v", drift)
	}

	if !drift.Stored.Equal(decimal.NewFromInt(120)) || !drift.Computed.Equal(decimal.NewFromInt(150)) {
		t.Errorf("unexpected drift amounts: stored %s computed %s", drift.Stored, drift.Computed)
	}
}
