package usecase

import (
	"context"
	"time"

	"github.com/trychlos/openbook-sub016/internal/domain"
)

// AccountRepository defines data access for accounts and their derived
// aggregates.
type AccountRepository interface {
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
	GetByNumberForUpdate(ctx context.Context, tx Transaction, number string) (*domain.Account, error)
	UpdateAggregates(ctx context.Context, tx Transaction, account *domain.Account) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// LedgerRepository defines data access for ledgers and their per-currency
// balance rows.
type LedgerRepository interface {
	GetByMnemo(ctx context.Context, mnemo string) (*domain.Ledger, error)
	// GetBalanceForUpdate locks the (ledger, currency) balance row,
	// creating a zero row when the currency was never posted.
	GetBalanceForUpdate(ctx context.Context, tx Transaction, mnemo, currency string) (*domain.LedgerBalance, error)
	UpdateBalance(ctx context.Context, tx Transaction, balance *domain.LedgerBalance) error
	List(ctx context.Context) ([]*domain.Ledger, error)
}

// CurrencyRepository defines data access for the currency table.
type CurrencyRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Currency, error)
	List(ctx context.Context) ([]*domain.Currency, error)
}

// DossierRepository gives access to the accounting book context.
type DossierRepository interface {
	Get(ctx context.Context) (*domain.Dossier, error)
}

// EntryRepository defines data access for entries, settlement and
// conciliation membership.
type EntryRepository interface {
	Insert(ctx context.Context, tx Transaction, entry *domain.Entry) (int64, error)
	Update(ctx context.Context, tx Transaction, entry *domain.Entry) error
	Delete(ctx context.Context, tx Transaction, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Entry, error)
	ListByLedger(ctx context.Context, mnemo string, limit, offset int) ([]*domain.Entry, error)
	ListBySettlement(ctx context.Context, tx Transaction, number int64) ([]*domain.Entry, error)
	ListByConciliation(ctx context.Context, tx Transaction, groupID int64) ([]*domain.Entry, error)
	ClearSettlement(ctx context.Context, tx Transaction, number int64) error
	ClearConciliation(ctx context.Context, tx Transaction, groupID int64) error
	// SumsByLedger recomputes per-currency bucket sums from the entry
	// table, for consistency checks.
	SumsByLedger(ctx context.Context, mnemo string) ([]*domain.LedgerBalance, error)
	// RecomputeAggregates rebuilds every account and ledger aggregate
	// from the entry table. Returns the number of entries scanned.
	RecomputeAggregates(ctx context.Context, tx Transaction) (int64, error)
}

// AuditRepository defines data access for the mutation audit trail.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Publisher delivers typed events toward the notification bus. Emission is
// fire-and-forget from the engine's point of view: callers log failures and
// move on.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// IDGenerator generates unique IDs for audit records and events.
type IDGenerator interface {
	Generate() string
}

// Retrier retries an operation on transient persistence failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations for reference lookups.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
