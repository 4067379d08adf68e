package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

// MockAccountRepository is an in-memory mock of usecase.AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	GetByNumberFunc          func(ctx context.Context, number string) (*domain.Account, error)
	GetByNumberForUpdateFunc func(ctx context.Context, tx usecase.Transaction, number string) (*domain.Account, error)
	UpdateAggregatesFunc     func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	ListFunc                 func(ctx context.Context, limit, offset int) ([]*domain.Account, error)

	UpdateAggregatesCalls int
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Put seeds an account.
func (m *MockAccountRepository) Put(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Number] = account
}

func (m *MockAccountRepository) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, number)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[number]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByNumberForUpdate(ctx context.Context, tx usecase.Transaction, number string) (*domain.Account, error) {
	if m.GetByNumberForUpdateFunc != nil {
		return m.GetByNumberForUpdateFunc(ctx, tx, number)
	}
	return m.GetByNumber(ctx, number)
}

func (m *MockAccountRepository) UpdateAggregates(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	m.mu.Lock()
	m.UpdateAggregatesCalls++
	m.mu.Unlock()
	if m.UpdateAggregatesFunc != nil {
		return m.UpdateAggregatesFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Number] = account
	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]*domain.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Number < accounts[j].Number })
	return accounts, nil
}

// MockLedgerRepository is an in-memory mock of usecase.LedgerRepository.
type MockLedgerRepository struct {
	mu      sync.RWMutex
	ledgers map[string]*domain.Ledger

	GetByMnemoFunc          func(ctx context.Context, mnemo string) (*domain.Ledger, error)
	GetBalanceForUpdateFunc func(ctx context.Context, tx usecase.Transaction, mnemo, currency string) (*domain.LedgerBalance, error)
	UpdateBalanceFunc       func(ctx context.Context, tx usecase.Transaction, balance *domain.LedgerBalance) error
	ListFunc                func(ctx context.Context) ([]*domain.Ledger, error)

	UpdateBalanceCalls int
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{
		ledgers: make(map[string]*domain.Ledger),
	}
}

// Put seeds a ledger.
func (m *MockLedgerRepository) Put(ledger *domain.Ledger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgers[ledger.Mnemo] = ledger
}

func (m *MockLedgerRepository) GetByMnemo(ctx context.Context, mnemo string) (*domain.Ledger, error) {
	if m.GetByMnemoFunc != nil {
		return m.GetByMnemoFunc(ctx, mnemo)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.ledgers[mnemo]; ok {
		return l, nil
	}
	return nil, domain.ErrLedgerNotFound
}

func (m *MockLedgerRepository) GetBalanceForUpdate(ctx context.Context, tx usecase.Transaction, mnemo, currency string) (*domain.LedgerBalance, error) {
	if m.GetBalanceForUpdateFunc != nil {
		return m.GetBalanceForUpdateFunc(ctx, tx, mnemo, currency)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[mnemo]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	return l.Balance(currency), nil
}

func (m *MockLedgerRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, balance *domain.LedgerBalance) error {
	m.mu.Lock()
	m.UpdateBalanceCalls++
	m.mu.Unlock()
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, balance)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[balance.Ledger]; ok {
		l.Balances[balance.Currency] = balance
	}
	return nil
}

func (m *MockLedgerRepository) List(ctx context.Context) ([]*domain.Ledger, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ledgers := make([]*domain.Ledger, 0, len(m.ledgers))
	for _, l := range m.ledgers {
		ledgers = append(ledgers, l)
	}
	sort.Slice(ledgers, func(i, j int) bool { return ledgers[i].Mnemo < ledgers[j].Mnemo })
	return ledgers, nil
}

// MockCurrencyRepository is an in-memory mock of usecase.CurrencyRepository.
type MockCurrencyRepository struct {
	mu         sync.RWMutex
	currencies map[string]*domain.Currency

	GetByCodeFunc func(ctx context.Context, code string) (*domain.Currency, error)
	ListFunc      func(ctx context.Context) ([]*domain.Currency, error)
}

func NewMockCurrencyRepository() *MockCurrencyRepository {
	return &MockCurrencyRepository{
		currencies: make(map[string]*domain.Currency),
	}
}

// Put seeds a currency.
func (m *MockCurrencyRepository) Put(currency *domain.Currency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currencies[currency.Code] = currency
}

func (m *MockCurrencyRepository) GetByCode(ctx context.Context, code string) (*domain.Currency, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.currencies[code]; ok {
		return c, nil
	}
	return nil, domain.ErrCurrencyNotFound
}

func (m *MockCurrencyRepository) List(ctx context.Context) ([]*domain.Currency, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	currencies := make([]*domain.Currency, 0, len(m.currencies))
	for _, c := range m.currencies {
		currencies = append(currencies, c)
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i].Code < currencies[j].Code })
	return currencies, nil
}

// MockDossierRepository is a mock of usecase.DossierRepository.
type MockDossierRepository struct {
	Dossier *domain.Dossier

	GetFunc func(ctx context.Context) (*domain.Dossier, error)
}

func NewMockDossierRepository(dossier *domain.Dossier) *MockDossierRepository {
	return &MockDossierRepository{Dossier: dossier}
}

func (m *MockDossierRepository) Get(ctx context.Context) (*domain.Dossier, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	if m.Dossier == nil {
		return nil, domain.ErrDossierNotFound
	}
	return m.Dossier, nil
}

// MockEntryRepository is an in-memory mock of usecase.EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[int64]*domain.Entry
	nextID  int64

	InsertFunc              func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) (int64, error)
	UpdateFunc              func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	DeleteFunc              func(ctx context.Context, tx usecase.Transaction, id int64) error
	GetByIDFunc             func(ctx context.Context, id int64) (*domain.Entry, error)
	ListByLedgerFunc        func(ctx context.Context, mnemo string, limit, offset int) ([]*domain.Entry, error)
	RecomputeAggregatesFunc func(ctx context.Context, tx usecase.Transaction) (int64, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[int64]*domain.Entry),
	}
}

// Put seeds a persisted entry, assigning an identity when it has none.
func (m *MockEntryRepository) Put(entry *domain.Entry) *domain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == 0 {
		m.nextID++
		entry.ID = m.nextID
	} else if entry.ID > m.nextID {
		m.nextID = entry.ID
	}
	m.entries[entry.ID] = entry
	return entry
}

func (m *MockEntryRepository) Insert(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) (int64, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e := entry.Clone()
	e.ID = m.nextID
	m.entries[e.ID] = e
	return e.ID, nil
}

func (m *MockEntryRepository) Update(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.ID]; !ok {
		return domain.ErrEntryNotFound
	}
	m.entries[entry.ID] = entry.Clone()
	return nil
}

func (m *MockEntryRepository) Delete(ctx context.Context, tx usecase.Transaction, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id int64) (*domain.Entry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return e.Clone(), nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) ListByLedger(ctx context.Context, mnemo string, limit, offset int) ([]*domain.Entry, error) {
	if m.ListByLedgerFunc != nil {
		return m.ListByLedgerFunc(ctx, mnemo, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, e := range m.entries {
		if e.Ledger == mnemo {
			entries = append(entries, e.Clone())
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (m *MockEntryRepository) ListBySettlement(ctx context.Context, tx usecase.Transaction, number int64) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, e := range m.entries {
		if e.SettlementNumber == number {
			entries = append(entries, e.Clone())
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (m *MockEntryRepository) ListByConciliation(ctx context.Context, tx usecase.Transaction, groupID int64) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, e := range m.entries {
		if e.ConciliationID == groupID {
			entries = append(entries, e.Clone())
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (m *MockEntryRepository) ClearSettlement(ctx context.Context, tx usecase.Transaction, number int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.SettlementNumber == number {
			e.SettlementNumber = 0
		}
	}
	return nil
}

func (m *MockEntryRepository) ClearConciliation(ctx context.Context, tx usecase.Transaction, groupID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ConciliationID == groupID {
			e.ConciliationID = 0
			e.ConciliationDate = domain.Date{}
		}
	}
	return nil
}

func (m *MockEntryRepository) SumsByLedger(ctx context.Context, mnemo string) ([]*domain.LedgerBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sums := make(map[string]*domain.LedgerBalance)
	for _, e := range m.entries {
		if e.Ledger != mnemo {
			continue
		}
		bucket, ok := e.Status.Bucket()
		if !ok {
			continue
		}
		s, found := sums[e.Currency]
		if !found {
			s = &domain.LedgerBalance{Ledger: mnemo, Currency: e.Currency}
			sums[e.Currency] = s
		}
		s.Apply(bucket, e.Debit, e.Credit)
	}
	var result []*domain.LedgerBalance
	for _, s := range sums {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Currency < result[j].Currency })
	return result, nil
}

func (m *MockEntryRepository) RecomputeAggregates(ctx context.Context, tx usecase.Transaction) (int64, error) {
	if m.RecomputeAggregatesFunc != nil {
		return m.RecomputeAggregatesFunc(ctx, tx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

// Get returns the stored entry, nil when absent. Test helper.
func (m *MockEntryRepository) Get(id int64) *domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[id]
}

// MockAuditRepository is a mock of usecase.AuditRepository.
type MockAuditRepository struct {
	mu   sync.Mutex
	Logs []*domain.AuditLog
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, log)
	return nil
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return m.Create(ctx, log)
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AuditLog(nil), m.Logs...), nil
}

// MockTransaction is a mock of usecase.Transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	t.Committed = true
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// MockTransactionManager is a mock of usecase.TransactionManager.
type MockTransactionManager struct {
	mu           sync.Mutex
	Transactions []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.Transactions = append(m.Transactions, tx)
	return tx, nil
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []domain.Event

	PublishFunc func(ctx context.Context, event domain.Event) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.Event) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// MockIDGenerator yields deterministic IDs.
type MockIDGenerator struct {
	mu   sync.Mutex
	next int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return "test-id-" + string(rune('0'+m.next%10))
}

// MockRetrier executes the operation once, without retries.
type MockRetrier struct {
	Calls int
}

func NewMockRetrier() *MockRetrier {
	return &MockRetrier{}
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	m.Calls++
	return operation()
}
