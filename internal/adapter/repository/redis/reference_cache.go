package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

// Reference data (currencies, accounts) is read on every keystroke of the
// entry grid validator, so both get a read-through cache in front of
// postgres. A cache failure is never an error: the lookup falls through to
// the repository.

const (
	currencyCacheTTL = 10 * time.Minute
	accountCacheTTL  = 30 * time.Second
)

// CachedCurrencyRepository decorates a CurrencyRepository with a
// read-through cache. Currencies barely ever change, so the TTL is long.
type CachedCurrencyRepository struct {
	inner usecase.CurrencyRepository
	cache usecase.Cache
}

// NewCachedCurrencyRepository creates a new CachedCurrencyRepository.
func NewCachedCurrencyRepository(inner usecase.CurrencyRepository, cache usecase.Cache) *CachedCurrencyRepository {
	return &CachedCurrencyRepository{inner: inner, cache: cache}
}

// GetByCode retrieves a currency, preferring the cache.
func (r *CachedCurrencyRepository) GetByCode(ctx context.Context, code string) (*domain.Currency, error) {
	key := "currency:" + code

	if cached, err := r.cache.Get(ctx, key); err == nil {
		var currency domain.Currency
		if err := json.Unmarshal([]byte(cached), &currency); err == nil {
			return &currency, nil
		}
	}

	currency, err := r.inner.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(currency); err == nil {
		_ = r.cache.Set(ctx, key, string(encoded), currencyCacheTTL)
	}

	return currency, nil
}

// List always hits the repository; listings are not on the validation path.
func (r *CachedCurrencyRepository) List(ctx context.Context) ([]*domain.Currency, error) {
	return r.inner.List(ctx)
}

// CachedAccountRepository decorates an AccountRepository with a short-lived
// read-through cache on plain lookups. Locked reads and aggregate writes go
// straight to the repository, and a write drops the cached copy.
type CachedAccountRepository struct {
	inner usecase.AccountRepository
	cache usecase.Cache
}

// NewCachedAccountRepository creates a new CachedAccountRepository.
func NewCachedAccountRepository(inner usecase.AccountRepository, cache usecase.Cache) *CachedAccountRepository {
	return &CachedAccountRepository{inner: inner, cache: cache}
}

// GetByNumber retrieves an account, preferring the cache.
func (r *CachedAccountRepository) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	key := accountCacheKey(number)

	if cached, err := r.cache.Get(ctx, key); err == nil {
		var account domain.Account
		if err := json.Unmarshal([]byte(cached), &account); err == nil {
			return &account, nil
		}
	}

	account, err := r.inner.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(account); err == nil {
		_ = r.cache.Set(ctx, key, string(encoded), accountCacheTTL)
	}

	return account, nil
}

// GetByNumberForUpdate bypasses the cache: a locked read must see the
// committed row.
func (r *CachedAccountRepository) GetByNumberForUpdate(ctx context.Context, tx usecase.Transaction, number string) (*domain.Account, error) {
	return r.inner.GetByNumberForUpdate(ctx, tx, number)
}

// UpdateAggregates writes through and invalidates the cached copy.
func (r *CachedAccountRepository) UpdateAggregates(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if err := r.inner.UpdateAggregates(ctx, tx, account); err != nil {
		return err
	}

	_ = r.cache.Delete(ctx, accountCacheKey(account.Number))

	return nil
}

// List always hits the repository.
func (r *CachedAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	return r.inner.List(ctx, limit, offset)
}

func accountCacheKey(number string) string {
	return "account:" + number
}
