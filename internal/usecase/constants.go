package usecase

import "time"

const (
	// DefaultPageSize bounds reference listings when the caller gives none.
	DefaultPageSize = 50

	// MaxPageSize caps reference listings.
	MaxPageSize = 1000

	// IdempotencyKeyTTL is how long idempotency keys are cached.
	IdempotencyKeyTTL = 24 * time.Hour
)
