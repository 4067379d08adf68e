package domain

// Status is the mutability class of an entry. It is derived from the entry's
// dates and deletion marker, never entered by the user.
type Status string

const (
	// StatusRough is the only status in which an entry may be created,
	// edited or deleted.
	StatusRough Status = "R"
	// StatusValidated marks an entry whose effect date falls in an
	// already-closed intermediate period of its ledger.
	StatusValidated Status = "V"
	// StatusPast marks an entry dated before the current exercise.
	StatusPast Status = "P"
	// StatusFuture marks a forward-dated entry.
	StatusFuture Status = "F"
	// StatusDeleted marks a logically deleted entry.
	StatusDeleted Status = "D"
)

// Editable reports whether the engine is allowed to mutate an entry in this
// status.
func (s Status) Editable() bool { return s == StatusRough }

// Valid reports whether s is one of the known status codes.
func (s Status) Valid() bool {
	switch s {
	case StatusRough, StatusValidated, StatusPast, StatusFuture, StatusDeleted:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusRough:
		return "rough"
	case StatusValidated:
		return "validated"
	case StatusPast:
		return "past"
	case StatusFuture:
		return "future"
	case StatusDeleted:
		return "deleted"
	}
	return "unknown"
}

// Bucket is one of the two live aggregate classes maintained incrementally
// on accounts and ledgers.
type Bucket int

const (
	BucketRough Bucket = iota
	BucketFuture
)

func (b Bucket) String() string {
	if b == BucketFuture {
		return "futur"
	}
	return "rough"
}

// Bucket maps a status to its aggregate bucket. Only Rough and Future
// entries have maintained aggregates.
func (s Status) Bucket() (Bucket, bool) {
	switch s {
	case StatusRough:
		return BucketRough, true
	case StatusFuture:
		return BucketFuture, true
	}
	return 0, false
}

// Classify derives the status of an entry from its effect date, the current
// exercise bounds, the ledger's last closing date, the working date and the
// deletion marker. Pure function; checks are ordered, the first match wins.
func Classify(effect Date, exerciseBegin Date, ledgerLastClosing Date, working Date, deleted bool) Status {
	if deleted {
		return StatusDeleted
	}
	if !ledgerLastClosing.IsZero() && !effect.After(ledgerLastClosing) && !effect.Before(exerciseBegin) {
		return StatusValidated
	}
	if !exerciseBegin.IsZero() && effect.Before(exerciseBegin) {
		return StatusPast
	}
	if !working.IsZero() && effect.After(working) {
		return StatusFuture
	}
	return StatusRough
}
