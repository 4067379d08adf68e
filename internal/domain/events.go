package domain

// Event types emitted after each successful mutation. Delivery and ordering
// are the bus's responsibility; emission is fire-and-forget.
const (
	EventTypeEntryCreated        = "entry.created"
	EventTypeEntryUpdated        = "entry.updated"
	EventTypeEntryDeleted        = "entry.deleted"
	EventTypeBalancesRecomputed  = "balances.recomputed"
	EventTypeSettlementDissolved = "settlement.dissolved"
	EventTypeGroupDissolved      = "conciliation.dissolved"
)

// Event is a typed notification delivered through an injected publisher.
type Event interface {
	EventType() string
}

// EntryCreatedEvent is emitted after a new entry is persisted and its
// aggregate contributions applied.
type EntryCreatedEvent struct {
	EntryID  int64  `json:"entry_id"`
	Ledger   string `json:"ledger"`
	Account  string `json:"account"`
	Currency string `json:"currency"`
}

func (EntryCreatedEvent) EventType() string { return EventTypeEntryCreated }

// EntryUpdatedEvent is emitted after an existing entry is updated. It
// carries the previous identity so cross-window caches can drop stale rows.
type EntryUpdatedEvent struct {
	EntryID    int64  `json:"entry_id"`
	PreviousID int64  `json:"previous_id"`
	Ledger     string `json:"ledger"`
	Account    string `json:"account"`
	Currency   string `json:"currency"`
}

func (EntryUpdatedEvent) EventType() string { return EventTypeEntryUpdated }

// EntryDeletedEvent is emitted after a cascade delete completed.
type EntryDeletedEvent struct {
	EntryID  int64  `json:"entry_id"`
	Ledger   string `json:"ledger"`
	Account  string `json:"account"`
	Currency string `json:"currency"`
}

func (EntryDeletedEvent) EventType() string { return EventTypeEntryDeleted }

// SettlementDissolvedEvent is emitted when deleting a member cleared the
// settlement number on every member of the group.
type SettlementDissolvedEvent struct {
	SettlementNumber int64 `json:"settlement_number"`
	Members          int   `json:"members"`
}

func (SettlementDissolvedEvent) EventType() string { return EventTypeSettlementDissolved }

// ConciliationDissolvedEvent is emitted when deleting a member dissolved a
// conciliation group.
type ConciliationDissolvedEvent struct {
	GroupID int64 `json:"group_id"`
	Members int   `json:"members"`
}

func (ConciliationDissolvedEvent) EventType() string { return EventTypeGroupDissolved }

// BalancesRecomputedEvent is emitted after a full aggregate recompute from
// the entry table.
type BalancesRecomputedEvent struct {
	Entries int64 `json:"entries"`
}

func (BalancesRecomputedEvent) EventType() string { return EventTypeBalancesRecomputed }
