package domain

import "time"

// Audit actions
const (
	AuditActionEntrySaved   = "entry.saved"
	AuditActionEntryDeleted = "entry.deleted"
	AuditActionRecompute    = "balances.recomputed"
)

// AuditLog records a mutation performed through the engine, for the
// accounting trail.
type AuditLog struct {
	ID           string
	Action       string
	ResourceType string
	ResourceID   string
	Detail       map[string]any
	CreatedAt    time.Time
}

// AuditFilter narrows audit log listings.
type AuditFilter struct {
	Action       string
	ResourceType string
	Since        time.Time
	Limit        int
	Offset       int
}
