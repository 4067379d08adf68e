package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/infrastructure/metrics"
)

// ValidationError carries a validation verdict through an error return, so
// the transport layer can distinguish a rejected row from an infrastructure
// failure.
type ValidationError struct {
	Outcome ValidationOutcome
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Outcome.Field, e.Outcome.Message)
}

func (e *ValidationError) Unwrap() error { return e.Outcome.Err }

// EntryUseCase orchestrates the write path of the grid editor: validate the
// draft, persist it, remediate the balance aggregates, all inside one
// transaction, then emit the notification.
type EntryUseCase struct {
	txManager    TransactionManager
	entryRepo    EntryRepository
	ledgerRepo   LedgerRepository
	dossierRepo  DossierRepository
	validationUC *ValidationUseCase
	balanceUC    *BalanceUseCase
	auditRepo    AuditRepository
	publisher    Publisher
	idGen        IDGenerator
	retrier      Retrier
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	ledgerRepo LedgerRepository,
	dossierRepo DossierRepository,
	validationUC *ValidationUseCase,
	balanceUC *BalanceUseCase,
	auditRepo AuditRepository,
	publisher Publisher,
	idGen IDGenerator,
	retrier Retrier,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *EntryUseCase {
	return &EntryUseCase{
		txManager:    txManager,
		entryRepo:    entryRepo,
		ledgerRepo:   ledgerRepo,
		dossierRepo:  dossierRepo,
		validationUC: validationUC,
		balanceUC:    balanceUC,
		auditRepo:    auditRepo,
		publisher:    publisher,
		idGen:        idGen,
		retrier:      retrier,
		logger:       logger,
		metrics:      metrics,
	}
}

// Validate runs the field validator against a draft without persisting
// anything. The draft may come back mutated by defaulting, for display.
func (uc *EntryUseCase) Validate(ctx context.Context, draft *EntryDraft) (ValidationOutcome, *domain.Entry, error) {
	dossier, err := uc.dossierRepo.Get(ctx)
	if err != nil {
		return ValidationOutcome{}, nil, err
	}

	return uc.validationUC.Validate(ctx, draft, dossier)
}

// Save validates and persists a draft entry, remediating the balance
// aggregates in the same transaction. draft.ID == 0 inserts; otherwise the
// prior persisted state is the remediation baseline. Returns a
// *ValidationError when the row is rejected.
func (uc *EntryUseCase) Save(ctx context.Context, draft *EntryDraft) (*domain.Entry, error) {
	start := time.Now()

	dossier, err := uc.dossierRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	outcome, entry, err := uc.validationUC.Validate(ctx, draft, dossier)
	if err != nil {
		return nil, err
	}

	if outcome.Severity == SeverityError {
		if uc.metrics != nil {
			uc.metrics.EntriesRejected.WithLabelValues(outcome.Field.String()).Inc()
		}
		return nil, &ValidationError{Outcome: outcome}
	}

	var old *domain.Entry
	if draft.ID != 0 {
		old, err = uc.entryRepo.GetByID(ctx, draft.ID)
		if err != nil {
			return nil, err
		}

		if !old.Status.Editable() {
			return nil, fmt.Errorf("%w: entry %d is %s", domain.ErrNotEditable, old.ID, old.Status)
		}
	}

	if err := uc.classify(ctx, entry, old, dossier); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.UpdatedAt = now
	if old == nil {
		entry.CreatedAt = now
	} else {
		// group membership and creation time survive a field edit
		entry.ID = old.ID
		entry.SettlementNumber = old.SettlementNumber
		entry.ConciliationID = old.ConciliationID
		entry.ConciliationDate = old.ConciliationDate
		entry.CreatedAt = old.CreatedAt
	}

	op := func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if old == nil {
			id, err := uc.entryRepo.Insert(ctx, tx, entry)
			if err != nil {
				return err
			}
			entry.ID = id
		} else if err := uc.entryRepo.Update(ctx, tx, entry); err != nil {
			return err
		}

		if err := uc.balanceUC.Remediate(ctx, tx, old, entry); err != nil {
			return err
		}

		if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Action:       domain.AuditActionEntrySaved,
			ResourceType: "entry",
			ResourceID:   strconv.FormatInt(entry.ID, 10),
			Detail: map[string]any{
				"ledger":   entry.Ledger,
				"account":  entry.Account,
				"currency": entry.Currency,
				"status":   entry.Status.String(),
			},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		return tx.Commit(ctx)
	}

	if err := uc.retrier.Retry(ctx, op); err != nil {
		return nil, err
	}

	uc.emitSaved(ctx, old, entry)

	if uc.metrics != nil {
		uc.metrics.EntriesSaved.WithLabelValues(entry.Ledger, entry.Status.String()).Inc()
		uc.metrics.SaveDuration.Observe(time.Since(start).Seconds())
		uc.metrics.AuditLogsCreated.WithLabelValues(domain.AuditActionEntrySaved).Inc()
	}

	return entry, nil
}

// classify derives the status of the candidate entry. An update keeps the
// prior status: status transitions are a batch closing operation, not a
// side effect of a field edit. A fresh entry must land in a live bucket.
func (uc *EntryUseCase) classify(ctx context.Context, entry, old *domain.Entry, dossier *domain.Dossier) error {
	if old != nil {
		entry.Status = old.Status
		return nil
	}

	ledger, err := uc.ledgerRepo.GetByMnemo(ctx, entry.Ledger)
	if err != nil {
		return err
	}

	entry.Status = domain.Classify(entry.EffectDate, dossier.ExerciseBegin, ledger.LastClosing, domain.Today(), false)

	if _, ok := entry.Status.Bucket(); !ok {
		return fmt.Errorf("%w: new entry would be %s", domain.ErrNotEditable, entry.Status)
	}

	return nil
}

func (uc *EntryUseCase) emitSaved(ctx context.Context, old, entry *domain.Entry) {
	if uc.publisher == nil {
		return
	}

	var event domain.Event
	if old == nil {
		event = domain.EntryCreatedEvent{
			EntryID:  entry.ID,
			Ledger:   entry.Ledger,
			Account:  entry.Account,
			Currency: entry.Currency,
		}
	} else {
		event = domain.EntryUpdatedEvent{
			EntryID:    entry.ID,
			PreviousID: old.ID,
			Ledger:     entry.Ledger,
			Account:    entry.Account,
			Currency:   entry.Currency,
		}
	}

	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn().Err(err).Str("event", event.EventType()).Msg("event emission failed")
	}
}

// GetEntry retrieves a persisted entry.
func (uc *EntryUseCase) GetEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	return uc.entryRepo.GetByID(ctx, id)
}

// ListEntriesInput represents input for listing entries of a ledger.
type ListEntriesInput struct {
	Ledger string
	Limit  int
	Offset int
}

// ListEntries lists the entries of a ledger, newest first.
func (uc *EntryUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.Entry, error) {
	if input.Limit <= 0 {
		input.Limit = DefaultPageSize
	}
	if input.Limit > MaxPageSize {
		input.Limit = MaxPageSize
	}

	return uc.entryRepo.ListByLedger(ctx, input.Ledger, input.Limit, input.Offset)
}
