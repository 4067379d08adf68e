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

// CascadeUseCase enforces the all-or-nothing invariant of settlement and
// conciliation groups when an entry is deleted: deleting one member clears
// the settlement number on every member and dissolves the conciliation
// group entirely, before the entry itself is removed.
type CascadeUseCase struct {
	txManager TransactionManager
	entryRepo EntryRepository
	balanceUC *BalanceUseCase
	auditRepo AuditRepository
	publisher Publisher
	idGen     IDGenerator
	retrier   Retrier
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewCascadeUseCase creates a new CascadeUseCase.
func NewCascadeUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	balanceUC *BalanceUseCase,
	auditRepo AuditRepository,
	publisher Publisher,
	idGen IDGenerator,
	retrier Retrier,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *CascadeUseCase {
	return &CascadeUseCase{
		txManager: txManager,
		entryRepo: entryRepo,
		balanceUC: balanceUC,
		auditRepo: auditRepo,
		publisher: publisher,
		idGen:     idGen,
		retrier:   retrier,
		logger:    logger,
		metrics:   metrics,
	}
}

// CascadeDelete deletes an entry with its group cascades, in one
// transaction:
//
//  1. clear the settlement number on every member of its settlement group;
//  2. dissolve its conciliation group entirely;
//  3. withdraw the entry's contribution from the balance aggregates and
//     delete the row.
//
// Any member discovered mid-cascade that is not Rough aborts the whole
// cascade: non-Rough entries cannot have their membership rewritten.
func (uc *CascadeUseCase) CascadeDelete(ctx context.Context, id int64) error {
	var (
		deleted           *domain.Entry
		settlementMembers int
		groupMembers      int
	)

	op := func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		entry, err := uc.entryRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if !entry.Status.Editable() {
			return fmt.Errorf("%w: entry %d is %s", domain.ErrNotEditable, id, entry.Status)
		}

		if entry.Settled() {
			settlementMembers, err = uc.dissolveSettlement(ctx, tx, entry.SettlementNumber)
			if err != nil {
				return err
			}
		}

		if entry.Conciliated() {
			groupMembers, err = uc.dissolveConciliation(ctx, tx, entry.ConciliationID)
			if err != nil {
				return err
			}
		}

		if err := uc.balanceUC.Withdraw(ctx, tx, entry); err != nil {
			return err
		}

		if err := uc.entryRepo.Delete(ctx, tx, id); err != nil {
			return err
		}

		if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Action:       domain.AuditActionEntryDeleted,
			ResourceType: "entry",
			ResourceID:   strconv.FormatInt(id, 10),
			Detail: map[string]any{
				"ledger":  entry.Ledger,
				"account": entry.Account,
			},
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		deleted = entry

		return nil
	}

	if err := uc.retrier.Retry(ctx, op); err != nil {
		return err
	}

	uc.publish(ctx, domain.EntryDeletedEvent{
		EntryID:  deleted.ID,
		Ledger:   deleted.Ledger,
		Account:  deleted.Account,
		Currency: deleted.Currency,
	})

	if deleted.Settled() {
		uc.publish(ctx, domain.SettlementDissolvedEvent{
			SettlementNumber: deleted.SettlementNumber,
			Members:          settlementMembers,
		})
	}

	if deleted.Conciliated() {
		uc.publish(ctx, domain.ConciliationDissolvedEvent{
			GroupID: deleted.ConciliationID,
			Members: groupMembers,
		})
	}

	if uc.metrics != nil {
		uc.metrics.EntriesDeleted.Inc()
		uc.metrics.AuditLogsCreated.WithLabelValues(domain.AuditActionEntryDeleted).Inc()
		if deleted.Settled() {
			uc.metrics.SettlementsDissolved.Inc()
		}
		if deleted.Conciliated() {
			uc.metrics.ConciliationsDissolved.Inc()
		}
	}

	return nil
}

// dissolveSettlement clears the settlement number on every member of the
// group, restoring the all-members-or-none invariant by clearing all.
func (uc *CascadeUseCase) dissolveSettlement(ctx context.Context, tx Transaction, number int64) (int, error) {
	members, err := uc.entryRepo.ListBySettlement(ctx, tx, number)
	if err != nil {
		return 0, err
	}

	for _, m := range members {
		if !m.Status.Editable() {
			return 0, fmt.Errorf("%w: settlement group %d member %d is %s",
				domain.ErrNotEditable, number, m.ID, m.Status)
		}
	}

	if err := uc.entryRepo.ClearSettlement(ctx, tx, number); err != nil {
		return 0, err
	}

	return len(members), nil
}

// dissolveConciliation drops every member of the conciliation group in one
// step; their reconciliation value date becomes empty together.
func (uc *CascadeUseCase) dissolveConciliation(ctx context.Context, tx Transaction, groupID int64) (int, error) {
	members, err := uc.entryRepo.ListByConciliation(ctx, tx, groupID)
	if err != nil {
		return 0, err
	}

	for _, m := range members {
		if !m.Status.Editable() {
			return 0, fmt.Errorf("%w: conciliation group %d member %d is %s",
				domain.ErrNotEditable, groupID, m.ID, m.Status)
		}
	}

	if err := uc.entryRepo.ClearConciliation(ctx, tx, groupID); err != nil {
		return 0, err
	}

	return len(members), nil
}

func (uc *CascadeUseCase) publish(ctx context.Context, event domain.Event) {
	if uc.publisher == nil {
		return
	}

	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn().Err(err).Str("event", event.EventType()).Msg("event emission failed")
	}
}
