package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

const entryColumns = `id, operation_date, effect_date, reference, label,
       ledger, account, debit, credit, currency,
       settlement_number, conciliation_id, conciliation_date, status,
       created_at, updated_at`

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Insert persists a new entry and returns its assigned identity.
func (r *EntryRepository) Insert(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) (int64, error) {
	var id int64

	err := txQueryer(tx).QueryRow(ctx, `
		INSERT INTO entries (
			operation_date, effect_date, reference, label,
			ledger, account, debit, credit, currency,
			settlement_number, conciliation_id, conciliation_date, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		dateToPgDate(entry.OperationDate),
		dateToPgDate(entry.EffectDate),
		entry.Reference,
		entry.Label,
		entry.Ledger,
		entry.Account,
		decimalToNumeric(entry.Debit),
		decimalToNumeric(entry.Credit),
		entry.Currency,
		nullableID(entry.SettlementNumber),
		nullableID(entry.ConciliationID),
		dateToPgDate(entry.ConciliationDate),
		string(entry.Status),
		entry.CreatedAt,
		entry.UpdatedAt,
	).Scan(&id)

	return id, err
}

// Update rewrites a persisted entry in place.
func (r *EntryRepository) Update(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	tag, err := txQueryer(tx).Exec(ctx, `
		UPDATE entries
		SET operation_date = $2, effect_date = $3, reference = $4, label = $5,
		    ledger = $6, account = $7, debit = $8, credit = $9, currency = $10,
		    settlement_number = $11, conciliation_id = $12, conciliation_date = $13,
		    status = $14, updated_at = $15
		WHERE id = $1`,
		entry.ID,
		dateToPgDate(entry.OperationDate),
		dateToPgDate(entry.EffectDate),
		entry.Reference,
		entry.Label,
		entry.Ledger,
		entry.Account,
		decimalToNumeric(entry.Debit),
		decimalToNumeric(entry.Credit),
		entry.Currency,
		nullableID(entry.SettlementNumber),
		nullableID(entry.ConciliationID),
		dateToPgDate(entry.ConciliationDate),
		string(entry.Status),
		entry.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// Delete removes an entry.
func (r *EntryRepository) Delete(ctx context.Context, tx usecase.Transaction, id int64) error {
	tag, err := txQueryer(tx).Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// GetByID retrieves an entry.
func (r *EntryRepository) GetByID(ctx context.Context, id int64) (*domain.Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	return entry, nil
}

// ListByLedger lists the entries of a ledger, newest effect date first.
func (r *EntryRepository) ListByLedger(ctx context.Context, mnemo string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE ledger = $1
		ORDER BY effect_date DESC, id DESC
		LIMIT $2 OFFSET $3`,
		mnemo, int32(limit), int32(offset),
	)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

// ListBySettlement locks and lists the members of a settlement group.
func (r *EntryRepository) ListBySettlement(ctx context.Context, tx usecase.Transaction, number int64) ([]*domain.Entry, error) {
	rows, err := txQueryer(tx).Query(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE settlement_number = $1
		ORDER BY id
		FOR UPDATE`,
		number,
	)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

// ListByConciliation locks and lists the members of a conciliation group.
func (r *EntryRepository) ListByConciliation(ctx context.Context, tx usecase.Transaction, groupID int64) ([]*domain.Entry, error) {
	rows, err := txQueryer(tx).Query(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE conciliation_id = $1
		ORDER BY id
		FOR UPDATE`,
		groupID,
	)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

// ClearSettlement removes every member of a settlement group from it.
func (r *EntryRepository) ClearSettlement(ctx context.Context, tx usecase.Transaction, number int64) error {
	_, err := txQueryer(tx).Exec(ctx, `
		UPDATE entries
		SET settlement_number = NULL, updated_at = now()
		WHERE settlement_number = $1`,
		number,
	)

	return err
}

// ClearConciliation dissolves a conciliation group, clearing the value date
// on every member.
func (r *EntryRepository) ClearConciliation(ctx context.Context, tx usecase.Transaction, groupID int64) error {
	_, err := txQueryer(tx).Exec(ctx, `
		UPDATE entries
		SET conciliation_id = NULL, conciliation_date = NULL, updated_at = now()
		WHERE conciliation_id = $1`,
		groupID,
	)

	return err
}

// SumsByLedger recomputes the per-currency bucket sums of a ledger straight
// from the entry table.
func (r *EntryRepository) SumsByLedger(ctx context.Context, mnemo string) ([]*domain.LedgerBalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT currency,
		       COALESCE(SUM(debit)  FILTER (WHERE status = 'R'), 0),
		       COALESCE(SUM(credit) FILTER (WHERE status = 'R'), 0),
		       COALESCE(SUM(debit)  FILTER (WHERE status = 'F'), 0),
		       COALESCE(SUM(credit) FILTER (WHERE status = 'F'), 0)
		FROM entries
		WHERE ledger = $1 AND status IN ('R', 'F')
		GROUP BY currency
		ORDER BY currency`,
		mnemo,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sums []*domain.LedgerBalance
	for rows.Next() {
		balance := &domain.LedgerBalance{Ledger: mnemo}

		var rd, rc, fd, fc pgtype.Numeric
		if err := rows.Scan(&balance.Currency, &rd, &rc, &fd, &fc); err != nil {
			return nil, err
		}

		balance.RoughDebit = numericToDecimal(rd)
		balance.RoughCredit = numericToDecimal(rc)
		balance.FuturDebit = numericToDecimal(fd)
		balance.FuturCredit = numericToDecimal(fc)
		sums = append(sums, balance)
	}

	return sums, rows.Err()
}

// RecomputeAggregates rebuilds every account and ledger aggregate from the
// entry table, replacing whatever the incremental remediation had
// accumulated. Returns the number of live entries scanned.
func (r *EntryRepository) RecomputeAggregates(ctx context.Context, tx usecase.Transaction) (int64, error) {
	q := txQueryer(tx)

	statements := []string{
		`UPDATE accounts
		 SET rough_debit = 0, rough_credit = 0, futur_debit = 0, futur_credit = 0,
		     updated_at = now()`,

		`UPDATE accounts a
		 SET rough_debit = s.rd, rough_credit = s.rc,
		     futur_debit = s.fd, futur_credit = s.fc,
		     updated_at = now()
		 FROM (
			SELECT account,
			       COALESCE(SUM(debit)  FILTER (WHERE status = 'R'), 0) AS rd,
			       COALESCE(SUM(credit) FILTER (WHERE status = 'R'), 0) AS rc,
			       COALESCE(SUM(debit)  FILTER (WHERE status = 'F'), 0) AS fd,
			       COALESCE(SUM(credit) FILTER (WHERE status = 'F'), 0) AS fc
			FROM entries
			WHERE status IN ('R', 'F')
			GROUP BY account
		 ) s
		 WHERE a.number = s.account`,

		`DELETE FROM ledger_balances`,

		`INSERT INTO ledger_balances (ledger, currency, rough_debit, rough_credit, futur_debit, futur_credit)
		 SELECT ledger, currency,
		        COALESCE(SUM(debit)  FILTER (WHERE status = 'R'), 0),
		        COALESCE(SUM(credit) FILTER (WHERE status = 'R'), 0),
		        COALESCE(SUM(debit)  FILTER (WHERE status = 'F'), 0),
		        COALESCE(SUM(credit) FILTER (WHERE status = 'F'), 0)
		 FROM entries
		 WHERE status IN ('R', 'F')
		 GROUP BY ledger, currency`,
	}

	for _, stmt := range statements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return 0, err
		}
	}

	var scanned int64
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM entries WHERE status IN ('R', 'F')`).Scan(&scanned)

	return scanned, err
}

func collectEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		entry                         domain.Entry
		operation, effect, reconciled pgtype.Date
		debit, credit                 pgtype.Numeric
		settlement, conciliation      pgtype.Int8
		status                        string
		createdAt, updatedAt          pgtype.Timestamptz
	)

	if err := row.Scan(
		&entry.ID,
		&operation, &effect,
		&entry.Reference,
		&entry.Label,
		&entry.Ledger,
		&entry.Account,
		&debit, &credit,
		&entry.Currency,
		&settlement, &conciliation, &reconciled,
		&status,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	entry.OperationDate = pgDateToDate(operation)
	entry.EffectDate = pgDateToDate(effect)
	entry.Debit = numericToDecimal(debit)
	entry.Credit = numericToDecimal(credit)
	entry.SettlementNumber = settlement.Int64
	entry.ConciliationID = conciliation.Int64
	entry.ConciliationDate = pgDateToDate(reconciled)
	entry.Status = domain.Status(status)
	entry.CreatedAt = createdAt.Time
	entry.UpdatedAt = updatedAt.Time

	return &entry, nil
}

// nullableID maps the zero "no group" identity to SQL NULL.
func nullableID(n int64) pgtype.Int8 {
	return pgtype.Int8{Int64: n, Valid: n != 0}
}
