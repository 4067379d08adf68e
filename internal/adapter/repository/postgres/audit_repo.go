package postgres

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Create inserts an audit record outside any transaction.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return createAudit(ctx, r.pool, log)
}

// CreateTx inserts an audit record within the mutation's transaction, so the
// trail and the mutation commit or roll back together.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return createAudit(ctx, txQueryer(tx), log)
}

func createAudit(ctx context.Context, q queryer, log *domain.AuditLog) error {
	var detail []byte
	if log.Detail != nil {
		var err error
		detail, err = json.Marshal(log.Detail)
		if err != nil {
			return err
		}
	}

	_, err := q.Exec(ctx, `
		INSERT INTO audit_logs (id, action, resource_type, resource_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		detail,
		log.CreatedAt,
	)

	return err
}

// List retrieves audit records, newest first.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, action, resource_type, resource_id, detail, created_at
		FROM audit_logs
		WHERE 1=1`
	args := []any{}

	if filter.Action != "" {
		args = append(args, filter.Action)
		query += ` AND action = $` + strconv.Itoa(len(args))
	}

	if filter.ResourceType != "" {
		args = append(args, filter.ResourceType)
		query += ` AND resource_type = $` + strconv.Itoa(len(args))
	}

	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			log    domain.AuditLog
			detail []byte
		)

		if err := rows.Scan(&log.ID, &log.Action, &log.ResourceType, &log.ResourceID, &detail, &log.CreatedAt); err != nil {
			return nil, err
		}

		if detail != nil {
			_ = json.Unmarshal(detail, &log.Detail)
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}
