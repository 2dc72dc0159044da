package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civigate/eservices-portal/internal/domain"
)

// AuditRepository stores the append-only trail of workflow actions. There is
// deliberately no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByApplication(ctx context.Context, applicationID string) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	return appendAuditEntry(ctx, r.pool, entry)
}

// auditWriter is satisfied by the pool and by an open transaction, so the
// trail insert can ride inside the application write that produced it.
type auditWriter interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func appendAuditEntry(ctx context.Context, db auditWriter, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO application_audit (application_id, actor_id, actor_role, from_status, to_status, remark)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return db.QueryRow(ctx, query,
		entry.ApplicationID,
		entry.ActorID,
		entry.ActorRole,
		entry.FromStatus,
		entry.ToStatus,
		entry.Remark,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListByApplication(ctx context.Context, applicationID string) ([]domain.AuditEntry, error) {
	const query = `
        SELECT id, application_id, actor_id, actor_role, from_status, to_status, remark, created_at
        FROM application_audit WHERE application_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ApplicationID,
			&entry.ActorID,
			&entry.ActorRole,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.Remark,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
