package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civigate/eservices-portal/internal/domain"
)

// ErrVersionConflict signals that a versioned write lost a race with a
// concurrent mutation of the same application.
var ErrVersionConflict = errors.New("application version conflict")

// ApplicationFilter captures listing parameters. ApplicantID is forced by
// the service layer for user-role callers.
type ApplicationFilter struct {
	ApplicantID   *string
	ServiceID     *string
	AssigneeID    *string
	Statuses      []domain.ApplicationStatus
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
	Limit         int
	Offset        int
}

// ApplicationRepository encapsulates ledger persistence. Update performs an
// optimistic-concurrency write: the row is only touched when the stored
// version matches expectedVersion, and the version advances with the write.
// Create and Update land the record together with its audit entry, or not at
// all; entry may be nil when a write carries no trail. The repository fills
// entry.ApplicationID.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application, entry *domain.AuditEntry) error
	Update(ctx context.Context, app *domain.Application, expectedVersion int64, entry *domain.AuditEntry) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error)
}

type applicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository instantiates repository.
func NewApplicationRepository(pool *pgxpool.Pool) ApplicationRepository {
	return &applicationRepository{pool: pool}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO applications (service_id, service_name, applicant_id, applicant_name, applicant_email, applicant_phone,
                                  status, form_data, documents, remarks, assignee_id, submitted_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
        RETURNING id, version`
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, query,
		app.ServiceID,
		app.ServiceName,
		app.Applicant.ID,
		app.Applicant.Name,
		app.Applicant.Email,
		app.Applicant.Phone,
		app.Status,
		app.FormData,
		app.Documents,
		app.Remarks,
		app.AssigneeID,
		app.SubmittedAt,
	).Scan(&app.ID, &app.Version); err != nil {
		return err
	}
	if entry != nil {
		entry.ApplicationID = app.ID
		if err := appendAuditEntry(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *applicationRepository) Update(ctx context.Context, app *domain.Application, expectedVersion int64, entry *domain.AuditEntry) error {
	const query = `
        UPDATE applications SET status=$1, form_data=$2, documents=$3, remarks=$4, assignee_id=$5,
            updated_at=$6, completed_at=$7, version=version+1
        WHERE id=$8 AND version=$9`
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, query,
		app.Status,
		app.FormData,
		app.Documents,
		app.Remarks,
		app.AssigneeID,
		app.UpdatedAt,
		app.CompletedAt,
		app.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// The caller fetched the record moments ago, so a missing row means
		// a concurrent writer advanced the version first.
		return ErrVersionConflict
	}
	if entry != nil {
		entry.ApplicationID = app.ID
		if err := appendAuditEntry(ctx, tx, entry); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	app.Version = expectedVersion + 1
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	const query = `
        SELECT id, service_id, service_name, applicant_id, applicant_name, applicant_email, applicant_phone,
               status, form_data, documents, remarks, assignee_id, submitted_at, updated_at, completed_at, version
        FROM applications WHERE id=$1`
	var app domain.Application
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&app.ID,
		&app.ServiceID,
		&app.ServiceName,
		&app.Applicant.ID,
		&app.Applicant.Name,
		&app.Applicant.Email,
		&app.Applicant.Phone,
		&app.Status,
		&app.FormData,
		&app.Documents,
		&app.Remarks,
		&app.AssigneeID,
		&app.SubmittedAt,
		&app.UpdatedAt,
		&app.CompletedAt,
		&app.Version,
	); err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error) {
	base := `SELECT id, service_id, service_name, applicant_id, applicant_name, applicant_email, applicant_phone,
                    status, form_data, documents, remarks, assignee_id, submitted_at, updated_at, completed_at, version
             FROM applications`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ApplicantID != nil {
		args = append(args, *filter.ApplicantID)
		clauses = append(clauses, fmt.Sprintf("applicant_id=$%d", len(args)))
	}
	if filter.ServiceID != nil {
		args = append(args, *filter.ServiceID)
		clauses = append(clauses, fmt.Sprintf("service_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SubmittedFrom != nil {
		args = append(args, *filter.SubmittedFrom)
		clauses = append(clauses, fmt.Sprintf("submitted_at >= $%d", len(args)))
	}
	if filter.SubmittedTo != nil {
		args = append(args, *filter.SubmittedTo)
		clauses = append(clauses, fmt.Sprintf("submitted_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanApplications(rows)
}

func scanApplications(rows pgx.Rows) ([]domain.Application, error) {
	var result []domain.Application
	for rows.Next() {
		var app domain.Application
		if err := rows.Scan(
			&app.ID,
			&app.ServiceID,
			&app.ServiceName,
			&app.Applicant.ID,
			&app.Applicant.Name,
			&app.Applicant.Email,
			&app.Applicant.Phone,
			&app.Status,
			&app.FormData,
			&app.Documents,
			&app.Remarks,
			&app.AssigneeID,
			&app.SubmittedAt,
			&app.UpdatedAt,
			&app.CompletedAt,
			&app.Version,
		); err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, rows.Err()
}
