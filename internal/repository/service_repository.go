package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civigate/eservices-portal/internal/domain"
)

// ServiceFilter captures catalog listing parameters.
type ServiceFilter struct {
	Category   *domain.ServiceCategory
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ServiceRepository encapsulates catalog persistence.
type ServiceRepository interface {
	Create(ctx context.Context, svc *domain.Service) error
	Update(ctx context.Context, svc *domain.Service) error
	GetByID(ctx context.Context, id string) (*domain.Service, error)
	List(ctx context.Context, filter ServiceFilter) ([]domain.Service, error)
}

type serviceRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRepository instantiates repository.
func NewServiceRepository(pool *pgxpool.Pool) ServiceRepository {
	return &serviceRepository{pool: pool}
}

func (r *serviceRepository) Create(ctx context.Context, svc *domain.Service) error {
	const query = `
        INSERT INTO services (title, description, category, required_documents, processing_time, fee, is_active, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		svc.Title,
		svc.Description,
		svc.Category,
		svc.RequiredDocuments,
		svc.ProcessingTime,
		svc.Fee,
		svc.IsActive,
		svc.CreatedBy,
	).Scan(&svc.ID, &svc.CreatedAt, &svc.UpdatedAt)
}

func (r *serviceRepository) Update(ctx context.Context, svc *domain.Service) error {
	const query = `
        UPDATE services SET title=$1, description=$2, category=$3, required_documents=$4,
            processing_time=$5, fee=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		svc.Title,
		svc.Description,
		svc.Category,
		svc.RequiredDocuments,
		svc.ProcessingTime,
		svc.Fee,
		svc.IsActive,
		svc.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *serviceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	const query = `
        SELECT id, title, description, category, required_documents, processing_time, fee, is_active, created_by, created_at, updated_at
        FROM services WHERE id=$1`
	var svc domain.Service
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&svc.ID,
		&svc.Title,
		&svc.Description,
		&svc.Category,
		&svc.RequiredDocuments,
		&svc.ProcessingTime,
		&svc.Fee,
		&svc.IsActive,
		&svc.CreatedBy,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *serviceRepository) List(ctx context.Context, filter ServiceFilter) ([]domain.Service, error) {
	base := `SELECT id, title, description, category, required_documents, processing_time, fee, is_active, created_by, created_at, updated_at
             FROM services`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active=TRUE")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY title ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Service
	for rows.Next() {
		var svc domain.Service
		if err := rows.Scan(
			&svc.ID,
			&svc.Title,
			&svc.Description,
			&svc.Category,
			&svc.RequiredDocuments,
			&svc.ProcessingTime,
			&svc.Fee,
			&svc.IsActive,
			&svc.CreatedBy,
			&svc.CreatedAt,
			&svc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, svc)
	}
	return result, rows.Err()
}
