package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civigate/eservices-portal/internal/domain"
)

// In-memory implementations of the store interfaces. They back the service
// in DSN-less development mode and the test suites. Not-found is reported as
// pgx.ErrNoRows so callers branch identically against either backend.

// MemoryUserRepository is a mutex-guarded UserRepository.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemoryUserRepository builds an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// MemoryServiceRepository is a mutex-guarded ServiceRepository.
type MemoryServiceRepository struct {
	mu       sync.RWMutex
	services map[string]domain.Service
}

// NewMemoryServiceRepository builds an empty store.
func NewMemoryServiceRepository() *MemoryServiceRepository {
	return &MemoryServiceRepository{services: make(map[string]domain.Service)}
}

func (r *MemoryServiceRepository) Create(_ context.Context, svc *domain.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	now := time.Now()
	svc.CreatedAt = now
	svc.UpdatedAt = now
	r.services[svc.ID] = cloneService(*svc)
	return nil
}

func (r *MemoryServiceRepository) Update(_ context.Context, svc *domain.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[svc.ID]; !ok {
		return pgx.ErrNoRows
	}
	svc.UpdatedAt = time.Now()
	r.services[svc.ID] = cloneService(*svc)
	return nil
}

func (r *MemoryServiceRepository) GetByID(_ context.Context, id string) (*domain.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneService(svc)
	return &out, nil
}

func (r *MemoryServiceRepository) List(_ context.Context, filter ServiceFilter) ([]domain.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Service
	for _, svc := range r.services {
		if filter.Category != nil && svc.Category != *filter.Category {
			continue
		}
		if filter.ActiveOnly && !svc.IsActive {
			continue
		}
		result = append(result, cloneService(svc))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return paginate(result, filter.Limit, filter.Offset, 50), nil
}

// MemoryApplicationRepository is a mutex-guarded ApplicationRepository with
// compare-and-swap versioning, mirroring the Postgres conditional update.
// Writes honor the transactional contract: the record mutation is undone
// when the audit append fails, so both land or neither does.
type MemoryApplicationRepository struct {
	mu    sync.RWMutex
	apps  map[string]domain.Application
	audit AuditRepository
}

// NewMemoryApplicationRepository builds an empty store writing its trail
// entries through audit.
func NewMemoryApplicationRepository(audit AuditRepository) *MemoryApplicationRepository {
	return &MemoryApplicationRepository{apps: make(map[string]domain.Application), audit: audit}
}

func (r *MemoryApplicationRepository) Create(ctx context.Context, app *domain.Application, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.Version = 1
	r.apps[app.ID] = cloneApplication(*app)
	if entry != nil {
		entry.ApplicationID = app.ID
		if err := r.audit.Append(ctx, entry); err != nil {
			delete(r.apps, app.ID)
			return err
		}
	}
	return nil
}

func (r *MemoryApplicationRepository) Update(ctx context.Context, app *domain.Application, expectedVersion int64, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.apps[app.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	next := cloneApplication(*app)
	next.Version = expectedVersion + 1
	r.apps[app.ID] = next
	if entry != nil {
		entry.ApplicationID = app.ID
		if err := r.audit.Append(ctx, entry); err != nil {
			r.apps[app.ID] = stored
			return err
		}
	}
	app.Version = next.Version
	return nil
}

func (r *MemoryApplicationRepository) GetByID(_ context.Context, id string) (*domain.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneApplication(app)
	return &out, nil
}

func (r *MemoryApplicationRepository) List(_ context.Context, filter ApplicationFilter) ([]domain.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Application
	for _, app := range r.apps {
		if filter.ApplicantID != nil && app.Applicant.ID != *filter.ApplicantID {
			continue
		}
		if filter.ServiceID != nil && app.ServiceID != *filter.ServiceID {
			continue
		}
		if filter.AssigneeID != nil && (app.AssigneeID == nil || *app.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, app.Status) {
			continue
		}
		if filter.SubmittedFrom != nil && app.SubmittedAt.Before(*filter.SubmittedFrom) {
			continue
		}
		if filter.SubmittedTo != nil && app.SubmittedAt.After(*filter.SubmittedTo) {
			continue
		}
		result = append(result, cloneApplication(app))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return paginate(result, filter.Limit, filter.Offset, 20), nil
}

// MemoryAuditRepository is an append-only in-memory trail.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

// NewMemoryAuditRepository builds an empty store.
func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Append(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryAuditRepository) ListByApplication(_ context.Context, applicationID string) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.AuditEntry
	for _, entry := range r.entries {
		if entry.ApplicationID == applicationID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func cloneService(svc domain.Service) domain.Service {
	svc.RequiredDocuments = append([]string(nil), svc.RequiredDocuments...)
	return svc
}

func cloneApplication(app domain.Application) domain.Application {
	app.Documents = append([]domain.Document(nil), app.Documents...)
	if app.FormData != nil {
		formData := make(map[string]string, len(app.FormData))
		for k, v := range app.FormData {
			formData[k] = v
		}
		app.FormData = formData
	}
	app.Remarks = clonePtr(app.Remarks)
	app.AssigneeID = clonePtr(app.AssigneeID)
	app.Applicant.Phone = clonePtr(app.Applicant.Phone)
	if app.CompletedAt != nil {
		completed := *app.CompletedAt
		app.CompletedAt = &completed
	}
	return app
}

func clonePtr(val *string) *string {
	if val == nil {
		return nil
	}
	out := *val
	return &out
}

func containsStatus(statuses []domain.ApplicationStatus, status domain.ApplicationStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset, defaultLimit int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
