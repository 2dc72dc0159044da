package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civigate/eservices-portal/internal/domain"
	"github.com/civigate/eservices-portal/internal/events"
	"github.com/civigate/eservices-portal/internal/policy"
	"github.com/civigate/eservices-portal/internal/repository"
	"github.com/civigate/eservices-portal/internal/workflow"
	apperrors "github.com/civigate/eservices-portal/pkg/errorutil"
)

// ApplicationService is the ledger boundary: creation, reads and listing.
// All status mutations go through the workflow engine.
type ApplicationService struct {
	apps       repository.ApplicationRepository
	users      repository.UserRepository
	audit      repository.AuditRepository
	catalog    *CatalogService
	engine     *workflow.Engine
	dispatcher events.Dispatcher
}

// ApplicationDependencies bundles collaborators for the ledger service.
type ApplicationDependencies struct {
	ApplicationRepo repository.ApplicationRepository
	UserRepo        repository.UserRepository
	AuditRepo       repository.AuditRepository
	Catalog         *CatalogService
	Engine          *workflow.Engine
	Dispatcher      events.Dispatcher
}

// NewApplicationService constructs the service.
func NewApplicationService(deps ApplicationDependencies) *ApplicationService {
	return &ApplicationService{
		apps:       deps.ApplicationRepo,
		users:      deps.UserRepo,
		audit:      deps.AuditRepo,
		catalog:    deps.Catalog,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
	}
}

// DocumentInput carries an already-uploaded document reference.
type DocumentInput struct {
	Name        string
	URL         string
	ContentType string
	SizeBytes   int64
}

// CreateInput describes a new application payload.
type CreateInput struct {
	ServiceID string
	FormData  map[string]string
	Documents []DocumentInput
}

// Create submits a new application. The target service must exist and be
// active; every document the service requires must be attached by name.
func (s *ApplicationService) Create(ctx context.Context, actor domain.Caller, input CreateInput) (*domain.Application, error) {
	if actor.Role != domain.RoleUser {
		return nil, apperrors.NewForbidden("only citizens submit applications")
	}

	svc, err := s.catalog.ActiveService(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}
	if missing := missingDocuments(svc.RequiredDocuments, input.Documents); len(missing) > 0 {
		return nil, apperrors.NewValidationError("required documents missing", map[string]any{"missing": missing})
	}

	applicant, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("applicant", map[string]any{"applicant_id": actor.ID})
		}
		return nil, apperrors.MapError(err)
	}

	now := time.Now()
	docs := make([]domain.Document, 0, len(input.Documents))
	for _, doc := range input.Documents {
		docs = append(docs, domain.Document{
			ID:          uuid.NewString(),
			Name:        strings.TrimSpace(doc.Name),
			URL:         doc.URL,
			ContentType: doc.ContentType,
			SizeBytes:   doc.SizeBytes,
			UploadedAt:  now,
		})
	}

	app := &domain.Application{
		ServiceID:   svc.ID,
		ServiceName: svc.Title,
		Applicant: domain.Applicant{
			ID:    applicant.ID,
			Name:  applicant.Name,
			Email: applicant.Email,
			Phone: applicant.Phone,
		},
		Status:      domain.StatusSubmitted,
		FormData:    input.FormData,
		Documents:   docs,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	// The record and its submission audit entry land in one repository
	// transaction.
	entry := &domain.AuditEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		FromStatus: domain.StatusSubmitted,
		ToStatus:   domain.StatusSubmitted,
	}
	if err := s.apps.Create(ctx, app, entry); err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	s.publishCreated(ctx, actor, app)
	return app, nil
}

// Get fetches one application, enforcing view policy.
func (s *ApplicationService) Get(ctx context.Context, actor domain.Caller, applicationID string) (*domain.Application, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("application", map[string]any{"application_id": applicationID})
		}
		return nil, apperrors.MapError(err)
	}
	if !policy.CanView(actor.Role, actor.ID, app) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return app, nil
}

// List returns applications matching the filter. User-role callers are
// forced onto their own submissions even if the filter says otherwise;
// the policy check in Get is the primary gate, this is defense in depth.
func (s *ApplicationService) List(ctx context.Context, actor domain.Caller, filter repository.ApplicationFilter) ([]domain.Application, error) {
	if actor.Role == domain.RoleUser {
		applicantID := actor.ID
		filter.ApplicantID = &applicantID
	}
	list, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// Transition delegates a status move to the workflow engine.
func (s *ApplicationService) Transition(ctx context.Context, actor domain.Caller, applicationID string, input workflow.TransitionInput) (*domain.Application, error) {
	return s.engine.Transition(ctx, actor, applicationID, input)
}

// AddApplicantRemark lets the applicant comment without a status change.
func (s *ApplicationService) AddApplicantRemark(ctx context.Context, actor domain.Caller, applicationID, remark string) (*domain.Application, error) {
	return s.engine.ApplicantRemark(ctx, actor, applicationID, remark)
}

// AuditTrail returns the append-only history, view-gated like Get.
func (s *ApplicationService) AuditTrail(ctx context.Context, actor domain.Caller, applicationID string) ([]domain.AuditEntry, error) {
	if _, err := s.Get(ctx, actor, applicationID); err != nil {
		return nil, err
	}
	trail, err := s.audit.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return trail, nil
}

func (s *ApplicationService) publishCreated(ctx context.Context, actor domain.Caller, app *domain.Application) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:            uuid.NewString(),
		Type:          events.EventApplicationCreated,
		ApplicationID: app.ID,
		Actor:         events.Actor{ID: actor.ID, Role: actor.Role},
		Timestamp:     time.Now(),
		Payload: events.ApplicationCreatedPayload{
			ServiceID:     app.ServiceID,
			ServiceName:   app.ServiceName,
			ApplicantID:   app.Applicant.ID,
			DocumentCount: len(app.Documents),
		},
	})
}

// missingDocuments compares required names against attached names
// case-insensitively; form content is never inspected.
func missingDocuments(required []string, provided []DocumentInput) []string {
	attached := make(map[string]struct{}, len(provided))
	for _, doc := range provided {
		attached[strings.ToLower(strings.TrimSpace(doc.Name))] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := attached[strings.ToLower(strings.TrimSpace(name))]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
