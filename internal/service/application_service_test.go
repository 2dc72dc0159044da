package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/civigate/eservices-portal/internal/domain"
	"github.com/civigate/eservices-portal/internal/events"
	"github.com/civigate/eservices-portal/internal/repository"
	"github.com/civigate/eservices-portal/internal/workflow"
	apperrors "github.com/civigate/eservices-portal/pkg/errorutil"
)

type ApplicationServiceSuite struct {
	suite.Suite

	users   *repository.MemoryUserRepository
	apps    *repository.MemoryApplicationRepository
	audit   *repository.MemoryAuditRepository
	catalog *CatalogService
	svc     *ApplicationService

	citizen      domain.Caller
	otherCitizen domain.Caller
	staff        domain.Caller
	admin        domain.Caller

	activeService   *domain.Service
	inactiveService *domain.Service
}

func TestApplicationServiceSuite(t *testing.T) {
	suite.Run(t, new(ApplicationServiceSuite))
}

func (s *ApplicationServiceSuite) SetupTest() {
	ctx := context.Background()
	s.users = repository.NewMemoryUserRepository()
	s.audit = repository.NewMemoryAuditRepository()
	s.apps = repository.NewMemoryApplicationRepository(s.audit)
	services := repository.NewMemoryServiceRepository()
	dispatcher := events.NewInMemoryDispatcher()

	s.catalog = NewCatalogService(services, nil, dispatcher, zap.NewNop())

	engine := workflow.NewEngine(workflow.Dependencies{
		ApplicationRepo:       s.apps,
		UserRepo:              s.users,
		Dispatcher:            dispatcher,
		Logger:                zap.NewNop(),
		AllowApplicantRemarks: true,
	})

	s.svc = NewApplicationService(ApplicationDependencies{
		ApplicationRepo: s.apps,
		UserRepo:        s.users,
		AuditRepo:       s.audit,
		Catalog:         s.catalog,
		Engine:          engine,
		Dispatcher:      dispatcher,
	})

	s.citizen = s.seedUser("Asha", domain.RoleUser)
	s.otherCitizen = s.seedUser("Bilal", domain.RoleUser)
	s.staff = s.seedUser("Ravi", domain.RoleStaff)
	s.admin = s.seedUser("Root", domain.RoleAdmin)

	s.activeService = &domain.Service{
		Title:             "Birth Certificate",
		Category:          domain.CategoryBirthCertificate,
		RequiredDocuments: []string{"Hospital Record", "Parent ID"},
		IsActive:          true,
	}
	require.NoError(s.T(), services.Create(ctx, s.activeService))

	s.inactiveService = &domain.Service{
		Title:    "Legacy Levy",
		Category: domain.CategoryPropertyTax,
		IsActive: false,
	}
	require.NoError(s.T(), services.Create(ctx, s.inactiveService))
}

func (s *ApplicationServiceSuite) seedUser(name string, role domain.Role) domain.Caller {
	user := &domain.User{
		Name:         name,
		Email:        uuid.NewString() + "@portal.test",
		PasswordHash: "x",
		Role:         role,
		Active:       true,
	}
	require.NoError(s.T(), s.users.Create(context.Background(), user))
	return domain.Caller{ID: user.ID, Role: role}
}

func (s *ApplicationServiceSuite) fullDocuments() []DocumentInput {
	return []DocumentInput{
		{Name: "hospital record", URL: "https://docs/1", ContentType: "application/pdf", SizeBytes: 100},
		{Name: "Parent ID", URL: "https://docs/2", ContentType: "application/pdf", SizeBytes: 200},
	}
}

func (s *ApplicationServiceSuite) createApplication() *domain.Application {
	app, err := s.svc.Create(context.Background(), s.citizen, CreateInput{
		ServiceID: s.activeService.ID,
		FormData:  map[string]string{"child_name": "Noor"},
		Documents: s.fullDocuments(),
	})
	s.Require().NoError(err)
	return app
}

func (s *ApplicationServiceSuite) TestCreate() {
	app := s.createApplication()

	s.Equal(domain.StatusSubmitted, app.Status)
	s.Equal(s.activeService.ID, app.ServiceID)
	s.Equal("Birth Certificate", app.ServiceName)
	s.Equal(s.citizen.ID, app.Applicant.ID)
	s.Len(app.Documents, 2)
	s.Equal(int64(1), app.Version)
	s.Nil(app.CompletedAt)

	trail, err := s.audit.ListByApplication(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal(domain.StatusSubmitted, trail[0].ToStatus)
}

type rejectingAuditStore struct{}

func (rejectingAuditStore) Append(context.Context, *domain.AuditEntry) error {
	return errors.New("trail unavailable")
}

func (rejectingAuditStore) ListByApplication(context.Context, string) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (s *ApplicationServiceSuite) TestCreateWritesNothingWhenTrailFails() {
	apps := repository.NewMemoryApplicationRepository(rejectingAuditStore{})
	svc := NewApplicationService(ApplicationDependencies{
		ApplicationRepo: apps,
		UserRepo:        s.users,
		AuditRepo:       s.audit,
		Catalog:         s.catalog,
	})

	_, err := svc.Create(context.Background(), s.citizen, CreateInput{
		ServiceID: s.activeService.ID,
		Documents: s.fullDocuments(),
	})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "STORAGE_ERROR"))

	list, err := apps.List(context.Background(), repository.ApplicationFilter{})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *ApplicationServiceSuite) TestCreateRejectsMissingDocuments() {
	_, err := s.svc.Create(context.Background(), s.citizen, CreateInput{
		ServiceID: s.activeService.ID,
		Documents: []DocumentInput{{Name: "Parent ID", URL: "https://docs/2"}},
	})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "VALIDATION_FAILED"))

	var domainErr *apperrors.DomainError
	s.Require().ErrorAs(err, &domainErr)
	s.Equal([]string{"Hospital Record"}, domainErr.Details["missing"])
}

func (s *ApplicationServiceSuite) TestCreateRejectsInactiveService() {
	_, err := s.svc.Create(context.Background(), s.citizen, CreateInput{ServiceID: s.inactiveService.ID})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "NOT_FOUND"))
}

func (s *ApplicationServiceSuite) TestCreateRejectsUnknownService() {
	_, err := s.svc.Create(context.Background(), s.citizen, CreateInput{ServiceID: uuid.NewString()})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "NOT_FOUND"))
}

func (s *ApplicationServiceSuite) TestCreateRejectsReviewers() {
	for _, actor := range []domain.Caller{s.staff, s.admin} {
		_, err := s.svc.Create(context.Background(), actor, CreateInput{ServiceID: s.activeService.ID})
		s.Require().Error(err)
		s.True(apperrors.IsCode(err, "FORBIDDEN"))
	}
}

func (s *ApplicationServiceSuite) TestGetEnforcesViewPolicy() {
	app := s.createApplication()
	ctx := context.Background()

	got, err := s.svc.Get(ctx, s.citizen, app.ID)
	s.Require().NoError(err)
	s.Equal(app.ID, got.ID)

	_, err = s.svc.Get(ctx, s.otherCitizen, app.ID)
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "FORBIDDEN"))

	_, err = s.svc.Get(ctx, s.staff, app.ID)
	s.Require().NoError(err)
}

func (s *ApplicationServiceSuite) TestListScopesCitizensToOwnApplications() {
	app := s.createApplication()
	ctx := context.Background()

	// A citizen asking for someone else's applications still only sees their own.
	otherID := s.citizen.ID
	list, err := s.svc.List(ctx, s.otherCitizen, repository.ApplicationFilter{ApplicantID: &otherID})
	s.Require().NoError(err)
	s.Empty(list)

	list, err = s.svc.List(ctx, s.citizen, repository.ApplicationFilter{})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(app.ID, list[0].ID)

	list, err = s.svc.List(ctx, s.staff, repository.ApplicationFilter{})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *ApplicationServiceSuite) TestAuditTrailIsViewGated() {
	app := s.createApplication()
	ctx := context.Background()

	trail, err := s.svc.AuditTrail(ctx, s.citizen, app.ID)
	s.Require().NoError(err)
	s.Len(trail, 1)

	_, err = s.svc.AuditTrail(ctx, s.otherCitizen, app.ID)
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "FORBIDDEN"))
}

func (s *ApplicationServiceSuite) TestTransitionDelegatesToEngine() {
	app := s.createApplication()

	got, err := s.svc.Transition(context.Background(), s.staff, app.ID, workflow.TransitionInput{To: domain.StatusUnderReview})
	s.Require().NoError(err)
	s.Equal(domain.StatusUnderReview, got.Status)
}

func (s *ApplicationServiceSuite) TestApplicantRemarkFlow() {
	app := s.createApplication()

	got, err := s.svc.AddApplicantRemark(context.Background(), s.citizen, app.ID, "updated address attached")
	s.Require().NoError(err)
	s.Require().NotNil(got.Remarks)
	s.Equal("updated address attached", *got.Remarks)
	s.Equal(domain.StatusSubmitted, got.Status)
}
