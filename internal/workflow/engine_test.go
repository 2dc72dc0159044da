package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/civigate/eservices-portal/internal/domain"
	"github.com/civigate/eservices-portal/internal/events"
	"github.com/civigate/eservices-portal/internal/repository"
	apperrors "github.com/civigate/eservices-portal/pkg/errorutil"
)

type EngineSuite struct {
	suite.Suite

	apps       *repository.MemoryApplicationRepository
	users      *repository.MemoryUserRepository
	audit      *repository.MemoryAuditRepository
	dispatcher events.Dispatcher
	engine     *Engine

	published []events.Event
	pubMu     sync.Mutex

	citizen       domain.Caller
	staff         domain.Caller
	otherStaff    domain.Caller
	admin         domain.Caller
	inactiveStaff string
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.users = repository.NewMemoryUserRepository()
	s.audit = repository.NewMemoryAuditRepository()
	s.apps = repository.NewMemoryApplicationRepository(s.audit)
	s.dispatcher = events.NewInMemoryDispatcher()
	s.published = nil

	record := func(_ context.Context, event events.Event) error {
		s.pubMu.Lock()
		defer s.pubMu.Unlock()
		s.published = append(s.published, event)
		return nil
	}
	s.dispatcher.Subscribe(events.EventApplicationStatusChanged, record)
	s.dispatcher.Subscribe(events.EventApplicationAssigned, record)
	s.dispatcher.Subscribe(events.EventApplicantRemarkAdded, record)

	s.citizen = s.seedUser("Asha Citizen", domain.RoleUser, true)
	s.staff = s.seedUser("Ravi Staff", domain.RoleStaff, true)
	s.otherStaff = s.seedUser("Mina Staff", domain.RoleStaff, true)
	s.admin = s.seedUser("Root Admin", domain.RoleAdmin, true)
	s.inactiveStaff = s.seedUser("Gone Staff", domain.RoleStaff, false).ID

	s.engine = NewEngine(Dependencies{
		ApplicationRepo:       s.apps,
		UserRepo:              s.users,
		Dispatcher:            s.dispatcher,
		Logger:                zap.NewNop(),
		AllowApplicantRemarks: true,
	})
}

func (s *EngineSuite) seedUser(name string, role domain.Role, active bool) domain.Caller {
	user := &domain.User{
		Name:         name,
		Email:        uuid.NewString() + "@portal.test",
		PasswordHash: "x",
		Role:         role,
		Active:       active,
	}
	require.NoError(s.T(), s.users.Create(context.Background(), user))
	return domain.Caller{ID: user.ID, Role: role}
}

func (s *EngineSuite) seedApplication(status domain.ApplicationStatus) *domain.Application {
	now := time.Now()
	app := &domain.Application{
		ServiceID:   uuid.NewString(),
		ServiceName: "Birth Certificate",
		Applicant:   domain.Applicant{ID: s.citizen.ID, Name: "Asha Citizen", Email: "asha@portal.test"},
		Status:      status,
		FormData:    map[string]string{"child_name": "Noor"},
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if status != domain.StatusSubmitted {
		assignee := s.staff.ID
		app.AssigneeID = &assignee
	}
	if status.Finalizing() {
		completed := now
		app.CompletedAt = &completed
	}
	require.NoError(s.T(), s.apps.Create(context.Background(), app, nil))
	return app
}

func (s *EngineSuite) eventsOfType(eventType events.EventType) []events.Event {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	var out []events.Event
	for _, event := range s.published {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func (s *EngineSuite) TestPickUpAssignsCaller() {
	app := s.seedApplication(domain.StatusSubmitted)

	got, err := s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusUnderReview})
	s.Require().NoError(err)

	s.Equal(domain.StatusUnderReview, got.Status)
	s.Require().NotNil(got.AssigneeID)
	s.Equal(s.staff.ID, *got.AssigneeID)
	s.Nil(got.Remarks)
	s.Nil(got.CompletedAt)
	s.True(got.UpdatedAt.After(app.UpdatedAt))
	s.Equal(app.Version+1, got.Version)

	trail, err := s.audit.ListByApplication(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal(domain.StatusSubmitted, trail[0].FromStatus)
	s.Equal(domain.StatusUnderReview, trail[0].ToStatus)
	s.Equal(s.staff.ID, trail[0].ActorID)

	changed := s.eventsOfType(events.EventApplicationStatusChanged)
	s.Require().Len(changed, 1)
	payload := changed[0].Payload.(events.ApplicationStatusChangedPayload)
	s.Equal(domain.StatusSubmitted, payload.OldStatus)
	s.Equal(domain.StatusUnderReview, payload.NewStatus)
}

func (s *EngineSuite) TestPickUpKeepsExistingAssignee() {
	app := s.seedApplication(domain.StatusSubmitted)
	assignee := s.otherStaff.ID
	app.AssigneeID = &assignee
	s.Require().NoError(s.apps.Update(context.Background(), app, app.Version, nil))

	got, err := s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusUnderReview})
	s.Require().NoError(err)
	s.Require().NotNil(got.AssigneeID)
	s.Equal(s.otherStaff.ID, *got.AssigneeID)
}

func (s *EngineSuite) TestApprovalSetsCompletedAt() {
	app := s.seedApplication(domain.StatusUnderReview)

	got, err := s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusApproved})
	s.Require().NoError(err)
	s.Equal(domain.StatusApproved, got.Status)
	s.Require().NotNil(got.CompletedAt)
	s.Equal(got.UpdatedAt, *got.CompletedAt)
}

func (s *EngineSuite) TestCompletionPreservesCompletedAt() {
	app := s.seedApplication(domain.StatusUnderReview)

	approved, err := s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusApproved})
	s.Require().NoError(err)
	s.Require().NotNil(approved.CompletedAt)
	firstCompleted := *approved.CompletedAt

	completed, err := s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusCompleted})
	s.Require().NoError(err)
	s.Equal(domain.StatusCompleted, completed.Status)
	s.Require().NotNil(completed.CompletedAt)
	s.True(completed.CompletedAt.Equal(firstCompleted))
}

func (s *EngineSuite) TestRejectionRequiresRemark() {
	app := s.seedApplication(domain.StatusUnderReview)

	_, err := s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusRejected})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "VALIDATION_FAILED"))

	blank := "   "
	_, err = s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusRejected, Remark: &blank})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "VALIDATION_FAILED"))

	remark := "income proof illegible"
	got, err := s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusRejected, Remark: &remark})
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, got.Status)
	s.Require().NotNil(got.Remarks)
	s.Equal(remark, *got.Remarks)
	s.Require().NotNil(got.CompletedAt)
}

func (s *EngineSuite) TestRejectWithoutReview() {
	app := s.seedApplication(domain.StatusSubmitted)

	remark := "duplicate of an existing application"
	got, err := s.engine.Transition(context.Background(), s.admin, app.ID, TransitionInput{To: domain.StatusRejected, Remark: &remark})
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, got.Status)
	s.Require().NotNil(got.CompletedAt)
}

func (s *EngineSuite) TestInvalidPairs() {
	statuses := []domain.ApplicationStatus{
		domain.StatusSubmitted, domain.StatusUnderReview,
		domain.StatusApproved, domain.StatusRejected, domain.StatusCompleted,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if _, legal := transitionRules[transitionKey{from, to}]; legal {
				continue
			}
			app := s.seedApplication(from)
			remark := "covering the rejection path"
			_, err := s.engine.Transition(context.Background(), s.admin, app.ID, TransitionInput{To: to, Remark: &remark})
			s.Require().Error(err, "%s -> %s must be rejected", from, to)
			s.True(apperrors.IsCode(err, "INVALID_TRANSITION"), "%s -> %s: got %v", from, to, err)
		}
	}
}

func (s *EngineSuite) TestCitizenCannotDriveTheStateMachine() {
	app := s.seedApplication(domain.StatusSubmitted)

	_, err := s.engine.Transition(context.Background(), s.citizen, app.ID, TransitionInput{To: domain.StatusUnderReview})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "FORBIDDEN"))
}

func (s *EngineSuite) TestUnknownTargetStatus() {
	app := s.seedApplication(domain.StatusSubmitted)

	_, err := s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: "archived"})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func (s *EngineSuite) TestApplicationNotFound() {
	_, err := s.engine.Transition(context.Background(), s.staff, uuid.NewString(), TransitionInput{To: domain.StatusUnderReview})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "NOT_FOUND"))
}

func (s *EngineSuite) TestAdminReassigns() {
	app := s.seedApplication(domain.StatusUnderReview)

	target := s.otherStaff.ID
	got, err := s.engine.Transition(context.Background(), s.admin, app.ID, TransitionInput{To: domain.StatusUnderReview, AssigneeID: &target})
	s.Require().NoError(err)
	s.Require().NotNil(got.AssigneeID)
	s.Equal(s.otherStaff.ID, *got.AssigneeID)

	assigned := s.eventsOfType(events.EventApplicationAssigned)
	s.Require().Len(assigned, 1)
	s.Empty(s.eventsOfType(events.EventApplicationStatusChanged))

	trail, err := s.audit.ListByApplication(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal(domain.StatusUnderReview, trail[0].FromStatus)
	s.Equal(domain.StatusUnderReview, trail[0].ToStatus)
}

func (s *EngineSuite) TestReassignRequiresTarget() {
	app := s.seedApplication(domain.StatusUnderReview)

	_, err := s.engine.Transition(context.Background(), s.admin, app.ID, TransitionInput{To: domain.StatusUnderReview})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func (s *EngineSuite) TestReassignToCurrentAssignee() {
	app := s.seedApplication(domain.StatusUnderReview)

	target := s.staff.ID
	_, err := s.engine.Transition(context.Background(), s.admin, app.ID, TransitionInput{To: domain.StatusUnderReview, AssigneeID: &target})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "INVALID_TRANSITION"))

	stored, err := s.apps.GetByID(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Equal(app.UpdatedAt.UnixNano(), stored.UpdatedAt.UnixNano())
	s.Equal(app.Version, stored.Version)
}

func (s *EngineSuite) TestStaffMayOnlySelfAssign() {
	app := s.seedApplication(domain.StatusUnderReview)

	target := s.otherStaff.ID
	_, err := s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusUnderReview, AssigneeID: &target})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "FORBIDDEN"))
}

func (s *EngineSuite) TestReassignRejectsNonReviewerTarget() {
	app := s.seedApplication(domain.StatusUnderReview)

	target := s.citizen.ID
	_, err := s.engine.Transition(context.Background(), s.admin, app.ID, TransitionInput{To: domain.StatusUnderReview, AssigneeID: &target})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func (s *EngineSuite) TestReassignRejectsInactiveTarget() {
	app := s.seedApplication(domain.StatusUnderReview)

	target := s.inactiveStaff
	_, err := s.engine.Transition(context.Background(), s.admin, app.ID, TransitionInput{To: domain.StatusUnderReview, AssigneeID: &target})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "CONFLICT"))
}

func (s *EngineSuite) TestConcurrentPickUpHasOneWinner() {
	app := s.seedApplication(domain.StatusSubmitted)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusUnderReview})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		// Losers raced either the versioned commit or the re-read; a late
		// re-read lands on the reassign loop and fails its target check.
		s.True(apperrors.IsCode(err, "CONFLICT") || apperrors.IsCode(err, "VALIDATION_FAILED"), "unexpected error: %v", err)
	}
	s.Equal(1, wins)

	stored, err := s.apps.GetByID(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusUnderReview, stored.Status)
	s.Equal(app.Version+1, stored.Version)
}

type offlineAuditStore struct{}

func (offlineAuditStore) Append(context.Context, *domain.AuditEntry) error {
	return errors.New("audit store offline")
}

func (offlineAuditStore) ListByApplication(context.Context, string) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (s *EngineSuite) TestAuditFailureLeavesRecordUntouched() {
	apps := repository.NewMemoryApplicationRepository(offlineAuditStore{})
	engine := NewEngine(Dependencies{
		ApplicationRepo: apps,
		UserRepo:        s.users,
		Logger:          zap.NewNop(),
	})

	now := time.Now()
	app := &domain.Application{
		ServiceID:   uuid.NewString(),
		ServiceName: "Birth Certificate",
		Applicant:   domain.Applicant{ID: s.citizen.ID, Name: "Asha Citizen", Email: "asha@portal.test"},
		Status:      domain.StatusSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	s.Require().NoError(apps.Create(context.Background(), app, nil))

	_, err := engine.Transition(context.Background(), s.staff, app.ID, TransitionInput{To: domain.StatusUnderReview})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "STORAGE_ERROR"))

	stored, err := apps.GetByID(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusSubmitted, stored.Status)
	s.Equal(int64(1), stored.Version)
	s.Nil(stored.AssigneeID)
	s.Equal(now.UnixNano(), stored.UpdatedAt.UnixNano())
}

func (s *EngineSuite) TestApplicantRemark() {
	app := s.seedApplication(domain.StatusSubmitted)

	got, err := s.engine.ApplicantRemark(context.Background(), s.citizen, app.ID, "please use my new phone number")
	s.Require().NoError(err)
	s.Equal(domain.StatusSubmitted, got.Status)
	s.Require().NotNil(got.Remarks)
	s.Equal("please use my new phone number", *got.Remarks)
	s.True(got.UpdatedAt.After(app.UpdatedAt))

	trail, err := s.audit.ListByApplication(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal(trail[0].FromStatus, trail[0].ToStatus)

	s.Require().Len(s.eventsOfType(events.EventApplicantRemarkAdded), 1)
}

func (s *EngineSuite) TestApplicantRemarkRejectedForOtherCitizens() {
	app := s.seedApplication(domain.StatusSubmitted)
	stranger := s.seedUser("Someone Else", domain.RoleUser, true)

	_, err := s.engine.ApplicantRemark(context.Background(), stranger, app.ID, "not my application")
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "FORBIDDEN"))
}

func (s *EngineSuite) TestApplicantRemarkRejectedAfterFinalization() {
	app := s.seedApplication(domain.StatusRejected)

	_, err := s.engine.ApplicantRemark(context.Background(), s.citizen, app.ID, "please reconsider")
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "FORBIDDEN"))
}

func (s *EngineSuite) TestApplicantRemarkDisabledByFlag() {
	disabled := NewEngine(Dependencies{
		ApplicationRepo:       s.apps,
		UserRepo:              s.users,
		Logger:                zap.NewNop(),
		AllowApplicantRemarks: false,
	})
	app := s.seedApplication(domain.StatusSubmitted)

	_, err := disabled.ApplicantRemark(context.Background(), s.citizen, app.ID, "still here")
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "FORBIDDEN"))
}

func (s *EngineSuite) TestApplicantRemarkRequiresContent() {
	app := s.seedApplication(domain.StatusSubmitted)

	_, err := s.engine.ApplicantRemark(context.Background(), s.citizen, app.ID, "  ")
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, "VALIDATION_FAILED"))
}
