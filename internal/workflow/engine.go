// Package workflow enforces the application status state machine: which
// moves are legal, who may perform them, and the side effects each one
// produces on the ledger record and its audit trail.
package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/civigate/eservices-portal/internal/domain"
	"github.com/civigate/eservices-portal/internal/events"
	"github.com/civigate/eservices-portal/internal/observability"
	"github.com/civigate/eservices-portal/internal/policy"
	"github.com/civigate/eservices-portal/internal/repository"
	apperrors "github.com/civigate/eservices-portal/pkg/errorutil"
)

// TransitionInput describes a requested status move.
type TransitionInput struct {
	To         domain.ApplicationStatus
	Remark     *string
	AssigneeID *string
}

type transitionKey struct {
	From domain.ApplicationStatus
	To   domain.ApplicationStatus
}

// rule captures the input requirements and side effects of a legal move.
type rule struct {
	remarkRequired bool
	// assignCaller sets assignee to the acting reviewer when unset (pick-up).
	assignCaller bool
	// reassign marks the under_review self-loop; requires a target assignee.
	reassign bool
}

var transitionRules = map[transitionKey]rule{
	{domain.StatusSubmitted, domain.StatusUnderReview}:   {assignCaller: true},
	{domain.StatusSubmitted, domain.StatusRejected}:      {remarkRequired: true},
	{domain.StatusUnderReview, domain.StatusApproved}:    {},
	{domain.StatusUnderReview, domain.StatusRejected}:    {remarkRequired: true},
	{domain.StatusUnderReview, domain.StatusUnderReview}: {reassign: true},
	{domain.StatusApproved, domain.StatusCompleted}:      {},
}

// Engine serializes workflow mutations against the application ledger.
type Engine struct {
	apps       repository.ApplicationRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	allowApplicantRemarks bool
}

// Dependencies bundles the engine's collaborators.
type Dependencies struct {
	ApplicationRepo       repository.ApplicationRepository
	UserRepo              repository.UserRepository
	Dispatcher            events.Dispatcher
	Logger                *zap.Logger
	Metrics               *observability.Metrics
	AllowApplicantRemarks bool
}

// NewEngine constructs the engine.
func NewEngine(deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		apps:                  deps.ApplicationRepo,
		users:                 deps.UserRepo,
		dispatcher:            deps.Dispatcher,
		logger:                logger,
		metrics:               deps.Metrics,
		allowApplicantRemarks: deps.AllowApplicantRemarks,
	}
}

// Transition applies one status move. The commit is a versioned write: a
// concurrent mutation of the same application surfaces as CONFLICT and the
// caller re-reads before retrying. The engine never holds the record across
// outbound calls; events fire after the commit.
func (e *Engine) Transition(ctx context.Context, actor domain.Caller, applicationID string, input TransitionInput) (*domain.Application, error) {
	if !input.To.Valid() {
		return nil, apperrors.NewValidationError("unknown target status", map[string]any{"to": string(input.To)})
	}

	app, err := e.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("application", map[string]any{"application_id": applicationID})
		}
		return nil, apperrors.MapError(err)
	}

	tr, legal := transitionRules[transitionKey{app.Status, input.To}]
	if !legal {
		return nil, apperrors.NewInvalidTransition(string(app.Status), string(input.To))
	}
	if !policy.CanTransition(actor.Role, app.Status, input.To) {
		return nil, apperrors.NewForbidden("role may not perform this transition")
	}

	remark := trimRemark(input.Remark)
	if tr.remarkRequired && remark == nil {
		return nil, apperrors.NewValidationError("remark is mandatory for rejection", nil)
	}

	from := app.Status
	if tr.reassign {
		if err := e.applyReassign(ctx, actor, app, input.AssigneeID); err != nil {
			return nil, err
		}
	}
	if tr.assignCaller && app.AssigneeID == nil {
		assignee := actor.ID
		app.AssigneeID = &assignee
	}

	app.Status = input.To
	if remark != nil {
		app.Remarks = remark
	}
	now := advance(app.UpdatedAt)
	app.UpdatedAt = now
	// CompletedAt is set exactly once, on first entry to a finalizing
	// status, and never rewritten afterwards.
	if input.To.Finalizing() && app.CompletedAt == nil {
		completed := now
		app.CompletedAt = &completed
	}

	if err := e.commit(ctx, actor, app, from, input.To, remark); err != nil {
		return nil, err
	}

	e.metrics.RecordTransition(string(from), string(input.To))
	e.publish(ctx, actor, app, from, input.To, remark, tr.reassign)
	return app, nil
}

// ApplicantRemark lets a citizen overwrite the remark on their own pending
// application without moving the state machine. Gated by a deployment flag;
// audited with FromStatus equal to ToStatus.
func (e *Engine) ApplicantRemark(ctx context.Context, actor domain.Caller, applicationID, remark string) (*domain.Application, error) {
	trimmed := strings.TrimSpace(remark)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("remark required", nil)
	}

	app, err := e.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("application", map[string]any{"application_id": applicationID})
		}
		return nil, apperrors.MapError(err)
	}
	if !policy.CanRemark(actor.Role, actor.ID, app, e.allowApplicantRemarks) {
		return nil, apperrors.NewForbidden("applicant remarks not permitted")
	}

	status := app.Status
	app.Remarks = &trimmed
	app.UpdatedAt = advance(app.UpdatedAt)

	if err := e.commit(ctx, actor, app, status, status, &trimmed); err != nil {
		return nil, err
	}

	e.publishEvent(ctx, events.Event{
		Type:          events.EventApplicantRemarkAdded,
		ApplicationID: app.ID,
		Actor:         events.Actor{ID: actor.ID, Role: actor.Role},
		Payload:       events.ApplicantRemarkAddedPayload{RemarkPreview: preview(trimmed, 120)},
	})
	return app, nil
}

func (e *Engine) applyReassign(ctx context.Context, actor domain.Caller, app *domain.Application, targetID *string) error {
	if targetID == nil {
		return apperrors.NewValidationError("assignee required for reassignment", nil)
	}
	if app.AssigneeID != nil && *app.AssigneeID == *targetID {
		// Re-requesting the already-applied assignment is rejected cleanly
		// so UpdatedAt ordering never moves without a real change.
		return apperrors.NewInvalidTransition(string(app.Status), string(app.Status))
	}
	if !policy.CanReassign(actor.Role, actor.ID, *targetID) {
		return apperrors.NewForbidden("staff may only assign applications to themself")
	}
	target, err := e.users.GetByID(ctx, *targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("assignee", map[string]any{"assignee_id": *targetID})
		}
		return apperrors.MapError(err)
	}
	if !target.Role.IsReviewer() {
		return apperrors.NewValidationError("assignee must hold a staff or admin role", map[string]any{"assignee_id": target.ID})
	}
	if !target.Active {
		return apperrors.NewConflict("assignee inactive", map[string]any{"assignee_id": target.ID})
	}
	app.AssigneeID = &target.ID
	return nil
}

// commit writes the mutated record and its audit entry in one repository
// transaction. A fault on either side leaves the ledger untouched.
func (e *Engine) commit(ctx context.Context, actor domain.Caller, app *domain.Application, from, to domain.ApplicationStatus, remark *string) error {
	entry := &domain.AuditEntry{
		ApplicationID: app.ID,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		FromStatus:    from,
		ToStatus:      to,
		Remark:        remark,
	}
	if err := e.apps.Update(ctx, app, app.Version, entry); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return apperrors.NewConflict("application was modified concurrently", map[string]any{"application_id": app.ID})
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.NewNotFound("application", map[string]any{"application_id": app.ID})
		default:
			e.logger.Error("transition commit failed",
				zap.String("application_id", app.ID),
				zap.Error(err))
			return apperrors.NewStorageError(err)
		}
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, actor domain.Caller, app *domain.Application, from, to domain.ApplicationStatus, remark *string, reassigned bool) {
	remarkStr := ""
	if remark != nil {
		remarkStr = *remark
	}
	if reassigned {
		e.publishEvent(ctx, events.Event{
			Type:          events.EventApplicationAssigned,
			ApplicationID: app.ID,
			Actor:         events.Actor{ID: actor.ID, Role: actor.Role},
			Payload:       events.ApplicationAssignedPayload{AssigneeID: app.AssigneeID},
		})
		return
	}
	e.publishEvent(ctx, events.Event{
		Type:          events.EventApplicationStatusChanged,
		ApplicationID: app.ID,
		Actor:         events.Actor{ID: actor.ID, Role: actor.Role},
		Payload: events.ApplicationStatusChangedPayload{
			OldStatus: from,
			NewStatus: to,
			Remark:    remarkStr,
		},
	})
}

func (e *Engine) publishEvent(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = e.dispatcher.Publish(ctx, event)
}

// advance returns the current time, nudged forward when the clock has not
// moved past the previous mutation so UpdatedAt ordering stays strict.
func advance(prev time.Time) time.Time {
	now := time.Now()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

func trimRemark(remark *string) *string {
	if remark == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*remark)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
