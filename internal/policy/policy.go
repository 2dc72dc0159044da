// Package policy maps caller roles to the workflow actions and records they
// may touch. Tables are exhaustive over the closed role and status sets so
// any new role or status forces a review here.
package policy

import "github.com/civigate/eservices-portal/internal/domain"

type transitionKey struct {
	From domain.ApplicationStatus
	To   domain.ApplicationStatus
}

// reviewerTransitions lists every move staff may perform. Admin inherits the
// whole set. The under_review self-loop is reassignment.
var reviewerTransitions = map[transitionKey]struct{}{
	{domain.StatusSubmitted, domain.StatusUnderReview}:   {},
	{domain.StatusSubmitted, domain.StatusRejected}:      {},
	{domain.StatusUnderReview, domain.StatusApproved}:    {},
	{domain.StatusUnderReview, domain.StatusRejected}:    {},
	{domain.StatusUnderReview, domain.StatusUnderReview}: {},
	{domain.StatusApproved, domain.StatusCompleted}:      {},
}

// CanTransition reports whether role may move an application from one status
// to another. Citizens may never drive the state machine.
func CanTransition(role domain.Role, from, to domain.ApplicationStatus) bool {
	switch role {
	case domain.RoleStaff, domain.RoleAdmin:
		_, ok := reviewerTransitions[transitionKey{from, to}]
		return ok
	case domain.RoleUser:
		return false
	}
	return false
}

// CanView reports whether the caller may read the application. Reviewers see
// everything; citizens only their own submissions.
func CanView(role domain.Role, callerID string, app *domain.Application) bool {
	if app == nil {
		return false
	}
	switch role {
	case domain.RoleStaff, domain.RoleAdmin:
		return true
	case domain.RoleUser:
		return app.Applicant.ID == callerID
	}
	return false
}

// CanMutateCatalog reports whether the caller may create or edit services.
func CanMutateCatalog(role domain.Role) bool {
	return role == domain.RoleAdmin
}

// CanReassign reports whether the actor may hand an application to the
// target reviewer. Admin reassigns across any staff member; staff may only
// assign to themself (pick-up).
func CanReassign(actorRole domain.Role, actorID, targetID string) bool {
	switch actorRole {
	case domain.RoleAdmin:
		return true
	case domain.RoleStaff:
		return actorID == targetID
	case domain.RoleUser:
		return false
	}
	return false
}

// CanRemark reports whether the caller may overwrite the remark on an
// application without changing status. Reviewers always can via transitions;
// this covers the applicant follow-up path, gated by a deployment flag.
func CanRemark(role domain.Role, callerID string, app *domain.Application, applicantRemarksEnabled bool) bool {
	if app == nil {
		return false
	}
	if role != domain.RoleUser {
		return false
	}
	if !applicantRemarksEnabled || app.Applicant.ID != callerID {
		return false
	}
	return app.Status == domain.StatusSubmitted || app.Status == domain.StatusUnderReview
}
