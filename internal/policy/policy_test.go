package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civigate/eservices-portal/internal/domain"
)

var allStatuses = []domain.ApplicationStatus{
	domain.StatusSubmitted,
	domain.StatusUnderReview,
	domain.StatusApproved,
	domain.StatusRejected,
	domain.StatusCompleted,
}

func TestCanTransitionReviewerTable(t *testing.T) {
	legal := map[[2]domain.ApplicationStatus]bool{
		{domain.StatusSubmitted, domain.StatusUnderReview}:   true,
		{domain.StatusSubmitted, domain.StatusRejected}:      true,
		{domain.StatusUnderReview, domain.StatusApproved}:    true,
		{domain.StatusUnderReview, domain.StatusRejected}:    true,
		{domain.StatusUnderReview, domain.StatusUnderReview}: true,
		{domain.StatusApproved, domain.StatusCompleted}:      true,
	}

	for _, role := range []domain.Role{domain.RoleStaff, domain.RoleAdmin} {
		for _, from := range allStatuses {
			for _, to := range allStatuses {
				want := legal[[2]domain.ApplicationStatus{from, to}]
				require.Equal(t, want, CanTransition(role, from, to),
					"%s: %s -> %s", role, from, to)
			}
		}
	}
}

func TestCanTransitionCitizenAlwaysDenied(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			require.False(t, CanTransition(domain.RoleUser, from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionUnknownRole(t *testing.T) {
	require.False(t, CanTransition(domain.Role("superuser"), domain.StatusSubmitted, domain.StatusUnderReview))
}

func TestCanView(t *testing.T) {
	app := &domain.Application{Applicant: domain.Applicant{ID: "owner"}}

	require.True(t, CanView(domain.RoleStaff, "anyone", app))
	require.True(t, CanView(domain.RoleAdmin, "anyone", app))
	require.True(t, CanView(domain.RoleUser, "owner", app))
	require.False(t, CanView(domain.RoleUser, "stranger", app))
	require.False(t, CanView(domain.RoleAdmin, "anyone", nil))
}

func TestCanMutateCatalog(t *testing.T) {
	require.True(t, CanMutateCatalog(domain.RoleAdmin))
	require.False(t, CanMutateCatalog(domain.RoleStaff))
	require.False(t, CanMutateCatalog(domain.RoleUser))
}

func TestCanReassign(t *testing.T) {
	require.True(t, CanReassign(domain.RoleAdmin, "admin-1", "staff-2"))
	require.True(t, CanReassign(domain.RoleStaff, "staff-1", "staff-1"))
	require.False(t, CanReassign(domain.RoleStaff, "staff-1", "staff-2"))
	require.False(t, CanReassign(domain.RoleUser, "user-1", "user-1"))
}

func TestCanRemark(t *testing.T) {
	owned := func(status domain.ApplicationStatus) *domain.Application {
		return &domain.Application{Status: status, Applicant: domain.Applicant{ID: "owner"}}
	}

	require.True(t, CanRemark(domain.RoleUser, "owner", owned(domain.StatusSubmitted), true))
	require.True(t, CanRemark(domain.RoleUser, "owner", owned(domain.StatusUnderReview), true))
	require.False(t, CanRemark(domain.RoleUser, "owner", owned(domain.StatusRejected), true))
	require.False(t, CanRemark(domain.RoleUser, "owner", owned(domain.StatusSubmitted), false))
	require.False(t, CanRemark(domain.RoleUser, "stranger", owned(domain.StatusSubmitted), true))
	require.False(t, CanRemark(domain.RoleStaff, "owner", owned(domain.StatusSubmitted), true))
	require.False(t, CanRemark(domain.RoleUser, "owner", nil, true))
}
