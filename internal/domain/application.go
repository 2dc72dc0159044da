package domain

import "time"

// ApplicationStatus enumerates lifecycle states for applications.
type ApplicationStatus string

const (
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
	StatusCompleted   ApplicationStatus = "completed"
)

// Valid reports whether the status belongs to the closed set.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
// Approved is not terminal: delivery of the service still has to be
// finalized into completed.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Finalizing reports whether entering s sets CompletedAt.
func (s ApplicationStatus) Finalizing() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCompleted
}

// Applicant is the citizen identity snapshot held on an application.
type Applicant struct {
	ID    string
	Name  string
	Email string
	Phone *string
}

// Application is the aggregate for a single citizen request against a
// catalog service. Never deleted; terminal states are retained for audit.
type Application struct {
	ID        string
	ServiceID string
	// ServiceName is denormalized at creation so later catalog edits never
	// rewrite what the citizen applied for.
	ServiceName string
	Applicant   Applicant
	Status      ApplicationStatus
	// FormData is opaque to the core; the boundary layer owns its shape.
	FormData    map[string]string
	Documents   []Document
	Remarks     *string
	AssigneeID  *string
	SubmittedAt time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	// Version guards optimistic concurrency on writes.
	Version int64
}
