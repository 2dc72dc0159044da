package domain

import "time"

// AuditEntry records one workflow action on an application. The trail is
// append-only and never rewritten. FromStatus equals ToStatus for actions
// that did not move the state machine (reassignment, applicant remarks).
type AuditEntry struct {
	ID            string
	ApplicationID string
	ActorID       string
	ActorRole     Role
	FromStatus    ApplicationStatus
	ToStatus      ApplicationStatus
	Remark        *string
	CreatedAt     time.Time
}
