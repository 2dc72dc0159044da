package events

import (
	"time"

	"github.com/civigate/eservices-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventApplicationCreated       EventType = "application_created"
	EventApplicationStatusChanged EventType = "application_status_changed"
	EventApplicationAssigned      EventType = "application_assigned"
	EventApplicantRemarkAdded     EventType = "applicant_remark_added"
	EventServiceCreated           EventType = "service_created"
	EventServiceUpdated           EventType = "service_updated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	ApplicationID string      `json:"application_id,omitempty"`
	ServiceID     string      `json:"service_id,omitempty"`
	Actor         Actor       `json:"actor"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// ApplicationCreatedPayload payload.
type ApplicationCreatedPayload struct {
	ServiceID     string `json:"service_id"`
	ServiceName   string `json:"service_name"`
	ApplicantID   string `json:"applicant_id"`
	DocumentCount int    `json:"document_count"`
}

// ApplicationStatusChangedPayload payload.
type ApplicationStatusChangedPayload struct {
	OldStatus domain.ApplicationStatus `json:"old_status"`
	NewStatus domain.ApplicationStatus `json:"new_status"`
	Remark    string                   `json:"remark,omitempty"`
}

// ApplicationAssignedPayload payload.
type ApplicationAssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// ApplicantRemarkAddedPayload payload.
type ApplicantRemarkAddedPayload struct {
	RemarkPreview string `json:"remark_preview"`
}

// ServiceChangedPayload payload for catalog events.
type ServiceChangedPayload struct {
	Title    string                 `json:"title"`
	Category domain.ServiceCategory `json:"category"`
	IsActive bool                   `json:"is_active"`
}
