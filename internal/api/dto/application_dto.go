package dto

import (
	"time"

	"github.com/civigate/eservices-portal/internal/domain"
)

// CreateApplicationRequest payload.
type CreateApplicationRequest struct {
	ServiceID string            `json:"service_id"`
	FormData  map[string]string `json:"form_data"`
	Documents []DocumentRef     `json:"documents"`
}

// DocumentRef describes an uploaded document reference.
type DocumentRef struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// TransitionRequest payload for workflow moves.
type TransitionRequest struct {
	ToStatus   domain.ApplicationStatus `json:"to_status"`
	Remark     *string                  `json:"remark,omitempty"`
	AssigneeID *string                  `json:"assignee_id,omitempty"`
}

// RemarkRequest payload for applicant follow-up remarks.
type RemarkRequest struct {
	Remark string `json:"remark"`
}

// ApplicationSummary response.
type ApplicationSummary struct {
	ID          string                   `json:"id"`
	ServiceID   string                   `json:"service_id"`
	ServiceName string                   `json:"service_name"`
	ApplicantID string                   `json:"applicant_id"`
	Status      domain.ApplicationStatus `json:"status"`
	AssigneeID  *string                  `json:"assignee_id,omitempty"`
	SubmittedAt time.Time                `json:"submitted_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
}

// ApplicationDetail provides full application info.
type ApplicationDetail struct {
	ID          string                   `json:"id"`
	ServiceID   string                   `json:"service_id"`
	ServiceName string                   `json:"service_name"`
	Applicant   ApplicantResponse        `json:"applicant"`
	Status      domain.ApplicationStatus `json:"status"`
	FormData    map[string]string        `json:"form_data"`
	Documents   []DocumentResponse       `json:"documents"`
	Remarks     *string                  `json:"remarks,omitempty"`
	AssigneeID  *string                  `json:"assignee_id,omitempty"`
	SubmittedAt time.Time                `json:"submitted_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
}

// ApplicantResponse is the identity snapshot on an application.
type ApplicantResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// DocumentResponse metadata.
type DocumentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// AuditEntryResponse is one row of the application trail.
type AuditEntryResponse struct {
	ID         string                   `json:"id"`
	ActorID    string                   `json:"actor_id"`
	ActorRole  domain.Role              `json:"actor_role"`
	FromStatus domain.ApplicationStatus `json:"from_status"`
	ToStatus   domain.ApplicationStatus `json:"to_status"`
	Remark     *string                  `json:"remark,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
}
