package dto

import (
	"time"

	"github.com/civigate/eservices-portal/internal/domain"
)

// CreateServiceRequest payload.
type CreateServiceRequest struct {
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Category          domain.ServiceCategory `json:"category"`
	RequiredDocuments []string               `json:"required_documents"`
	ProcessingTime    string                 `json:"processing_time"`
	Fee               float64                `json:"fee"`
}

// UpdateServiceRequest payload; fields absent from the body are left
// unchanged, so a fee of 0 and empty strings are honored as values.
type UpdateServiceRequest struct {
	Title             *string                 `json:"title"`
	Description       *string                 `json:"description"`
	Category          *domain.ServiceCategory `json:"category"`
	RequiredDocuments []string                `json:"required_documents"`
	ProcessingTime    *string                 `json:"processing_time"`
	Fee               *float64                `json:"fee"`
	IsActive          *bool                   `json:"is_active"`
}

// ServiceResponse is one catalog entry.
type ServiceResponse struct {
	ID                string                 `json:"id"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Category          domain.ServiceCategory `json:"category"`
	RequiredDocuments []string               `json:"required_documents"`
	ProcessingTime    string                 `json:"processing_time"`
	Fee               float64                `json:"fee"`
	IsActive          bool                   `json:"is_active"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}
