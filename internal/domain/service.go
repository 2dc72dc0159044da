package domain

import "time"

// ServiceCategory enumerates the kinds of offerings the portal exposes.
type ServiceCategory string

const (
	CategoryBirthCertificate     ServiceCategory = "birth_certificate"
	CategoryDeathCertificate     ServiceCategory = "death_certificate"
	CategoryIncomeCertificate    ServiceCategory = "income_certificate"
	CategoryCasteCertificate     ServiceCategory = "caste_certificate"
	CategoryResidenceCertificate ServiceCategory = "residence_certificate"
	CategoryBusinessLicense      ServiceCategory = "business_license"
	CategoryPropertyTax          ServiceCategory = "property_tax"
	CategoryWaterConnection      ServiceCategory = "water_connection"
	CategoryOther                ServiceCategory = "other"
)

// Valid reports whether the category belongs to the closed set.
func (c ServiceCategory) Valid() bool {
	switch c {
	case CategoryBirthCertificate, CategoryDeathCertificate, CategoryIncomeCertificate,
		CategoryCasteCertificate, CategoryResidenceCertificate, CategoryBusinessLicense,
		CategoryPropertyTax, CategoryWaterConnection, CategoryOther:
		return true
	}
	return false
}

// Service is a catalog offering citizens can apply for. Mutated only by
// administrators; an inactive service cannot be the target of a new
// application.
type Service struct {
	ID                string
	Title             string
	Description       string
	Category          ServiceCategory
	RequiredDocuments []string
	ProcessingTime    string
	Fee               float64
	IsActive          bool
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
