package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/civigate/eservices-portal/internal/domain"
	"github.com/civigate/eservices-portal/internal/events"
	"github.com/civigate/eservices-portal/internal/policy"
	"github.com/civigate/eservices-portal/internal/repository"
	apperrors "github.com/civigate/eservices-portal/pkg/errorutil"
)

const (
	serviceCacheKeyPrefix = "service:"
	serviceCacheTTL       = 5 * time.Minute
)

// CatalogService manages the set of offerable services. Mutations are
// admin-only; reads go through an optional Redis cache.
type CatalogService struct {
	services   repository.ServiceRepository
	cache      *redis.Client
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewCatalogService constructs the service. cache may be nil.
func NewCatalogService(services repository.ServiceRepository, cache *redis.Client, dispatcher events.Dispatcher, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{services: services, cache: cache, dispatcher: dispatcher, logger: logger}
}

// ServiceInput describes a catalog create payload.
type ServiceInput struct {
	Title             string
	Description       string
	Category          domain.ServiceCategory
	RequiredDocuments []string
	ProcessingTime    string
	Fee               float64
	IsActive          *bool
}

// ServiceUpdate carries a partial edit. Nil fields are left unchanged, so a
// fee can be lowered to zero and text fields cleared explicitly.
type ServiceUpdate struct {
	Title             *string
	Description       *string
	Category          *domain.ServiceCategory
	RequiredDocuments []string
	ProcessingTime    *string
	Fee               *float64
	IsActive          *bool
}

// CreateService registers a new offering.
func (s *CatalogService) CreateService(ctx context.Context, actor domain.Caller, input ServiceInput) (*domain.Service, error) {
	if !policy.CanMutateCatalog(actor.Role) {
		return nil, apperrors.NewForbidden("catalog mutation requires admin role")
	}
	if err := validateServiceInput(input); err != nil {
		return nil, err
	}

	svc := &domain.Service{
		Title:             strings.TrimSpace(input.Title),
		Description:       strings.TrimSpace(input.Description),
		Category:          input.Category,
		RequiredDocuments: normalizeDocumentNames(input.RequiredDocuments),
		ProcessingTime:    strings.TrimSpace(input.ProcessingTime),
		Fee:               input.Fee,
		IsActive:          true,
		CreatedBy:         actor.ID,
	}
	if input.IsActive != nil {
		svc.IsActive = *input.IsActive
	}

	if err := s.services.Create(ctx, svc); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	s.publishCatalogEvent(ctx, actor, events.EventServiceCreated, svc)
	return svc, nil
}

// UpdateService edits an offering; setting IsActive false deactivates it.
// Existing applications are untouched: they carry the denormalized name.
func (s *CatalogService) UpdateService(ctx context.Context, actor domain.Caller, serviceID string, input ServiceUpdate) (*domain.Service, error) {
	if !policy.CanMutateCatalog(actor.Role) {
		return nil, apperrors.NewForbidden("catalog mutation requires admin role")
	}

	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service", map[string]any{"service_id": serviceID})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be blank", nil)
		}
		svc.Title = title
	}
	if input.Description != nil {
		svc.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		if !input.Category.Valid() {
			return nil, apperrors.NewValidationError("unknown service category", map[string]any{"category": string(*input.Category)})
		}
		svc.Category = *input.Category
	}
	if input.RequiredDocuments != nil {
		svc.RequiredDocuments = normalizeDocumentNames(input.RequiredDocuments)
	}
	if input.ProcessingTime != nil {
		svc.ProcessingTime = strings.TrimSpace(*input.ProcessingTime)
	}
	if input.Fee != nil {
		if *input.Fee < 0 {
			return nil, apperrors.NewValidationError("fee must be non-negative", nil)
		}
		svc.Fee = *input.Fee
	}
	if input.IsActive != nil {
		svc.IsActive = *input.IsActive
	}

	if err := s.services.Update(ctx, svc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service", map[string]any{"service_id": serviceID})
		}
		return nil, apperrors.NewStorageError(err)
	}
	s.invalidateCache(ctx, svc.ID)
	s.publishCatalogEvent(ctx, actor, events.EventServiceUpdated, svc)
	return svc, nil
}

// GetService returns one offering; citizens only see active ones.
func (s *CatalogService) GetService(ctx context.Context, actor domain.Caller, serviceID string) (*domain.Service, error) {
	svc, err := s.getCached(ctx, serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service", map[string]any{"service_id": serviceID})
		}
		return nil, apperrors.MapError(err)
	}
	if !svc.IsActive && !actor.Role.IsReviewer() {
		return nil, apperrors.NewNotFound("service", map[string]any{"service_id": serviceID})
	}
	return svc, nil
}

// ListServices returns the catalog; citizens are restricted to active
// offerings regardless of the requested filter.
func (s *CatalogService) ListServices(ctx context.Context, actor domain.Caller, filter repository.ServiceFilter) ([]domain.Service, error) {
	if !actor.Role.IsReviewer() {
		filter.ActiveOnly = true
	}
	list, err := s.services.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// ActiveService resolves a service for application creation, enforcing the
// inactive-service invariant.
func (s *CatalogService) ActiveService(ctx context.Context, serviceID string) (*domain.Service, error) {
	svc, err := s.getCached(ctx, serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service", map[string]any{"service_id": serviceID})
		}
		return nil, apperrors.MapError(err)
	}
	if !svc.IsActive {
		return nil, apperrors.NewNotFound("service", map[string]any{"service_id": serviceID, "reason": "inactive"})
	}
	return svc, nil
}

func (s *CatalogService) getCached(ctx context.Context, serviceID string) (*domain.Service, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, serviceCacheKeyPrefix+serviceID).Result()
		if err == nil {
			var svc domain.Service
			if jsonErr := json.Unmarshal([]byte(raw), &svc); jsonErr == nil {
				return &svc, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("service cache read failed", zap.String("service_id", serviceID), zap.Error(err))
		}
	}

	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, jsonErr := json.Marshal(svc); jsonErr == nil {
			if err := s.cache.Set(ctx, serviceCacheKeyPrefix+svc.ID, raw, serviceCacheTTL).Err(); err != nil {
				s.logger.Warn("service cache write failed", zap.String("service_id", svc.ID), zap.Error(err))
			}
		}
	}
	return svc, nil
}

func (s *CatalogService) invalidateCache(ctx context.Context, serviceID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, serviceCacheKeyPrefix+serviceID).Err(); err != nil {
		s.logger.Warn("service cache invalidation failed", zap.String("service_id", serviceID), zap.Error(err))
	}
}

func (s *CatalogService) publishCatalogEvent(ctx context.Context, actor domain.Caller, eventType events.EventType, svc *domain.Service) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ServiceID: svc.ID,
		Actor:     events.Actor{ID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
		Payload: events.ServiceChangedPayload{
			Title:    svc.Title,
			Category: svc.Category,
			IsActive: svc.IsActive,
		},
	})
}

func validateServiceInput(input ServiceInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Title) == "" {
		details["title"] = "required"
	}
	if !input.Category.Valid() {
		details["category"] = "unknown"
	}
	if input.Fee < 0 {
		details["fee"] = "must be non-negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid service payload", details)
	}
	return nil
}

func normalizeDocumentNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
