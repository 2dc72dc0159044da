package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/civigate/eservices-portal/internal/config"
	"github.com/civigate/eservices-portal/internal/events"
)

// NotificationService is the read-only event consumer at the notification
// boundary. Actual delivery belongs to an adjacent service; this one logs
// and forwards to a webhook stub when configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotifyConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotifyConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventApplicationCreated, n.handleApplicationCreated)
	n.dispatcher.Subscribe(events.EventApplicationStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventApplicationAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventApplicantRemarkAdded, n.handleRemarkAdded)
}

func (n *NotificationService) handleApplicationCreated(_ context.Context, event events.Event) error {
	n.logger.Info("ApplicationCreated",
		zap.String("application_id", event.ApplicationID),
		zap.Any("payload", event.Payload))
	n.forwardWebhookStub(event)
	return nil
}

func (n *NotificationService) handleStatusChanged(_ context.Context, event events.Event) error {
	n.logger.Info("ApplicationStatusChanged",
		zap.String("application_id", event.ApplicationID),
		zap.Any("payload", event.Payload))
	n.forwardWebhookStub(event)
	return nil
}

func (n *NotificationService) handleAssigned(_ context.Context, event events.Event) error {
	n.logger.Info("ApplicationAssigned",
		zap.String("application_id", event.ApplicationID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleRemarkAdded(_ context.Context, event events.Event) error {
	n.logger.Info("ApplicantRemarkAdded",
		zap.String("application_id", event.ApplicationID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) forwardWebhookStub(event events.Event) {
	if n.cfg.WebhookURL == "" {
		return
	}
	// Delivery is owned by the notification collaborator; only the handoff
	// is recorded here.
	n.logger.Debug("webhook notification queued",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
}
