package worker

import (
	"go.uber.org/zap"

	"github.com/civigate/eservices-portal/internal/config"
	"github.com/civigate/eservices-portal/internal/events"
	"github.com/civigate/eservices-portal/internal/service"
)

// StartNotificationWorker wires the notification consumer onto the
// dispatcher. Returns the service so callers can hold a reference.
func StartNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotifyConfig) *service.NotificationService {
	notifier := service.NewNotificationService(dispatcher, logger.Named("notifications"), cfg)
	notifier.RegisterHandlers()
	logger.Info("notification worker registered")
	return notifier
}
