package worker

import (
	"go.uber.org/zap"

	"github.com/githubpalak/gas-utility-portal/internal/events"
	"github.com/githubpalak/gas-utility-portal/internal/service"
)

// StartNotificationWorker registers notification handlers and, when a Redis
// sink is configured, forwards every event to it.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, sink *events.RedisSink, logger *zap.Logger) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if dispatcher == nil || sink == nil {
		return
	}
	dispatcher.SubscribeAll(sink.Handle)
	logger.Info("forwarding domain events to redis")
}
