package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/bankdesk/servicedesk/internal/service"
)

// StartNotificationWorker registers the notification subscriptions and
// launches the goroutine that drains the delivery queue. It returns once the
// worker is running; the worker itself stops when ctx is canceled.
func StartNotificationWorker(ctx context.Context, svc *service.NotificationService, logger *zap.Logger) {
	svc.RegisterHandlers()

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("notification worker stopped")
				return
			case event := <-svc.Queue():
				svc.Deliver(ctx, event)
			}
		}
	}()

	logger.Info("notification worker started")
}
