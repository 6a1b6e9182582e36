package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bankdesk/servicedesk/internal/config"
	"github.com/bankdesk/servicedesk/internal/events"
)

const notificationQueueSize = 256

// NotificationService fans domain events out to notification channels.
// Subscriptions only enqueue; actual delivery runs on the notification
// worker so dispatch never blocks a request. Delivery targets are stubs
// that log what would be sent.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	queue      chan events.Event
}

// NewNotificationService creates the service with a buffered delivery queue.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		queue:      make(chan events.Event, notificationQueueSize),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.enqueue)
	n.dispatcher.Subscribe(events.EventTicketApproved, n.enqueue)
	n.dispatcher.Subscribe(events.EventTicketRejected, n.enqueue)
	n.dispatcher.Subscribe(events.EventComplianceDecided, n.enqueue)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.enqueue)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.enqueue)
	n.dispatcher.Subscribe(events.EventClassificationConfirmed, n.enqueue)
	n.dispatcher.Subscribe(events.EventClassificationLocked, n.enqueue)
}

// Queue exposes the pending deliveries to the worker.
func (n *NotificationService) Queue() <-chan events.Event {
	return n.queue
}

func (n *NotificationService) enqueue(_ context.Context, event events.Event) error {
	select {
	case n.queue <- event:
	default:
		n.logger.Warn("notification queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Deliver sends one event to every configured channel.
func (n *NotificationService) Deliver(ctx context.Context, event events.Event) {
	n.logger.Info("domain event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload),
	)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
