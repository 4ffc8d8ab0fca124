package service

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticketing/internal/config"
	"github.com/helpdesk-labs/ticketing/internal/events"
	"github.com/helpdesk-labs/ticketing/internal/worker"
)

// Enqueuer is the part of asynq.Client the notification service needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	enqueuer   Enqueuer
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. enqueuer may be nil when
// background delivery is disabled.
func NewNotificationService(dispatcher events.Dispatcher, enqueuer Enqueuer, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		enqueuer:   enqueuer,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClosed,
		events.EventTicketReopened,
		events.EventTicketCategoryChanged,
		events.EventCommentAdded,
	} {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("ticket_id", event.TicketID),
		zap.Int64("actor_id", event.Actor.ID),
		zap.Any("payload", event.Payload))

	if !n.cfg.Enabled || n.enqueuer == nil {
		return nil
	}
	task, err := worker.NewNotifyTask(event)
	if err != nil {
		return err
	}
	info, err := n.enqueuer.EnqueueContext(ctx, task, asynq.Queue(n.cfg.Queue), asynq.MaxRetry(5))
	if err != nil {
		return err
	}
	n.logger.Debug("notification enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}
