package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticketing/internal/config"
	"github.com/helpdesk-labs/ticketing/internal/observability"
)

// NotificationHandler delivers ticket notifications. Delivery is a log line
// until a real channel is configured.
type NotificationHandler struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewNotificationHandler builds the handler. metrics may be nil.
func NewNotificationHandler(logger *zap.Logger, metrics *observability.Metrics) *NotificationHandler {
	return &NotificationHandler{logger: logger, metrics: metrics}
}

// ProcessTask implements asynq.Handler.
func (h *NotificationHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	event, err := DecodeNotifyTask(task)
	if err != nil {
		h.logger.Warn("dropping malformed notification", zap.Error(err))
		return errors.Join(err, asynq.SkipRetry)
	}

	h.logger.Info("ticket notification",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.Int64("actor_id", event.Actor.ID),
		zap.Time("at", event.Timestamp),
	)
	h.metrics.NotificationDelivered(string(event.Type))
	return nil
}

// Worker wraps the asynq server consuming the notification queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewWorker constructs a worker bound to the configured queue.
func NewWorker(redisOpt asynq.RedisClientOpt, cfg config.NotificationConfig, handler *NotificationHandler, logger *zap.Logger) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{cfg.Queue: 1},
		Logger:      logger.Sugar(),
	})
	mux := asynq.NewServeMux()
	mux.Handle(TaskTicketNotify, handler)
	return &Worker{server: srv, mux: mux, logger: logger}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.logger.Info("notification worker started")
	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info("notification worker stopped")
	return nil
}
