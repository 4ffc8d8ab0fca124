package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/helpdesk-labs/ticketing/internal/events"
)

// TaskTicketNotify carries one ticket event to the notification worker.
const TaskTicketNotify = "ticket:notify"

// NewNotifyTask wraps a domain event into an asynq task.
func NewNotifyTask(event events.Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", TaskTicketNotify, err)
	}
	return asynq.NewTask(TaskTicketNotify, data), nil
}

// DecodeNotifyTask restores the event carried by a notify task. The payload
// comes back as generic JSON.
func DecodeNotifyTask(task *asynq.Task) (events.Event, error) {
	var event events.Event
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		return events.Event{}, err
	}
	if event.Type == "" || event.TicketID < 1 {
		return events.Event{}, fmt.Errorf("incomplete %s payload", TaskTicketNotify)
	}
	return event, nil
}
