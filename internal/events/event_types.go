package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpdesk-labs/ticketing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket.created"
	EventTicketClosed          EventType = "ticket.closed"
	EventTicketReopened        EventType = "ticket.reopened"
	EventTicketCategoryChanged EventType = "ticket.category_changed"
	EventCommentAdded          EventType = "comment.added"
)

// Actor identifies who caused the event.
type Actor struct {
	ID   int64       `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted after a committed mutation.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps a fresh event id.
func NewEvent(eventType EventType, ticketID int64, actor domain.Principal, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     Actor{ID: actor.ID, Role: actor.Role},
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string          `json:"title"`
	Category domain.Category `json:"category"`
}

// StateChangedPayload is carried by close and reopen events.
type StateChangedPayload struct {
	From domain.TicketState `json:"from"`
	To   domain.TicketState `json:"to"`
}

// CategoryChangedPayload payload.
type CategoryChangedPayload struct {
	From domain.Category `json:"from"`
	To   domain.Category `json:"to"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   int64  `json:"comment_id"`
	TextPreview string `json:"text_preview"`
}
