package dto

import (
	"time"

	"github.com/helpdesk-labs/ticketing/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title    string          `json:"title" validate:"nonblank"`
	Category domain.Category `json:"category" validate:"ticket_category"`
	Text     string          `json:"text" validate:"nonblank"`
}

// ChangeCategoryRequest payload.
type ChangeCategoryRequest struct {
	Category domain.Category `json:"category" validate:"ticket_category"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Text string `json:"text" validate:"nonblank"`
}

// TicketResponse is one row of the public ticket list.
type TicketResponse struct {
	ID        int64              `json:"id"`
	OwnerID   int64              `json:"ownerId"`
	Owner     string             `json:"owner"`
	Title     string             `json:"title"`
	Category  domain.Category    `json:"category"`
	State     domain.TicketState `json:"state"`
	CreatedAt time.Time          `json:"createdAt"`
}

// CommentResponse is one entry of a ticket thread.
type CommentResponse struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticketId"`
	AuthorID  int64     `json:"authorId"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTicketResponses maps tickets, never returning nil.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketResponse{
			ID:        t.ID,
			OwnerID:   t.OwnerID,
			Owner:     t.OwnerName,
			Title:     t.Title,
			Category:  t.Category,
			State:     t.State,
			CreatedAt: t.CreatedAt,
		})
	}
	return out
}

// NewCommentResponses maps comments, never returning nil.
func NewCommentResponses(comments []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, CommentResponse{
			ID:        c.ID,
			TicketID:  c.TicketID,
			AuthorID:  c.AuthorID,
			Author:    c.AuthorName,
			Text:      c.Text,
			Timestamp: c.Timestamp,
		})
	}
	return out
}
