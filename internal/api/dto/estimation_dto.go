package dto

import (
	"github.com/helpdesk-labs/ticketing/internal/domain"
	"github.com/helpdesk-labs/ticketing/internal/estimation"
)

// EstimationRequest is the batch accepted by the estimation service.
type EstimationRequest struct {
	Tickets []EstimationTicket `json:"tickets" validate:"required,dive"`
}

// EstimationTicket is one ticket to estimate.
type EstimationTicket struct {
	ID       *int64          `json:"id,omitempty" validate:"omitempty,min=1"`
	Title    string          `json:"title" validate:"nonblank"`
	Category domain.Category `json:"category" validate:"ticket_category"`
}

// EstimationResponse is one estimate.
type EstimationResponse struct {
	ID         *int64 `json:"id,omitempty"`
	Estimation string `json:"estimation"`
}

// EstimationInput converts the request for the engine.
func (r EstimationRequest) EstimationInput() []estimation.Ticket {
	out := make([]estimation.Ticket, 0, len(r.Tickets))
	for _, t := range r.Tickets {
		out = append(out, estimation.Ticket{ID: t.ID, Title: t.Title, Category: t.Category})
	}
	return out
}

// NewEstimationResponses maps engine output.
func NewEstimationResponses(estimates []estimation.Estimate) []EstimationResponse {
	out := make([]EstimationResponse, 0, len(estimates))
	for _, e := range estimates {
		out = append(out, EstimationResponse{ID: e.ID, Estimation: e.Text})
	}
	return out
}
