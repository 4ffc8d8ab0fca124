package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/ticketing/internal/api/dto"
	"github.com/helpdesk-labs/ticketing/internal/auth"
	"github.com/helpdesk-labs/ticketing/internal/service"
	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

// changesApplied is the body of a successful transition.
const changesApplied = 1

// TicketsHandler manages ticket and comment endpoints.
type TicketsHandler struct {
	service   *service.TicketService
	validator *Validator
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, validator *Validator) *TicketsHandler {
	return &TicketsHandler{service: ticketService, validator: validator}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponses(tickets))
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	var req dto.CreateTicketRequest
	if err := h.validator.bind(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), principal, service.TicketCreateInput{
		Title:    req.Title,
		Category: req.Category,
		Text:     req.Text,
	})
	if err != nil {
		return err
	}
	return c.JSON(ticket.ID)
}

// CloseTicket PUT /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := h.service.CloseTicket(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.JSON(changesApplied)
}

// ReopenTicket PUT /tickets/:id/open.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := h.service.ReopenTicket(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.JSON(changesApplied)
}

// ChangeCategory PUT /tickets/:id/category.
func (h *TicketsHandler) ChangeCategory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.ChangeCategoryRequest
	if err := h.validator.bind(c, &req); err != nil {
		return err
	}
	if err := h.service.ChangeCategory(c.UserContext(), principal, id, req.Category); err != nil {
		return err
	}
	return c.JSON(changesApplied)
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	comments, err := h.service.ListComments(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCommentResponses(comments))
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := h.validator.bind(c, &req); err != nil {
		return err
	}
	comment, err := h.service.AddComment(c.UserContext(), principal, id, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(comment.ID)
}
