package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticketing/internal/domain"
	"github.com/helpdesk-labs/ticketing/internal/events"
	"github.com/helpdesk-labs/ticketing/internal/observability"
	"github.com/helpdesk-labs/ticketing/internal/repository"
	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

// Error messages surfaced by ticket operations.
const (
	MsgTitleEmpty        = "Title cannot be empty"
	MsgInvalidCategory   = "Invalid category"
	MsgTextEmpty         = "Text cannot be empty"
	MsgInvalidTicketID   = "Invalid ticket ID"
	MsgUnexpectedState   = "Ticket not in expected state"
	MsgSameCategory      = "Ticket already has this category"
	MsgCommentsForbidden = "Cannot add comments to this ticket"
)

const previewLength = 80

// TicketService is the ticket state machine. Every role and state rule is
// enforced here, independent of the transport.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title    string
	Category domain.Category
	Text     string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTicket opens a ticket together with its description comment.
func (s *TicketService) CreateTicket(ctx context.Context, principal domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	text := strings.TrimSpace(input.Text)
	if title == "" {
		return nil, apperrors.NewValidationError(MsgTitleEmpty, map[string]any{"field": "title"})
	}
	if !input.Category.Valid() {
		return nil, apperrors.NewValidationError(MsgInvalidCategory, map[string]any{"field": "category"})
	}
	if text == "" {
		return nil, apperrors.NewValidationError(MsgTextEmpty, map[string]any{"field": "text"})
	}

	ticket := &domain.Ticket{
		OwnerID:   principal.ID,
		OwnerName: principal.DisplayName,
		Title:     title,
		Category:  input.Category,
		State:     domain.TicketStateOpen,
	}
	description := &domain.Comment{AuthorID: principal.ID, AuthorName: principal.DisplayName, Text: text}
	if err := s.tickets.CreateWithDescription(ctx, ticket, description); err != nil {
		return nil, s.mapRepoError(err)
	}

	s.metrics.TicketTransition("create")
	s.publishEvent(ctx, events.EventTicketCreated, ticket.ID, principal, events.TicketCreatedPayload{
		Title:    ticket.Title,
		Category: ticket.Category,
	})
	return ticket, nil
}

// ListTickets returns every ticket, newest first. Reading is public.
func (s *TicketService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	return tickets, nil
}

// CloseTicket closes an open ticket. Owners and admins may close; a missing
// ticket is reported as not found before ownership is considered.
func (s *TicketService) CloseTicket(ctx context.Context, principal domain.Principal, ticketID int64) error {
	if err := requireAuthenticated(principal); err != nil {
		return err
	}
	if err := validateTicketID(ticketID); err != nil {
		return err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return s.mapRepoError(err)
	}
	if !principal.IsAdmin() && ticket.OwnerID != principal.ID {
		return apperrors.NewForbidden("")
	}
	if ticket.State != domain.TicketStateOpen {
		return stateConflict(ticket.State, domain.TicketStateOpen)
	}

	return s.transition(ctx, principal, ticketID, domain.TicketStateOpen, domain.TicketStateClosed, events.EventTicketClosed, "close")
}

// ReopenTicket reopens a closed ticket. Admin only.
func (s *TicketService) ReopenTicket(ctx context.Context, principal domain.Principal, ticketID int64) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if err := validateTicketID(ticketID); err != nil {
		return err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return s.mapRepoError(err)
	}
	if ticket.State != domain.TicketStateClosed {
		return stateConflict(ticket.State, domain.TicketStateClosed)
	}

	return s.transition(ctx, principal, ticketID, domain.TicketStateClosed, domain.TicketStateOpen, events.EventTicketReopened, "reopen")
}

// ChangeCategory moves a ticket to another category. Admin only; setting
// the current category again is rejected.
func (s *TicketService) ChangeCategory(ctx context.Context, principal domain.Principal, ticketID int64, category domain.Category) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if err := validateTicketID(ticketID); err != nil {
		return err
	}
	if !category.Valid() {
		return apperrors.NewValidationError(MsgInvalidCategory, map[string]any{"field": "category"})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return s.mapRepoError(err)
	}
	if ticket.Category == category {
		return apperrors.NewValidationError(MsgSameCategory, map[string]any{"category": category})
	}

	if err := s.tickets.UpdateCategory(ctx, ticketID, ticket.Category, category); err != nil {
		return s.mapRepoError(err)
	}

	s.metrics.TicketTransition("category")
	s.publishEvent(ctx, events.EventTicketCategoryChanged, ticketID, principal, events.CategoryChangedPayload{
		From: ticket.Category,
		To:   category,
	})
	return nil
}

// AddComment appends a comment to an open ticket.
func (s *TicketService) AddComment(ctx context.Context, principal domain.Principal, ticketID int64, text string) (*domain.Comment, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if err := validateTicketID(ticketID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError(MsgTextEmpty, map[string]any{"field": "text"})
	}

	comment := &domain.Comment{
		TicketID:   ticketID,
		AuthorID:   principal.ID,
		AuthorName: principal.DisplayName,
		Text:       text,
	}
	if err := s.comments.AppendIfOpen(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrStateMismatch) {
			return nil, apperrors.NewBadRequest(MsgCommentsForbidden)
		}
		return nil, s.mapRepoError(err)
	}

	s.publishEvent(ctx, events.EventCommentAdded, ticketID, principal, events.CommentAddedPayload{
		CommentID:   comment.ID,
		TextPreview: preview(text),
	})
	return comment, nil
}

// ListComments returns the thread of a ticket, oldest first. The first
// entry is the description.
func (s *TicketService) ListComments(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	if err := validateTicketID(ticketID); err != nil {
		return nil, err
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, s.mapRepoError(err)
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	return comments, nil
}

func (s *TicketService) transition(ctx context.Context, principal domain.Principal, ticketID int64, from, to domain.TicketState, eventType events.EventType, label string) error {
	if err := s.tickets.UpdateState(ctx, ticketID, from, to); err != nil {
		return s.mapRepoError(err)
	}
	s.metrics.TicketTransition(label)
	s.publishEvent(ctx, eventType, ticketID, principal, events.StateChangedPayload{From: from, To: to})
	return nil
}

// publishEvent runs after the write committed; handler failures are logged only.
func (s *TicketService) publishEvent(ctx context.Context, eventType events.EventType, ticketID int64, actor domain.Principal, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.NewEvent(eventType, ticketID, actor, s.now().UTC(), payload)
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.Int64("ticket_id", ticketID),
			zap.Error(err))
	}
}

func (s *TicketService) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("Ticket", nil)
	case errors.Is(err, repository.ErrStateMismatch):
		return apperrors.NewStateConflict(MsgUnexpectedState, nil)
	default:
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		s.logger.Error("repository failure", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
}

func requireAuthenticated(principal domain.Principal) error {
	if principal.ID < 1 || !principal.Role.Valid() {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	return nil
}

func requireAdmin(principal domain.Principal) error {
	if err := requireAuthenticated(principal); err != nil {
		return err
	}
	if !principal.IsAdmin() {
		return apperrors.NewForbidden("")
	}
	return nil
}

func validateTicketID(id int64) error {
	if id < 1 {
		return apperrors.NewValidationError(MsgInvalidTicketID, map[string]any{"field": "id"})
	}
	return nil
}

func stateConflict(current, expected domain.TicketState) error {
	return apperrors.NewStateConflict(MsgUnexpectedState, map[string]any{
		"state":    current,
		"expected": expected,
	})
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength]) + "…"
}
