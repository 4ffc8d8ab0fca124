package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-labs/ticketing/internal/domain"
	"github.com/helpdesk-labs/ticketing/internal/events"
	"github.com/helpdesk-labs/ticketing/internal/repository/memory"
	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

var (
	admin = domain.Principal{ID: 1, DisplayName: "admin", Role: domain.RoleAdmin}
	owner = domain.Principal{ID: 2, DisplayName: "jane", Role: domain.RoleRegular}
	other = domain.Principal{ID: 3, DisplayName: "bob", Role: domain.RoleRegular}
)

type ticketFixture struct {
	svc        *TicketService
	dispatcher events.Dispatcher
	published  []events.EventType
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	store := memory.NewStore()
	for _, name := range []string{"admin", "jane", "bob"} {
		require.NoError(t, store.Users().Create(context.Background(), &domain.User{Name: name}))
	}

	f := &ticketFixture{dispatcher: events.NewInMemoryDispatcher()}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClosed,
		events.EventTicketReopened,
		events.EventTicketCategoryChanged,
		events.EventCommentAdded,
	} {
		f.dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e.Type)
			return nil
		})
	}
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:  store.Tickets(),
		CommentRepo: store.Comments(),
		Dispatcher:  f.dispatcher,
	})
	return f
}

func (f *ticketFixture) open(t *testing.T, by domain.Principal) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.CreateTicket(context.Background(), by, TicketCreateInput{
		Title:    "Printer jam",
		Category: domain.CategoryMaintenance,
		Text:     "Paper stuck in tray 2",
	})
	require.NoError(t, err)
	return ticket
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func TestCreateTicketHasExactlyOneComment(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	before := time.Now()

	ticket := f.open(t, owner)
	require.Equal(t, domain.TicketStateOpen, ticket.State)
	require.Equal(t, owner.ID, ticket.OwnerID)

	comments, err := f.svc.ListComments(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Paper stuck in tray 2", comments[0].Text)
	assert.False(t, comments[0].Timestamp.Before(before))
	assert.False(t, comments[0].Timestamp.After(time.Now()))
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.published)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	cases := map[string]TicketCreateInput{
		MsgTitleEmpty:      {Title: "  ", Category: domain.CategoryInquiry, Text: "x"},
		MsgInvalidCategory: {Title: "t", Category: "urgent", Text: "x"},
		MsgTextEmpty:       {Title: "t", Category: domain.CategoryInquiry, Text: ""},
	}
	for msg, input := range cases {
		_, err := f.svc.CreateTicket(ctx, owner, input)
		requireCode(t, err, apperrors.CodeValidation)
		require.Equal(t, msg, apperrors.ToDomainError(err).Message)
	}

	tickets, err := f.svc.ListTickets(ctx)
	require.NoError(t, err)
	require.Empty(t, tickets)

	_, err = f.svc.CreateTicket(ctx, domain.Principal{}, TicketCreateInput{Title: "t", Category: domain.CategoryInquiry, Text: "x"})
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestCloseByOwnerAndAdmin(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	mine := f.open(t, owner)
	require.NoError(t, f.svc.CloseTicket(ctx, owner, mine.ID))

	theirs := f.open(t, owner)
	require.NoError(t, f.svc.CloseTicket(ctx, admin, theirs.ID))

	tickets, err := f.svc.ListTickets(ctx)
	require.NoError(t, err)
	for _, ticket := range tickets {
		require.Equal(t, domain.TicketStateClosed, ticket.State)
	}
}

func TestCloseClosedTicketRejectedForEveryRole(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t, owner)
	require.NoError(t, f.svc.CloseTicket(ctx, owner, ticket.ID))

	for _, p := range []domain.Principal{owner, admin} {
		err := f.svc.CloseTicket(ctx, p, ticket.ID)
		requireCode(t, err, apperrors.CodeStateConflict)
		require.Equal(t, MsgUnexpectedState, apperrors.ToDomainError(err).Message)
	}
}

func TestCloseNotFoundVersusForbidden(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t, owner)

	err := f.svc.CloseTicket(ctx, other, ticket.ID)
	requireCode(t, err, apperrors.CodeForbidden)
	require.Equal(t, 401, apperrors.ToDomainError(err).HTTPStatus)

	for _, p := range []domain.Principal{other, owner, admin} {
		err = f.svc.CloseTicket(ctx, p, 999)
		requireCode(t, err, apperrors.CodeNotFound)
		require.Equal(t, "Ticket not found", apperrors.ToDomainError(err).Message)
	}

	err = f.svc.CloseTicket(ctx, owner, 0)
	requireCode(t, err, apperrors.CodeValidation)
	require.Equal(t, MsgInvalidTicketID, apperrors.ToDomainError(err).Message)
}

func TestReopenAdminOnly(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t, owner)

	requireCode(t, f.svc.ReopenTicket(ctx, admin, ticket.ID), apperrors.CodeStateConflict)

	require.NoError(t, f.svc.CloseTicket(ctx, owner, ticket.ID))
	requireCode(t, f.svc.ReopenTicket(ctx, owner, ticket.ID), apperrors.CodeForbidden)
	require.NoError(t, f.svc.ReopenTicket(ctx, admin, ticket.ID))
	requireCode(t, f.svc.ReopenTicket(ctx, admin, 999), apperrors.CodeNotFound)

	got, err := f.svc.ListTickets(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStateOpen, got[0].State)
}

func TestChangeCategory(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t, owner)

	requireCode(t, f.svc.ChangeCategory(ctx, owner, ticket.ID, domain.CategoryPayment), apperrors.CodeForbidden)
	requireCode(t, f.svc.ChangeCategory(ctx, admin, ticket.ID, "urgent"), apperrors.CodeValidation)

	err := f.svc.ChangeCategory(ctx, admin, ticket.ID, domain.CategoryMaintenance)
	requireCode(t, err, apperrors.CodeValidation)
	require.Equal(t, MsgSameCategory, apperrors.ToDomainError(err).Message)

	require.NoError(t, f.svc.ChangeCategory(ctx, admin, ticket.ID, domain.CategoryPayment))
	got, err := f.svc.ListTickets(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.CategoryPayment, got[0].Category)

	requireCode(t, f.svc.ChangeCategory(ctx, admin, 999, domain.CategoryInquiry), apperrors.CodeNotFound)
}

func TestCommentOnClosedTicketRejected(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t, owner)

	_, err := f.svc.AddComment(ctx, other, ticket.ID, "me too")
	require.NoError(t, err)
	require.NoError(t, f.svc.CloseTicket(ctx, owner, ticket.ID))

	_, err = f.svc.AddComment(ctx, admin, ticket.ID, "too late")
	requireCode(t, err, apperrors.CodeBadRequest)
	require.Equal(t, MsgCommentsForbidden, apperrors.ToDomainError(err).Message)

	comments, err := f.svc.ListComments(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	for _, c := range comments {
		require.NotEqual(t, "too late", c.Text)
	}
}

func TestCommentValidationAndMissingTicket(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t, owner)

	_, err := f.svc.AddComment(ctx, owner, ticket.ID, "   ")
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.svc.AddComment(ctx, owner, 404, "hello")
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.ListComments(ctx, 404)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestStateAlwaysOpenOrClosed(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t, owner)

	ops := []func() error{
		func() error { return f.svc.CloseTicket(ctx, owner, ticket.ID) },
		func() error { return f.svc.CloseTicket(ctx, admin, ticket.ID) },
		func() error { return f.svc.ReopenTicket(ctx, admin, ticket.ID) },
		func() error { return f.svc.ReopenTicket(ctx, owner, ticket.ID) },
		func() error { return f.svc.ChangeCategory(ctx, admin, ticket.ID, domain.CategoryInquiry) },
	}
	for round := 0; round < 3; round++ {
		for _, op := range ops {
			_ = op()
			tickets, err := f.svc.ListTickets(ctx)
			require.NoError(t, err)
			require.True(t, tickets[0].State.Valid())
		}
	}
}

func TestConcurrentCloseHasSingleWinner(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.open(t, owner)
	f.published = nil

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.svc.CloseTicket(ctx, admin, ticket.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperrors.HasCode(err, apperrors.CodeStateConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, 7, conflicts)
}

func TestEventHandlerFailureDoesNotFailMutation(t *testing.T) {
	f := newTicketFixture(t)
	f.dispatcher.Subscribe(events.EventTicketClosed, func(context.Context, events.Event) error {
		return errors.New("mail server down")
	})
	ticket := f.open(t, owner)

	require.NoError(t, f.svc.CloseTicket(context.Background(), owner, ticket.ID))
}
