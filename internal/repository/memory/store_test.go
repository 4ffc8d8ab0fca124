package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helpdesk-labs/ticketing/internal/domain"
	"github.com/helpdesk-labs/ticketing/internal/repository"
)

func seededStore(t *testing.T) (*Store, *domain.User) {
	t.Helper()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore().WithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})
	owner := &domain.User{Name: "jane"}
	require.NoError(t, store.Users().Create(context.Background(), owner))
	return store, owner
}

func createTicket(t *testing.T, store *Store, ownerID int64, title string) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{OwnerID: ownerID, Title: title, Category: domain.CategoryInquiry, State: domain.TicketStateOpen}
	require.NoError(t, store.Tickets().CreateWithDescription(context.Background(), ticket, &domain.Comment{AuthorID: ownerID, Text: "details"}))
	return ticket
}

func TestCreateWithDescription(t *testing.T) {
	store, owner := seededStore(t)
	ticket := createTicket(t, store, owner.ID, "Printer jam")

	comments, err := store.Comments().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "details", comments[0].Text)
	require.Equal(t, "jane", comments[0].AuthorName)
	require.Equal(t, "jane", ticket.OwnerName)
}

func TestListNewestFirst(t *testing.T) {
	store, owner := seededStore(t)
	first := createTicket(t, store, owner.ID, "first")
	second := createTicket(t, store, owner.ID, "second")

	tickets, err := store.Tickets().List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{second.ID, first.ID}, []int64{tickets[0].ID, tickets[1].ID})
}

func TestGuardedStateUpdate(t *testing.T) {
	store, owner := seededStore(t)
	ticket := createTicket(t, store, owner.ID, "t")
	ctx := context.Background()

	require.NoError(t, store.Tickets().UpdateState(ctx, ticket.ID, domain.TicketStateOpen, domain.TicketStateClosed))
	require.ErrorIs(t, store.Tickets().UpdateState(ctx, ticket.ID, domain.TicketStateOpen, domain.TicketStateClosed), repository.ErrStateMismatch)
	require.ErrorIs(t, store.Tickets().UpdateState(ctx, 99, domain.TicketStateOpen, domain.TicketStateClosed), repository.ErrNotFound)
}

func TestAppendIfOpen(t *testing.T) {
	store, owner := seededStore(t)
	ticket := createTicket(t, store, owner.ID, "t")
	ctx := context.Background()

	require.NoError(t, store.Comments().AppendIfOpen(ctx, &domain.Comment{TicketID: ticket.ID, AuthorID: owner.ID, Text: "more"}))
	require.NoError(t, store.Tickets().UpdateState(ctx, ticket.ID, domain.TicketStateOpen, domain.TicketStateClosed))
	require.ErrorIs(t, store.Comments().AppendIfOpen(ctx, &domain.Comment{TicketID: ticket.ID, AuthorID: owner.ID, Text: "late"}), repository.ErrStateMismatch)
	require.ErrorIs(t, store.Comments().AppendIfOpen(ctx, &domain.Comment{TicketID: 42, AuthorID: owner.ID, Text: "x"}), repository.ErrNotFound)

	comments, err := store.Comments().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
}

func TestDuplicateUserName(t *testing.T) {
	store, _ := seededStore(t)
	require.ErrorIs(t, store.Users().Create(context.Background(), &domain.User{Name: "jane"}), repository.ErrDuplicate)
}
