// Package memory provides in-process repositories used when no Postgres DSN
// is configured, and by tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/helpdesk-labs/ticketing/internal/domain"
	"github.com/helpdesk-labs/ticketing/internal/repository"
)

// Store holds users, tickets and comments behind one lock, so guarded
// writes behave like single-row atomic updates.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    []domain.User
	tickets  []domain.Ticket
	comments []domain.Comment
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Comments returns the comment repository view.
func (s *Store) Comments() repository.CommentRepository { return commentRepo{s} }

func (s *Store) userName(id int64) string {
	for _, u := range s.users {
		if u.ID == id {
			return u.Name
		}
	}
	return ""
}

func (s *Store) ticketIndex(id int64) int {
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Name == user.Name {
			return repository.ErrDuplicate
		}
	}
	user.ID = int64(len(r.s.users) + 1)
	r.s.users = append(r.s.users, *user)
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) GetByName(_ context.Context, name string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Name == name {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) CreateWithDescription(_ context.Context, ticket *domain.Ticket, description *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	ticket.ID = int64(len(r.s.tickets) + 1)
	ticket.CreatedAt = now
	ticket.OwnerName = r.s.userName(ticket.OwnerID)
	r.s.tickets = append(r.s.tickets, *ticket)

	description.ID = int64(len(r.s.comments) + 1)
	description.TicketID = ticket.ID
	description.Timestamp = now
	description.AuthorName = r.s.userName(description.AuthorID)
	r.s.comments = append(r.s.comments, *description)
	return nil
}

func (r ticketRepo) List(_ context.Context) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Ticket, len(r.s.tickets))
	copy(result, r.s.tickets)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	idx := r.s.ticketIndex(id)
	if idx < 0 {
		return nil, repository.ErrNotFound
	}
	found := r.s.tickets[idx]
	return &found, nil
}

func (r ticketRepo) UpdateState(_ context.Context, id int64, from, to domain.TicketState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	idx := r.s.ticketIndex(id)
	if idx < 0 {
		return repository.ErrNotFound
	}
	if r.s.tickets[idx].State != from {
		return repository.ErrStateMismatch
	}
	r.s.tickets[idx].State = to
	return nil
}

func (r ticketRepo) UpdateCategory(_ context.Context, id int64, from, to domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	idx := r.s.ticketIndex(id)
	if idx < 0 {
		return repository.ErrNotFound
	}
	if r.s.tickets[idx].Category != from {
		return repository.ErrStateMismatch
	}
	r.s.tickets[idx].Category = to
	return nil
}

type commentRepo struct{ s *Store }

func (r commentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Comment{}
	for _, c := range r.s.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r commentRepo) AppendIfOpen(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	idx := r.s.ticketIndex(comment.TicketID)
	if idx < 0 {
		return repository.ErrNotFound
	}
	if !r.s.tickets[idx].AcceptsComments() {
		return repository.ErrStateMismatch
	}
	comment.ID = int64(len(r.s.comments) + 1)
	comment.Timestamp = r.s.now()
	comment.AuthorName = r.s.userName(comment.AuthorID)
	r.s.comments = append(r.s.comments, *comment)
	return nil
}
