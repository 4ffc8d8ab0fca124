package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-labs/ticketing/internal/domain"
)

// TicketRepository encapsulates ticket persistence. State and category
// writes are guarded by the value the caller last observed.
type TicketRepository interface {
	CreateWithDescription(ctx context.Context, ticket *domain.Ticket, description *domain.Comment) error
	List(ctx context.Context) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	UpdateState(ctx context.Context, id int64, from, to domain.TicketState) error
	UpdateCategory(ctx context.Context, id int64, from, to domain.Category) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.owner_id, u.name, t.title, t.category, t.state, t.created_at`

// CreateWithDescription inserts the ticket and its first comment in one transaction.
func (r *ticketRepository) CreateWithDescription(ctx context.Context, ticket *domain.Ticket, description *domain.Comment) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insertTicket = `
            INSERT INTO tickets (owner_id, title, category, state)
            VALUES ($1, $2, $3, $4)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insertTicket,
			ticket.OwnerID,
			ticket.Title,
			ticket.Category,
			ticket.State,
		).Scan(&ticket.ID, &ticket.CreatedAt); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}

		const insertComment = `
            INSERT INTO comments (ticket_id, author_id, text)
            VALUES ($1, $2, $3)
            RETURNING id, created_at`
		description.TicketID = ticket.ID
		if err := tx.QueryRow(ctx, insertComment,
			description.TicketID,
			description.AuthorID,
			description.Text,
		).Scan(&description.ID, &description.Timestamp); err != nil {
			return fmt.Errorf("insert description: %w", err)
		}
		return nil
	})
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets t JOIN users u ON u.id = t.owner_id
        ORDER BY t.created_at DESC, t.id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets t JOIN users u ON u.id = t.owner_id
        WHERE t.id = $1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return ticket, nil
}

func (r *ticketRepository) UpdateState(ctx context.Context, id int64, from, to domain.TicketState) error {
	const query = `UPDATE tickets SET state=$1 WHERE id=$2 AND state=$3`
	cmd, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.guardMiss(ctx, id)
	}
	return nil
}

func (r *ticketRepository) UpdateCategory(ctx context.Context, id int64, from, to domain.Category) error {
	const query = `UPDATE tickets SET category=$1 WHERE id=$2 AND category=$3`
	cmd, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.guardMiss(ctx, id)
	}
	return nil
}

// guardMiss tells a vanished row apart from one whose guard no longer holds.
func (r *ticketRepository) guardMiss(ctx context.Context, id int64) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStateMismatch
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.OwnerName,
		&ticket.Title,
		&ticket.Category,
		&ticket.State,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
