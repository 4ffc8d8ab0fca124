package domain

import "time"

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen   TicketState = "open"
	TicketStateClosed TicketState = "closed"
)

// Valid reports whether s is open or closed.
func (s TicketState) Valid() bool {
	return s == TicketStateOpen || s == TicketStateClosed
}

// Category is the fixed ticket classification.
type Category string

const (
	CategoryInquiry        Category = "inquiry"
	CategoryMaintenance    Category = "maintenance"
	CategoryNewFeature     Category = "new feature"
	CategoryAdministrative Category = "administrative"
	CategoryPayment        Category = "payment"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryInquiry,
	CategoryMaintenance,
	CategoryNewFeature,
	CategoryAdministrative,
	CategoryPayment,
}

// Valid reports whether c is one of the five fixed categories.
func (c Category) Valid() bool {
	for _, candidate := range Categories {
		if c == candidate {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests. OwnerName is filled by
// listing queries only.
type Ticket struct {
	ID        int64
	OwnerID   int64
	OwnerName string
	Title     string
	Category  Category
	State     TicketState
	CreatedAt time.Time
}

// AcceptsComments reports whether non-description comments may be appended.
func (t Ticket) AcceptsComments() bool {
	return t.State == TicketStateOpen
}
