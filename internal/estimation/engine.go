// Package estimation computes the placeholder resolution estimate served by
// the estimation service. The result depends on ticket metadata, the
// caller's role and one random draw per ticket.
package estimation

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/helpdesk-labs/ticketing/internal/domain"
	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

const (
	hoursPerChar = 10
	maxJitter    = 240
	hoursPerDay  = 24
)

// RandomSource yields uniform integers in [0, n).
type RandomSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Ticket is one estimation input. ID is echoed back untouched.
type Ticket struct {
	ID       *int64
	Title    string
	Category domain.Category
}

// Estimate is the outcome for one ticket.
type Estimate struct {
	ID    *int64
	Hours int
	Text  string
}

// Engine runs estimations. It is safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	source RandomSource
}

// NewEngine builds an engine. A nil source uses the process-wide generator.
func NewEngine(source RandomSource) *Engine {
	if source == nil {
		source = globalSource{}
	}
	return &Engine{source: source}
}

// Estimate validates the whole batch, then estimates every ticket. Admins
// get hours; everybody else gets whole days rounded up.
func (e *Engine) Estimate(tickets []Ticket, role domain.Role) ([]Estimate, error) {
	if !role.Valid() {
		return nil, apperrors.NewUnauthorized("Unauthorized to get estimations")
	}
	if err := Validate(tickets); err != nil {
		return nil, err
	}

	results := make([]Estimate, 0, len(tickets))
	for _, ticket := range tickets {
		hours := baseHours(ticket) + e.draw()
		results = append(results, Estimate{
			ID:    ticket.ID,
			Hours: hours,
			Text:  Format(hours, role),
		})
	}
	return results, nil
}

// Validate rejects the batch on the first ticket with an empty title or an
// unknown category.
func Validate(tickets []Ticket) error {
	for i, ticket := range tickets {
		if strings.TrimSpace(ticket.Title) == "" {
			return apperrors.NewValidationError("Title cannot be empty", map[string]any{"index": i})
		}
		if !ticket.Category.Valid() {
			return apperrors.NewValidationError("Invalid category", map[string]any{"index": i})
		}
	}
	return nil
}

// Format renders hours for role.
func Format(hours int, role domain.Role) string {
	if role == domain.RoleAdmin {
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d days", Days(hours))
}

// Days converts hours to whole days, rounding up.
func Days(hours int) int {
	return (hours + hoursPerDay - 1) / hoursPerDay
}

func (e *Engine) draw() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source.IntN(maxJitter) + 1
}

func baseHours(ticket Ticket) int {
	return (countNonSpace(ticket.Title) + countNonSpace(string(ticket.Category))) * hoursPerChar
}

func countNonSpace(s string) int {
	return utf8.RuneCountInString(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}
