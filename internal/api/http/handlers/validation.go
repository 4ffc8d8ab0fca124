package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/ticketing/internal/domain"
	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

// fieldMessages maps struct fields to the message shown for any rule failure.
var fieldMessages = map[string]string{
	"Title":    "Title cannot be empty",
	"Category": "Invalid category",
	"Text":     "Text cannot be empty",
	"Tickets":  "Must provide an array of tickets",
	"ID":       "Invalid ticket ID",
	"Username": "Username and password are required",
	"Password": "Username and password are required",
}

// Validator wraps go-playground/validator with the ticketing rules.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the custom rules.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("ticket_category", func(fl validator.FieldLevel) bool {
		return domain.Category(fl.Field().String()).Valid()
	})
	return &Validator{validate: v}
}

// Struct validates payload and reports the first failure as a 422.
func (v *Validator) Struct(payload any) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidationError("Invalid request body", nil)
	}
	first := fieldErrs[0]
	msg, ok := fieldMessages[first.Field()]
	if !ok {
		msg = fmt.Sprintf("Invalid %s", strings.ToLower(first.Field()))
	}
	return apperrors.NewValidationError(msg, map[string]any{"field": first.Namespace(), "rule": first.Tag()})
}

// bind parses the JSON body into out and validates it.
func (v *Validator) bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("Invalid request body", nil)
	}
	return v.Struct(out)
}

// ticketID reads the :id route parameter.
func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return 0, apperrors.NewValidationError("Invalid ticket ID", map[string]any{"field": "id"})
	}
	return int64(id), nil
}
