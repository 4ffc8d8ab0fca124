package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/ticketing/internal/api/dto"
	"github.com/helpdesk-labs/ticketing/internal/auth"
	"github.com/helpdesk-labs/ticketing/internal/config"
	"github.com/helpdesk-labs/ticketing/internal/service"
	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

// SessionsHandler exposes login, logout, the current session and token issuance.
type SessionsHandler struct {
	service   *service.AuthService
	validator *Validator
	cfg       config.AuthConfig
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(authService *service.AuthService, validator *Validator, cfg config.AuthConfig) *SessionsHandler {
	return &SessionsHandler{service: authService, validator: validator, cfg: cfg}
}

// Login POST /sessions.
func (h *SessionsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewUnauthorized(service.LoginFailedMessage)
	}
	if err := h.validator.Struct(&req); err != nil {
		return apperrors.NewUnauthorized(service.LoginFailedMessage)
	}

	session, err := h.service.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.SessionCookie,
		Value:    session.Handle,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(dto.NewPrincipalResponse(session.Principal))
}

// Current GET /sessions/current. No session answers 204 with no body.
func (h *SessionsHandler) Current(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(dto.NewPrincipalResponse(principal))
}

// Logout DELETE /sessions/current.
func (h *SessionsHandler) Logout(c *fiber.Ctx) error {
	handle := auth.SessionHandle(c, h.cfg.SessionCookie)
	if err := h.service.Logout(c.UserContext(), handle); err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{})
}

// Token GET /token.
func (h *SessionsHandler) Token(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	token, err := h.service.IssueToken(principal)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTokenResponse(token))
}
