// Package client talks to both services over HTTP. Client holds a session
// with the ticket service; EstimatorClient calls the estimation service with
// a capability token obtained from it.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/ticketing/internal/api/dto"
)

const defaultTimeout = 10 * time.Second

// ErrNotLoggedIn is returned by calls that need a session before Login.
var ErrNotLoggedIn = errors.New("client: not logged in")

// APIError is a non-2xx answer from either service.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from either service.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Client is a session-holding client for the ticket service.
type Client struct {
	baseURL string
	cookie  string
	session string
}

// New returns a client for the ticket service at baseURL.
func New(baseURL, sessionCookie string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), cookie: sessionCookie}
}

// Login opens a session and remembers its handle.
func (c *Client) Login(ctx context.Context, username, password string) (dto.PrincipalResponse, error) {
	var principal dto.PrincipalResponse
	agent := fiber.Post(c.baseURL + "/sessions").JSON(dto.LoginRequest{Username: username, Password: password})
	resp := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(resp)
	agent.SetResponse(resp)

	if err := send(ctx, agent, &principal); err != nil {
		return principal, err
	}
	handle := cookieValue(resp.Header.PeekCookie(c.cookie))
	if handle == "" {
		return principal, errors.New("client: session cookie missing from login response")
	}
	c.session = handle
	return principal, nil
}

// Token asks the ticket service for a capability token.
func (c *Client) Token(ctx context.Context) (dto.TokenResponse, error) {
	var token dto.TokenResponse
	if c.session == "" {
		return token, ErrNotLoggedIn
	}
	agent := fiber.Get(c.baseURL+"/token").Cookie(c.cookie, c.session)
	err := send(ctx, agent, &token)
	return token, err
}

// Logout ends the session. It is safe to call more than once.
func (c *Client) Logout(ctx context.Context) error {
	if c.session == "" {
		return nil
	}
	agent := fiber.Delete(c.baseURL+"/sessions/current").Cookie(c.cookie, c.session)
	if err := send(ctx, agent, nil); err != nil {
		return err
	}
	c.session = ""
	return nil
}

func send(ctx context.Context, agent *fiber.Agent, out any) error {
	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("client: prepare request: %w", err)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("client: %w", errors.Join(errs...))
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: status}
		var envelope struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(body, &envelope) == nil {
			apiErr.Message, apiErr.Code = envelope.Error, envelope.Code
		}
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// cookieValue extracts the value from a raw Set-Cookie header.
func cookieValue(raw []byte) string {
	value, _, _ := strings.Cut(string(raw), ";")
	if _, v, ok := strings.Cut(value, "="); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(value)
}
