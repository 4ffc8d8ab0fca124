package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/ticketing/internal/api/dto"
)

// TokenSource issues capability tokens. *Client satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (dto.TokenResponse, error)
}

// EstimatorClient calls the estimation service. It caches the capability
// token and, on a 401, fetches a fresh one and retries exactly once.
type EstimatorClient struct {
	baseURL string
	tokens  TokenSource
	now     func() time.Time

	mu    sync.Mutex
	token dto.TokenResponse
}

// NewEstimatorClient returns a client for the estimation service at baseURL.
func NewEstimatorClient(baseURL string, tokens TokenSource) *EstimatorClient {
	return &EstimatorClient{baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens, now: time.Now}
}

// Estimate requests estimates for tickets.
func (e *EstimatorClient) Estimate(ctx context.Context, tickets []dto.EstimationTicket) ([]dto.EstimationResponse, error) {
	token, err := e.currentToken(ctx, false)
	if err != nil {
		return nil, err
	}
	out, err := e.post(ctx, token, tickets)
	if !IsUnauthorized(err) {
		return out, err
	}

	token, err = e.currentToken(ctx, true)
	if err != nil {
		return nil, err
	}
	return e.post(ctx, token, tickets)
}

func (e *EstimatorClient) post(ctx context.Context, token string, tickets []dto.EstimationTicket) ([]dto.EstimationResponse, error) {
	var out []dto.EstimationResponse
	agent := fiber.Post(e.baseURL+"/estimations").
		Set(fiber.HeaderAuthorization, "Bearer "+token).
		JSON(dto.EstimationRequest{Tickets: tickets})
	if err := send(ctx, agent, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *EstimatorClient) currentToken(ctx context.Context, renew bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !renew && e.token.Token != "" && e.now().Before(e.token.ExpiresAt) {
		return e.token.Token, nil
	}
	token, err := e.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	e.token = token
	return token.Token, nil
}
