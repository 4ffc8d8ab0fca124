package client

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticketing/internal/api/dto"
	httptransport "github.com/helpdesk-labs/ticketing/internal/api/http"
	"github.com/helpdesk-labs/ticketing/internal/api/http/handlers"
	"github.com/helpdesk-labs/ticketing/internal/auth"
	"github.com/helpdesk-labs/ticketing/internal/domain"
	"github.com/helpdesk-labs/ticketing/internal/estimation"
	"github.com/helpdesk-labs/ticketing/internal/observability"
)

const secret = "client-test-secret"

type zeroSource struct{}

func (zeroSource) IntN(int) int { return 0 }

func serve(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String()
}

// fakeTicketService mimics the session and token endpoints.
func fakeTicketService(t *testing.T, issued *atomic.Int32) string {
	t.Helper()
	issuer := auth.NewTokenIssuer(secret, 5*time.Minute)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/sessions", func(c *fiber.Ctx) error {
		var req dto.LoginRequest
		if err := c.BodyParser(&req); err != nil || req.Password != "pw" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Incorrect username or password"})
		}
		c.Cookie(&fiber.Cookie{Name: "sid", Value: "handle-" + req.Username, HTTPOnly: true})
		return c.JSON(dto.PrincipalResponse{ID: 1, DisplayName: req.Username, Role: domain.RoleAdmin})
	})
	app.Get("/token", func(c *fiber.Ctx) error {
		if c.Cookies("sid") != "handle-root" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		issued.Add(1)
		token, err := issuer.Issue(domain.Principal{ID: 1, DisplayName: "root", Role: domain.RoleAdmin}, time.Now())
		if err != nil {
			return err
		}
		return c.JSON(dto.NewTokenResponse(token))
	})
	app.Delete("/sessions/current", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{}) })
	return serve(t, app)
}

func estimatorService(t *testing.T) string {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics("client_test")
	app := httptransport.NewApp("estimator", logger)
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{Logger: logger, Metrics: metrics})
	httptransport.RegisterEstimatorRoutes(app, httptransport.EstimatorRouteConfig{
		Health:      handlers.NewHealthHandler("estimator", "test", nil),
		Estimations: handlers.NewEstimationsHandler(estimation.NewEngine(zeroSource{}), handlers.NewValidator(), metrics),
		Capability:  auth.NewCapabilityMiddleware(auth.NewTokenVerifier(secret), logger),
		Metrics:     metrics,
	})
	return serve(t, app)
}

func TestLoginAndToken(t *testing.T) {
	var issued atomic.Int32
	c := New(fakeTicketService(t, &issued), "sid")
	ctx := context.Background()

	_, err := c.Token(ctx)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = c.Login(ctx, "root", "nope")
	require.True(t, IsUnauthorized(err))
	require.Contains(t, err.Error(), "Incorrect username or password")

	principal, err := c.Login(ctx, "root", "pw")
	require.NoError(t, err)
	require.Equal(t, "root", principal.DisplayName)

	token, err := c.Token(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)
	require.True(t, token.ExpiresAt.After(time.Now()))

	require.NoError(t, c.Logout(ctx))
	_, err = c.Token(ctx)
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestEstimatorCachesToken(t *testing.T) {
	var issued atomic.Int32
	c := New(fakeTicketService(t, &issued), "sid")
	ctx := context.Background()
	_, err := c.Login(ctx, "root", "pw")
	require.NoError(t, err)

	estimator := NewEstimatorClient(estimatorService(t), c)
	batch := []dto.EstimationTicket{{Title: "Printer jam", Category: domain.CategoryMaintenance}}

	for i := 0; i < 3; i++ {
		out, err := estimator.Estimate(ctx, batch)
		require.NoError(t, err)
		require.Equal(t, []dto.EstimationResponse{{Estimation: "211 hours"}}, out)
	}
	require.Equal(t, int32(1), issued.Load())
}

func TestEstimatorRenewsOnceOnUnauthorized(t *testing.T) {
	var issued atomic.Int32
	c := New(fakeTicketService(t, &issued), "sid")
	ctx := context.Background()
	_, err := c.Login(ctx, "root", "pw")
	require.NoError(t, err)

	estimator := NewEstimatorClient(estimatorService(t), c)
	estimator.token = dto.TokenResponse{Token: "stale.token.value", ExpiresAt: time.Now().Add(time.Hour)}

	out, err := estimator.Estimate(ctx, []dto.EstimationTicket{{Title: "Refund", Category: domain.CategoryPayment}})
	require.NoError(t, err)
	require.Equal(t, "131 hours", out[0].Estimation)
	require.Equal(t, int32(1), issued.Load())
}

type foreignTokens struct{ calls int }

func (f *foreignTokens) Token(context.Context) (dto.TokenResponse, error) {
	f.calls++
	token, err := auth.NewTokenIssuer("someone-else", time.Minute).Issue(domain.Principal{ID: 1, Role: domain.RoleAdmin}, time.Now())
	if err != nil {
		return dto.TokenResponse{}, err
	}
	return dto.NewTokenResponse(token), nil
}

func TestEstimatorGivesUpAfterOneRetry(t *testing.T) {
	tokens := &foreignTokens{}
	estimator := NewEstimatorClient(estimatorService(t), tokens)

	_, err := estimator.Estimate(context.Background(), []dto.EstimationTicket{{Title: "x", Category: domain.CategoryPayment}})
	require.True(t, IsUnauthorized(err))
	require.Contains(t, err.Error(), auth.EstimationsUnauthorized)
	require.Equal(t, 2, tokens.calls)
}

func TestCookieValue(t *testing.T) {
	require.Equal(t, "abc", cookieValue([]byte("sid=abc; path=/; HttpOnly")))
	require.Equal(t, "", cookieValue(nil))
}
