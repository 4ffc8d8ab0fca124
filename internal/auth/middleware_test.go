package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticketing/internal/domain"
	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

type stubResolver struct {
	sessions map[string]domain.Principal
	err      error
}

func (s stubResolver) Resolve(_ context.Context, handle string) (domain.Principal, error) {
	if s.err != nil {
		return domain.Principal{}, s.err
	}
	principal, ok := s.sessions[handle]
	if !ok {
		return domain.Principal{}, ErrNoSession
	}
	return principal, nil
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": domainErr.Message, "code": domainErr.Code})
		},
	})
}

func sessionApp(resolver PrincipalResolver) *fiber.App {
	app := newTestApp()
	app.Use(NewSessionMiddleware(resolver, "sid").Handle)
	app.Get("/public", func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(principal.DisplayName)
	})
	app.Get("/private", RequireSession(), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func withCookie(path, handle string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if handle != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: handle})
	}
	return req
}

func TestSessionMiddlewareResolvesPrincipal(t *testing.T) {
	app := sessionApp(stubResolver{sessions: map[string]domain.Principal{
		"h-user": {ID: 2, DisplayName: "jane", Role: domain.RoleRegular},
	}})

	status, body := doRequest(t, app, withCookie("/public", "h-user"))
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "jane", body)

	status, body = doRequest(t, app, withCookie("/public", "unknown"))
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "anonymous", body)
}

func TestRequireSession(t *testing.T) {
	app := sessionApp(stubResolver{sessions: map[string]domain.Principal{
		"h-user": {ID: 2, DisplayName: "jane", Role: domain.RoleRegular},
	}})

	status, _ := doRequest(t, app, withCookie("/private", ""))
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, app, withCookie("/private", "stale"))
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, app, withCookie("/private", "h-user"))
	require.Equal(t, http.StatusOK, status)
}

func TestRequireAdmin(t *testing.T) {
	app := sessionApp(stubResolver{sessions: map[string]domain.Principal{
		"h-user":  {ID: 2, DisplayName: "jane", Role: domain.RoleRegular},
		"h-admin": {ID: 1, DisplayName: "root", Role: domain.RoleAdmin},
	}})

	status, body := doRequest(t, app, withCookie("/admin", "h-user"))
	require.Equal(t, http.StatusUnauthorized, status)
	require.Contains(t, body, `"Unauthorized"`)

	status, _ = doRequest(t, app, withCookie("/admin", "h-admin"))
	require.Equal(t, http.StatusOK, status)
}

func TestSessionMiddlewareStoreFailure(t *testing.T) {
	app := sessionApp(stubResolver{err: errors.New("redis down")})

	status, body := doRequest(t, app, withCookie("/public", "h"))
	require.Equal(t, http.StatusInternalServerError, status)
	require.NotContains(t, body, "redis")
}

func capabilityApp(now time.Time) *fiber.App {
	app := newTestApp()
	guard := NewCapabilityMiddleware(NewTokenVerifier(testSecret), zap.NewNop()).WithClock(func() time.Time { return now })
	app.Post("/estimations", guard.Handle, func(c *fiber.Ctx) error {
		claims, ok := CapabilityFromContext(c)
		if !ok {
			return errors.New("claims missing")
		}
		return c.SendString(string(claims.Role))
	})
	return app
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/estimations", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestCapabilityMiddleware(t *testing.T) {
	token, err := NewTokenIssuer(testSecret, 5*time.Minute).Issue(domain.Principal{ID: 4, Role: domain.RoleAdmin}, issuedAt)
	require.NoError(t, err)

	status, body := doRequest(t, capabilityApp(issuedAt.Add(time.Minute)), bearer(token.Value))
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "admin", body)
}

func TestCapabilityMiddlewareCollapsesFailures(t *testing.T) {
	token, err := NewTokenIssuer(testSecret, 5*time.Minute).Issue(domain.Principal{ID: 4, Role: domain.RoleAdmin}, issuedAt)
	require.NoError(t, err)
	foreign, err := NewTokenIssuer("other", 5*time.Minute).Issue(domain.Principal{ID: 4, Role: domain.RoleAdmin}, issuedAt)
	require.NoError(t, err)

	cases := map[string]struct {
		now   time.Time
		token string
	}{
		"missing":   {now: issuedAt, token: ""},
		"expired":   {now: issuedAt.Add(10 * time.Minute), token: token.Value},
		"signature": {now: issuedAt, token: foreign.Value},
		"malformed": {now: issuedAt, token: "abc.def"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := doRequest(t, capabilityApp(tc.now), bearer(tc.token))
			require.Equal(t, http.StatusUnauthorized, status)
			require.Contains(t, body, EstimationsUnauthorized)
		})
	}
}
