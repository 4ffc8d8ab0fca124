package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticketing/internal/domain"
	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

const (
	principalKey     = "auth_principal"
	sessionHandleKey = "auth_session_handle"
	capabilityKey    = "auth_capability"
)

// EstimationsUnauthorized is the only message service B discloses for token failures.
const EstimationsUnauthorized = "Unauthorized to get estimations"

// ErrNoSession means the handle does not resolve to a live session.
var ErrNoSession = errors.New("no active session")

// PrincipalResolver resolves a session handle without touching credentials.
type PrincipalResolver interface {
	Resolve(ctx context.Context, handle string) (domain.Principal, error)
}

// SessionMiddleware loads the principal bound to the session cookie, if any.
// Requests without a live session pass through anonymous.
type SessionMiddleware struct {
	resolver PrincipalResolver
	cookie   string
}

// NewSessionMiddleware constructs middleware reading the named cookie.
func NewSessionMiddleware(resolver PrincipalResolver, cookie string) *SessionMiddleware {
	return &SessionMiddleware{resolver: resolver, cookie: cookie}
}

// Handle resolves the session cookie into a principal.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	handle := c.Cookies(m.cookie)
	if handle == "" {
		return c.Next()
	}

	principal, err := m.resolver.Resolve(c.UserContext(), handle)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return c.Next()
		}
		return apperrors.NewInternalError(err)
	}

	c.Locals(principalKey, principal)
	c.Locals(sessionHandleKey, handle)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated principal.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(domain.Principal)
	return principal, ok
}

// SessionHandle returns the raw session handle, live or not.
func SessionHandle(c *fiber.Ctx, cookie string) string {
	if handle, ok := c.Locals(sessionHandleKey).(string); ok {
		return handle
	}
	return c.Cookies(cookie)
}

// CapabilityMiddleware authorizes service B calls from the bearer token alone.
type CapabilityMiddleware struct {
	verifier *TokenVerifier
	now      func() time.Time
	logger   *zap.Logger
}

// NewCapabilityMiddleware constructs the bearer guard.
func NewCapabilityMiddleware(verifier *TokenVerifier, logger *zap.Logger) *CapabilityMiddleware {
	return &CapabilityMiddleware{verifier: verifier, now: time.Now, logger: logger}
}

// WithClock overrides the verification time source.
func (m *CapabilityMiddleware) WithClock(now func() time.Time) *CapabilityMiddleware {
	m.now = now
	return m
}

// Handle verifies the bearer token. Every failure yields the same 401.
func (m *CapabilityMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return apperrors.NewUnauthorized(EstimationsUnauthorized)
	}

	claims, err := m.verifier.Verify(token, m.now())
	if err != nil {
		m.logger.Debug("capability token rejected", zap.Error(err))
		return apperrors.NewUnauthorized(EstimationsUnauthorized)
	}

	c.Locals(capabilityKey, claims)
	return c.Next()
}

// CapabilityFromContext retrieves the verified token claims.
func CapabilityFromContext(c *fiber.Ctx) (TokenClaims, bool) {
	claims, ok := c.Locals(capabilityKey).(TokenClaims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
